package tesira

import (
	"errors"
	"fmt"

	"github.com/avtools/tesira/ttp"
)

// Local validation errors are raised before any byte reaches the
// device and never consume protocol state. Protocol errors come from
// the session engine or the device itself.

// Engine-raised protocol errors.
var (
	// ErrCommandInFlight is returned by Send when a previous command
	// is still awaiting its reply. The protocol has no request
	// identifiers, so only one command may be outstanding per session.
	ErrCommandInFlight = errors.New("tesira: a command is already in flight")

	// ErrSessionClosed is returned once the transport is gone. Any
	// outstanding reply fails with it and all subscription channels
	// are closed.
	ErrSessionClosed = errors.New("tesira: session closed")

	// ErrDuplicateTag is returned by Subscribe when the publish token
	// is already registered on this session.
	ErrDuplicateTag = errors.New("tesira: subscription tag already registered")
)

// Builder errors for missing required fields.
var (
	ErrMissingTarget    = errors.New("tesira: command target alias not set")
	ErrMissingBlockType = errors.New("tesira: block type not set")
	ErrMissingAttribute = errors.New("tesira: attribute not set")
	ErrMissingVerb      = errors.New("tesira: verb not set")
	ErrMissingTag       = errors.New("tesira: subscription tag not set")
)

// UnknownBlockTypeError reports a block type absent from the catalog.
type UnknownBlockTypeError struct {
	Name string
}

func (e *UnknownBlockTypeError) Error() string {
	return fmt.Sprintf("tesira: unknown block type %q", e.Name)
}

// UnknownAliasError reports an alias with no registered block type.
type UnknownAliasError struct {
	Alias string
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("tesira: no block type registered for alias %q", e.Alias)
}

// UnknownAttributeError reports an attribute the block type does not
// declare.
type UnknownAttributeError struct {
	BlockType string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("tesira: block type %q has no attribute %q", e.BlockType, e.Attribute)
}

// UnsupportedVerbError reports a verb the attribute does not support.
type UnsupportedVerbError struct {
	BlockType string
	Attribute string
	Verb      ttp.Verb
}

func (e *UnsupportedVerbError) Error() string {
	return fmt.Sprintf("tesira: attribute %s.%s does not support %q", e.BlockType, e.Attribute, e.Verb)
}

// ArityError reports a wrong number of command arguments.
type ArityError struct {
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("tesira: wrong argument count: expected %d, got %d", e.Expected, e.Got)
}

// ArgumentTypeError reports a command argument of the wrong kind.
type ArgumentTypeError struct {
	Position int
	Expected string
	Got      ttp.Kind
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("tesira: argument %d: expected %s, got %s", e.Position, e.Expected, e.Got)
}
