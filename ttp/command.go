package ttp

import (
	"strconv"
	"strings"
	"time"
)

// Command is one client command addressed to a block attribute.
// Commands are built once and consumed by EncodeCommand; they carry no
// connection state.
type Command struct {
	// InstanceTag is the alias of the block instance to address, or
	// one of the service pseudo-blocks ("SESSION", "DEVICE").
	InstanceTag string

	// Verb is the action to perform.
	Verb Verb

	// Attribute is the attribute the verb applies to.
	Attribute string

	// Indexes narrow the target, for example a channel number.
	Indexes []uint64

	// Values are the trailing arguments: the value for set, the
	// amount for increment/decrement, the publish token and optional
	// rate for subscribe/unsubscribe.
	Values []Value
}

// NewGet builds a "get" command.
func NewGet(instanceTag, attribute string, indexes ...uint64) Command {
	return Command{
		InstanceTag: instanceTag,
		Verb:        VerbGet,
		Attribute:   attribute,
		Indexes:     indexes,
	}
}

// NewSet builds a "set" command.
func NewSet(instanceTag, attribute string, value Value, indexes ...uint64) Command {
	return Command{
		InstanceTag: instanceTag,
		Verb:        VerbSet,
		Attribute:   attribute,
		Indexes:     indexes,
		Values:      []Value{value},
	}
}

// NewIncrement builds an "increment" command.
func NewIncrement(instanceTag, attribute string, amount Value, indexes ...uint64) Command {
	return Command{
		InstanceTag: instanceTag,
		Verb:        VerbIncrement,
		Attribute:   attribute,
		Indexes:     indexes,
		Values:      []Value{amount},
	}
}

// NewDecrement builds a "decrement" command.
func NewDecrement(instanceTag, attribute string, amount Value, indexes ...uint64) Command {
	return Command{
		InstanceTag: instanceTag,
		Verb:        VerbDecrement,
		Attribute:   attribute,
		Indexes:     indexes,
		Values:      []Value{amount},
	}
}

// NewToggle builds a "toggle" command.
func NewToggle(instanceTag, attribute string, indexes ...uint64) Command {
	return Command{
		InstanceTag: instanceTag,
		Verb:        VerbToggle,
		Attribute:   attribute,
		Indexes:     indexes,
	}
}

// NewSubscribe builds a "subscribe" command with the given publish
// token. The device writes the token back bare, so it is carried as a
// constant, not a quoted string.
func NewSubscribe(instanceTag, attribute, tag string, indexes ...uint64) Command {
	return Command{
		InstanceTag: instanceTag,
		Verb:        VerbSubscribe,
		Attribute:   attribute,
		Indexes:     indexes,
		Values:      []Value{Constant(tag)},
	}
}

// NewSubscribeWithRate builds a "subscribe" command carrying a minimum
// publish interval.
func NewSubscribeWithRate(instanceTag, attribute, tag string, rate time.Duration, indexes ...uint64) Command {
	return Command{
		InstanceTag: instanceTag,
		Verb:        VerbSubscribe,
		Attribute:   attribute,
		Indexes:     indexes,
		Values:      []Value{Constant(tag), Int(rate.Milliseconds())},
	}
}

// NewUnsubscribe builds an "unsubscribe" command for the given publish
// token.
func NewUnsubscribe(instanceTag, attribute, tag string, indexes ...uint64) Command {
	return Command{
		InstanceTag: instanceTag,
		Verb:        VerbUnsubscribe,
		Attribute:   attribute,
		Indexes:     indexes,
		Values:      []Value{Constant(tag)},
	}
}

// NewGetAliases builds the session-services command that lists every
// block alias configured on the device.
func NewGetAliases() Command {
	return NewGet("SESSION", "aliases")
}

// EncodeCommand serializes cmd into exactly one protocol line,
// terminator included:
//
//	<instanceTag> <verb> <attribute> [<indexes>...] [<values>...]\n
//
// It fails with an IllegalValueError when any part would break the
// line framing or the value grammar.
func EncodeCommand(cmd Command) ([]byte, error) {
	if err := checkWireWord("instance tag", cmd.InstanceTag); err != nil {
		return nil, err
	}
	if err := checkWireWord("attribute", cmd.Attribute); err != nil {
		return nil, err
	}
	if cmd.Verb == "" {
		return nil, &IllegalValueError{Reason: "command has no verb"}
	}

	dst := make([]byte, 0, 64)
	dst = append(dst, cmd.InstanceTag...)
	dst = append(dst, ' ')
	dst = append(dst, cmd.Verb...)
	dst = append(dst, ' ')
	dst = append(dst, cmd.Attribute...)

	for _, idx := range cmd.Indexes {
		dst = append(dst, ' ')
		dst = strconv.AppendUint(dst, idx, 10)
	}

	for _, v := range cmd.Values {
		dst = append(dst, ' ')
		var err error
		dst, err = appendValue(dst, v)
		if err != nil {
			return nil, err
		}
	}

	return append(dst, LF...), nil
}

func checkWireWord(what, s string) error {
	if s == "" {
		return &IllegalValueError{Reason: what + " is empty"}
	}
	if strings.ContainsAny(s, " \t\r\n\"") {
		return &IllegalValueError{Reason: what + " contains whitespace or quotes: " + strconv.Quote(s)}
	}
	return nil
}
