package tesira

import (
	"time"

	"github.com/avtools/tesira/ttp"
)

// CommandBuilder accumulates the parts of a command and validates them
// against a schema catalog before a single byte is produced. It is
// pure: no network, no I/O.
//
// A builder is reusable. Build never consumes it; after a failed Build
// the offending field can be corrected and Build called again.
//
//	cmd, err := catalog.Builder("Level", "Level3").
//		Attribute("level").
//		Verb(ttp.VerbSet).
//		Args(ttp.Int(2), ttp.Float(-10)).
//		Build()
type CommandBuilder struct {
	catalog   *Catalog
	blockType string
	target    string
	attribute string
	verb      ttp.Verb
	args      []ttp.Value
	tag       string
	rate      time.Duration
}

// NewCommandBuilder returns a builder validating against the given
// catalog. A nil catalog means the built-in default.
func NewCommandBuilder(catalog *Catalog) *CommandBuilder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &CommandBuilder{catalog: catalog}
}

// Builder is shorthand for a builder already bound to a block type and
// target alias.
func (c *Catalog) Builder(blockType, target string) *CommandBuilder {
	return &CommandBuilder{catalog: c, blockType: blockType, target: target}
}

// BlockType sets the catalog block type the target alias refers to.
func (b *CommandBuilder) BlockType(name string) *CommandBuilder {
	b.blockType = name
	return b
}

// Target sets the alias of the block instance to address.
func (b *CommandBuilder) Target(alias string) *CommandBuilder {
	b.target = alias
	return b
}

// Attribute sets the attribute the verb applies to.
func (b *CommandBuilder) Attribute(name string) *CommandBuilder {
	b.attribute = name
	return b
}

// Verb sets the action to perform.
func (b *CommandBuilder) Verb(v ttp.Verb) *CommandBuilder {
	b.verb = v
	return b
}

// Args sets the command arguments: the attribute's indexes first, then
// the verb's trailing values (the value for set, the amount for
// increment/decrement, the tag for subscribe/unsubscribe unless set
// with Tag).
func (b *CommandBuilder) Args(args ...ttp.Value) *CommandBuilder {
	b.args = args
	return b
}

// Tag sets the publish token for subscribe/unsubscribe commands.
func (b *CommandBuilder) Tag(tag string) *CommandBuilder {
	b.tag = tag
	return b
}

// Rate sets the minimum publish interval for subscribe commands.
func (b *CommandBuilder) Rate(d time.Duration) *CommandBuilder {
	b.rate = d
	return b
}

// Build validates the accumulated fields and produces an immutable
// Command. It returns the first validation failure encountered; the
// builder itself is left untouched.
func (b *CommandBuilder) Build() (ttp.Command, error) {
	if b.target == "" {
		return ttp.Command{}, ErrMissingTarget
	}
	if b.blockType == "" {
		return ttp.Command{}, ErrMissingBlockType
	}
	block, err := b.catalog.BlockType(b.blockType)
	if err != nil {
		return ttp.Command{}, err
	}
	if b.attribute == "" {
		return ttp.Command{}, ErrMissingAttribute
	}
	spec, err := block.Attribute(b.attribute)
	if err != nil {
		return ttp.Command{}, err
	}
	if b.verb == "" {
		return ttp.Command{}, ErrMissingVerb
	}
	if !spec.Supports(b.verb) {
		return ttp.Command{}, &UnsupportedVerbError{BlockType: block.Name, Attribute: spec.Name, Verb: b.verb}
	}

	if err := b.checkArity(spec); err != nil {
		return ttp.Command{}, err
	}

	indexes, err := b.indexArgs(spec)
	if err != nil {
		return ttp.Command{}, err
	}

	values, err := b.valueArgs(spec)
	if err != nil {
		return ttp.Command{}, err
	}

	return ttp.Command{
		InstanceTag: b.target,
		Verb:        b.verb,
		Attribute:   b.attribute,
		Indexes:     indexes,
		Values:      values,
	}, nil
}

// checkArity verifies the argument count for the chosen verb.
func (b *CommandBuilder) checkArity(spec *AttributeSpec) error {
	expected := spec.Indexes
	switch b.verb {
	case ttp.VerbSet, ttp.VerbIncrement, ttp.VerbDecrement:
		if spec.Type != TypeNone {
			expected++
		}
	case ttp.VerbSubscribe, ttp.VerbUnsubscribe:
		if b.tag == "" {
			expected++
		}
	}

	got := len(b.args)
	if got == expected {
		return nil
	}
	// Subscribe accepts one extra trailing rate argument.
	if b.verb == ttp.VerbSubscribe && got == expected+1 {
		return nil
	}
	return &ArityError{Expected: expected, Got: got}
}

// indexArgs validates and extracts the leading index arguments.
func (b *CommandBuilder) indexArgs(spec *AttributeSpec) ([]uint64, error) {
	if spec.Indexes == 0 {
		return nil, nil
	}
	indexes := make([]uint64, spec.Indexes)
	for i := 0; i < spec.Indexes; i++ {
		arg := b.args[i]
		if arg.Kind() != ttp.KindInt || arg.Int() < 0 {
			return nil, &ArgumentTypeError{Position: i, Expected: "non-negative index", Got: arg.Kind()}
		}
		indexes[i] = uint64(arg.Int())
	}
	return indexes, nil
}

// valueArgs validates the trailing arguments and renders the wire
// values for the chosen verb.
func (b *CommandBuilder) valueArgs(spec *AttributeSpec) ([]ttp.Value, error) {
	rest := b.args[spec.Indexes:]

	switch b.verb {
	case ttp.VerbGet, ttp.VerbToggle:
		return nil, nil

	case ttp.VerbSet, ttp.VerbIncrement, ttp.VerbDecrement:
		if spec.Type == TypeNone {
			return nil, nil
		}
		v := rest[0]
		if !spec.Type.Matches(v.Kind()) {
			return nil, &ArgumentTypeError{Position: spec.Indexes, Expected: string(spec.Type), Got: v.Kind()}
		}
		return []ttp.Value{v}, nil

	case ttp.VerbSubscribe, ttp.VerbUnsubscribe:
		tag, rest, err := b.subscriptionTag(spec, rest)
		if err != nil {
			return nil, err
		}
		values := []ttp.Value{ttp.Constant(tag)}
		if b.verb == ttp.VerbSubscribe {
			rate := b.rate
			if len(rest) == 1 {
				arg := rest[0]
				if arg.Kind() != ttp.KindInt || arg.Int() < 0 {
					return nil, &ArgumentTypeError{Position: len(b.args) - 1, Expected: "rate in milliseconds", Got: arg.Kind()}
				}
				rate = time.Duration(arg.Int()) * time.Millisecond
			}
			if rate > 0 {
				values = append(values, ttp.Int(rate.Milliseconds()))
			}
		}
		return values, nil

	default:
		return nil, &UnsupportedVerbError{BlockType: b.blockType, Attribute: spec.Name, Verb: b.verb}
	}
}

// subscriptionTag resolves the publish token from the Tag setter or
// the first trailing argument, and returns the remaining arguments.
func (b *CommandBuilder) subscriptionTag(spec *AttributeSpec, rest []ttp.Value) (string, []ttp.Value, error) {
	if b.tag != "" {
		return b.tag, rest, nil
	}
	if len(rest) == 0 {
		return "", nil, ErrMissingTag
	}
	arg := rest[0]
	if arg.Kind() != ttp.KindString && arg.Kind() != ttp.KindConstant {
		return "", nil, &ArgumentTypeError{Position: spec.Indexes, Expected: "subscription tag", Got: arg.Kind()}
	}
	return arg.Str(), rest[1:], nil
}
