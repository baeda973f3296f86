package tesira

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/avtools/tesira/ttp"
)

// ValueType is the declared type of a block attribute value.
type ValueType string

const (
	// TypeNone marks attributes with no value argument (toggles,
	// action-like attributes).
	TypeNone ValueType = "none"

	// TypeNumber accepts integer or float arguments.
	TypeNumber ValueType = "number"

	// TypeInteger accepts integer arguments only.
	TypeInteger ValueType = "integer"

	// TypeBoolean accepts true/false.
	TypeBoolean ValueType = "boolean"

	// TypeString accepts quoted strings.
	TypeString ValueType = "string"

	// TypeConstant accepts bare enumeration words.
	TypeConstant ValueType = "constant"
)

// Matches reports whether a value of kind k is acceptable for t.
func (t ValueType) Matches(k ttp.Kind) bool {
	switch t {
	case TypeNumber:
		return k == ttp.KindInt || k == ttp.KindFloat
	case TypeInteger:
		return k == ttp.KindInt
	case TypeBoolean:
		return k == ttp.KindBool
	case TypeString:
		return k == ttp.KindString
	case TypeConstant:
		return k == ttp.KindConstant
	default:
		return false
	}
}

// AttributeSpec declares one attribute of a block type: its value
// type, how many indexes address it, and the verbs it supports.
type AttributeSpec struct {
	Name    string     `yaml:"name"`
	Type    ValueType  `yaml:"type"`
	Indexes int        `yaml:"indexes"`
	Verbs   []ttp.Verb `yaml:"verbs"`
}

// Supports reports whether the attribute declares the given verb.
func (a *AttributeSpec) Supports(verb ttp.Verb) bool {
	for _, v := range a.Verbs {
		if v == verb {
			return true
		}
	}
	return false
}

// BlockType is one entry of the catalog: a named block type and its
// ordered attribute set. Immutable once loaded.
type BlockType struct {
	Name       string
	Attributes []AttributeSpec

	byName map[string]*AttributeSpec
}

// Attribute looks up an attribute spec by name.
func (b *BlockType) Attribute(name string) (*AttributeSpec, error) {
	spec, ok := b.byName[name]
	if !ok {
		return nil, &UnknownAttributeError{BlockType: b.Name, Attribute: name}
	}
	return spec, nil
}

// Catalog maps block-type names to their attribute specifications.
// A catalog is loaded once, read-only afterwards, and passed
// explicitly to every session that should use it; there is no hidden
// global state, so tests can run independent catalogs side by side.
type Catalog struct {
	blocks map[string]*BlockType
}

// catalogFile is the on-disk shape of a catalog.
type catalogFile struct {
	Blocks map[string]struct {
		Attributes []AttributeSpec `yaml:"attributes"`
	} `yaml:"blocks"`
}

// LoadCatalog reads a YAML catalog from r.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tesira: reading catalog: %w", err)
	}
	return parseCatalog(data)
}

// LoadCatalogFile reads a YAML catalog from the named file.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tesira: opening catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("tesira: decoding catalog: %w", err)
	}

	c := &Catalog{blocks: make(map[string]*BlockType, len(file.Blocks))}
	for name, entry := range file.Blocks {
		block := &BlockType{
			Name:       name,
			Attributes: entry.Attributes,
			byName:     make(map[string]*AttributeSpec, len(entry.Attributes)),
		}
		for i := range block.Attributes {
			spec := &block.Attributes[i]
			if spec.Name == "" {
				return nil, fmt.Errorf("tesira: catalog block %q has an unnamed attribute", name)
			}
			if _, dup := block.byName[spec.Name]; dup {
				return nil, fmt.Errorf("tesira: catalog block %q declares attribute %q twice", name, spec.Name)
			}
			if spec.Type == "" {
				spec.Type = TypeNone
			}
			block.byName[spec.Name] = spec
		}
		c.blocks[name] = block
	}
	return c, nil
}

// BlockType looks up a block type by name.
func (c *Catalog) BlockType(name string) (*BlockType, error) {
	block, ok := c.blocks[name]
	if !ok {
		return nil, &UnknownBlockTypeError{Name: name}
	}
	return block, nil
}

// Attribute looks up an attribute spec across block type and
// attribute name in one call.
func (c *Catalog) Attribute(blockType, attribute string) (*AttributeSpec, error) {
	block, err := c.BlockType(blockType)
	if err != nil {
		return nil, err
	}
	return block.Attribute(attribute)
}

// BlockTypes returns the names of every block type in the catalog.
func (c *Catalog) BlockTypes() []string {
	names := make([]string, 0, len(c.blocks))
	for name := range c.blocks {
		names = append(names, name)
	}
	return names
}

//go:embed blocks.yaml
var defaultCatalogData []byte

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// DefaultCatalog returns the catalog built into the library, covering
// the common block types. It is parsed once and shared; the result is
// read-only. Callers with richer device configurations load their own
// catalog with LoadCatalogFile and pass it in Config.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := parseCatalog(defaultCatalogData)
		if err != nil {
			panic("tesira: embedded catalog is invalid: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
