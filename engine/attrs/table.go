package attrs

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigError reports a malformed attribute declaration
type ConfigError struct {
	Class    string
	Property string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("attribute config of class %s: %s", e.Class, e.Reason)
	}
	return fmt.Sprintf("attribute config of %s.%s: %s", e.Class, e.Property, e.Reason)
}

// Table holds the attribute declarations of one class
type Table struct {
	class    string
	records  map[string]Record
	defaults *Record
}

// NewTable creates an empty attribute table for class
func NewTable(class string) *Table {
	return &Table{
		class:   class,
		records: map[string]Record{},
	}
}

// Class returns the class name of the table
func (t *Table) Class() string {
	return t.class
}

// Define declares the record of prop, merging with any earlier declaration
func (t *Table) Define(prop string, rec Record) {
	old := t.records[prop]
	t.records[prop] = mergeRecord(old, rec)
}

// SetDefaults declares the class wide defaultAttributes record
func (t *Table) SetDefaults(rec Record) {
	if t.defaults == nil {
		t.defaults = &Record{}
	}
	*t.defaults = mergeRecord(*t.defaults, rec)
}

// Lookup returns the record declared for prop
func (t *Table) Lookup(prop string) (Record, bool) {
	rec, ok := t.records[prop]
	return rec, ok
}

// Defaults returns the class wide defaultAttributes record
func (t *Table) Defaults() (Record, bool) {
	if t.defaults == nil {
		return Record{}, false
	}
	return *t.defaults, true
}

// Properties returns the sorted names of all declared properties
func (t *Table) Properties() []string {
	props := make([]string, 0, len(t.records))
	for prop := range t.records {
		props = append(props, prop)
	}
	sort.Strings(props)
	return props
}

// Merge applies all declarations of other on top of t
func (t *Table) Merge(other *Table) {
	for prop, rec := range other.records {
		t.Define(prop, rec)
	}
	if other.defaults != nil {
		t.SetDefaults(*other.defaults)
	}
}

func mergeRecord(base, over Record) Record {
	for f := Flag(0); f < numFlags; f++ {
		if v := over.Get(f); v != nil {
			base.Set(f, *v)
		}
	}
	return base
}

// ParseDefs builds a record from definition words.
//
// A word names a flag to set it true; "!flag" or "flag=false" sets it false.
func ParseDefs(class, prop string, defs ...string) (Record, error) {
	var rec Record
	for _, def := range defs {
		name, val := strings.TrimSpace(def), true
		if strings.HasPrefix(name, "!") {
			name, val = name[1:], false
		} else if i := strings.IndexByte(name, '='); i >= 0 {
			b, err := strconv.ParseBool(strings.TrimSpace(name[i+1:]))
			if err != nil {
				return rec, &ConfigError{class, prop, fmt.Sprintf("invalid definition %q", def)}
			}
			name, val = strings.TrimSpace(name[:i]), b
		}

		f, ok := ParseFlag(name)
		if !ok {
			return rec, &ConfigError{class, prop, fmt.Sprintf("invalid definition %q; valid flags: %v", def, flagNames)}
		}
		rec.Set(f, val)
	}
	return rec, nil
}

// ParseRecord converts declarative data into a record.
//
// v must be a map of flag names to booleans; anything else is a configuration error.
func ParseRecord(class, prop string, v interface{}) (Record, error) {
	var rec Record
	var m map[string]interface{}
	switch mv := v.(type) {
	case map[string]interface{}:
		m = mv
	case map[interface{}]interface{}:
		m = make(map[string]interface{}, len(mv))
		for k, fv := range mv {
			ks, ok := k.(string)
			if !ok {
				return rec, &ConfigError{class, prop, fmt.Sprintf("flag name %v is not a string", k)}
			}
			m[ks] = fv
		}
	case nil:
		return rec, &ConfigError{class, prop, "record is null"}
	default:
		return rec, &ConfigError{class, prop, fmt.Sprintf("not a flag record: %T", v)}
	}

	for name, fv := range m {
		f, ok := ParseFlag(name)
		if !ok {
			return rec, &ConfigError{class, prop, fmt.Sprintf("unknown flag %q", name)}
		}
		b, ok := fv.(bool)
		if !ok {
			return rec, &ConfigError{class, prop, fmt.Sprintf("flag %s is %T, not bool", name, fv)}
		}
		rec.Set(f, b)
	}
	return rec, nil
}

// ClassSpec is the declarative description of one class in a class attribute file
type ClassSpec struct {
	Version    int
	HasVersion bool
	Table      *Table
}

type yamlClassSpec struct {
	Version           *int                   `yaml:"version"`
	DefaultAttributes interface{}            `yaml:"defaultAttributes"`
	Attributes        map[string]interface{} `yaml:"attributes"`
}

// LoadTables parses a YAML class attribute file:
//
//	Room:
//	  version: 2
//	  defaultAttributes: {sentToClient: false}
//	  attributes:
//	    description: {edited: true}
func LoadTables(data []byte) (map[string]*ClassSpec, error) {
	var doc map[string]yamlClassSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parse class attributes")
	}

	specs := make(map[string]*ClassSpec, len(doc))
	for class, ys := range doc {
		spec := &ClassSpec{Table: NewTable(class)}
		if ys.Version != nil {
			spec.Version, spec.HasVersion = *ys.Version, true
		}
		if ys.DefaultAttributes != nil {
			rec, err := ParseRecord(class, "defaultAttributes", ys.DefaultAttributes)
			if err != nil {
				return nil, err
			}
			spec.Table.SetDefaults(rec)
		}
		for prop, v := range ys.Attributes {
			rec, err := ParseRecord(class, prop, v)
			if err != nil {
				return nil, err
			}
			spec.Table.Define(prop, rec)
		}
		specs[class] = spec
	}
	return specs, nil
}
