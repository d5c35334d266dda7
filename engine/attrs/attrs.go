// Package attrs declares and resolves per-property attribute flags.
//
// Every property of a serializable class carries four flags: saved, edited,
// sentToClient and sentToServer. Classes declare flags with plain data, either
// per property or class wide (defaultAttributes). Flags not declared anywhere
// fall through to the process wide defaults, which are all true.
package attrs

import (
	"fmt"
	"strings"
)

// Flag identifies one of the four attribute flags
type Flag int

const (
	// Saved properties are written to disk
	Saved Flag = iota
	// Edited properties are exposed to the world editor
	Edited
	// SentToClient properties are pushed to clients
	SentToClient
	// SentToServer properties are pushed to the server
	SentToServer

	numFlags
)

var flagNames = [numFlags]string{"saved", "edited", "sentToClient", "sentToServer"}

func (f Flag) String() string {
	if f < 0 || f >= numFlags {
		return fmt.Sprintf("Flag(%d)", int(f))
	}
	return flagNames[f]
}

// ParseFlag returns the flag of the name, case insensitive
func ParseFlag(name string) (Flag, bool) {
	for f, fn := range flagNames {
		if strings.EqualFold(fn, name) {
			return Flag(f), true
		}
	}
	return 0, false
}

// Record is an attribute declaration. Nil flags are not declared and fall through.
type Record struct {
	Saved        *bool
	Edited       *bool
	SentToClient *bool
	SentToServer *bool
}

func (r *Record) ptr(f Flag) **bool {
	switch f {
	case Saved:
		return &r.Saved
	case Edited:
		return &r.Edited
	case SentToClient:
		return &r.SentToClient
	case SentToServer:
		return &r.SentToServer
	}
	panic(fmt.Errorf("invalid flag: %d", int(f)))
}

// Get returns the declared value of flag f, nil if undeclared
func (r Record) Get(f Flag) *bool {
	return *r.ptr(f)
}

// Set declares flag f
func (r *Record) Set(f Flag, v bool) {
	*r.ptr(f) = &v
}

// IsEmpty returns if no flag is declared
func (r Record) IsEmpty() bool {
	return r.Saved == nil && r.Edited == nil && r.SentToClient == nil && r.SentToServer == nil
}

func (r Record) String() string {
	var parts []string
	for f := Flag(0); f < numFlags; f++ {
		if v := r.Get(f); v != nil {
			parts = append(parts, fmt.Sprintf("%s:%v", f, *v))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Attributes is a resolved attribute record: every flag is concrete
type Attributes struct {
	Saved        bool
	Edited       bool
	SentToClient bool
	SentToServer bool
}

// Defaults are the process wide attributes used when nothing is declared
var Defaults = Attributes{
	Saved:        true,
	Edited:       true,
	SentToClient: true,
	SentToServer: true,
}

// Get returns the value of flag f
func (a Attributes) Get(f Flag) bool {
	switch f {
	case Saved:
		return a.Saved
	case Edited:
		return a.Edited
	case SentToClient:
		return a.SentToClient
	case SentToServer:
		return a.SentToServer
	}
	panic(fmt.Errorf("invalid flag: %d", int(f)))
}

func (a *Attributes) set(f Flag, v bool) {
	switch f {
	case Saved:
		a.Saved = v
	case Edited:
		a.Edited = v
	case SentToClient:
		a.SentToClient = v
	case SentToServer:
		a.SentToServer = v
	}
}

// Allows returns if a property with these attributes is included in mode m
func (a Attributes) Allows(m Mode) bool {
	return a.Get(m.Flag())
}

// Resolve resolves the attributes of prop declared in table t.
//
// Per flag, the first declaration wins: the property's own record, then the
// class wide defaultAttributes, then Defaults. t may be nil.
func Resolve(t *Table, prop string) Attributes {
	res := Defaults
	if t == nil {
		return res
	}

	rec, hasRec := t.records[prop]
	for f := Flag(0); f < numFlags; f++ {
		if hasRec {
			if v := rec.Get(f); v != nil {
				res.set(f, *v)
				continue
			}
		}
		if t.defaults != nil {
			if v := t.defaults.Get(f); v != nil {
				res.set(f, *v)
			}
		}
	}
	return res
}
