package entity

import (
	"fmt"
	"sort"
	"strings"
)

// SetAttr is a set of unique bool, number or string values, stored with the Set class marker
type SetAttr struct {
	items    map[interface{}]struct{}
	attached bool
	invalid  bool
}

// NewSetAttr creates a new SetAttr holding vals
func NewSetAttr(vals ...interface{}) *SetAttr {
	a := &SetAttr{
		items: make(map[interface{}]struct{}, len(vals)),
	}
	for _, v := range vals {
		a.Add(v)
	}
	return a
}

func (a *SetAttr) checkValid() {
	if a.invalid {
		panic(newError(InvalidEntityError, "", "", "access to a set of an invalid entity"))
	}
}

func (a *SetAttr) String() string {
	var sb strings.Builder
	sb.WriteString("SetAttr{")
	for i, v := range a.sortedValues() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%#v", v)
	}
	sb.WriteString("}")
	return sb.String()
}

// Size returns the number of values
func (a *SetAttr) Size() int {
	a.checkValid()
	return len(a.items)
}

// Add adds v to the set. v must be a bool, number or string.
func (a *SetAttr) Add(v interface{}) {
	a.checkValid()
	a.items[mustPrimitive(v)] = struct{}{}
}

// Remove removes v from the set
func (a *SetAttr) Remove(v interface{}) {
	a.checkValid()
	delete(a.items, uniformAttrType(v))
}

// Contains returns if v is in the set
func (a *SetAttr) Contains(v interface{}) bool {
	a.checkValid()
	_, ok := a.items[uniformAttrType(v)]
	return ok
}

// Values returns all values: bools first, then numbers, then strings, each ascending
func (a *SetAttr) Values() []interface{} {
	a.checkValid()
	return a.sortedValues()
}

func (a *SetAttr) sortedValues() []interface{} {
	vals := make([]interface{}, 0, len(a.items))
	for v := range a.items {
		vals = append(vals, v)
	}
	sort.Slice(vals, func(i, j int) bool {
		return lessPrimitive(vals[i], vals[j])
	})
	return vals
}

// ForEach calls f on every value in the order of Values
func (a *SetAttr) ForEach(f func(v interface{})) {
	for _, v := range a.Values() {
		f(v)
	}
}

// Clear removes all values
func (a *SetAttr) Clear() {
	a.checkValid()
	a.items = map[interface{}]struct{}{}
}

func (a *SetAttr) clone() *SetAttr {
	a.checkValid()
	ca := &SetAttr{
		items: make(map[interface{}]struct{}, len(a.items)),
	}
	for v := range a.items {
		ca.items[v] = struct{}{}
	}
	return ca
}

func (a *SetAttr) invalidate() {
	a.items = map[interface{}]struct{}{}
	a.invalid = true
}

func lessPrimitive(x, y interface{}) bool {
	kx, ky := Classify(x), Classify(y)
	if kx != ky {
		return kx < ky
	}
	switch kx {
	case KindBool:
		return !x.(bool) && y.(bool)
	case KindNumber:
		fx, fy := toFloat(x), toFloat(y)
		if fx != fy {
			return fx < fy
		}
		// 1 and 1.0 are distinct elements: ints first
		_, xInt := x.(int64)
		_, yInt := y.(int64)
		return xInt && !yInt
	case KindString:
		return x.(string) < y.(string)
	}
	return false
}
