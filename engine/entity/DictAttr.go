package entity

import (
	"fmt"
	"sort"
	"strings"
)

// DictAttr is a key/value mapping attribute. It is stored with the Map class marker,
// unlike MapAttr which is an untyped nested object.
type DictAttr struct {
	items    map[string]interface{}
	attached bool
	invalid  bool
}

// NewDictAttr creates a new DictAttr
func NewDictAttr() *DictAttr {
	return &DictAttr{
		items: map[string]interface{}{},
	}
}

func (a *DictAttr) checkValid() {
	if a.invalid {
		panic(newError(InvalidEntityError, "", "", "access to a map of an invalid entity"))
	}
}

func (a *DictAttr) String() string {
	var sb strings.Builder
	sb.WriteString("DictAttr{")
	for i, k := range a.sortedKeys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%#v: ", k)
		writeValue(&sb, a.items[k])
	}
	sb.WriteString("}")
	return sb.String()
}

// Size returns the number of entries
func (a *DictAttr) Size() int {
	a.checkValid()
	return len(a.items)
}

// Has returns if key is in the DictAttr
func (a *DictAttr) Has(key string) bool {
	a.checkValid()
	_, ok := a.items[key]
	return ok
}

// Get returns the value of key, or nil
func (a *DictAttr) Get(key string) interface{} {
	a.checkValid()
	return a.items[key]
}

// GetInt returns the value of key as int64
func (a *DictAttr) GetInt(key string) int64 {
	if v, ok := a.Get(key).(int64); ok {
		return v
	}
	return 0
}

// GetFloat returns the value of key as float64
func (a *DictAttr) GetFloat(key string) float64 {
	if v := a.Get(key); v != nil {
		return toFloat(v)
	}
	return 0
}

// GetStr returns the value of key as string
func (a *DictAttr) GetStr(key string) string {
	if v, ok := a.Get(key).(string); ok {
		return v
	}
	return ""
}

// GetBool returns the value of key as bool
func (a *DictAttr) GetBool(key string) bool {
	if v, ok := a.Get(key).(bool); ok {
		return v
	}
	return false
}

// Set sets the value of key
func (a *DictAttr) Set(key string, val interface{}) {
	a.checkValid()
	val = uniformAttrType(val)
	old, ok := a.items[key]
	if ok && attachedFlag(val) != nil && old == val {
		return
	}
	attach(val, key)
	if ok {
		detach(old)
	}
	a.items[key] = val
}

// Del removes key
func (a *DictAttr) Del(key string) {
	a.checkValid()
	if old, ok := a.items[key]; ok {
		detach(old)
		delete(a.items, key)
	}
}

// Keys returns the keys in sorted order
func (a *DictAttr) Keys() []string {
	a.checkValid()
	return a.sortedKeys()
}

func (a *DictAttr) sortedKeys() []string {
	keys := make([]string, 0, len(a.items))
	for k := range a.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ForEach calls f on every entry in key order
func (a *DictAttr) ForEach(f func(key string, val interface{})) {
	for _, k := range a.Keys() {
		f(k, a.items[k])
	}
}

// Clear removes all entries
func (a *DictAttr) Clear() {
	a.checkValid()
	for _, v := range a.items {
		detach(v)
	}
	a.items = map[string]interface{}{}
}

// ToMap converts DictAttr to native map, recursively
func (a *DictAttr) ToMap() map[string]interface{} {
	a.checkValid()
	m := make(map[string]interface{}, len(a.items))
	for k, v := range a.items {
		m[k] = toNative(v)
	}
	return m
}

func (a *DictAttr) clone() *DictAttr {
	a.checkValid()
	ca := &DictAttr{
		items: make(map[string]interface{}, len(a.items)),
	}
	for k, v := range a.items {
		ca.items[k] = attach(cloneValue(v), k)
	}
	return ca
}

func (a *DictAttr) invalidate() {
	a.items = map[string]interface{}{}
	a.invalid = true
}
