package entity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/protoworld/protoworld/engine/gwlog"
)

// MapAttr is a map attribute containing muiltiple attributes indexed by string keys.
//
// The attributes of an entity are a MapAttr whose proto points to the attributes
// of its prototype: reads fall through to proto, writes always go to the MapAttr
// itself. Nested MapAttrs are plain objects and have no proto.
type MapAttr struct {
	attrs    map[string]interface{}
	proto    *MapAttr
	attached bool
	invalid  bool
}

// NewMapAttr creates a new MapAttr
func NewMapAttr() *MapAttr {
	return &MapAttr{
		attrs: make(map[string]interface{}),
	}
}

func newInvalidMapAttr() *MapAttr {
	return &MapAttr{
		attrs:   map[string]interface{}{},
		invalid: true,
	}
}

func (a *MapAttr) checkValid() {
	if a.invalid {
		panic(newError(InvalidEntityError, "", "", "access to attributes of an invalid entity"))
	}
}

// Size returns the number of own attributes
func (a *MapAttr) Size() int {
	a.checkValid()
	return len(a.attrs)
}

// String convert MapAttr to readable string
func (a *MapAttr) String() string {
	if a.invalid {
		return "MapAttr<invalid>"
	}
	var sb strings.Builder
	sb.WriteString("MapAttr{")
	for i, k := range a.sortedKeys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%#v: ", k)
		writeValue(&sb, a.attrs[k])
	}
	sb.WriteString("}")
	return sb.String()
}

// HasKey returns if the key exists in MapAttr or in its prototype chain
func (a *MapAttr) HasKey(key string) bool {
	_, ok := a.Lookup(key)
	return ok
}

// IsOwn returns if the key is set on the MapAttr itself
func (a *MapAttr) IsOwn(key string) bool {
	a.checkValid()
	_, ok := a.attrs[key]
	return ok
}

// Keys returns the own keys of MapAttr in sorted order
func (a *MapAttr) Keys() []string {
	a.checkValid()
	return a.sortedKeys()
}

func (a *MapAttr) sortedKeys() []string {
	keys := make([]string, 0, len(a.attrs))
	for k := range a.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ForEach calls f on all own items in key order
// Be careful about the type of val
func (a *MapAttr) ForEach(f func(key string, val interface{})) {
	for _, k := range a.Keys() {
		f(k, a.attrs[k])
	}
}

// Lookup returns the value of key, falling back to the prototype chain
func (a *MapAttr) Lookup(key string) (interface{}, bool) {
	for m := a; m != nil; m = m.proto {
		m.checkValid()
		if val, ok := m.attrs[key]; ok {
			return val, true
		}
	}
	return nil, false
}

// Get returns the value of key, or nil if it does not exist
func (a *MapAttr) Get(key string) interface{} {
	val, _ := a.Lookup(key)
	return val
}

// Set sets the key-attribute pair in MapAttr.
// Containers and nested objects can not be stored in two places.
func (a *MapAttr) Set(key string, val interface{}) {
	a.checkValid()
	val = uniformAttrType(val)
	old, ok := a.attrs[key]
	if ok && attachedFlag(val) != nil && old == val {
		return
	}
	attach(val, key)
	if ok {
		detach(old)
	}
	a.attrs[key] = val
}

// SetInt sets int value at the key
func (a *MapAttr) SetInt(key string, v int64) {
	a.Set(key, v)
}

// SetFloat sets float value at the key
func (a *MapAttr) SetFloat(key string, v float64) {
	a.Set(key, v)
}

// SetBool sets bool value at the key
func (a *MapAttr) SetBool(key string, v bool) {
	a.Set(key, v)
}

// SetStr sets string value at the key
func (a *MapAttr) SetStr(key string, v string) {
	a.Set(key, v)
}

// SetMapAttr sets MapAttr value at the key
func (a *MapAttr) SetMapAttr(key string, attr *MapAttr) {
	a.Set(key, attr)
}

// SetListAttr sets ListAttr value at the key
func (a *MapAttr) SetListAttr(key string, attr *ListAttr) {
	a.Set(key, attr)
}

// SetDictAttr sets DictAttr value at the key
func (a *MapAttr) SetDictAttr(key string, attr *DictAttr) {
	a.Set(key, attr)
}

// SetSetAttr sets SetAttr value at the key
func (a *MapAttr) SetSetAttr(key string, attr *SetAttr) {
	a.Set(key, attr)
}

// SetBitvector sets Bitvector value at the key
func (a *MapAttr) SetBitvector(key string, bv *Bitvector) {
	a.Set(key, bv)
}

// SetEntity sets a reference to entity e at the key
func (a *MapAttr) SetEntity(key string, e IEntity) {
	a.Set(key, e)
}

// SetObject sets a nested serializable object at the key
func (a *MapAttr) SetObject(key string, o IObject) {
	a.Set(key, o)
}

// SetDefaultInt sets default int value at the key
func (a *MapAttr) SetDefaultInt(key string, v int64) {
	if !a.HasKey(key) {
		a.Set(key, v)
	}
}

// SetDefaultFloat sets default float value at the key
func (a *MapAttr) SetDefaultFloat(key string, v float64) {
	if !a.HasKey(key) {
		a.Set(key, v)
	}
}

// SetDefaultBool sets default bool value at the key
func (a *MapAttr) SetDefaultBool(key string, v bool) {
	if !a.HasKey(key) {
		a.Set(key, v)
	}
}

// SetDefaultStr sets default string value at the key
func (a *MapAttr) SetDefaultStr(key string, v string) {
	if !a.HasKey(key) {
		a.Set(key, v)
	}
}

// GetInt returns the attribute of specified key in MapAttr as int64
func (a *MapAttr) GetInt(key string) int64 {
	if val, ok := a.Lookup(key); ok {
		return val.(int64)
	}
	return 0
}

// GetStr returns the attribute of specified key in MapAttr as string
func (a *MapAttr) GetStr(key string) string {
	if val, ok := a.Lookup(key); ok {
		return val.(string)
	}
	return ""
}

// GetFloat returns the attribute of specified key in MapAttr as float64
func (a *MapAttr) GetFloat(key string) float64 {
	if val, ok := a.Lookup(key); ok {
		return toFloat(val)
	}
	return 0
}

// GetBool returns the attribute of specified key in MapAttr as bool
func (a *MapAttr) GetBool(key string) bool {
	if val, ok := a.Lookup(key); ok {
		return val.(bool)
	}
	return false
}

// GetEntity returns the entity referenced at key, or nil
func (a *MapAttr) GetEntity(key string) *Entity {
	if val, ok := a.Lookup(key); ok {
		return val.(*Entity)
	}
	return nil
}

// own returns the own value of key for mutation.
// An inherited value is copied into the MapAttr first, so writes never reach the prototype.
func (a *MapAttr) own(key string, create func() interface{}) interface{} {
	a.checkValid()
	if val, ok := a.attrs[key]; ok {
		return val
	}
	if a.proto != nil {
		if val, ok := a.proto.Lookup(key); ok {
			val = cloneValue(val)
			a.attrs[key] = attach(val, key)
			return val
		}
	}
	if create == nil {
		return nil
	}
	val := create()
	a.attrs[key] = attach(val, key)
	return val
}

// GetMapAttr returns the attribute of specified key in MapAttr as MapAttr
func (a *MapAttr) GetMapAttr(key string) *MapAttr {
	return a.own(key, func() interface{} { return NewMapAttr() }).(*MapAttr)
}

// GetListAttr returns the attribute of specified key in MapAttr as ListAttr
func (a *MapAttr) GetListAttr(key string) *ListAttr {
	return a.own(key, func() interface{} { return NewListAttr() }).(*ListAttr)
}

// GetDictAttr returns the attribute of specified key in MapAttr as DictAttr
func (a *MapAttr) GetDictAttr(key string) *DictAttr {
	return a.own(key, func() interface{} { return NewDictAttr() }).(*DictAttr)
}

// GetSetAttr returns the attribute of specified key in MapAttr as SetAttr
func (a *MapAttr) GetSetAttr(key string) *SetAttr {
	return a.own(key, func() interface{} { return NewSetAttr() }).(*SetAttr)
}

// GetBitvector returns the attribute of specified key in MapAttr as Bitvector
func (a *MapAttr) GetBitvector(key string) *Bitvector {
	return a.own(key, func() interface{} { return NewBitvector() }).(*Bitvector)
}

// GetObject returns the nested serializable object at key, or nil
func (a *MapAttr) GetObject(key string) IObject {
	val := a.own(key, nil)
	if val == nil {
		return nil
	}
	return val.(IObject)
}

// Pop deletes an own key in MapAttr and returns the attribute
func (a *MapAttr) Pop(key string) interface{} {
	a.checkValid()
	val, ok := a.attrs[key]
	if !ok {
		return nil
	}
	delete(a.attrs, key)
	detach(val)
	return val
}

// Del deletes an own key in MapAttr, uncovering the inherited value if any
func (a *MapAttr) Del(key string) {
	a.Pop(key)
}

// Clear removes all own key-values from the MapAttr
func (a *MapAttr) Clear() {
	a.checkValid()
	for _, v := range a.attrs {
		detach(v)
	}
	a.attrs = map[string]interface{}{}
}

// ToMap converts own attributes of MapAttr to native map, recursively
func (a *MapAttr) ToMap() map[string]interface{} {
	a.checkValid()
	doc := make(map[string]interface{}, len(a.attrs))
	for k, v := range a.attrs {
		doc[k] = toNative(v)
	}
	return doc
}

func (a *MapAttr) clone() *MapAttr {
	a.checkValid()
	ca := &MapAttr{
		attrs: make(map[string]interface{}, len(a.attrs)),
	}
	for k, v := range a.attrs {
		ca.attrs[k] = attach(cloneValue(v), k)
	}
	return ca
}

// invalidate clears the MapAttr recursively and makes every further access panic
func (a *MapAttr) invalidate() {
	if a.invalid {
		return
	}
	for _, v := range a.attrs {
		invalidateValue(v)
	}
	a.attrs = map[string]interface{}{}
	a.proto = nil
	a.invalid = true
}

func (a *MapAttr) setProto(proto *MapAttr) {
	if proto == a {
		gwlog.Panicf("MapAttr can not be its own prototype")
	}
	a.proto = proto
}
