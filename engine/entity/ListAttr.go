package entity

import (
	"strings"

	"github.com/protoworld/protoworld/engine/gwlog"
)

// ListAttr is a attribute for a list of attributes
type ListAttr struct {
	items    []interface{}
	attached bool
	invalid  bool
}

// NewListAttr creates a new ListAttr
func NewListAttr(items ...interface{}) *ListAttr {
	a := &ListAttr{
		items: make([]interface{}, 0, len(items)),
	}
	for _, v := range items {
		a.Append(v)
	}
	return a
}

func (a *ListAttr) checkValid() {
	if a.invalid {
		panic(newError(InvalidEntityError, "", "", "access to a list of an invalid entity"))
	}
}

func (a *ListAttr) String() string {
	var sb strings.Builder
	sb.WriteString("ListAttr{")
	for i, v := range a.items {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeValue(&sb, v)
	}
	sb.WriteString("}")
	return sb.String()
}

// Size returns size of ListAttr
func (a *ListAttr) Size() int {
	a.checkValid()
	return len(a.items)
}

// Set sets item value
func (a *ListAttr) Set(index int, val interface{}) {
	a.checkValid()
	val = uniformAttrType(val)
	old := a.items[index]
	if attachedFlag(val) != nil && old == val {
		return
	}
	attach(val, index)
	detach(old)
	a.items[index] = val
}

// SetInt sets int value at the index
func (a *ListAttr) SetInt(index int, v int64) {
	a.Set(index, v)
}

// SetFloat sets float value at the index
func (a *ListAttr) SetFloat(index int, v float64) {
	a.Set(index, v)
}

// SetBool sets bool value at the index
func (a *ListAttr) SetBool(index int, v bool) {
	a.Set(index, v)
}

// SetStr sets string value at the index
func (a *ListAttr) SetStr(index int, v string) {
	a.Set(index, v)
}

// Get returns the item at index
func (a *ListAttr) Get(index int) interface{} {
	a.checkValid()
	return a.items[index]
}

// GetInt gets item value as int64
func (a *ListAttr) GetInt(index int) int64 {
	return a.Get(index).(int64)
}

// GetFloat gets item value as float64
func (a *ListAttr) GetFloat(index int) float64 {
	return toFloat(a.Get(index))
}

// GetBool gets item value as bool
func (a *ListAttr) GetBool(index int) bool {
	return a.Get(index).(bool)
}

// GetStr gets item value as string
func (a *ListAttr) GetStr(index int) string {
	return a.Get(index).(string)
}

// GetMapAttr gets item value as MapAttr
func (a *ListAttr) GetMapAttr(index int) *MapAttr {
	return a.Get(index).(*MapAttr)
}

// GetListAttr gets item value as ListAttr
func (a *ListAttr) GetListAttr(index int) *ListAttr {
	return a.Get(index).(*ListAttr)
}

// GetEntity gets item value as an entity reference
func (a *ListAttr) GetEntity(index int) *Entity {
	return a.Get(index).(*Entity)
}

// Append puts item to the end of list
func (a *ListAttr) Append(val interface{}) {
	a.checkValid()
	a.items = append(a.items, attach(uniformAttrType(val), len(a.items)))
}

// AppendInt puts int value to the end of list
func (a *ListAttr) AppendInt(v int64) {
	a.Append(v)
}

// AppendFloat puts float value to the end of list
func (a *ListAttr) AppendFloat(v float64) {
	a.Append(v)
}

// AppendBool puts bool value to the end of list
func (a *ListAttr) AppendBool(v bool) {
	a.Append(v)
}

// AppendStr puts string value to the end of list
func (a *ListAttr) AppendStr(v string) {
	a.Append(v)
}

// AppendEntity puts an entity reference to the end of list
func (a *ListAttr) AppendEntity(e IEntity) {
	a.Append(e)
}

// Pop removes the last item from the end
func (a *ListAttr) Pop() interface{} {
	a.checkValid()
	size := len(a.items)
	if size == 0 {
		gwlog.Panicf("pop from empty ListAttr")
	}
	val := a.items[size-1]
	a.items[size-1] = nil
	a.items = a.items[:size-1]
	detach(val)
	return val
}

// PopInt removes the last item from the end and returns it as int64
func (a *ListAttr) PopInt() int64 {
	return a.Pop().(int64)
}

// PopStr removes the last item from the end and returns it as string
func (a *ListAttr) PopStr() string {
	return a.Pop().(string)
}

// Clear removes all items
func (a *ListAttr) Clear() {
	a.checkValid()
	for i, v := range a.items {
		detach(v)
		a.items[i] = nil
	}
	a.items = a.items[:0]
}

// ForEach calls f on every item in order
func (a *ListAttr) ForEach(f func(index int, val interface{})) {
	a.checkValid()
	for i, v := range a.items {
		f(i, v)
	}
}

// ToList converts ListAttr to slice, recursively
func (a *ListAttr) ToList() []interface{} {
	a.checkValid()
	l := make([]interface{}, len(a.items))
	for i, v := range a.items {
		l[i] = toNative(v)
	}
	return l
}

func (a *ListAttr) clone() *ListAttr {
	a.checkValid()
	ca := &ListAttr{
		items: make([]interface{}, len(a.items)),
	}
	for i, v := range a.items {
		ca.items[i] = attach(cloneValue(v), i)
	}
	return ca
}

func (a *ListAttr) invalidate() {
	a.items = nil
	a.invalid = true
}
