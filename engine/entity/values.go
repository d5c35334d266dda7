package entity

import (
	"fmt"
	"strings"

	"github.com/protoworld/protoworld/engine/gwlog"
)

// attachedFlag returns the flag marking a container or nested object as stored, nil for other values
func attachedFlag(v interface{}) *bool {
	switch tv := v.(type) {
	case *MapAttr:
		if tv != nil {
			return &tv.attached
		}
	case *ListAttr:
		if tv != nil {
			return &tv.attached
		}
	case *DictAttr:
		if tv != nil {
			return &tv.attached
		}
	case *SetAttr:
		if tv != nil {
			return &tv.attached
		}
	case *Bitvector:
		if tv != nil {
			return &tv.attached
		}
	case IEntity:
	case IObject:
		return &tv.object().attached
	}
	return nil
}

// attach marks v as stored at key. A container or nested object can only be stored in one place.
func attach(v interface{}, key interface{}) interface{} {
	if p := attachedFlag(v); p != nil {
		if *p {
			gwlog.Panicf("%T reused in key %v", v, key)
		}
		*p = true
	}
	return v
}

// detach marks v as no longer stored, so it can be stored again
func detach(v interface{}) {
	if p := attachedFlag(v); p != nil {
		*p = false
	}
}

// cloneValue deep copies containers and nested objects. Entity references are shared.
func cloneValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case *MapAttr:
		return tv.clone()
	case *ListAttr:
		return tv.clone()
	case *DictAttr:
		return tv.clone()
	case *SetAttr:
		return tv.clone()
	case *Bitvector:
		return tv.Clone()
	case IEntity:
		return tv.entity()
	case IObject:
		return cloneObject(tv)
	}
	return v
}

func cloneObject(o IObject) IObject {
	obj := o.object()
	if obj.typeDesc == nil {
		gwlog.Panicf("can not clone %T: type is not registered", o)
	}
	inst := obj.typeDesc.newInstance()
	ca := obj.Attrs.clone()
	ca.attached = true
	inst.object().Attrs = ca
	return inst
}

// invalidateValue clears containers and nested objects.
// Referenced entities have their own lifetime and are left untouched.
func invalidateValue(v interface{}) {
	switch tv := v.(type) {
	case *MapAttr:
		tv.invalidate()
	case *ListAttr:
		tv.invalidate()
	case *DictAttr:
		tv.invalidate()
	case *SetAttr:
		tv.invalidate()
	case *Bitvector:
		tv.invalidate()
	case IEntity:
	case IObject:
		tv.object().Attrs.invalidate()
	}
}

// toNative converts containers to native maps and slices for debugging and display
func toNative(v interface{}) interface{} {
	switch tv := v.(type) {
	case *MapAttr:
		return tv.ToMap()
	case *ListAttr:
		return tv.ToList()
	case *DictAttr:
		return tv.ToMap()
	case *SetAttr:
		return tv.Values()
	case *Bitvector:
		return tv.SerializeBits()
	case IEntity:
		return tv.entity().String()
	case IObject:
		return tv.object().Attrs.ToMap()
	}
	return v
}

func writeValue(sb *strings.Builder, v interface{}) {
	switch tv := v.(type) {
	case fmt.Stringer:
		sb.WriteString(tv.String())
	default:
		fmt.Fprintf(sb, "%#v", v)
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	gwlog.Panicf("%#v is not a number", v)
	return 0
}
