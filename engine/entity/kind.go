package entity

import (
	"time"

	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/jsonutil"
)

// Kind is the closed set of value kinds an attribute can hold
type Kind int

const (
	// KindUnsupported is any value the serializer rejects
	KindUnsupported Kind = iota
	KindBool
	// KindNumber covers both int64 and float64
	KindNumber
	KindString
	KindList
	// KindPlain is an untyped nested object (*MapAttr)
	KindPlain
	KindDict
	KindSet
	KindBitvector
	// KindEntity is a reference to a registered entity
	KindEntity
	// KindObject is a nested non-entity serializable object
	KindObject
	// KindTime is recognized only to be rejected
	KindTime
)

var kindNames = [...]string{
	KindUnsupported: "unsupported",
	KindBool:        "bool",
	KindNumber:      "number",
	KindString:      "string",
	KindList:        "list",
	KindPlain:       "object",
	KindDict:        "Map",
	KindSet:         "Set",
	KindBitvector:   "Bitvector",
	KindEntity:      "Entity",
	KindObject:      "serializable",
	KindTime:        "time",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// BitSerializer is implemented by bit vector values
type BitSerializer interface {
	SerializeBits() string
}

// Classify returns the kind of an attribute value
func Classify(v interface{}) Kind {
	switch v.(type) {
	case nil:
		return KindUnsupported
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumber
	case string:
		return KindString
	case *ListAttr:
		return KindList
	case *MapAttr:
		return KindPlain
	case *DictAttr:
		return KindDict
	case *SetAttr:
		return KindSet
	case time.Time, *time.Time:
		return KindTime
	case IEntity:
		return KindEntity
	case IObject:
		return KindObject
	case BitSerializer:
		return KindBitvector
	default:
		return KindUnsupported
	}
}

// uniformAttrType normalizes values before they are stored:
// numbers become int64 or float64, native maps and slices become MapAttr and ListAttr
// and entity values become *Entity
func uniformAttrType(v interface{}) interface{} {
	switch tv := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		n, ok := jsonutil.Number(tv)
		if !ok {
			panic(newError(UnsupportedValueError, "", "", "%T value %v does not fit in int64", tv, tv))
		}
		return n
	case map[string]interface{}:
		ma := NewMapAttr()
		for k, item := range tv {
			ma.Set(k, item)
		}
		return ma
	case []interface{}:
		return NewListAttr(tv...)
	case IEntity:
		return tv.entity()
	}
	return v
}

func isPrimitive(v interface{}) bool {
	switch Classify(v) {
	case KindBool, KindNumber, KindString:
		return true
	}
	return false
}

func mustPrimitive(v interface{}) interface{} {
	if !isPrimitive(v) {
		gwlog.Panicf("set elements must be bool, number or string, got %T", v)
	}
	return uniformAttrType(v)
}
