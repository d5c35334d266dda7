package entity

import (
	"fmt"

	"github.com/iancoleman/orderedmap"
	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/jsonutil"
)

// Serializer converts objects into JSON trees for one mode.
//
// Output objects are *orderedmap.OrderedMap: identity keys first, then the class
// marker and version, then properties in sorted order.
type Serializer struct {
	mode attrs.Mode
}

// NewSerializer creates a Serializer for mode
func NewSerializer(mode attrs.Mode) *Serializer {
	return &Serializer{mode: mode}
}

// Mode returns the mode of the Serializer
func (s *Serializer) Mode() attrs.Mode {
	return s.mode
}

// ToJSON converts obj into its JSON tree
func (s *Serializer) ToJSON(obj IObject) (*orderedmap.OrderedMap, error) {
	out := orderedmap.New()
	if ie, ok := obj.(IEntity); ok {
		e := ie.entity()
		e.checkValid()
		if e.id != "" {
			out.Set(consts.ID_KEY, string(e.id))
		}
		if e.prototypeID != "" {
			out.Set(consts.PROTOTYPE_ID_KEY, string(e.prototypeID))
		}
		if e.name != "" {
			out.Set(consts.NAME_KEY, e.name)
		}
	}
	if err := s.writeObject(out, obj, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// writeObject writes class marker, version and the properties of obj allowed in the mode
func (s *Serializer) writeObject(out *orderedmap.OrderedMap, obj IObject, path string) error {
	o := obj.object()
	_, isEntity := obj.(IEntity)
	out.Set(consts.CLASS_NAME_KEY, o.TypeName)
	if !s.mode.IsWire() {
		out.Set(consts.VERSION_KEY, o.Version())
	}

	for _, key := range o.Attrs.Keys() {
		if isReservedKey(key, isEntity) {
			return newError(SchemaError, o.TypeName, joinPath(path, key), "property name collides with a reserved key")
		}
		var allowed attrs.Attributes
		if o.typeDesc != nil {
			allowed = o.typeDesc.ResolveAttrs(key)
		} else {
			allowed = attrs.Defaults
		}
		if !allowed.Allows(s.mode) {
			continue
		}

		val, empty, err := s.convert(o.Attrs.attrs[key], o.TypeName, joinPath(path, key))
		if err != nil {
			return err
		}
		if empty {
			continue
		}
		out.Set(key, val)
	}
	return nil
}

// convert converts one value. empty reports values the property level skips.
func (s *Serializer) convert(v interface{}, class, path string) (interface{}, bool, error) {
	switch Classify(v) {
	case KindBool, KindString:
		return v, false, nil
	case KindNumber:
		n, ok := jsonutil.Number(v)
		if !ok {
			return nil, false, newError(UnsupportedValueError, class, path, "%T value %v does not fit in int64", v, v)
		}
		if f, ok := n.(float64); ok {
			return jsonutil.Float(f), false, nil
		}
		return n, false, nil
	case KindList:
		la := v.(*ListAttr)
		la.checkValid()
		arr := make([]interface{}, len(la.items))
		for i, item := range la.items {
			cv, _, err := s.convert(item, class, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, false, err
			}
			arr[i] = cv
		}
		return arr, len(arr) == 0, nil
	case KindPlain:
		ma := v.(*MapAttr)
		ma.checkValid()
		m := orderedmap.New()
		for _, k := range ma.sortedKeys() {
			if k == consts.CLASS_NAME_KEY {
				return nil, false, newError(SchemaError, class, joinPath(path, k), "plain objects can not carry a class marker")
			}
			cv, empty, err := s.convert(ma.attrs[k], class, joinPath(path, k))
			if err != nil {
				return nil, false, err
			}
			if !empty {
				m.Set(k, cv)
			}
		}
		return m, len(m.Keys()) == 0, nil
	case KindDict:
		da := v.(*DictAttr)
		da.checkValid()
		data := orderedmap.New()
		for _, k := range da.sortedKeys() {
			cv, _, err := s.convert(da.items[k], class, joinPath(path, k))
			if err != nil {
				return nil, false, err
			}
			data.Set(k, cv)
		}
		return marked(consts.MAP_CLASS_NAME, data), len(da.items) == 0, nil
	case KindSet:
		sa := v.(*SetAttr)
		sa.checkValid()
		vals := sa.sortedValues()
		data := make([]interface{}, len(vals))
		for i, item := range vals {
			cv, _, err := s.convert(item, class, path)
			if err != nil {
				return nil, false, err
			}
			data[i] = cv
		}
		return marked(consts.SET_CLASS_NAME, data), len(data) == 0, nil
	case KindBitvector:
		bits := v.(BitSerializer).SerializeBits()
		return marked(consts.BITVECTOR_CLASS_NAME, bits), bits == "", nil
	case KindEntity:
		e := v.(IEntity).entity()
		if e.removed {
			return nil, false, newError(IdentityError, class, path, "reference to removed entity %s", e.id)
		}
		ref := orderedmap.New()
		ref.Set(consts.CLASS_NAME_KEY, consts.ENTITY_CLASS_NAME)
		ref.Set(consts.ID_KEY, string(e.id))
		return ref, false, nil
	case KindObject:
		nested := orderedmap.New()
		if err := s.writeObject(nested, v.(IObject), path); err != nil {
			return nil, false, err
		}
		empty := true
		for _, k := range nested.Keys() {
			if k != consts.CLASS_NAME_KEY && k != consts.VERSION_KEY {
				empty = false
				break
			}
		}
		return nested, empty, nil
	case KindTime:
		return nil, false, newError(UnsupportedValueError, class, path, "time values can not be serialized, store a number or string instead")
	}
	return nil, false, newError(UnsupportedValueError, class, path, "can not serialize value of type %T", v)
}

func marked(className string, data interface{}) *orderedmap.OrderedMap {
	m := orderedmap.New()
	m.Set(consts.CLASS_NAME_KEY, className)
	m.Set(consts.DATA_KEY, data)
	return m
}

// isReservedKey reports keys that can not be used as property names.
// name is an identity key of entities only.
func isReservedKey(key string, isEntity bool) bool {
	switch key {
	case consts.CLASS_NAME_KEY, consts.VERSION_KEY, consts.ID_KEY, consts.PROTOTYPE_ID_KEY:
		return true
	case consts.NAME_KEY:
		return isEntity
	}
	return false
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
