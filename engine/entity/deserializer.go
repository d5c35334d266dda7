package entity

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/jsonutil"
)

// Deserializer loads JSON documents into existing objects.
//
// Loading is all or nothing: every property is converted first and the object is
// only written when the whole document converted without error.
type Deserializer struct {
	resolver ReferenceResolver
	factory  ClassFactory
	mode     attrs.Mode
	file     string
}

// NewDeserializer creates a Deserializer resolving references with resolver and
// allocating nested objects with factory
func NewDeserializer(resolver ReferenceResolver, factory ClassFactory, mode attrs.Mode) *Deserializer {
	return &Deserializer{
		resolver: resolver,
		factory:  factory,
		mode:     mode,
	}
}

// SetFile sets the path reported in errors
func (d *Deserializer) SetFile(path string) *Deserializer {
	d.file = path
	return d
}

type assignment struct {
	key string
	val interface{}
}

type identity struct {
	id          common.EntityID
	prototypeID common.EntityID
	name        string
	hasID       bool
	hasName     bool
}

// FromJSON loads doc into target
func (d *Deserializer) FromJSON(doc map[string]interface{}, target IObject) error {
	return WithFile(d.load(doc, target, ""), d.file)
}

func (d *Deserializer) load(doc map[string]interface{}, target IObject, path string) error {
	o := target.object()
	if err := d.checkHeader(doc, o, path); err != nil {
		return err
	}

	var ident *identity
	var ent *Entity
	if ie, ok := target.(IEntity); ok {
		ent = ie.entity()
		ent.checkValid()
		var err error
		if ident, err = d.readIdentity(doc, ent); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		if k == consts.CLASS_NAME_KEY || k == consts.VERSION_KEY {
			continue
		}
		if ent != nil && (k == consts.ID_KEY || k == consts.PROTOTYPE_ID_KEY || k == consts.NAME_KEY) {
			continue
		}
		if isReservedKey(k, ent != nil) {
			return newError(SchemaError, o.TypeName, joinPath(path, k), "reserved key in a non-entity object")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	staged := make([]assignment, 0, len(keys))
	for _, k := range keys {
		existing, _ := o.Attrs.Lookup(k)
		val, err := d.convert(doc[k], existing, o.TypeName, joinPath(path, k))
		if err != nil {
			return err
		}
		staged = append(staged, assignment{k, val})
	}

	if ident != nil {
		if ident.hasID && ent.id == "" {
			if err := ent.setIdentity(ident.id, ident.prototypeID); err != nil {
				return err
			}
		}
		if ident.hasName {
			ent.name = ident.name
		}
	}
	for _, a := range staged {
		o.Attrs.Set(a.key, a.val)
	}
	return nil
}

// checkHeader validates class marker and version before anything is written.
// Wire modes carry no version and are not checked.
func (d *Deserializer) checkHeader(doc map[string]interface{}, o *Object, path string) error {
	if d.mode.IsWire() {
		if className, ok := jsonutil.GetString(doc, consts.CLASS_NAME_KEY); ok && className != o.TypeName {
			return newError(IdentityError, o.TypeName, path, "class mismatch: document is a %s", className)
		}
		return nil
	}

	className, err := jsonutil.RequireString(doc, consts.CLASS_NAME_KEY)
	if err != nil {
		return newError(SchemaError, o.TypeName, path, "%s", err)
	}
	if className != o.TypeName {
		return newError(IdentityError, o.TypeName, path, "class mismatch: document is a %s", className)
	}
	version, err := jsonutil.RequireInt(doc, consts.VERSION_KEY)
	if err != nil {
		return newError(SchemaError, o.TypeName, path, "%s", err)
	}
	if int(version) != o.Version() {
		return newError(IdentityError, o.TypeName, path, "version mismatch: document has version %d, class has version %d", version, o.Version())
	}
	return nil
}

func (d *Deserializer) readIdentity(doc map[string]interface{}, e *Entity) (*identity, error) {
	ident := &identity{}
	if _, ok := doc[consts.ID_KEY]; ok {
		id, err := jsonutil.RequireString(doc, consts.ID_KEY)
		if err != nil {
			return nil, newError(SchemaError, e.TypeName, consts.ID_KEY, "%s", err)
		}
		ident.id, ident.hasID = common.EntityID(id), true
	}
	_, hasProto := doc[consts.PROTOTYPE_ID_KEY]
	if hasProto {
		protoID, err := jsonutil.RequireString(doc, consts.PROTOTYPE_ID_KEY)
		if err != nil {
			return nil, newError(SchemaError, e.TypeName, consts.PROTOTYPE_ID_KEY, "%s", err)
		}
		ident.prototypeID = common.EntityID(protoID)
	}
	if _, ok := doc[consts.NAME_KEY]; ok {
		name, err := jsonutil.RequireString(doc, consts.NAME_KEY)
		if err != nil {
			return nil, newError(SchemaError, e.TypeName, consts.NAME_KEY, "%s", err)
		}
		ident.name, ident.hasName = name, true
	}

	if e.id == "" {
		if !ident.hasID && hasProto {
			return nil, newError(IdentityError, e.TypeName, consts.ID_KEY, "document has a prototype id but no id")
		}
		return ident, nil
	}
	if ident.hasID && ident.id != e.id {
		return nil, newError(IdentityError, e.TypeName, consts.ID_KEY, "document is entity %s, target is %s", ident.id, e.id)
	}
	if hasProto && ident.prototypeID != e.prototypeID {
		return nil, newError(IdentityError, e.TypeName, consts.PROTOTYPE_ID_KEY, "document inherits from %q, target inherits from %q", ident.prototypeID, e.prototypeID)
	}
	return ident, nil
}

// jsonKind returns the kind a decoded JSON value converts to, and its class marker
func jsonKind(v interface{}) (Kind, string) {
	switch tv := v.(type) {
	case bool:
		return KindBool, ""
	case json.Number, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber, ""
	case string:
		return KindString, ""
	case []interface{}:
		return KindList, ""
	case map[string]interface{}:
		marker, ok := tv[consts.CLASS_NAME_KEY]
		if !ok {
			return KindPlain, ""
		}
		className, ok := marker.(string)
		if !ok {
			return KindUnsupported, fmt.Sprint(marker)
		}
		switch className {
		case consts.MAP_CLASS_NAME:
			return KindDict, className
		case consts.SET_CLASS_NAME:
			return KindSet, className
		case consts.BITVECTOR_CLASS_NAME:
			return KindBitvector, className
		case consts.ENTITY_CLASS_NAME:
			return KindEntity, className
		}
		return KindObject, className
	}
	return KindUnsupported, ""
}

// convert converts the JSON value src into an attribute value.
// existing is the current value of the property (own or inherited), or nil.
func (d *Deserializer) convert(src interface{}, existing interface{}, class, path string) (interface{}, error) {
	if src == nil {
		return nil, newError(SchemaError, class, path, "null is not allowed")
	}
	kind, marker := jsonKind(src)
	if kind == KindUnsupported {
		if marker != "" {
			return nil, newError(SchemaError, class, path, "class marker must be a string, got %s", marker)
		}
		return nil, newError(SchemaError, class, path, "unexpected JSON value %T", src)
	}
	if existing != nil {
		if ek := Classify(existing); ek != kind {
			return nil, newError(SchemaError, class, path, "kind mismatch: property holds %s, document has %s", ek, kind)
		}
	}

	switch kind {
	case KindBool, KindString:
		return src, nil
	case KindNumber:
		n, ok := jsonutil.Number(src)
		if !ok {
			return nil, newError(SchemaError, class, path, "bad number %v", src)
		}
		if _, isFloat := existing.(float64); isFloat {
			if i, isInt := n.(int64); isInt {
				return float64(i), nil
			}
		}
		return n, nil
	case KindList:
		items := src.([]interface{})
		la := &ListAttr{items: make([]interface{}, 0, len(items))}
		for i, item := range items {
			v, err := d.convert(item, nil, class, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			la.items = append(la.items, attach(v, i))
		}
		return la, nil
	case KindPlain:
		m := src.(map[string]interface{})
		var ma *MapAttr
		if ex, ok := existing.(*MapAttr); ok {
			ma = ex.clone()
		} else {
			ma = NewMapAttr()
		}
		for _, k := range sortedJSONKeys(m) {
			ev, _ := ma.Lookup(k)
			v, err := d.convert(m[k], ev, class, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			if old, ok := ma.attrs[k]; ok {
				detach(old)
			}
			ma.attrs[k] = attach(v, k)
		}
		return ma, nil
	case KindDict:
		data, ok := src.(map[string]interface{})[consts.DATA_KEY].(map[string]interface{})
		if !ok {
			return nil, newError(SchemaError, class, path, "Map record needs an object %q", consts.DATA_KEY)
		}
		da := NewDictAttr()
		for _, k := range sortedJSONKeys(data) {
			v, err := d.convert(data[k], nil, class, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			da.items[k] = attach(v, k)
		}
		return da, nil
	case KindSet:
		data, ok := src.(map[string]interface{})[consts.DATA_KEY].([]interface{})
		if !ok {
			return nil, newError(SchemaError, class, path, "Set record needs an array %q", consts.DATA_KEY)
		}
		sa := NewSetAttr()
		for _, item := range data {
			v, err := d.convert(item, nil, class, path)
			if err != nil {
				return nil, err
			}
			if !isPrimitive(v) {
				return nil, newError(SchemaError, class, path, "Set elements must be bool, number or string")
			}
			sa.items[v] = struct{}{}
		}
		return sa, nil
	case KindBitvector:
		data, ok := src.(map[string]interface{})[consts.DATA_KEY].(string)
		if !ok {
			return nil, newError(SchemaError, class, path, "Bitvector record needs a string %q", consts.DATA_KEY)
		}
		bv, err := ParseBitvector(data)
		if err != nil {
			return nil, newError(SchemaError, class, path, "%s", err)
		}
		return bv, nil
	case KindEntity:
		id, err := jsonutil.RequireString(src.(map[string]interface{}), consts.ID_KEY)
		if err != nil {
			return nil, newError(SchemaError, class, path, "%s", err)
		}
		if d.resolver == nil {
			return nil, newError(IdentityError, class, path, "no resolver for entity reference %s", id)
		}
		return d.resolver.GetReference(common.EntityID(id)), nil
	case KindObject:
		return d.convertObject(src.(map[string]interface{}), marker, existing, class, path)
	}
	return nil, newError(SchemaError, class, path, "unexpected JSON value %T", src)
}

func (d *Deserializer) convertObject(m map[string]interface{}, className string, existing interface{}, class, path string) (IObject, error) {
	var obj IObject
	if ex, ok := existing.(IObject); ok {
		if ex.object().TypeName != className {
			return nil, newError(SchemaError, class, path, "class mismatch: property holds %s, document has %s", ex.object().TypeName, className)
		}
		obj = cloneObject(ex)
	} else {
		if d.factory == nil {
			return nil, newError(SchemaError, class, path, "no class factory for %s", className)
		}
		inst, err := d.factory.NewInstanceByName(className)
		if err != nil {
			return nil, newError(SchemaError, class, path, "unresolved class marker %s", className)
		}
		if _, isEntity := inst.(IEntity); isEntity {
			return nil, newError(SchemaError, class, path, "entity %s can only be stored as a reference", className)
		}
		obj = inst
	}
	// nested objects carry no version on the wire; off the wire a missing version is the class version
	if _, ok := m[consts.VERSION_KEY]; !ok && !d.mode.IsWire() {
		m = withVersion(m, obj.object().Version())
	}
	if err := d.load(m, obj, path); err != nil {
		return nil, err
	}
	return obj, nil
}

func withVersion(m map[string]interface{}, version int) map[string]interface{} {
	cm := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		cm[k] = v
	}
	cm[consts.VERSION_KEY] = int64(version)
	return cm
}

func sortedJSONKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
