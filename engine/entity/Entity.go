package entity

import (
	"fmt"

	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/jsonutil"
)

// IEntity is implemented by every entity type through the embedded Entity
type IEntity interface {
	IObject

	// OnInstantiated is called when the entity is instantiated from its prototype and registered
	OnInstantiated()
	// OnRemoved is called just before the entity is unregistered and invalidated
	OnRemoved()

	entity() *Entity
}

// Entity is a named, identified object that can serve as the prototype of other entities.
//
// Once removed, or when it is a placeholder for an unresolved reference, the entity is
// invalid: every accessor panics with an InvalidEntityError.
type Entity struct {
	Object

	id          common.EntityID
	prototypeID common.EntityID
	name        string
	prototype   *Entity
	registry    *Registry
	valid       bool
	removed     bool
}

func newUnresolvedEntity(id common.EntityID) *Entity {
	e := &Entity{id: id}
	e.Object = Object{
		TypeName: consts.ENTITY_CLASS_NAME,
		Attrs:    newInvalidMapAttr(),
	}
	e.I = e
	return e
}

func (e *Entity) entity() *Entity {
	return e
}

func (e *Entity) checkValid() {
	if e.valid {
		return
	}
	if e.removed {
		panic(newError(InvalidEntityError, e.TypeName, "", "entity %s has been removed", e.id))
	}
	panic(newError(InvalidEntityError, e.TypeName, "", "entity %s is not loaded", e.id))
}

func (e *Entity) String() string {
	switch {
	case e.removed:
		return fmt.Sprintf("%s<%s>(removed)", e.TypeName, e.id)
	case !e.valid:
		return fmt.Sprintf("%s<%s>(unresolved)", e.TypeName, e.id)
	}
	return fmt.Sprintf("%s<%s>", e.TypeName, e.id)
}

// ID returns the entity ID
func (e *Entity) ID() common.EntityID {
	e.checkValid()
	return e.id
}

// PrototypeID returns the ID of the prototype, empty for root prototypes
func (e *Entity) PrototypeID() common.EntityID {
	e.checkValid()
	return e.prototypeID
}

// Prototype returns the prototype entity, nil for root prototypes
func (e *Entity) Prototype() *Entity {
	e.checkValid()
	return e.prototype
}

// IsRootPrototype returns if the entity is the root prototype of its class
func (e *Entity) IsRootPrototype() bool {
	e.checkValid()
	return e.id != "" && e.prototypeID == "" && string(e.id) == e.TypeName
}

// IsValid returns if the entity is registered and usable
func (e *Entity) IsValid() bool {
	return e.valid
}

// IsRemoved returns if the entity has been removed from its registry
func (e *Entity) IsRemoved() bool {
	return e.removed
}

// Name returns the entity name, inherited from the prototype when not set
func (e *Entity) Name() string {
	e.checkValid()
	if e.name == "" && e.prototype != nil {
		return e.prototype.Name()
	}
	return e.name
}

// SetName sets the entity name
func (e *Entity) SetName(name string) {
	e.checkValid()
	e.name = name
}

// Registry returns the registry the entity is registered in
func (e *Entity) Registry() *Registry {
	e.checkValid()
	return e.registry
}

// setIdentity assigns id and prototype id. They can be assigned only once.
func (e *Entity) setIdentity(id, prototypeID common.EntityID) error {
	if e.id != "" {
		return newError(IdentityError, e.TypeName, consts.ID_KEY, "entity %s already has an id, can not set it to %s", e.id, id)
	}
	if id.IsNil() {
		return newError(IdentityError, e.TypeName, consts.ID_KEY, "empty entity id")
	}
	e.id = id
	e.prototypeID = prototypeID
	return nil
}

// GetInt returns the attribute as int64
func (e *Entity) GetInt(key string) int64 {
	e.checkValid()
	return e.Attrs.GetInt(key)
}

// GetBool returns the attribute as bool
func (e *Entity) GetBool(key string) bool {
	e.checkValid()
	return e.Attrs.GetBool(key)
}

// GetStr returns the attribute as string
func (e *Entity) GetStr(key string) string {
	e.checkValid()
	return e.Attrs.GetStr(key)
}

// GetFloat returns the attribute as float64
func (e *Entity) GetFloat(key string) float64 {
	e.checkValid()
	return e.Attrs.GetFloat(key)
}

// GetMapAttr returns the attribute as MapAttr, owned by the entity
func (e *Entity) GetMapAttr(key string) *MapAttr {
	e.checkValid()
	return e.Attrs.GetMapAttr(key)
}

// GetListAttr returns the attribute as ListAttr, owned by the entity
func (e *Entity) GetListAttr(key string) *ListAttr {
	e.checkValid()
	return e.Attrs.GetListAttr(key)
}

// GetDictAttr returns the attribute as DictAttr, owned by the entity
func (e *Entity) GetDictAttr(key string) *DictAttr {
	e.checkValid()
	return e.Attrs.GetDictAttr(key)
}

// GetSetAttr returns the attribute as SetAttr, owned by the entity
func (e *Entity) GetSetAttr(key string) *SetAttr {
	e.checkValid()
	return e.Attrs.GetSetAttr(key)
}

// GetBitvector returns the attribute as Bitvector, owned by the entity
func (e *Entity) GetBitvector(key string) *Bitvector {
	e.checkValid()
	return e.Attrs.GetBitvector(key)
}

// GetEntity returns the entity referenced by the attribute
func (e *Entity) GetEntity(key string) *Entity {
	e.checkValid()
	return e.Attrs.GetEntity(key)
}

// GetObject gets a nested serializable object attribute of the entity
func (e *Entity) GetObject(key string) IObject {
	e.checkValid()
	return e.Attrs.GetObject(key)
}

// Set sets an attribute of the entity
func (e *Entity) Set(key string, val interface{}) {
	e.checkValid()
	e.Attrs.Set(key, val)
}

// FromJSON loads doc into the entity, resolving references through its registry
func (e *Entity) FromJSON(doc map[string]interface{}, mode attrs.Mode) error {
	e.checkValid()
	if e.registry == nil {
		return newError(IdentityError, e.TypeName, "", "entity %s is not registered", e.id)
	}
	return NewDeserializer(e.registry, e.registry.factory, mode).FromJSON(doc, e.I)
}

// Deserialize parses JSON text and loads it into the entity
func (e *Entity) Deserialize(data []byte, mode attrs.Mode) error {
	doc, err := jsonutil.ParseObject(data, "")
	if err != nil {
		return err
	}
	return e.FromJSON(doc, mode)
}

// invalidate clears own attributes, severs the prototype link and freezes the entity.
// Referenced entities are not invalidated.
func (e *Entity) invalidate() {
	e.Attrs.invalidate()
	e.prototype = nil
	e.registry = nil
	e.valid = false
	e.removed = true
}

// OnInstantiated is called when the entity is instantiated from its prototype and registered
func (e *Entity) OnInstantiated() {
}

// OnRemoved is called just before the entity is unregistered and invalidated
func (e *Entity) OnRemoved() {
}
