package entity

import (
	"sort"

	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/gwutils"
	"github.com/protoworld/protoworld/engine/idgen"
)

// ReferenceResolver resolves entity references while deserializing
type ReferenceResolver interface {
	// GetReference returns the live entity of id, or an invalid placeholder when it is not registered
	GetReference(id common.EntityID) *Entity
}

// Registry is the set of live entities, keyed by ID.
//
// A Registry is used from the game routine only and is not safe for concurrent use.
type Registry struct {
	factory        ClassFactory
	ids            *idgen.Generator
	entities       EntityMap
	entitiesByType map[string]EntityMap
}

// NewRegistry creates a Registry allocating entities with factory and IDs with ids
func NewRegistry(factory ClassFactory, ids *idgen.Generator) *Registry {
	return &Registry{
		factory:        factory,
		ids:            ids,
		entities:       EntityMap{},
		entitiesByType: map[string]EntityMap{},
	}
}

// Factory returns the class factory of the registry
func (r *Registry) Factory() ClassFactory {
	return r.factory
}

func (r *Registry) put(e *Entity) {
	r.entities.Add(e)
	if entities, ok := r.entitiesByType[e.TypeName]; ok {
		entities.Add(e)
	} else {
		r.entitiesByType[e.TypeName] = EntityMap{e.id: e}
	}
	e.registry = r
	if consts.DEBUG_ENTITIES {
		gwlog.Debugf("Registry: put %s, %d entities", e, len(r.entities))
	}
}

func (r *Registry) del(e *Entity) {
	r.entities.Del(e.id)
	if entities, ok := r.entitiesByType[e.TypeName]; ok {
		entities.Del(e.id)
	}
}

// Get returns the live entity of id
func (r *Registry) Get(id common.EntityID) (*Entity, error) {
	if e := r.entities.Get(id); e != nil {
		return e, nil
	}
	return nil, newError(IdentityError, "", consts.ID_KEY, "entity %s not found", id)
}

// GetReference returns the live entity of id, or an invalid placeholder if it is not registered.
// Dereferencing the placeholder panics, serializing it keeps the id.
func (r *Registry) GetReference(id common.EntityID) *Entity {
	if e := r.entities.Get(id); e != nil {
		return e
	}
	if consts.DEBUG_ENTITIES {
		gwlog.Debugf("Registry: reference to unknown entity %s", id)
	}
	return newUnresolvedEntity(id)
}

// Contains returns if id is registered
func (r *Registry) Contains(id common.EntityID) bool {
	return r.entities.Get(id) != nil
}

// CreateRootPrototypeEntity returns the root prototype of typeName, creating and registering it
// the first time. Its ID is the type name and it has no prototype.
func (r *Registry) CreateRootPrototypeEntity(typeName string) (*Entity, error) {
	id := common.EntityID(typeName)
	if e := r.entities.Get(id); e != nil {
		if e.TypeName != typeName {
			return nil, newError(IdentityError, typeName, consts.ID_KEY, "id %s is taken by %s", id, e)
		}
		return e, nil
	}

	inst, err := r.factory.NewInstanceByName(typeName)
	if err != nil {
		return nil, err
	}
	ie, ok := inst.(IEntity)
	if !ok {
		return nil, newError(SchemaError, typeName, "", "not an entity class")
	}
	e := ie.entity()
	if err := e.setIdentity(id, ""); err != nil {
		return nil, err
	}
	r.put(e)
	gwlog.Debugf("Registry: root prototype %s created", e)
	return e, nil
}

// InstantiateEntity creates and registers an entity inheriting from prototype.
// An empty id generates a new one. If id is already registered, that entity is returned.
func (r *Registry) InstantiateEntity(prototype *Entity, id common.EntityID) (*Entity, error) {
	if id != "" {
		if e := r.entities.Get(id); e != nil {
			return e, nil
		}
	}
	if prototype == nil {
		return nil, newError(IdentityError, "", consts.PROTOTYPE_ID_KEY, "nil prototype")
	}
	if !prototype.valid {
		return nil, newError(InvalidEntityError, prototype.TypeName, consts.PROTOTYPE_ID_KEY, "prototype %s is invalid", prototype)
	}
	if id == "" {
		id = r.GenID()
	}

	e, err := r.factory.Instantiate(prototype)
	if err != nil {
		return nil, err
	}
	if err := e.setIdentity(id, prototype.id); err != nil {
		return nil, err
	}
	r.put(e)
	gwutils.RunPanicless(e.I.(IEntity).OnInstantiated)
	return e, nil
}

// InstantiateByPrototypeID instantiates an entity from the prototype registered as prototypeID.
// The root prototype of a registered class is created on demand.
func (r *Registry) InstantiateByPrototypeID(prototypeID, id common.EntityID) (*Entity, error) {
	if id != "" {
		if e := r.entities.Get(id); e != nil {
			return e, nil
		}
	}
	proto := r.entities.Get(prototypeID)
	if proto == nil {
		var err error
		if proto, err = r.CreateRootPrototypeEntity(string(prototypeID)); err != nil {
			return nil, newError(IdentityError, "", consts.PROTOTYPE_ID_KEY, "prototype %s not found", prototypeID)
		}
	}
	return r.InstantiateEntity(proto, id)
}

// Remove unregisters e and invalidates it.
// Entities referencing e keep the reference, which becomes invalid.
func (r *Registry) Remove(e *Entity) error {
	if e == nil || r.entities.Get(e.id) != e {
		return newError(IdentityError, "", consts.ID_KEY, "remove: %v is not registered", e)
	}
	gwutils.RunPanicless(e.I.(IEntity).OnRemoved)
	r.del(e)
	e.invalidate()
	gwlog.Debugf("Registry: %s removed, %d entities left", e, len(r.entities))
	return nil
}

// GenID generates a new entity ID
func (r *Registry) GenID() common.EntityID {
	return r.ids.Next()
}

// Len returns the number of live entities
func (r *Registry) Len() int {
	return len(r.entities)
}

// IDs returns the IDs of all live entities in sorted order
func (r *Registry) IDs() []common.EntityID {
	return r.entities.Keys()
}

// ForEach calls f on every live entity in ID order.
// f may remove entities.
func (r *Registry) ForEach(f func(e *Entity)) {
	for _, id := range r.IDs() {
		if e := r.entities.Get(id); e != nil {
			f(e)
		}
	}
}

// ByType returns live entities of typeName in ID order
func (r *Registry) ByType(typeName string) []*Entity {
	entities := r.entitiesByType[typeName]
	list := make([]*Entity, 0, len(entities))
	for _, e := range entities {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].id < list[j].id
	})
	return list
}
