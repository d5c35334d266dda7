package entity

import (
	"sort"

	"github.com/protoworld/protoworld/engine/common"
)

// EntityMap is the data structure for maintaining entity IDs to entities
type EntityMap map[common.EntityID]*Entity

// Add adds a new entity to EntityMap
func (em EntityMap) Add(entity *Entity) {
	em[entity.id] = entity
}

// Del deletes an entity from EntityMap
func (em EntityMap) Del(id common.EntityID) {
	delete(em, id)
}

// Get returns the Entity of specified entity ID in EntityMap
func (em EntityMap) Get(id common.EntityID) *Entity {
	return em[id]
}

// Keys returns the entity IDs in sorted order
func (em EntityMap) Keys() []common.EntityID {
	ids := make([]common.EntityID, 0, len(em))
	for id := range em {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}
