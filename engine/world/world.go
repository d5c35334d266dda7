// Package world glues the entity registry to entity storage: it boots root
// prototypes, saves entities (periodically if asked) and loads a stored world back.
package world

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/config"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/entity"
	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/idgen"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/protoworld/protoworld/engine/post"
	"github.com/protoworld/protoworld/engine/storage"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
	"github.com/xiaonanln/goTimer"
	"go.uber.org/multierr"
)

// World owns the entity registry of one process and its storage
type World struct {
	types    *entity.TypeRegistry
	registry *entity.Registry
	storage  *storage.Storage

	// digests of the last saved document of each entity
	digests   map[common.EntityID]uint64
	saveTimer *timer.Timer
}

// New creates a World of types allocating IDs from ids
func New(types *entity.TypeRegistry, ids *idgen.Generator) *World {
	return &World{
		types:    types,
		registry: entity.NewRegistry(types, ids),
		digests:  map[common.EntityID]uint64{},
	}
}

// NewFromConfig creates a World as configured by cfg: the ID scheme follows
// the side, class attributes are loaded and boot entity types are created.
func NewFromConfig(types *entity.TypeRegistry, cfg *config.WorldConfig) (*World, error) {
	w := New(types, idgen.New(cfg.Side, time.Now()))
	if cfg.ClassAttrs != "" {
		if err := types.LoadClassAttrs(config.ResolvePath(cfg.ClassAttrs)); err != nil {
			return nil, err
		}
	}
	if err := w.Boot(cfg.BootEntityTypes...); err != nil {
		return nil, err
	}
	return w, nil
}

// Types returns the class registry of the world
func (w *World) Types() *entity.TypeRegistry {
	return w.types
}

// Registry returns the entity registry of the world
func (w *World) Registry() *entity.Registry {
	return w.registry
}

// SetStorage sets the storage used by SaveEntity and LoadEntity
func (w *World) SetStorage(s *storage.Storage) {
	w.storage = s
}

// Storage returns the storage of the world
func (w *World) Storage() *storage.Storage {
	return w.storage
}

// Boot creates the root prototypes of typeNames
func (w *World) Boot(typeNames ...string) error {
	for _, typeName := range typeNames {
		if _, err := w.registry.CreateRootPrototypeEntity(typeName); err != nil {
			return err
		}
	}
	return nil
}

// Instantiate creates an entity inheriting from the entity registered as prototypeID
func (w *World) Instantiate(prototypeID common.EntityID) (*entity.Entity, error) {
	return w.registry.InstantiateByPrototypeID(prototypeID, "")
}

// Remove removes e from the world. Its stored document is kept.
func (w *World) Remove(e *entity.Entity) error {
	if e == nil || !e.IsValid() {
		return w.registry.Remove(e)
	}
	id := e.ID()
	if err := w.registry.Remove(e); err != nil {
		return err
	}
	delete(w.digests, id)
	return nil
}

// document serializes e for storage and returns its digest
func document(e *entity.Entity) (interface{}, uint64, error) {
	doc, err := entity.NewSerializer(attrs.SaveToFile).ToJSON(e.I)
	if err != nil {
		return nil, 0, err
	}
	b, err := jsonutil.Marshal(doc, false)
	if err != nil {
		return nil, 0, err
	}
	return doc, xxhash.Sum64(b), nil
}

// SaveEntity saves e to storage. callback runs on the game routine when the save finishes.
// Entities unchanged since their last save are not written again.
func (w *World) SaveEntity(e *entity.Entity, callback storage.SaveCallbackFunc) error {
	if w.storage == nil {
		return fmt.Errorf("world has no storage")
	}
	doc, digest, err := document(e)
	if err != nil {
		return err
	}
	id := e.ID()
	if last, ok := w.digests[id]; ok && last == digest {
		if consts.DEBUG_SAVE_LOAD {
			gwlog.Debugf("world: %s is unchanged, skip saving", e)
		}
		if callback != nil {
			post.Post(func() {
				callback(nil)
			})
		}
		return nil
	}

	w.storage.Save(e.TypeName, id, doc, func(err error) {
		if err == nil {
			w.digests[id] = digest
		}
		if callback != nil {
			callback(err)
		}
	})
	return nil
}

// SaveAll saves every live entity, returning the serialization errors of all entities that could not be saved
func (w *World) SaveAll() error {
	var errs error
	n := 0
	w.registry.ForEach(func(e *entity.Entity) {
		if err := w.SaveEntity(e, nil); err != nil {
			errs = multierr.Append(errs, err)
			return
		}
		n++
	})
	gwlog.Infof("world: %d entities saved, %d failed", n, len(multierr.Errors(errs)))
	return errs
}

// SetSaveInterval saves all entities every d. A zero d stops autosaving.
func (w *World) SetSaveInterval(d time.Duration) {
	if w.saveTimer != nil {
		w.saveTimer.Cancel()
		w.saveTimer = nil
	}
	if d <= 0 {
		return
	}
	w.saveTimer = timer.AddTimer(d, func() {
		if err := w.SaveAll(); err != nil {
			gwlog.Errorf("world: autosave failed: %s", err)
		}
	})
}

// Tick runs due timers and callbacks posted by storage. It is called by the game loop.
func (w *World) Tick() {
	timer.Tick()
	post.Tick()
}

// LoadEntity loads the stored entity typeName/id and registers it.
// Its prototype must be live or be a root prototype.
func (w *World) LoadEntity(typeName string, id common.EntityID, callback func(e *entity.Entity, err error)) {
	if w.storage == nil {
		callback(nil, fmt.Errorf("world has no storage"))
		return
	}
	w.storage.Load(typeName, id, func(doc map[string]interface{}, err error) {
		if err == nil && doc == nil {
			err = fmt.Errorf("entity %s %s not found in storage", typeName, id)
		}
		if err != nil {
			callback(nil, err)
			return
		}
		sd := &storedDoc{typeName: typeName, id: id, doc: doc}
		l := newLoader(w)
		l.docs[id] = sd
		before := snapshotIDs(w.registry)
		e, err := l.instantiate(id)
		if err == nil {
			err = l.deserialize(sd, e)
		}
		if err != nil {
			l.rollback(before)
			callback(nil, err)
			return
		}
		callback(e, nil)
	})
}

// LoadAll loads every stored entity of typeNames (all entity classes if empty) from es.
//
// Documents are read concurrently. Entities are then created on the calling
// routine, prototypes before their instances, and properties are loaded last so
// that references between loaded entities resolve to live entities.
//
// If an entity can not be created, every entity created by the call is removed again.
// An entity whose properties fail to load stays registered with inherited properties
// only, so that references to it still resolve; its error is part of the returned error.
func (w *World) LoadAll(ctx context.Context, es storagecommon.EntityStorage, typeNames ...string) (int, error) {
	if len(typeNames) == 0 {
		for _, name := range w.types.TypeNames() {
			if w.types.Get(name).IsEntity() {
				typeNames = append(typeNames, name)
			}
		}
	}

	docs, err := readAll(ctx, es, typeNames)
	if err != nil {
		return 0, err
	}

	l := newLoader(w)
	for _, sd := range docs {
		if other, ok := l.docs[sd.id]; ok {
			return 0, entity.WithFile(fmt.Errorf("entity id %s is stored as both %s and %s", sd.id, other.typeName, sd.typeName), sd.key())
		}
		l.docs[sd.id] = sd
	}

	before := snapshotIDs(w.registry)
	for _, sd := range docs {
		if _, err := l.instantiate(sd.id); err != nil {
			l.rollback(before)
			return 0, err
		}
	}

	var errs error
	n := 0
	for _, sd := range l.order {
		if err := l.deserialize(sd, l.loaded[sd.id]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		n++
	}
	gwlog.Infof("world: %d entities loaded from storage, %d failed", n, len(multierr.Errors(errs)))
	return n, errs
}
