package world

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/entity"
	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/protoworld/protoworld/engine/opmon"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
	"golang.org/x/sync/errgroup"
)

// storedDoc is one entity document read from storage
type storedDoc struct {
	typeName string
	id       common.EntityID
	doc      map[string]interface{}
}

func (sd *storedDoc) key() string {
	return storagecommon.EntityKey(sd.typeName, sd.id)
}

// readAll reads the documents of typeNames concurrently
func readAll(ctx context.Context, es storagecommon.EntityStorage, typeNames []string) ([]*storedDoc, error) {
	var docs []*storedDoc
	for _, typeName := range typeNames {
		ids, err := es.List(typeName)
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", typeName)
		}
		sort.Slice(ids, func(i, j int) bool {
			return ids[i] < ids[j]
		})
		for _, id := range ids {
			docs = append(docs, &storedDoc{typeName: typeName, id: id})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(consts.LOAD_CONCURRENCY)
	for _, sd := range docs {
		sd := sd
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			monop := opmon.StartOperation("world.read")
			doc, err := es.Read(sd.typeName, sd.id)
			monop.Finish(consts.STORAGE_OP_WARN_DURATION)
			if err != nil {
				return errors.Wrapf(err, "read %s", sd.key())
			}
			sd.doc = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// documents removed between List and Read
	res := docs[:0]
	for _, sd := range docs {
		if sd.doc != nil {
			res = append(res, sd)
		}
	}
	return res, nil
}

// loader registers stored entities, prototypes first
type loader struct {
	world    *World
	docs     map[common.EntityID]*storedDoc
	visiting common.EntityIDSet
	loaded   map[common.EntityID]*entity.Entity
	order    []*storedDoc
}

func newLoader(w *World) *loader {
	return &loader{
		world:    w,
		docs:     map[common.EntityID]*storedDoc{},
		visiting: common.EntityIDSet{},
		loaded:   map[common.EntityID]*entity.Entity{},
	}
}

func identityError(sd *storedDoc, class string, format string, args ...interface{}) error {
	return &entity.Error{
		Kind:     entity.IdentityError,
		Class:    class,
		Property: consts.ID_KEY,
		File:     sd.key(),
		Msg:      fmt.Sprintf(format, args...),
	}
}

// instantiate creates and registers the entity of the stored document id without loading its properties
func (l *loader) instantiate(id common.EntityID) (*entity.Entity, error) {
	if e, ok := l.loaded[id]; ok {
		return e, nil
	}
	sd := l.docs[id]
	if l.visiting.Contains(id) {
		return nil, identityError(sd, sd.typeName, "prototype cycle through %s", id)
	}
	l.visiting.Add(id)
	defer l.visiting.Del(id)

	className, err := jsonutil.RequireString(sd.doc, consts.CLASS_NAME_KEY)
	if err != nil {
		return nil, entity.WithFile(&entity.Error{Kind: entity.SchemaError, Class: sd.typeName, Msg: err.Error()}, sd.key())
	}
	if className != sd.typeName {
		return nil, identityError(sd, className, "stored as %s", sd.typeName)
	}
	if docID, ok := jsonutil.GetString(sd.doc, consts.ID_KEY); !ok || common.EntityID(docID) != id {
		return nil, identityError(sd, className, "document id %q does not match stored id %s", docID, id)
	}

	registry := l.world.registry
	var e *entity.Entity
	protoID, _ := jsonutil.GetString(sd.doc, consts.PROTOTYPE_ID_KEY)
	if protoID == "" {
		if string(id) != className {
			return nil, identityError(sd, className, "%s has no prototype", id)
		}
		e, err = registry.CreateRootPrototypeEntity(className)
	} else {
		if _, ok := l.docs[common.EntityID(protoID)]; ok {
			if _, err := l.instantiate(common.EntityID(protoID)); err != nil {
				return nil, err
			}
		}
		e, err = registry.InstantiateByPrototypeID(common.EntityID(protoID), id)
	}
	if err != nil {
		return nil, entity.WithFile(err, sd.key())
	}
	if e.TypeName != className {
		return nil, identityError(sd, className, "%s is already registered as %s", id, e)
	}

	l.loaded[id] = e
	l.order = append(l.order, sd)
	return e, nil
}

// rollback removes the entities registered since the registry held only the ids in before,
// instances before their prototypes
func (l *loader) rollback(before common.EntityIDSet) {
	var added []*entity.Entity
	l.world.registry.ForEach(func(e *entity.Entity) {
		if !before.Contains(e.ID()) {
			added = append(added, e)
		}
	})
	sort.SliceStable(added, func(i, j int) bool {
		return depth(added[i]) > depth(added[j])
	})
	for _, e := range added {
		if err := l.world.Remove(e); err != nil {
			gwlog.Errorf("world: rollback of %s failed: %s", e, err)
		}
	}
	if len(added) > 0 {
		gwlog.Warnf("world: %d half loaded entities removed", len(added))
	}
}

// depth returns the length of the prototype chain of e
func depth(e *entity.Entity) int {
	n := 0
	for p := e.Prototype(); p != nil && p.IsValid(); p = p.Prototype() {
		n++
	}
	return n
}

func snapshotIDs(r *entity.Registry) common.EntityIDSet {
	ids := common.EntityIDSet{}
	for _, id := range r.IDs() {
		ids.Add(id)
	}
	return ids
}

// deserialize loads the properties of the stored document into e
func (l *loader) deserialize(sd *storedDoc, e *entity.Entity) error {
	w := l.world
	err := entity.NewDeserializer(w.registry, w.types, attrs.SaveToFile).SetFile(sd.key()).FromJSON(sd.doc, e.I)
	if err != nil {
		return err
	}
	if _, digest, err := document(e); err == nil {
		w.digests[e.ID()] = digest
	}
	return nil
}
