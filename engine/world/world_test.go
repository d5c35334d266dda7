package world

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/config"
	"github.com/protoworld/protoworld/engine/entity"
	"github.com/protoworld/protoworld/engine/idgen"
	"github.com/protoworld/protoworld/engine/storage"
	"github.com/protoworld/protoworld/engine/storage/backend/filesystem"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Room struct {
	entity.Entity
}

func (r *Room) DescribeType(desc *entity.TypeDesc) {
	desc.SetVersion(2)
	desc.DefineAttr("visitors", "!saved")
}

type Character struct {
	entity.Entity
}

type Stats struct {
	entity.Object
}

func newTypes() *entity.TypeRegistry {
	types := entity.NewTypeRegistry()
	types.RegisterEntity("Room", &Room{})
	types.RegisterEntity("Character", &Character{})
	types.RegisterObject("Stats", &Stats{})
	return types
}

// countingStorage counts writes of the wrapped backend
type countingStorage struct {
	storagecommon.EntityStorage
	sync.Mutex
	writes int
}

func (cs *countingStorage) Write(typeName string, entityID common.EntityID, data interface{}) error {
	cs.Lock()
	cs.writes++
	cs.Unlock()
	return cs.EntityStorage.Write(typeName, entityID, data)
}

func (cs *countingStorage) Writes() int {
	cs.Lock()
	defer cs.Unlock()
	return cs.writes
}

func newTestWorld(t *testing.T, dir string) (*World, *countingStorage) {
	fs, err := entitystoragefilesystem.OpenDirectory(dir)
	require.NoError(t, err)
	cs := &countingStorage{EntityStorage: fs}
	s := storage.New(func() (storagecommon.EntityStorage, error) {
		return cs, nil
	})
	require.NoError(t, s.Initialize())
	t.Cleanup(s.Shutdown)

	w := New(newTypes(), idgen.NewServer(time.Unix(1700000000, 0)))
	w.SetStorage(s)
	return w, cs
}

// saveAll saves every entity and ticks until all callbacks ran
func saveAll(t *testing.T, w *World) {
	pending := 0
	w.Registry().ForEach(func(e *entity.Entity) {
		pending++
		require.NoError(t, w.SaveEntity(e, func(err error) {
			assert.NoError(t, err)
			pending--
		}))
	})
	deadline := time.Now().Add(5 * time.Second)
	for pending > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("save timeout")
		}
		time.Sleep(time.Millisecond)
		w.Tick()
	}
}

func buildWorld(t *testing.T, w *World) {
	require.NoError(t, w.Boot("Room", "Character"))
	roomProto, err := w.Registry().Get("Room")
	require.NoError(t, err)
	roomProto.Set("title", "a room")

	cave, err := w.Registry().InstantiateByPrototypeID("Room", "cave")
	require.NoError(t, err)
	cave.Set("title", "dark cave")
	cave.Set("visitors", 3)
	darkCave, err := w.Registry().InstantiateByPrototypeID("cave", "deep")
	require.NoError(t, err)
	darkCave.Set("depth", 2.0)

	hero, err := w.Registry().InstantiateByPrototypeID("Character", "hero")
	require.NoError(t, err)
	hero.Set("room", darkCave)
	darkCave.Set("owner", hero)
	stats, err := w.Types().NewInstanceByName("Stats")
	require.NoError(t, err)
	stats.(*Stats).Attrs.SetInt("hp", 10)
	hero.Set("stats", stats)
}

func TestSaveAndLoadAll(t *testing.T) {
	dir := t.TempDir()
	w, _ := newTestWorld(t, dir)
	buildWorld(t, w)
	saveAll(t, w)

	w2, _ := newTestWorld(t, dir)
	fs, err := entitystoragefilesystem.OpenDirectory(dir)
	require.NoError(t, err)
	n, err := w2.LoadAll(context.Background(), fs)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []common.EntityID{"Character", "Room", "cave", "deep", "hero"}, w2.Registry().IDs())

	deep, err := w2.Registry().Get("deep")
	require.NoError(t, err)
	hero, err := w2.Registry().Get("hero")
	require.NoError(t, err)
	assert.Equal(t, common.EntityID("cave"), deep.PrototypeID())
	assert.Equal(t, "dark cave", deep.GetStr("title"))
	assert.Equal(t, 2.0, deep.GetFloat("depth"))
	assert.Equal(t, int64(0), deep.GetInt("visitors"))
	assert.Same(t, hero, deep.GetEntity("owner"))
	assert.Same(t, deep, hero.GetEntity("room"))
	assert.True(t, hero.GetEntity("room").IsValid())
	assert.Equal(t, int64(10), hero.GetObject("stats").(*Stats).Attrs.GetInt("hp"))
}

func TestSaveSkipsUnchanged(t *testing.T) {
	w, cs := newTestWorld(t, t.TempDir())
	buildWorld(t, w)
	saveAll(t, w)
	assert.Equal(t, 5, cs.Writes())

	saveAll(t, w)
	assert.Equal(t, 5, cs.Writes())

	cave, _ := w.Registry().Get("cave")
	cave.Set("visitors", 4) // not saved
	saveAll(t, w)
	assert.Equal(t, 5, cs.Writes())

	cave.Set("title", "bright cave")
	saveAll(t, w)
	assert.Equal(t, 6, cs.Writes())
}

func TestLoadEntity(t *testing.T) {
	dir := t.TempDir()
	w, _ := newTestWorld(t, dir)
	buildWorld(t, w)
	saveAll(t, w)

	w2, _ := newTestWorld(t, dir)
	var loaded *entity.Entity
	var loadErr error
	done := false
	w2.LoadEntity("Room", "cave", func(e *entity.Entity, err error) {
		loaded, loadErr, done = e, err, true
	})
	for !done {
		time.Sleep(time.Millisecond)
		w2.Tick()
	}
	require.NoError(t, loadErr)
	assert.Equal(t, "dark cave", loaded.GetStr("title"))
	assert.Equal(t, common.EntityID("Room"), loaded.PrototypeID())

	done = false
	w2.LoadEntity("Room", "nowhere", func(e *entity.Entity, err error) {
		loadErr, done = err, true
	})
	for !done {
		time.Sleep(time.Millisecond)
		w2.Tick()
	}
	assert.Error(t, loadErr)
}

func TestLoadAllBadDocument(t *testing.T) {
	dir := t.TempDir()
	fs, err := entitystoragefilesystem.OpenDirectory(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Write("Room", "r1", map[string]interface{}{
		"id": "r1", "prototypeId": "Room", "className": "Room", "version": 1,
	}))
	require.NoError(t, fs.Write("Room", "r2", map[string]interface{}{
		"id": "r2", "prototypeId": "Room", "className": "Room", "version": 2, "title": "ok",
	}))

	w := New(newTypes(), idgen.NewServer(time.Unix(1700000000, 0)))
	n, err := w.LoadAll(context.Background(), fs, "Room")
	assert.Equal(t, 1, n)
	require.ErrorIs(t, err, entity.ErrIdentity)
	assert.Contains(t, err.Error(), "Room$r1")
	// properties failed to load, the entity stays referenceable
	assert.True(t, w.Registry().Contains("r1"))

	require.NoError(t, fs.Write("Room", "r3", map[string]interface{}{
		"id": "r3", "className": "Room", "version": 2,
	}))
	w2 := New(newTypes(), idgen.NewClient())
	require.NoError(t, w2.Boot("Character"))
	_, err = w2.LoadAll(context.Background(), fs, "Room")
	require.ErrorIs(t, err, entity.ErrIdentity)
	// r1, r2 and the Room root were created before r3 failed
	assert.Equal(t, []common.EntityID{"Character"}, w2.Registry().IDs())
}

func TestRemove(t *testing.T) {
	w, _ := newTestWorld(t, t.TempDir())
	buildWorld(t, w)
	saveAll(t, w)
	hero, _ := w.Registry().Get("hero")
	require.NoError(t, w.Remove(hero))
	assert.False(t, w.Registry().Contains("hero"))
	deep, _ := w.Registry().Get("deep")
	assert.Panics(t, func() { deep.GetEntity("owner").GetStr("x") })
	assert.Error(t, w.Remove(hero))
}

func TestSetSaveInterval(t *testing.T) {
	w, cs := newTestWorld(t, t.TempDir())
	buildWorld(t, w)
	w.SetSaveInterval(time.Millisecond * 10)
	deadline := time.Now().Add(5 * time.Second)
	for cs.Writes() < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("autosave timeout")
		}
		time.Sleep(time.Millisecond)
		w.Tick()
	}
	w.SetSaveInterval(0)
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	classAttrs := filepath.Join(dir, "class_attrs.yaml")
	require.NoError(t, ioutil.WriteFile(classAttrs, []byte("Room:\n  version: 3\n"), 0644))

	w, err := NewFromConfig(newTypes(), &config.WorldConfig{
		Side:            "client",
		BootEntityTypes: []string{"Room"},
		ClassAttrs:      classAttrs,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, w.Types().Get("Room").Version())
	assert.True(t, w.Registry().Contains("Room"))

	e, err := w.Instantiate("Room")
	require.NoError(t, err)
	assert.Equal(t, common.EntityID("1"), e.ID())

	_, err = NewFromConfig(newTypes(), &config.WorldConfig{Side: "server", BootEntityTypes: []string{"Stats"}})
	assert.Error(t, err)
}
