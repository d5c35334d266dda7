package storage

import (
	"testing"
	"time"

	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/config"
	"github.com/protoworld/protoworld/engine/post"
	"github.com/protoworld/protoworld/engine/storage/backend/filesystem"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitPosted ticks posted callbacks until done reports true
func waitPosted(t *testing.T, done func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatalf("storage callback timeout")
		}
		time.Sleep(time.Millisecond)
		post.Tick()
	}
}

func newTestStorage(t *testing.T) *Storage {
	dir := t.TempDir()
	s := New(func() (storagecommon.EntityStorage, error) {
		return entitystoragefilesystem.OpenDirectory(dir)
	})
	require.NoError(t, s.Initialize())
	return s
}

func TestSaveLoad(t *testing.T) {
	s := newTestStorage(t)
	defer s.Shutdown()

	saved := false
	s.Save("Room", "r1", map[string]interface{}{"className": "Room", "title": "hall"}, func(err error) {
		assert.NoError(t, err)
		saved = true
	})
	waitPosted(t, func() bool { return saved })

	var loaded map[string]interface{}
	s.Load("Room", "r1", func(data map[string]interface{}, err error) {
		assert.NoError(t, err)
		loaded = data
	})
	waitPosted(t, func() bool { return loaded != nil })
	assert.Equal(t, "hall", loaded["title"])

	var exists, existsDone bool
	s.Exists("Room", "r2", func(ok bool, err error) {
		assert.NoError(t, err)
		exists, existsDone = ok, true
	})
	waitPosted(t, func() bool { return existsDone })
	assert.False(t, exists)

	var ids []common.EntityID
	s.ListEntityIDs("Room", func(eids []common.EntityID, err error) {
		assert.NoError(t, err)
		ids = eids
	})
	waitPosted(t, func() bool { return ids != nil })
	assert.Equal(t, []common.EntityID{"r1"}, ids)
}

func TestShutdownFlushesQueue(t *testing.T) {
	s := newTestStorage(t)
	for i := 0; i < 20; i++ {
		s.Save("Room", common.EntityID(string(rune('a'+i))), map[string]interface{}{"n": i}, nil)
	}
	es := s.Engine()
	s.Shutdown()

	ids, err := es.List("Room")
	require.NoError(t, err)
	assert.Len(t, ids, 20)
}

func TestSaveFailureReported(t *testing.T) {
	s := newTestStorage(t)
	defer s.Shutdown()

	var saveErr error
	done := false
	s.Save("Room", "bad", map[string]interface{}{"f": func() {}}, func(err error) {
		saveErr, done = err, true
	})
	waitPosted(t, func() bool { return done })
	assert.Error(t, saveErr)
}

func TestOpenUnknownType(t *testing.T) {
	_, err := Open(&config.StorageConfig{Type: "sqlite"})
	assert.Error(t, err)
}
