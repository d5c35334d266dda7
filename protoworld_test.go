package protoworld

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/config"
	"github.com/protoworld/protoworld/engine/storage/backend/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Hut struct {
	Entity
}

const testConfig = `
[world]
side = server
boot_entity_types = Hut
save_interval = 0
log_file = world.log
log_stderr = false
log_level = info

[storage]
type = filesystem
directory = store
`

func TestInitSaveShutdown(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "protoworld.ini")
	require.NoError(t, ioutil.WriteFile(configFile, []byte(testConfig), 0644))
	config.SetConfigFile(configFile)
	defer config.SetConfigFile("protoworld.ini")

	RegisterEntity("Hut", &Hut{})
	require.NoError(t, Init())
	assert.Equal(t, 1, GetWorld().Registry().Len())

	hut, err := Instantiate("Hut")
	require.NoError(t, err)
	hut.Set("roof", "straw")
	assert.Same(t, hut, GetEntity(hut.ID()))
	assert.Nil(t, GetEntity("nobody"))

	data, err := Serialize(hut.I, attrs.SendToClient)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"roof":"straw"`)

	n, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, Shutdown())

	es, err := entitystoragefilesystem.OpenDirectory(filepath.Join(dir, "store"))
	require.NoError(t, err)
	ids, err := es.List("Hut")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, hut.ID())

	require.NoError(t, Remove(hut))
	assert.Nil(t, GetEntity(hut.ID()))
}
