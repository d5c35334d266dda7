package protoworld

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/config"
	"github.com/protoworld/protoworld/engine/entity"
	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/protoworld/protoworld/engine/storage"
	"github.com/protoworld/protoworld/engine/world"
)

// Entity is the type of all entities. Entity types embed it.
type Entity = entity.Entity

// Object is the type of serializable non-entity objects. Object types embed it.
type Object = entity.Object

// EntityID is the type of entity IDs
type EntityID = common.EntityID

var (
	theWorld *world.World
)

// RegisterEntity registers the entity type
//
// returns the type description object which can be used to define attributes of the entity type
func RegisterEntity(typeName string, entityPtr entity.IEntity) *entity.TypeDesc {
	return entity.RegisterEntity(typeName, entityPtr)
}

// RegisterObject registers a serializable object type which can be stored in entity attributes
func RegisterObject(typeName string, objPtr entity.IObject) *entity.TypeDesc {
	return entity.RegisterObject(typeName, objPtr)
}

// Init reads the config file, sets up logging, opens the storage and boots the world.
//
// Entity types must be registered before Init.
func Init() error {
	cfg := config.Get()
	fmt.Fprintf(os.Stderr, "Read protoworld config: \n%s\n", config.DumpPretty(cfg))
	setupGWLog(&cfg.World)

	w, err := world.NewFromConfig(entity.DefaultTypes(), &cfg.World)
	if err != nil {
		return err
	}
	s := storage.NewFromConfig(&cfg.Storage)
	if err := s.Initialize(); err != nil {
		return err
	}
	w.SetStorage(s)
	w.SetSaveInterval(cfg.World.SaveInterval)
	theWorld = w
	return nil
}

func setupGWLog(cfg *config.WorldConfig) {
	gwlog.SetSource("world")
	gwlog.Infof("Set log level to %s", cfg.LogLevel)
	gwlog.SetLevel(gwlog.ParseLevel(cfg.LogLevel))

	var outputs []string
	if cfg.LogFile != "" {
		outputs = append(outputs, config.ResolvePath(cfg.LogFile))
	}
	if cfg.LogStderr {
		outputs = append(outputs, "stderr")
	}
	if len(outputs) > 0 {
		gwlog.SetOutput(outputs)
	}
}

// GetWorld returns the world booted by Init
func GetWorld() *world.World {
	return theWorld
}

// GetEntity returns the live entity of id, nil if it is not registered
func GetEntity(id common.EntityID) *entity.Entity {
	e, err := theWorld.Registry().Get(id)
	if err != nil {
		return nil
	}
	return e
}

// Instantiate creates a new entity inheriting from the entity registered as prototypeID
func Instantiate(prototypeID common.EntityID) (*entity.Entity, error) {
	return theWorld.Instantiate(prototypeID)
}

// Remove removes the entity from the world
func Remove(e *entity.Entity) error {
	return theWorld.Remove(e)
}

// Serialize encodes the object as JSON for mode
func Serialize(obj entity.IObject, mode attrs.Mode) ([]byte, error) {
	doc, err := entity.NewSerializer(mode).ToJSON(obj)
	if err != nil {
		return nil, err
	}
	return jsonutil.Marshal(doc, !mode.IsWire())
}

// Load loads every stored entity into the world
func Load(ctx context.Context) (int, error) {
	return theWorld.LoadAll(ctx, theWorld.Storage().Engine())
}

// Save saves every live entity
func Save() error {
	return theWorld.SaveAll()
}

// Run ticks the world every tickInterval until ctx is done, then saves all entities and shuts the storage down
func Run(ctx context.Context, tickInterval time.Duration) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Shutdown()
		case <-ticker.C:
			theWorld.Tick()
		}
	}
}

// Shutdown saves all entities and waits for the storage to finish
func Shutdown() error {
	theWorld.SetSaveInterval(0)
	err := theWorld.SaveAll()
	theWorld.Storage().Shutdown()
	theWorld.Tick()
	return err
}
