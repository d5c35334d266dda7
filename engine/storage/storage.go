// Package storage runs entity storage operations on a dedicated goroutine.
//
// Requests are queued by the game routine; results are posted back to it with
// the post package, so callbacks run during post.Tick.
package storage

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/config"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/gwutils"
	"github.com/protoworld/protoworld/engine/opmon"
	"github.com/protoworld/protoworld/engine/post"
	"github.com/protoworld/protoworld/engine/storage/backend/filesystem"
	"github.com/protoworld/protoworld/engine/storage/backend/mongodb"
	"github.com/protoworld/protoworld/engine/storage/backend/postgres"
	"github.com/protoworld/protoworld/engine/storage/backend/redis"
	"github.com/protoworld/protoworld/engine/storage/backend/redis_cluster"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
)

type saveRequest struct {
	TypeName string
	EntityID common.EntityID
	Data     interface{}
	Callback SaveCallbackFunc
}

type loadRequest struct {
	TypeName string
	EntityID common.EntityID
	Callback LoadCallbackFunc
}

type existsRequest struct {
	TypeName string
	EntityID common.EntityID
	Callback ExistsCallbackFunc
}

type listEntityIDsRequest struct {
	TypeName string
	Callback ListCallbackFunc
}

type shutdownRequest struct{}

// SaveCallbackFunc is the callback type of storage Save
type SaveCallbackFunc func(err error)

// LoadCallbackFunc is the callback type of storage Load
type LoadCallbackFunc func(data map[string]interface{}, err error)

// ExistsCallbackFunc is the callback type of storage Exists
type ExistsCallbackFunc func(exists bool, err error)

// ListCallbackFunc is the callback type of storage List
type ListCallbackFunc func([]common.EntityID, error)

// OpenFunc opens the storage backend
type OpenFunc func() (storagecommon.EntityStorage, error)

// Storage serves storage requests on its own goroutine
type Storage struct {
	open                 OpenFunc
	engine               storagecommon.EntityStorage
	operationQueue       *xnsyncutil.SyncQueue
	routineTerminated    *xnsyncutil.OneTimeCond
	recentWarnedQueueLen int
}

// Open opens the storage backend described by cfg
func Open(cfg *config.StorageConfig) (storagecommon.EntityStorage, error) {
	switch cfg.Type {
	case "filesystem":
		return entitystoragefilesystem.OpenDirectory(config.ResolvePath(cfg.Directory))
	case "mongodb":
		return entitystoragemongodb.OpenMongoDB(cfg.Url, cfg.DB)
	case "redis":
		dbindex, err := strconv.Atoi(cfg.DB)
		if err != nil {
			return nil, errors.Wrap(err, "redis db must be integer")
		}
		return entitystorageredis.OpenRedis(cfg.Url, dbindex)
	case "redis_cluster":
		return entitystoragerediscluster.OpenRedisCluster(cfg.StartNodes.ToList())
	case "postgres":
		return entitystoragepostgres.OpenPostgres(cfg.Url)
	}
	return nil, errors.Errorf("unknown storage type: %s", cfg.Type)
}

// New creates a Storage which opens its backend with open (again after EOF errors)
func New(open OpenFunc) *Storage {
	return &Storage{
		open:              open,
		operationQueue:    xnsyncutil.NewSyncQueue(),
		routineTerminated: xnsyncutil.NewOneTimeCond(),
	}
}

// NewFromConfig creates a Storage for the backend described by cfg
func NewFromConfig(cfg *config.StorageConfig) *Storage {
	return New(func() (storagecommon.EntityStorage, error) {
		return Open(cfg)
	})
}

// Initialize opens the backend and starts the storage routine
func (s *Storage) Initialize() error {
	if err := s.assureStorageEngineReady(); err != nil {
		return errors.Wrap(err, "storage engine is not ready")
	}
	go s.storageRoutine()
	return nil
}

// Save saves entity data to storage
func (s *Storage) Save(typeName string, entityID common.EntityID, data interface{}, callback SaveCallbackFunc) {
	s.push(saveRequest{
		TypeName: typeName,
		EntityID: entityID,
		Data:     data,
		Callback: callback,
	})
}

// Load loads entity data from storage
func (s *Storage) Load(typeName string, entityID common.EntityID, callback LoadCallbackFunc) {
	s.push(loadRequest{
		TypeName: typeName,
		EntityID: entityID,
		Callback: callback,
	})
}

// Exists checks if entity of specified ID exists in storage
func (s *Storage) Exists(typeName string, entityID common.EntityID, callback ExistsCallbackFunc) {
	s.push(existsRequest{
		TypeName: typeName,
		EntityID: entityID,
		Callback: callback,
	})
}

// ListEntityIDs returns all entity IDs in storage
//
// Return values can be large for common entity types
func (s *Storage) ListEntityIDs(typeName string, callback ListCallbackFunc) {
	s.push(listEntityIDsRequest{
		TypeName: typeName,
		Callback: callback,
	})
}

func (s *Storage) push(req interface{}) {
	s.operationQueue.Push(req)
	s.checkOperationQueueLen()
}

func (s *Storage) checkOperationQueueLen() {
	qlen := s.operationQueue.Len()
	if qlen > consts.STORAGE_QUEUE_WARN_LEN && qlen%consts.STORAGE_QUEUE_WARN_LEN == 0 && s.recentWarnedQueueLen != qlen {
		gwlog.Warnf("Storage operation queue length = %d", qlen)
		s.recentWarnedQueueLen = qlen
	}
}

// Shutdown waits for queued operations to finish and closes the backend
func (s *Storage) Shutdown() {
	s.operationQueue.Push(shutdownRequest{})
	s.routineTerminated.Wait()
	s.operationQueue.Close()
}

// Engine returns the opened backend
func (s *Storage) Engine() storagecommon.EntityStorage {
	return s.engine
}

func (s *Storage) assureStorageEngineReady() (err error) {
	if s.engine != nil {
		return
	}
	s.engine, err = s.open()
	return
}

func (s *Storage) resetOnEOF(err error) {
	if err != nil && s.engine != nil && s.engine.IsEOF(err) {
		s.engine.Close()
		s.engine = nil
	}
}

func (s *Storage) storageRoutine() {
	gwutils.RepeatUntilPanicless(s.serveRequests)
	if s.engine != nil {
		s.engine.Close()
	}
	s.routineTerminated.Signal()
}

// serveRequests handles queued operations until shutdown
func (s *Storage) serveRequests() {
	for {
		op := s.operationQueue.Pop()
		if op == nil {
			return
		}
		if _, ok := op.(shutdownRequest); ok {
			return
		}
		s.handle(op)
	}
}

// waitEngineReady blocks until the backend is opened
func (s *Storage) waitEngineReady() {
	for {
		err := s.assureStorageEngineReady()
		if err == nil {
			return
		}
		gwlog.Errorf("Storage engine is not ready: %s", err)
		time.Sleep(time.Second)
	}
}

func (s *Storage) handle(op interface{}) {
	s.waitEngineReady()

	var monop *opmon.Operation
	switch req := op.(type) {
	case saveRequest:
		monop = opmon.StartOperation("storage.save")
		var err error
		for retry := 0; retry < consts.STORAGE_SAVE_RETRY; retry++ {
			if consts.DEBUG_SAVE_LOAD {
				gwlog.Debugf("storage: SAVING %s %s ...", req.TypeName, req.EntityID)
			}
			s.waitEngineReady()
			err = s.engine.Write(req.TypeName, req.EntityID, req.Data)
			if err == nil {
				break
			}
			gwlog.Errorf("storage: save %s %s failed: %s", req.TypeName, req.EntityID, err)
			s.resetOnEOF(err)
		}
		monop.Finish(consts.STORAGE_OP_WARN_DURATION)
		if req.Callback != nil {
			post.Post(func() {
				req.Callback(err)
			})
		}
	case loadRequest:
		if consts.DEBUG_SAVE_LOAD {
			gwlog.Debugf("storage: LOADING %s %s ...", req.TypeName, req.EntityID)
		}
		monop = opmon.StartOperation("storage.load")
		data, err := s.engine.Read(req.TypeName, req.EntityID)
		if err != nil {
			gwlog.TraceError("storage: load %s %s failed: %s", req.TypeName, req.EntityID, err)
			data = nil
		}
		monop.Finish(consts.STORAGE_OP_WARN_DURATION)
		if req.Callback != nil {
			post.Post(func() {
				req.Callback(data, err)
			})
		}
		s.resetOnEOF(err)
	case existsRequest:
		monop = opmon.StartOperation("storage.exists")
		exists, err := s.engine.Exists(req.TypeName, req.EntityID)
		monop.Finish(consts.STORAGE_OP_WARN_DURATION)
		if req.Callback != nil {
			post.Post(func() {
				req.Callback(exists, err)
			})
		}
		s.resetOnEOF(err)
	case listEntityIDsRequest:
		monop = opmon.StartOperation("storage.list")
		eids, err := s.engine.List(req.TypeName)
		if err != nil {
			gwlog.TraceError("ListEntityIDs %s failed: %s", req.TypeName, err)
		}
		monop.Finish(consts.STORAGE_OP_WARN_DURATION * 10)
		if req.Callback != nil {
			post.Post(func() {
				req.Callback(eids, err)
			})
		}
		s.resetOnEOF(err)
	default:
		gwlog.Panicf("storage: unknown operation: %v", op)
	}
}
