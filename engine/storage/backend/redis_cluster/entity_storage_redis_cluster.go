package entitystoragerediscluster

import (
	"io"
	"sort"
	"time"

	rediscluster "github.com/chasex/redis-go-cluster"
	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
)

type redisClusterEntityStorage struct {
	c *rediscluster.Cluster
}

// OpenRedisCluster opens redis cluster as entity storage
func OpenRedisCluster(startNodes []string) (storagecommon.EntityStorage, error) {
	c, err := rediscluster.NewCluster(&rediscluster.Options{
		StartNodes:   startNodes,
		ConnTimeout:  10 * time.Second, // Connection timeout
		ReadTimeout:  60 * time.Second, // Read timeout
		WriteTimeout: 60 * time.Second, // Write timeout
		KeepAlive:    16,               // Maximum keep alive connecion in each node
		AliveTime:    10 * time.Minute, // Keep alive timeout
	})

	if err != nil {
		return nil, errors.Wrap(err, "connect redis cluster failed")
	}

	return &redisClusterEntityStorage{
		c: c,
	}, nil
}

// indexKey is the set of entity IDs of one type. SCAN does not span cluster nodes.
func indexKey(typeName string) string {
	return "$ids$" + typeName
}

func (es *redisClusterEntityStorage) List(typeName string) ([]common.EntityID, error) {
	ids, err := redis.Strings(es.c.Do("SMEMBERS", indexKey(typeName)))
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	eids := make([]common.EntityID, len(ids))
	for i, id := range ids {
		eids[i] = common.EntityID(id)
	}
	return eids, nil
}

func (es *redisClusterEntityStorage) Write(typeName string, entityID common.EntityID, data interface{}) error {
	b, err := storagecommon.PackDocument(data)
	if err != nil {
		return err
	}

	if _, err = es.c.Do("SET", storagecommon.EntityKey(typeName, entityID), b); err != nil {
		return err
	}
	_, err = es.c.Do("SADD", indexKey(typeName), string(entityID))
	return err
}

func (es *redisClusterEntityStorage) Read(typeName string, entityID common.EntityID) (map[string]interface{}, error) {
	b, err := redis.Bytes(es.c.Do("GET", storagecommon.EntityKey(typeName, entityID)))
	if err == redis.ErrNil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return storagecommon.UnpackDocument(b)
}

func (es *redisClusterEntityStorage) Exists(typeName string, entityID common.EntityID) (bool, error) {
	return redis.Bool(es.c.Do("EXISTS", storagecommon.EntityKey(typeName, entityID)))
}

func (es *redisClusterEntityStorage) Close() {
	es.c.Close()
}

func (es *redisClusterEntityStorage) IsEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
