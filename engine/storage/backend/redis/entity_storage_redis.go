package entitystorageredis

import (
	"io"
	"strings"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
)

const (
	_SCAN_COUNT = 10000
)

type redisEntityStorage struct {
	pool *redis.Pool
}

// OpenRedis opens redis as entity storage
//
// url is either a redis:// URL or a host:port address.
func OpenRedis(url string, dbindex int) (storagecommon.EntityStorage, error) {
	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 4 * time.Minute,
		Dial: func() (redis.Conn, error) {
			if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
				return redis.DialURL(url, redis.DialDatabase(dbindex))
			}
			return redis.Dial("tcp", url, redis.DialDatabase(dbindex))
		},
	}

	c := pool.Get()
	defer c.Close()
	if _, err := c.Do("PING"); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "redis dial failed")
	}

	return &redisEntityStorage{
		pool: pool,
	}, nil
}

func (es *redisEntityStorage) List(typeName string) ([]common.EntityID, error) {
	c := es.pool.Get()
	defer c.Close()
	return scanEntityIDs(c, typeName)
}

// scanEntityIDs iterates SCAN over the keys of typeName
func scanEntityIDs(c redis.Conn, typeName string) ([]common.EntityID, error) {
	keyMatch := typeName + "$*"
	prefixLen := len(typeName) + 1
	cursor := "0"
	var eids []common.EntityID
	for {
		r, err := redis.Values(c.Do("SCAN", cursor, "MATCH", keyMatch, "COUNT", _SCAN_COUNT))
		if err != nil {
			return nil, err
		}
		cursor, err = redis.String(r[0], nil)
		if err != nil {
			return nil, err
		}
		keys, err := redis.Strings(r[1], nil)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			eids = append(eids, common.EntityID(key[prefixLen:]))
		}
		if cursor == "0" {
			break
		}
	}
	return eids, nil
}

func (es *redisEntityStorage) Write(typeName string, entityID common.EntityID, data interface{}) error {
	b, err := storagecommon.PackDocument(data)
	if err != nil {
		return err
	}

	c := es.pool.Get()
	defer c.Close()
	_, err = c.Do("SET", storagecommon.EntityKey(typeName, entityID), b)
	return err
}

func (es *redisEntityStorage) Read(typeName string, entityID common.EntityID) (map[string]interface{}, error) {
	c := es.pool.Get()
	defer c.Close()
	b, err := redis.Bytes(c.Do("GET", storagecommon.EntityKey(typeName, entityID)))
	if err == redis.ErrNil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return storagecommon.UnpackDocument(b)
}

func (es *redisEntityStorage) Exists(typeName string, entityID common.EntityID) (bool, error) {
	c := es.pool.Get()
	defer c.Close()
	return redis.Bool(c.Do("EXISTS", storagecommon.EntityKey(typeName, entityID)))
}

func (es *redisEntityStorage) Close() {
	es.pool.Close()
}

func (es *redisEntityStorage) IsEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
