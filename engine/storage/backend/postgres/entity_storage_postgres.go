package entitystoragepostgres

import (
	"database/sql"
	"fmt"
	"io"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
)

type postgresEntityStorage struct {
	db *sqlx.DB

	lock               sync.Mutex
	visitedEntityTypes common.StringSet
}

// OpenPostgres opens postgres as entity storage. Each entity type is stored in its own table.
func OpenPostgres(url string) (storagecommon.EntityStorage, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres failed")
	}

	return &postgresEntityStorage{
		db:                 db,
		visitedEntityTypes: common.StringSet{},
	}, nil
}

func tableName(typeName string) string {
	return pq.QuoteIdentifier("entity_" + typeName)
}

func (es *postgresEntityStorage) createTableForEntityTypeIfNotExists(typeName string) error {
	es.lock.Lock()
	defer es.lock.Unlock()
	if es.visitedEntityTypes.Contains(typeName) {
		return nil
	}

	_, err := es.db.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT NOT NULL PRIMARY KEY, data JSONB NOT NULL)", tableName(typeName)))
	if err != nil {
		return errors.Wrapf(err, "create table for %s", typeName)
	}
	es.visitedEntityTypes.Add(typeName)
	return nil
}

func (es *postgresEntityStorage) List(typeName string) ([]common.EntityID, error) {
	if err := es.createTableForEntityTypeIfNotExists(typeName); err != nil {
		return nil, err
	}

	var ids []string
	if err := es.db.Select(&ids, fmt.Sprintf("SELECT id FROM %s ORDER BY id", tableName(typeName))); err != nil {
		return nil, err
	}
	eids := make([]common.EntityID, len(ids))
	for i, id := range ids {
		eids[i] = common.EntityID(id)
	}
	return eids, nil
}

func (es *postgresEntityStorage) Write(typeName string, entityID common.EntityID, data interface{}) error {
	if err := es.createTableForEntityTypeIfNotExists(typeName); err != nil {
		return err
	}

	b, err := jsonutil.Marshal(data, false)
	if err != nil {
		return err
	}
	_, err = es.db.Exec(fmt.Sprintf("INSERT INTO %s (id, data) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data", tableName(typeName)), string(entityID), string(b))
	return err
}

func (es *postgresEntityStorage) Read(typeName string, entityID common.EntityID) (map[string]interface{}, error) {
	if err := es.createTableForEntityTypeIfNotExists(typeName); err != nil {
		return nil, err
	}

	var b []byte
	err := es.db.Get(&b, fmt.Sprintf("SELECT data FROM %s WHERE id = $1", tableName(typeName)), string(entityID))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return jsonutil.ParseObject(b, "")
}

func (es *postgresEntityStorage) Exists(typeName string, entityID common.EntityID) (bool, error) {
	if err := es.createTableForEntityTypeIfNotExists(typeName); err != nil {
		return false, err
	}

	var exists bool
	err := es.db.Get(&exists, fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", tableName(typeName)), string(entityID))
	return exists, err
}

func (es *postgresEntityStorage) Close() {
	es.db.Close()
}

func (es *postgresEntityStorage) IsEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF || err == sql.ErrConnDone
}
