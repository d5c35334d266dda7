package entitystoragemongodb

import (
	"io"
	"sort"

	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

const (
	_DEFAULT_DB_NAME = "protoworld"
)

type mongoDBEntityStorge struct {
	db *mgo.Database
}

// OpenMongoDB opens mongodb as entity storage. Each entity type is stored in its own collection.
func OpenMongoDB(url string, dbname string) (storagecommon.EntityStorage, error) {
	gwlog.Debugf("Connecting MongoDB ...")
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, err
	}

	session.SetMode(mgo.Monotonic, true)
	if dbname == "" {
		// if db is not specified, use default
		dbname = _DEFAULT_DB_NAME
	}
	return &mongoDBEntityStorge{
		db: session.DB(dbname),
	}, nil
}

// collection returns a collection bound to a copied session, so that concurrent callers do not share a socket
func (es *mongoDBEntityStorge) collection(typeName string) (*mgo.Collection, func()) {
	session := es.db.Session.Copy()
	return es.db.With(session).C(typeName), session.Close
}

func (es *mongoDBEntityStorge) Write(typeName string, entityID common.EntityID, data interface{}) error {
	col, done := es.collection(typeName)
	defer done()
	_, err := col.UpsertId(string(entityID), bson.M{
		"data": jsonutil.ToPlain(data),
	})
	return err
}

func (es *mongoDBEntityStorge) Read(typeName string, entityID common.EntityID) (map[string]interface{}, error) {
	col, done := es.collection(typeName)
	defer done()
	var doc bson.M
	err := col.FindId(string(entityID)).One(&doc)
	if err == mgo.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	data, ok := doc["data"].(bson.M)
	if !ok {
		return nil, nil
	}
	return convertM2Map(data), nil
}

func convertM2Map(m bson.M) map[string]interface{} {
	ma := map[string]interface{}(m)
	convertM2MapInMap(ma)
	return ma
}

func convertM2MapInMap(m map[string]interface{}) {
	for k, v := range m {
		m[k] = convertValue(v)
	}
}

func convertM2MapInList(l []interface{}) {
	for i, v := range l {
		l[i] = convertValue(v)
	}
}

func convertValue(v interface{}) interface{} {
	switch im := v.(type) {
	case bson.M:
		return convertM2Map(im)
	case map[string]interface{}:
		convertM2MapInMap(im)
	case []interface{}:
		convertM2MapInList(im)
	}
	return v
}

func (es *mongoDBEntityStorge) List(typeName string) ([]common.EntityID, error) {
	col, done := es.collection(typeName)
	defer done()
	var docs []bson.M
	err := col.Find(nil).Select(bson.M{"_id": 1}).All(&docs)
	if err != nil {
		return nil, err
	}

	entityIDs := make([]common.EntityID, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc["_id"].(string); ok {
			entityIDs = append(entityIDs, common.EntityID(id))
		}
	}
	sort.Slice(entityIDs, func(i, j int) bool {
		return entityIDs[i] < entityIDs[j]
	})
	return entityIDs, nil
}

func (es *mongoDBEntityStorge) Exists(typeName string, entityID common.EntityID) (bool, error) {
	col, done := es.collection(typeName)
	defer done()
	n, err := col.FindId(string(entityID)).Count()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (es *mongoDBEntityStorge) Close() {
	es.db.Session.Close()
}

func (es *mongoDBEntityStorge) IsEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
