package storagecommon

import (
	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/vmihailenco/msgpack"
)

// EntityStorage defines the interface of entity storage backends
//
// Implementations are safe for concurrent use. Write receives a serialized
// entity tree (ordered or plain maps). Read returns nil without error if the
// document does not exist.
type EntityStorage interface {
	List(typeName string) ([]common.EntityID, error)
	Write(typeName string, entityID common.EntityID, data interface{}) error
	Read(typeName string, entityID common.EntityID) (map[string]interface{}, error)
	Exists(typeName string, entityID common.EntityID) (bool, error)
	Close()
	IsEOF(err error) bool
}

// EntityKey returns the key of an entity document in key-value backends
func EntityKey(typeName string, entityID common.EntityID) string {
	return typeName + "$" + string(entityID)
}

// PackDocument packs a serialized entity tree with msgpack
func PackDocument(data interface{}) ([]byte, error) {
	b, err := msgpack.Marshal(jsonutil.ToPlain(data))
	if err != nil {
		return nil, errors.Wrap(err, "pack document")
	}
	return b, nil
}

// UnpackDocument unpacks a document packed by PackDocument
func UnpackDocument(b []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := msgpack.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrap(err, "unpack document")
	}
	return jsonutil.Normalize(doc).(map[string]interface{}), nil
}
