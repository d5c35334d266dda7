package entitystoragefilesystem

import (
	"encoding/base64"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
)

type fileSystemEntityStorage struct {
	directory string
}

func getFileName(typeName string, entityID common.EntityID) string {
	return typeName + "$" + base64.URLEncoding.EncodeToString([]byte(entityID))
}

func (es *fileSystemEntityStorage) getFilePath(typeName string, entityID common.EntityID) string {
	return filepath.Join(es.directory, getFileName(typeName, entityID))
}

// Write saves the document as pretty JSON. The file is replaced atomically.
func (es *fileSystemEntityStorage) Write(typeName string, entityID common.EntityID, data interface{}) error {
	saveFile := es.getFilePath(typeName, entityID)
	dataBytes, err := jsonutil.Marshal(data, true)
	if err != nil {
		return err
	}

	if consts.DEBUG_SAVE_LOAD {
		gwlog.Debugf("Saving to file %s: %s", saveFile, string(dataBytes))
	}

	tmp, err := ioutil.TempFile(es.directory, ".tmp-"+typeName+"-")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(append(dataBytes, '\n'))
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0644)
	}
	if err == nil {
		err = os.Rename(tmpName, saveFile)
	}
	if err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", saveFile)
	}
	return nil
}

func (es *fileSystemEntityStorage) Read(typeName string, entityID common.EntityID) (map[string]interface{}, error) {
	saveFile := es.getFilePath(typeName, entityID)
	dataBytes, err := ioutil.ReadFile(saveFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %s", saveFile)
	}
	return jsonutil.ParseObject(dataBytes, saveFile)
}

func (es *fileSystemEntityStorage) Exists(typeName string, entityID common.EntityID) (bool, error) {
	_, err := os.Stat(es.getFilePath(typeName, entityID))
	if err == nil {
		return true, nil
	} else if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (es *fileSystemEntityStorage) List(typeName string) ([]common.EntityID, error) {
	prefix := typeName + "$"
	files, err := filepath.Glob(filepath.Join(es.directory, prefix+"*"))
	if err != nil {
		return nil, err
	}
	res := make([]common.EntityID, 0, len(files))
	for _, fpath := range files {
		_, fn := filepath.Split(fpath)
		if !strings.HasPrefix(fn, prefix) {
			gwlog.Errorf("invalid file: %s", fpath)
			continue
		}
		idbytes, err := base64.URLEncoding.DecodeString(fn[len(prefix):])
		if err != nil {
			gwlog.TraceError("fail to parse file %s", fpath)
			continue
		}
		res = append(res, common.EntityID(idbytes))
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i] < res[j]
	})
	return res, nil
}

func (es *fileSystemEntityStorage) Close() {
	// need to do nothing
}

func (es *fileSystemEntityStorage) IsEOF(err error) bool {
	return false
}

// OpenDirectory opens a directory as entity storage, creating it if necessary
func OpenDirectory(directory string) (storagecommon.EntityStorage, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "create storage directory %s", directory)
	}

	return &fileSystemEntityStorage{
		directory: directory,
	}, nil
}
