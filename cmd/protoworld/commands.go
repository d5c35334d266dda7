package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/gwutils"
	"github.com/protoworld/protoworld/engine/idgen"
	"github.com/protoworld/protoworld/engine/jsonutil"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
	"go.uber.org/multierr"
)

type storedKey struct {
	typeName string
	id       common.EntityID
}

// check scans every stored document of typeNames and prints the problems found.
// It returns true if there are none.
func check(es storagecommon.EntityStorage, typeNames []string, out io.Writer) bool {
	known := common.EntityIDSet{}
	for _, typeName := range typeNames {
		known.Add(common.EntityID(typeName))
	}

	var keys []storedKey
	ok := true
	for _, typeName := range typeNames {
		ids, err := es.List(typeName)
		if err != nil {
			fmt.Fprintf(out, "! list %s: %v\n", typeName, err)
			ok = false
			continue
		}
		for _, id := range ids {
			known.Add(id)
			keys = append(keys, storedKey{typeName, id})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].typeName != keys[j].typeName {
			return keys[i].typeName < keys[j].typeName
		}
		return keys[i].id < keys[j].id
	})

	problems := 0
	for _, key := range keys {
		storeKey := storagecommon.EntityKey(key.typeName, key.id)
		doc, err := es.Read(key.typeName, key.id)
		if err == nil && doc == nil {
			err = errors.New("document disappeared")
		}
		if err == nil {
			if perr := gwutils.CatchPanic(func() {
				err = checkDocument(key.typeName, key.id, doc, known)
			}); perr != nil {
				err = perr
			}
		}
		if err != nil {
			for _, e := range multierr.Errors(err) {
				fmt.Fprintf(out, "! %s: %v\n", storeKey, e)
				problems++
			}
			continue
		}
		fmt.Fprintf(out, "ok %s\n", storeKey)
	}
	fmt.Fprintf(out, "checked %d documents, %d problems\n", len(keys), problems)
	return ok && problems == 0
}

// checkDocument validates the header of one entity document and every value in it
func checkDocument(typeName string, id common.EntityID, doc map[string]interface{}, known common.EntityIDSet) error {
	var errs error
	className, err := jsonutil.RequireString(doc, consts.CLASS_NAME_KEY)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if className != typeName {
		errs = multierr.Append(errs, errors.Errorf("className %s does not match stored type", className))
	}
	if _, err := jsonutil.RequireInt(doc, consts.VERSION_KEY); err != nil {
		errs = multierr.Append(errs, err)
	}
	if docID, ok := jsonutil.GetString(doc, consts.ID_KEY); !ok || common.EntityID(docID) != id {
		errs = multierr.Append(errs, errors.Errorf("id %q does not match stored id", docID))
	}
	if v, ok := doc[consts.NAME_KEY]; ok {
		if _, isStr := v.(string); !isStr {
			errs = multierr.Append(errs, errors.Errorf("name is %T, not string", v))
		}
	}
	if v, ok := doc[consts.PROTOTYPE_ID_KEY]; ok {
		protoID, isStr := v.(string)
		if !isStr {
			errs = multierr.Append(errs, errors.Errorf("prototypeId is %T, not string", v))
		} else if !known.Contains(common.EntityID(protoID)) {
			errs = multierr.Append(errs, errors.Errorf("dangling prototype %s", protoID))
		}
	} else if string(id) != typeName {
		errs = multierr.Append(errs, errors.Errorf("%s has no prototypeId", id))
	}

	for _, key := range sortedKeys(doc) {
		switch key {
		case consts.CLASS_NAME_KEY, consts.VERSION_KEY, consts.ID_KEY, consts.NAME_KEY, consts.PROTOTYPE_ID_KEY:
			continue
		}
		errs = multierr.Append(errs, checkValue(doc[key], key, known))
	}
	return errs
}

func checkValue(v interface{}, path string, known common.EntityIDSet) error {
	switch tv := v.(type) {
	case nil:
		return errors.Errorf("%s: null is not allowed", path)
	case []interface{}:
		var errs error
		for i, item := range tv {
			errs = multierr.Append(errs, checkValue(item, fmt.Sprintf("%s[%d]", path, i), known))
		}
		return errs
	case map[string]interface{}:
		return checkObject(tv, path, known)
	}
	return nil
}

func checkObject(m map[string]interface{}, path string, known common.EntityIDSet) error {
	marker, hasMarker := m[consts.CLASS_NAME_KEY]
	if !hasMarker {
		var errs error
		for _, key := range sortedKeys(m) {
			errs = multierr.Append(errs, checkValue(m[key], path+"."+key, known))
		}
		return errs
	}
	className, ok := marker.(string)
	if !ok {
		return errors.Errorf("%s: className is %T, not string", path, marker)
	}

	data := m[consts.DATA_KEY]
	switch className {
	case consts.ENTITY_CLASS_NAME:
		id, ok := jsonutil.GetString(m, consts.ID_KEY)
		if !ok {
			return errors.Errorf("%s: entity reference without id", path)
		}
		if !known.Contains(common.EntityID(id)) {
			return errors.Errorf("%s: dangling reference to %s", path, id)
		}
		return nil
	case consts.MAP_CLASS_NAME:
		dm, ok := data.(map[string]interface{})
		if !ok {
			return errors.Errorf("%s: Map data is %T, not object", path, data)
		}
		var errs error
		for _, key := range sortedKeys(dm) {
			errs = multierr.Append(errs, checkValue(dm[key], path+"."+key, known))
		}
		return errs
	case consts.SET_CLASS_NAME:
		if _, ok := data.([]interface{}); !ok {
			return errors.Errorf("%s: Set data is %T, not array", path, data)
		}
		return nil
	case consts.BITVECTOR_CLASS_NAME:
		if _, ok := data.(string); !ok {
			return errors.Errorf("%s: Bitvector data is %T, not string", path, data)
		}
		return nil
	}

	var errs error
	for _, key := range sortedKeys(m) {
		if key == consts.CLASS_NAME_KEY || key == consts.VERSION_KEY {
			continue
		}
		errs = multierr.Append(errs, checkValue(m[key], path+"."+key, known))
	}
	return errs
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func list(es storagecommon.EntityStorage, typeName string, out io.Writer) error {
	ids, err := es.List(typeName)
	if err != nil {
		return err
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

func show(es storagecommon.EntityStorage, typeName string, id string, out io.Writer) error {
	doc, err := es.Read(typeName, common.EntityID(id))
	if err != nil {
		return err
	}
	if doc == nil {
		return errors.Errorf("%s not found", storagecommon.EntityKey(typeName, common.EntityID(id)))
	}
	b, err := jsonutil.Marshal(doc, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", b)
	return nil
}

func genid(g *idgen.Generator, n int, out io.Writer) {
	for i := 0; i < n; i++ {
		fmt.Fprintln(out, g.Next())
	}
}
