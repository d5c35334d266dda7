// Package jsonutil contains typed accessors for decoded JSON objects and
// helpers to print and parse JSON with file path context.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"
	"strconv"

	"github.com/iancoleman/orderedmap"
	"github.com/pkg/errors"
	"github.com/xiaonanln/typeconv"
)

// Marshal converts v to JSON text, indented with tabs if pretty
func Marshal(v interface{}, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "\t")
	}
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "marshal json")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Parse decodes JSON text into a generic value, keeping numbers as json.Number.
//
// filePath is only used in error messages and may be empty.
func Parse(data []byte, filePath string) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, wrapFile(err, filePath)
	}
	if dec.More() {
		return nil, wrapFile(errors.New("trailing data after JSON value"), filePath)
	}
	return v, nil
}

// ParseObject decodes JSON text that must hold a JSON object
func ParseObject(data []byte, filePath string) (map[string]interface{}, error) {
	v, err := Parse(data, filePath)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, wrapFile(fmt.Errorf("expect JSON object, got %T", v), filePath)
	}
	return obj, nil
}

// ParseFile reads and decodes a JSON object from filePath
func ParseFile(filePath string) (map[string]interface{}, error) {
	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filePath)
	}
	return ParseObject(data, filePath)
}

func wrapFile(err error, filePath string) error {
	if filePath == "" {
		return errors.Wrap(err, "parse json")
	}
	return errors.Wrapf(err, "parse json %s", filePath)
}

// Float returns the JSON representation of a float64 that always reads back as a float
func Float(f float64) interface{} {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f // let the encoder reject it
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return json.Number(strconv.FormatFloat(f, 'f', 1, 64))
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// Number normalizes a decoded number to int64 or float64.
//
// json.Number literals without fraction or exponent become int64, every other
// integer type becomes int64 and float32 becomes float64. Unsigned integers above
// math.MaxInt64 are rejected.
func Number(v interface{}) (interface{}, bool) {
	switch n := v.(type) {
	case json.Number:
		s := string(n)
		if !bytes.ContainsAny([]byte(s), ".eE") {
			if i, err := n.Int64(); err == nil {
				return i, true
			}
		}
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return nil, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return nil, false
		}
		return int64(n), true
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return typeconv.Int(n), true
	}
	return nil, false
}

// ToPlain converts ordered maps and json.Number values into plain maps and Go numbers
// so that encoders other than encoding/json (msgpack, bson) can handle the value.
func ToPlain(v interface{}) interface{} {
	switch tv := v.(type) {
	case *orderedmap.OrderedMap:
		m := make(map[string]interface{}, len(tv.Keys()))
		for _, k := range tv.Keys() {
			val, _ := tv.Get(k)
			m[k] = ToPlain(val)
		}
		return m
	case orderedmap.OrderedMap:
		return ToPlain(&tv)
	case map[string]interface{}:
		m := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			m[k] = ToPlain(val)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(tv))
		for i, val := range tv {
			l[i] = ToPlain(val)
		}
		return l
	case json.Number:
		if n, ok := Number(tv); ok {
			return n
		}
		return string(tv)
	}
	return v
}

// Normalize converts decoded documents of non-JSON codecs back into JSON shapes:
// maps with interface{} keys become map[string]interface{} and byte slices become strings.
func Normalize(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			m[k] = Normalize(val)
		}
		return m
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			m[fmt.Sprint(k)] = Normalize(val)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(tv))
		for i, val := range tv {
			l[i] = Normalize(val)
		}
		return l
	case []byte:
		return string(tv)
	}
	return v
}

// GetString returns the string field key of obj
func GetString(obj map[string]interface{}, key string) (string, bool) {
	s, ok := obj[key].(string)
	return s, ok
}

// GetInt returns the integer field key of obj
func GetInt(obj map[string]interface{}, key string) (int64, bool) {
	n, ok := Number(obj[key])
	if !ok {
		return 0, false
	}
	switch tn := n.(type) {
	case int64:
		return tn, true
	case float64:
		if tn == math.Trunc(tn) {
			return int64(tn), true
		}
	}
	return 0, false
}

// GetFloat returns the numeric field key of obj as float64
func GetFloat(obj map[string]interface{}, key string) (float64, bool) {
	n, ok := Number(obj[key])
	if !ok {
		return 0, false
	}
	if i, isInt := n.(int64); isInt {
		return float64(i), true
	}
	return n.(float64), true
}

// GetBool returns the boolean field key of obj
func GetBool(obj map[string]interface{}, key string) (bool, bool) {
	b, ok := obj[key].(bool)
	return b, ok
}

// GetObject returns the object field key of obj
func GetObject(obj map[string]interface{}, key string) (map[string]interface{}, bool) {
	o, ok := obj[key].(map[string]interface{})
	return o, ok
}

// GetArray returns the array field key of obj
func GetArray(obj map[string]interface{}, key string) ([]interface{}, bool) {
	a, ok := obj[key].([]interface{})
	return a, ok
}

// RequireString returns the string field key of obj or an error naming the key
func RequireString(obj map[string]interface{}, key string) (string, error) {
	s, ok := GetString(obj, key)
	if !ok {
		return "", missingKey(obj, key, "string")
	}
	return s, nil
}

// RequireInt returns the integer field key of obj or an error naming the key
func RequireInt(obj map[string]interface{}, key string) (int64, error) {
	n, ok := GetInt(obj, key)
	if !ok {
		return 0, missingKey(obj, key, "integer")
	}
	return n, nil
}

func missingKey(obj map[string]interface{}, key string, expect string) error {
	v, ok := obj[key]
	if !ok {
		return fmt.Errorf("missing key %q", key)
	}
	return fmt.Errorf("key %q should be %s, got %T", key, expect, v)
}

// PutString sets the string field key of obj
func PutString(obj *orderedmap.OrderedMap, key string, s string) {
	obj.Set(key, s)
}

// PutInt sets the integer field key of obj
func PutInt(obj *orderedmap.OrderedMap, key string, n int64) {
	obj.Set(key, n)
}

// PutFloat sets the float field key of obj so that it reads back as a float
func PutFloat(obj *orderedmap.OrderedMap, key string, f float64) {
	obj.Set(key, Float(f))
}
