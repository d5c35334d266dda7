package entity

import (
	"fmt"

	"github.com/iancoleman/orderedmap"
	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/jsonutil"
)

// IObject is implemented by every registered type through the embedded Object
type IObject interface {
	// DescribeType is called once on registration; define attributes and version here
	DescribeType(desc *TypeDesc)

	object() *Object
}

// Object is the serializable base embedded by entity and nested object types
type Object struct {
	TypeName string
	I        IObject
	Attrs    *MapAttr

	typeDesc *TypeDesc
	attached bool
}

func (o *Object) init(desc *TypeDesc, inst IObject) {
	o.TypeName = desc.name
	o.I = inst
	o.typeDesc = desc
	o.Attrs = NewMapAttr()
	o.Attrs.attached = true
}

func (o *Object) object() *Object {
	return o
}

// DescribeType does nothing by default
func (o *Object) DescribeType(desc *TypeDesc) {}

// TypeDesc returns the registered type description, nil for unregistered objects
func (o *Object) TypeDesc() *TypeDesc {
	return o.typeDesc
}

// Version returns the class version
func (o *Object) Version() int {
	if o.typeDesc == nil {
		return 0
	}
	return o.typeDesc.version
}

func (o *Object) String() string {
	return fmt.Sprintf("%s%s", o.TypeName, o.Attrs)
}

// ToJSON converts the object into its JSON tree for mode
func (o *Object) ToJSON(mode attrs.Mode) (*orderedmap.OrderedMap, error) {
	return NewSerializer(mode).ToJSON(o.I)
}

// Serialize encodes the object as JSON text: indented for files and the editor, compact on the wire
func (o *Object) Serialize(mode attrs.Mode) ([]byte, error) {
	doc, err := o.ToJSON(mode)
	if err != nil {
		return nil, err
	}
	return jsonutil.Marshal(doc, !mode.IsWire())
}

// FromJSON loads the properties of doc into the object
func (o *Object) FromJSON(doc map[string]interface{}, resolver ReferenceResolver, mode attrs.Mode) error {
	if o.typeDesc == nil {
		return newError(SchemaError, o.TypeName, "", "can not load into an unregistered object")
	}
	return NewDeserializer(resolver, o.typeDesc.registry, mode).FromJSON(doc, o.I)
}

// Deserialize parses JSON text and loads it into the object
func (o *Object) Deserialize(data []byte, resolver ReferenceResolver, mode attrs.Mode) error {
	doc, err := jsonutil.ParseObject(data, "")
	if err != nil {
		return err
	}
	return o.FromJSON(doc, resolver, mode)
}
