package entity

import (
	"io/ioutil"
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"github.com/protoworld/protoworld/engine/attrs"
	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/gwlog"
)

// TypeDesc is the type description for registering entity and object types
type TypeDesc struct {
	name     string
	version  int
	isEntity bool
	goType   reflect.Type
	attrs    *attrs.Table
	registry *TypeRegistry
}

// Name returns the class name of the type
func (desc *TypeDesc) Name() string {
	return desc.name
}

// Version returns the class version
func (desc *TypeDesc) Version() int {
	return desc.version
}

// IsEntity returns if the type is an entity type
func (desc *TypeDesc) IsEntity() bool {
	return desc.isEntity
}

// Attrs returns the attribute table of the type
func (desc *TypeDesc) Attrs() *attrs.Table {
	return desc.attrs
}

// SetVersion sets the class version written to and checked against saved documents
func (desc *TypeDesc) SetVersion(version int) *TypeDesc {
	desc.version = version
	return desc
}

// DefineAttr declares the attributes of a property, e.x. DefineAttr("hp", "saved", "!sentToClient")
func (desc *TypeDesc) DefineAttr(attr string, defs ...string) *TypeDesc {
	gwlog.Debugf("        Attr %s.%s = %v", desc.name, attr, defs)
	rec, err := attrs.ParseDefs(desc.name, attr, defs...)
	if err != nil {
		gwlog.Panicf("%s", fromConfigError(err))
	}
	desc.attrs.Define(attr, rec)
	return desc
}

// DefineDefaultAttrs declares the class wide defaultAttributes
func (desc *TypeDesc) DefineDefaultAttrs(defs ...string) *TypeDesc {
	rec, err := attrs.ParseDefs(desc.name, "defaultAttributes", defs...)
	if err != nil {
		gwlog.Panicf("%s", fromConfigError(err))
	}
	desc.attrs.SetDefaults(rec)
	return desc
}

// ApplyTable merges declarations loaded from a class attribute file
func (desc *TypeDesc) ApplyTable(t *attrs.Table) *TypeDesc {
	desc.attrs.Merge(t)
	return desc
}

// ResolveAttrs returns the resolved attributes of prop
func (desc *TypeDesc) ResolveAttrs(prop string) attrs.Attributes {
	return attrs.Resolve(desc.attrs, prop)
}

func (desc *TypeDesc) newInstance() IObject {
	val := reflect.New(desc.goType)
	inst := val.Interface().(IObject)
	inst.object().init(desc, inst)
	if ie, ok := inst.(IEntity); ok {
		ie.entity().valid = true
	}
	return inst
}

// ClassFactory allocates objects by class name
type ClassFactory interface {
	// NewInstanceByName allocates a fresh instance of the named class
	NewInstanceByName(typeName string) (IObject, error)
	// Instantiate allocates an unregistered entity of the prototype's class that inherits from it
	Instantiate(prototype *Entity) (*Entity, error)
}

// TypeRegistry holds registered types and serves as the ClassFactory
type TypeRegistry struct {
	types map[string]*TypeDesc
}

// NewTypeRegistry creates an empty TypeRegistry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: map[string]*TypeDesc{},
	}
}

var registeredTypes = NewTypeRegistry()

// DefaultTypes returns the process wide TypeRegistry used by RegisterEntity and RegisterObject
func DefaultTypes() *TypeRegistry {
	return registeredTypes
}

// RegisterEntity registers an entity type in the default TypeRegistry
func RegisterEntity(typeName string, entity IEntity) *TypeDesc {
	return registeredTypes.RegisterEntity(typeName, entity)
}

// RegisterObject registers a nested serializable type in the default TypeRegistry
func RegisterObject(typeName string, obj IObject) *TypeDesc {
	return registeredTypes.RegisterObject(typeName, obj)
}

// GetTypeDesc returns the TypeDesc of a type in the default TypeRegistry
func GetTypeDesc(typeName string) *TypeDesc {
	return registeredTypes.Get(typeName)
}

// RegisterEntity registers custom entity type and define entity behaviors
func (tr *TypeRegistry) RegisterEntity(typeName string, entity IEntity) *TypeDesc {
	return tr.register(typeName, entity, true)
}

// RegisterObject registers a non-entity serializable type
func (tr *TypeRegistry) RegisterObject(typeName string, obj IObject) *TypeDesc {
	if _, ok := obj.(IEntity); ok {
		gwlog.Panicf("RegisterObject: %s is an entity type, use RegisterEntity", typeName)
	}
	return tr.register(typeName, obj, false)
}

func (tr *TypeRegistry) register(typeName string, obj IObject, isEntity bool) *TypeDesc {
	switch typeName {
	case "", consts.ENTITY_CLASS_NAME, consts.MAP_CLASS_NAME, consts.SET_CLASS_NAME, consts.BITVECTOR_CLASS_NAME:
		gwlog.Panicf("Register: class name %q is reserved", typeName)
	}
	if _, ok := tr.types[typeName]; ok {
		gwlog.Panicf("Register: type %s already registered", typeName)
	}

	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}
	if objType.Kind() != reflect.Struct {
		gwlog.Panicf("Register: %s must be a struct type, got %s", typeName, objType)
	}

	desc := &TypeDesc{
		name:     typeName,
		isEntity: isEntity,
		goType:   objType,
		attrs:    attrs.NewTable(typeName),
		registry: tr,
	}
	tr.types[typeName] = desc

	gwlog.Infof(">>> Register %s => %s <<<", typeName, objType.Name())
	obj.DescribeType(desc)
	return desc
}

// Get returns the TypeDesc of typeName, or nil
func (tr *TypeRegistry) Get(typeName string) *TypeDesc {
	return tr.types[typeName]
}

// TypeNames returns the names of all registered types in sorted order
func (tr *TypeRegistry) TypeNames() []string {
	names := make([]string, 0, len(tr.types))
	for name := range tr.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewInstanceByName allocates a fresh instance of the named class
func (tr *TypeRegistry) NewInstanceByName(typeName string) (IObject, error) {
	desc := tr.types[typeName]
	if desc == nil {
		return nil, newError(SchemaError, typeName, "", "unknown class")
	}
	return desc.newInstance(), nil
}

// Instantiate allocates an entity of the prototype's class that inherits the prototype's attributes
func (tr *TypeRegistry) Instantiate(prototype *Entity) (*Entity, error) {
	prototype.checkValid()
	inst, err := tr.NewInstanceByName(prototype.TypeName)
	if err != nil {
		return nil, err
	}
	ie, ok := inst.(IEntity)
	if !ok {
		return nil, newError(SchemaError, prototype.TypeName, "", "not an entity class")
	}
	e := ie.entity()
	e.prototype = prototype
	e.Attrs.setProto(prototype.Attrs)
	return e, nil
}

// ApplyClassSpecs applies class attribute files loaded by attrs.LoadTables
func (tr *TypeRegistry) ApplyClassSpecs(specs map[string]*attrs.ClassSpec) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		desc := tr.types[name]
		if desc == nil {
			return newError(ConfigError, name, "", "class attributes declared for an unregistered class")
		}
		spec := specs[name]
		if spec.HasVersion {
			desc.SetVersion(spec.Version)
		}
		desc.ApplyTable(spec.Table)
	}
	return nil
}

// LoadClassAttrs reads a YAML class attribute file and applies it to the registered classes
func (tr *TypeRegistry) LoadClassAttrs(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read class attributes %s", path)
	}
	specs, err := attrs.LoadTables(data)
	if err != nil {
		return WithFile(fromConfigError(err), path)
	}
	if err := tr.ApplyClassSpecs(specs); err != nil {
		return WithFile(err, path)
	}
	gwlog.Infof("Class attributes loaded from %s: %d classes", path, len(specs))
	return nil
}
