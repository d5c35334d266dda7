/*
ProtoWorld is a persistent object model for game worlds. Game objects are entities which inherit
their properties from other entities, their prototypes. Every entity class has a root prototype
whose ID is the class name, and any entity can serve as the prototype of new entities.

Entities and Objects

An entity type embeds protoworld.Entity. A serializable type that is not an entity embeds
protoworld.Object and can be stored in entity properties. Properties are read through the
prototype chain and written to the entity itself. Property values are numbers, strings, booleans,
lists, plain maps, Map and Set collections, bit vectors, objects and references to other entities.

Package protoworld

protoworld package provides the APIs used by game programs: registering types, instantiating,
saving and loading entities. A common program looks like below:

	func main() {
		protoworld.RegisterEntity("Room", &Room{})
		protoworld.RegisterEntity("Character", &Character{})
		protoworld.RegisterObject("Stats", &Stats{})
		if err := protoworld.Init(); err != nil {
			gwlog.Fatalf("init failed: %s", err)
		}
		protoworld.Load(ctx)
		protoworld.Run(ctx, 100*time.Millisecond)
	}

Attributes

Every property carries four flags: saved, edited, sentToClient and sentToServer. Each serialization
mode only writes the properties whose flag allows it. Flags are declared in the type's DescribeType
method or in the class attribute file named by class_attrs in the config.

Storage

Saved entities are written as JSON documents, one per entity, to the configured storage: a directory,
MongoDB, Redis, Redis cluster or PostgreSQL. Loading a world creates prototypes before their instances
and resolves references between loaded entities.

Configuration

ProtoWorld uses `protoworld.ini` as the default config file.

*/
package protoworld
