package consts

import "time"

// Reserved keys of the JSON wire format. Existing saved data depends on these exact spellings.
const (
	// CLASS_NAME_KEY tags every serialized object with its class name
	CLASS_NAME_KEY = "className"
	// VERSION_KEY holds the class version (absent in wire modes)
	VERSION_KEY = "version"
	// ID_KEY holds the entity id
	ID_KEY = "id"
	// PROTOTYPE_ID_KEY holds the id of the prototype entity
	PROTOTYPE_ID_KEY = "prototypeId"
	// NAME_KEY holds the mutable entity name
	NAME_KEY = "name"
	// DATA_KEY is only used inside Map / Set / Bitvector records
	DATA_KEY = "data"
)

// Class markers of the special records
const (
	ENTITY_CLASS_NAME    = "Entity"
	MAP_CLASS_NAME       = "Map"
	SET_CLASS_NAME       = "Set"
	BITVECTOR_CLASS_NAME = "Bitvector"
)

// Tunable Options
const (
	// ID_SEPARATOR joins the boot timestamp and the counter of server side entity IDs
	ID_SEPARATOR = "-"

	// STORAGE_QUEUE_WARN_LEN is the storage operation queue length that starts to print warnings
	STORAGE_QUEUE_WARN_LEN = 100

	// STORAGE_SAVE_RETRY is the number of attempts of one storage save before reporting failure
	STORAGE_SAVE_RETRY = 3

	// STORAGE_OP_WARN_DURATION is the duration of a storage operation that is considered slow
	STORAGE_OP_WARN_DURATION = time.Millisecond * 100

	// LOAD_CONCURRENCY is the maximum number of documents read concurrently while loading the world
	LOAD_CONCURRENCY = 16

	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output
	OPMON_DUMP_INTERVAL = 0
)

// Debug Options
const (
	// DEBUG_SAVE_LOAD prints save / load debug logs
	DEBUG_SAVE_LOAD = false
	// DEBUG_ENTITIES prints entity registry debug logs
	DEBUG_ENTITIES = false
)
