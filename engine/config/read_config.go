package config

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/gwlog"
)

const (
	_DEFAULT_CONFIG_FILE   = "protoworld.ini"
	_DEFAULT_SIDE          = "server"
	_DEFAULT_SAVE_INTERVAL = time.Minute * 5
	_DEFAULT_LOG_LEVEL     = "debug"
	_DEFAULT_LOG_FILE      = "world.log"
	_DEFAULT_STORAGE_DIR   = "_entity_storage"
	_DEFAULT_STORAGE_DB    = "protoworld"
)

var (
	configFilePath   = _DEFAULT_CONFIG_FILE
	protoWorldConfig *ProtoWorldConfig
	configLock       sync.Mutex
)

// WorldConfig defines fields of the [world] section
type WorldConfig struct {
	Side            string // server or client, selects the entity ID scheme
	BootEntityTypes []string
	ClassAttrs      string // YAML file of per-class attribute tables
	SaveInterval    time.Duration
	LogFile         string
	LogStderr       bool
	LogLevel        string
}

// StorageConfig defines fields of storage config
type StorageConfig struct {
	Type       string // Type of storage (filesystem, mongodb, redis, redis_cluster, postgres)
	Directory  string // Directory of filesystem storage (filesystem)
	Url        string // Connection URL (mongodb, redis, postgres)
	DB         string // Database name (mongodb, redis)
	StartNodes common.StringSet
}

// ProtoWorldConfig defines the total config file structure
type ProtoWorldConfig struct {
	World   WorldConfig
	Storage StorageConfig
}

// SetConfigFile sets the config file path (protoworld.ini by default)
func SetConfigFile(f string) {
	configLock.Lock()
	configFilePath = f
	protoWorldConfig = nil
	configLock.Unlock()
}

// GetConfigDir returns the directory of the config file
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total config
func Get() *ProtoWorldConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if protoWorldConfig == nil {
		protoWorldConfig = readProtoWorldConfig()
	}
	return protoWorldConfig
}

// Reload forces the config file to be read again
func Reload() *ProtoWorldConfig {
	configLock.Lock()
	protoWorldConfig = nil
	configLock.Unlock()

	return Get()
}

// GetWorld returns the world config
func GetWorld() *WorldConfig {
	return &Get().World
}

// GetStorage returns the storage config
func GetStorage() *StorageConfig {
	return &Get().Storage
}

// ResolvePath resolves p relative to the directory of the config file
func ResolvePath(p string) string {
	if p == "" || path.IsAbs(p) {
		return p
	}
	return path.Join(GetConfigDir(), p)
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readProtoWorldConfig() *ProtoWorldConfig {
	config := ProtoWorldConfig{}
	gwlog.Infof("Using config file: %s", configFilePath)
	iniFile, err := ini.Load(configFilePath)
	checkConfigError(err, "")
	readWorldConfig(iniFile.Section("world"), &config.World)
	readStorageConfig(iniFile.Section("storage"), &config.Storage)

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == "default" || secName == "world" || secName == "storage" {
			continue
		}
		gwlog.Errorf("unknown section: %s", secName)
	}
	return &config
}

func readWorldConfig(sec *ini.Section, config *WorldConfig) {
	config.Side = _DEFAULT_SIDE
	config.SaveInterval = _DEFAULT_SAVE_INTERVAL
	config.LogFile = _DEFAULT_LOG_FILE
	config.LogStderr = true
	config.LogLevel = _DEFAULT_LOG_LEVEL

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "side" {
			config.Side = strings.ToLower(key.MustString(config.Side))
		} else if name == "boot_entity_types" {
			config.BootEntityTypes = splitList(key.MustString(""))
		} else if name == "class_attrs" {
			config.ClassAttrs = key.MustString(config.ClassAttrs)
		} else if name == "save_interval" {
			config.SaveInterval = time.Second * time.Duration(key.MustInt(int(_DEFAULT_SAVE_INTERVAL/time.Second)))
		} else if name == "log_file" {
			config.LogFile = key.MustString(config.LogFile)
		} else if name == "log_stderr" {
			config.LogStderr = key.MustBool(config.LogStderr)
		} else if name == "log_level" {
			config.LogLevel = key.MustString(config.LogLevel)
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	if config.Side != "server" && config.Side != "client" {
		gwlog.Panicf("invalid side %q in [world], must be server or client", config.Side)
	}
	if config.SaveInterval < 0 {
		gwlog.Panicf("save_interval must not be negative")
	}
}

func readStorageConfig(sec *ini.Section, config *StorageConfig) {
	// setup default values
	config.Type = "filesystem"
	config.Directory = _DEFAULT_STORAGE_DIR
	config.DB = _DEFAULT_STORAGE_DB
	config.Url = ""
	config.StartNodes = common.StringSet{}

	dbSet := false
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			config.Type = key.MustString(config.Type)
		} else if name == "directory" {
			config.Directory = key.MustString(config.Directory)
		} else if name == "url" {
			config.Url = key.MustString(config.Url)
		} else if name == "db" {
			config.DB = key.MustString(config.DB)
			dbSet = true
		} else if name == "start_nodes" {
			for _, node := range splitList(key.MustString("")) {
				config.StartNodes.Add(node)
			}
		} else if strings.HasPrefix(name, "start_nodes_") {
			config.StartNodes.Add(key.MustString(""))
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}

	if config.Type == "redis" && !dbSet {
		config.DB = "0"
	}

	validateStorageConfig(config)
}

func splitList(s string) []string {
	var res []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			res = append(res, item)
		}
	}
	return res
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		gwlog.Panicf("read config error: %s", msg)
	}
}

func validateStorageConfig(config *StorageConfig) {
	if config.Type == "filesystem" {
		// directory must be set
		if config.Directory == "" {
			gwlog.Panicf("directory is not set in %s storage config", config.Type)
		}
	} else if config.Type == "mongodb" {
		if config.Url == "" {
			gwlog.Panicf("url is not set in %s storage config", config.Type)
		}
		if config.DB == "" {
			gwlog.Panicf("db is not set in %s storage config", config.Type)
		}
	} else if config.Type == "redis" {
		if config.Url == "" {
			gwlog.Panicf("redis host is not set")
		}
		if _, err := strconv.Atoi(config.DB); err != nil {
			gwlog.Panic(errors.Wrap(err, "redis db must be integer"))
		}
	} else if config.Type == "redis_cluster" {
		if len(config.StartNodes) == 0 {
			gwlog.Panicf("must have at least 1 start_nodes for [storage].redis_cluster")
		}
		for s := range config.StartNodes {
			if s == "" {
				gwlog.Panicf("start_nodes must not be empty")
			}
		}
	} else if config.Type == "postgres" {
		if config.Url == "" {
			gwlog.Panicf("db url is not set")
		}
	} else {
		gwlog.Panicf("unknown storage type: %s", config.Type)
	}
}
