// Command protoworld inspects the entity documents of a protoworld storage.
//
//	protoworld [-configfile protoworld.ini] check [type ...]
//	protoworld list <type>
//	protoworld show <type> <id>
//	protoworld genid [-n N]
package main

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/protoworld/protoworld/engine/config"
	"github.com/protoworld/protoworld/engine/gwlog"
	"github.com/protoworld/protoworld/engine/idgen"
	"github.com/protoworld/protoworld/engine/storage"
	"github.com/protoworld/protoworld/engine/storage/storage_common"
)

var args struct {
	configFile string
	logLevel   string
}

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.logLevel, "log", "warn", "set log level")
	flag.Parse()
}

func openStorage() storagecommon.EntityStorage {
	es, err := storage.Open(config.GetStorage())
	checkErrorOrQuit(err, "open storage failed")
	return es
}

func main() {
	parseArgs()
	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}
	gwlog.SetSource("cli")
	gwlog.SetLevel(gwlog.ParseLevel(args.logLevel))

	cmdArgs := flag.Args()
	if len(cmdArgs) == 0 {
		showMsg("no command to execute")
		flag.Usage()
		os.Exit(1)
	}
	showMsg("arguments: %s", strings.Join(cmdArgs, " "))

	cmd := cmdArgs[0]
	if cmd == "check" {
		typeNames := cmdArgs[1:]
		if len(typeNames) == 0 {
			typeNames = config.GetWorld().BootEntityTypes
		}
		if len(typeNames) == 0 {
			showMsgAndQuit("should specify entity types to check")
		}
		es := openStorage()
		defer es.Close()
		if !check(es, typeNames, os.Stdout) {
			es.Close()
			os.Exit(1)
		}
	} else if cmd == "list" {
		if len(cmdArgs) != 2 {
			showMsgAndQuit("should specify one entity type")
		}
		es := openStorage()
		defer es.Close()
		checkErrorOrQuit(list(es, cmdArgs[1], os.Stdout), "list failed")
	} else if cmd == "show" {
		if len(cmdArgs) != 3 {
			showMsgAndQuit("should specify entity type and id")
		}
		es := openStorage()
		defer es.Close()
		checkErrorOrQuit(show(es, cmdArgs[1], cmdArgs[2], os.Stdout), "show failed")
	} else if cmd == "genid" {
		fs := flag.NewFlagSet("genid", flag.ExitOnError)
		n := fs.Int("n", 1, "number of IDs to generate")
		fs.Parse(cmdArgs[1:])
		genid(idgen.New(config.GetWorld().Side, time.Now()), *n, os.Stdout)
	} else {
		showMsgAndQuit("unknown command: %s", cmd)
	}
}
