package attrs

import (
	"fmt"
	"strings"
)

// Mode is the destination of a serialization pass
type Mode int

const (
	// SaveToFile writes saved properties to disk
	SaveToFile Mode = iota
	// SendToClient pushes properties to clients
	SendToClient
	// SendToServer pushes properties to the server
	SendToServer
	// SendToEditor round-trips properties through the world editor
	SendToEditor
)

var modeNames = map[Mode]string{
	SaveToFile:   "SaveToFile",
	SendToClient: "SendToClient",
	SendToServer: "SendToServer",
	SendToEditor: "SendToEditor",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Flag returns the attribute flag selecting properties for the mode
func (m Mode) Flag() Flag {
	switch m {
	case SaveToFile:
		return Saved
	case SendToClient:
		return SentToClient
	case SendToServer:
		return SentToServer
	case SendToEditor:
		return Edited
	}
	panic(fmt.Errorf("invalid mode: %d", int(m)))
}

// IsWire returns if the mode sends data to a peer. Wire payloads omit the class version.
func (m Mode) IsWire() bool {
	return m == SendToClient || m == SendToServer
}

// ParseMode parses mode names such as "SaveToFile" or "client"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "savetofile", "save", "file":
		return SaveToFile, nil
	case "sendtoclient", "client":
		return SendToClient, nil
	case "sendtoserver", "server":
		return SendToServer, nil
	case "sendtoeditor", "editor":
		return SendToEditor, nil
	}
	return 0, fmt.Errorf("unknown mode: %s", s)
}
