package common

import (
	"strings"

	"github.com/protoworld/protoworld/engine/gwlog"
)

// EntityID type
type EntityID string

// IsNil returns if EntityID is nil
func (id EntityID) IsNil() bool {
	return id == ""
}

// MustEntityID assures a string to be EntityID
func MustEntityID(id string) EntityID {
	if id == "" {
		gwlog.Panicf("empty string is not a valid entity ID")
	}
	if strings.ContainsAny(id, " \t\r\n") {
		gwlog.Panicf("%q is not a valid entity ID", id)
	}
	return EntityID(id)
}
