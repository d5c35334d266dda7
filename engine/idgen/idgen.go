// Package idgen generates entity IDs.
//
// IDs are a per-process counter rendered in base-36. Server side IDs are prefixed
// by the boot timestamp (milliseconds, base-36) so IDs stay unique across restarts
// without a central allocator. Client state never outlives a reload, so client side
// IDs carry no prefix.
package idgen

import (
	"strconv"
	"time"

	"github.com/protoworld/protoworld/engine/common"
	"github.com/protoworld/protoworld/engine/consts"
	"go.uber.org/atomic"
)

// Generator generates entity IDs
type Generator struct {
	prefix  string
	counter atomic.Uint64
}

// NewServer creates a server side generator prefixed by the boot time
func NewServer(bootTime time.Time) *Generator {
	boot := strconv.FormatInt(bootTime.UnixNano()/int64(time.Millisecond), 36)
	return &Generator{
		prefix: boot + consts.ID_SEPARATOR,
	}
}

// NewClient creates a client side generator without prefix
func NewClient() *Generator {
	return &Generator{}
}

// New creates the generator for the specified side ("server" or "client")
func New(side string, bootTime time.Time) *Generator {
	if side == "client" {
		return NewClient()
	}
	return NewServer(bootTime)
}

// Next returns the next entity ID
func (g *Generator) Next() common.EntityID {
	n := g.counter.Inc()
	return common.EntityID(g.prefix + strconv.FormatUint(n, 36))
}

// Prefix returns the prefix of generated IDs, empty for client side generators
func (g *Generator) Prefix() string {
	return g.prefix
}

// Count returns how many IDs have been generated
func (g *Generator) Count() uint64 {
	return g.counter.Load()
}
