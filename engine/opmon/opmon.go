// Package opmon records durations of named operations, such as storage reads and writes.
package opmon

import (
	"sort"
	"sync"
	"time"

	"github.com/protoworld/protoworld/engine/consts"
	"github.com/protoworld/protoworld/engine/gwlog"
)

var (
	operationAllocPool = sync.Pool{
		New: func() interface{} {
			return &Operation{}
		},
	}

	monitor = newMonitor()
)

func init() {
	if consts.OPMON_DUMP_INTERVAL > 0 {
		go func() {
			for {
				time.Sleep(consts.OPMON_DUMP_INTERVAL)
				Dump()
			}
		}()
	}
}

// Stat is the accumulated statistics of one operation name
type Stat struct {
	Name          string
	Count         uint64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// Avg returns the average duration of the operation
func (s Stat) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

type _Monitor struct {
	sync.Mutex
	stats map[string]*Stat
}

func newMonitor() *_Monitor {
	return &_Monitor{
		stats: map[string]*Stat{},
	}
}

func (monitor *_Monitor) record(opname string, duration time.Duration) {
	monitor.Lock()
	st := monitor.stats[opname]
	if st == nil {
		st = &Stat{Name: opname}
		monitor.stats[opname] = st
	}
	st.Count += 1
	st.TotalDuration += duration
	if duration > st.MaxDuration {
		st.MaxDuration = duration
	}
	monitor.Unlock()
}

// take returns the recorded stats sorted by name, clearing them if reset
func (monitor *_Monitor) take(reset bool) []Stat {
	monitor.Lock()
	res := make([]Stat, 0, len(monitor.stats))
	for _, st := range monitor.stats {
		res = append(res, *st)
	}
	if reset {
		monitor.stats = map[string]*Stat{}
	}
	monitor.Unlock()

	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res
}

// Stats returns the stats recorded so far
func Stats() []Stat {
	return monitor.take(false)
}

// Dump logs the recorded stats and starts over
func Dump() {
	for _, st := range monitor.take(true) {
		gwlog.Infof("opmon: %-30sx%-10d AVG %-10s MAX %-10s", st.Name, st.Count, st.Avg(), st.MaxDuration)
	}
}

// Operation is the type of operation to be monitored
type Operation struct {
	name      string
	startTime time.Time
}

// StartOperation creates a new operation
func StartOperation(operationName string) *Operation {
	op := operationAllocPool.Get().(*Operation)
	op.name = operationName
	op.startTime = time.Now()
	return op
}

// Finish finishes the operation and records the duration of operation
func (op *Operation) Finish(warnThreshold time.Duration) {
	takeTime := time.Since(op.startTime)
	monitor.record(op.name, takeTime)
	if takeTime >= warnThreshold {
		gwlog.Warnf("opmon: operation %s takes %s > %s", op.name, takeTime, warnThreshold)
	}
	operationAllocPool.Put(op)
}
