package bridge

import (
	"sync"
	"time"
)

// StateEntry is the last observed value for one (address, channel,
// datapoint), with the timestamp of the observation.
type StateEntry struct {
	Value any
	Time  time.Time
}

type stateKey struct {
	address   string
	channel   int
	datapoint string
}

// StateCache maps (address, channel, datapoint) to the last observed value.
// It is the single source of truth for retained publication and edge
// detection.
//
// Thread Safety: all writes go through the event loop (single-writer
// discipline); the lock exists for concurrent readers.
type StateCache struct {
	mu      sync.RWMutex
	entries map[stateKey]StateEntry
}

// NewStateCache creates an empty state cache.
func NewStateCache() *StateCache {
	return &StateCache{entries: make(map[stateKey]StateEntry)}
}

// Apply stores a new observation and reports the edge.
//
// transitioned is true when the value differs from the previous entry, or
// when this is the first observation. known is true when a previous entry
// existed; trigger emission requires a transition between known values so
// the first observation after startup never fires a trigger.
func (c *StateCache) Apply(address string, channel int, datapoint string, value any, at time.Time) (entry StateEntry, transitioned, known bool) {
	key := stateKey{address, channel, datapoint}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, known := c.entries[key]
	entry = StateEntry{Value: value, Time: at}
	c.entries[key] = entry

	transitioned = !known || prev.Value != value
	return entry, transitioned, known
}

// Get returns the last observed entry for a datapoint.
func (c *StateCache) Get(address string, channel int, datapoint string) (StateEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[stateKey{address, channel, datapoint}]
	return e, ok
}

// Len returns the number of cached entries.
func (c *StateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StateRecord is one cached observation with its full key, used for
// retained republication after a broker reconnect.
type StateRecord struct {
	Address   string
	Channel   int
	Datapoint string
	Entry     StateEntry
}

// Snapshot returns a copy of all cached entries. Read-only.
func (c *StateCache) Snapshot() []StateRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]StateRecord, 0, len(c.entries))
	for k, v := range c.entries {
		out = append(out, StateRecord{
			Address:   k.address,
			Channel:   k.channel,
			Datapoint: k.datapoint,
			Entry:     v,
		})
	}
	return out
}
