// Package directory is the client-local cache of all known mesh participants.
//
// Entries are keyed by node number and merged from whichever fragment arrives
// first: a full node report, a user broadcast, or a position broadcast. The
// directory outlives the session; only an explicit Remove deletes an entry.
package directory

import (
	"iter"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/danmuck/meshctl/internal/events"
	"github.com/danmuck/meshctl/internal/protocol"
)

// Record is one directory entry. User and Position are each optional; a
// record holding neither is valid but incomplete.
type Record struct {
	Num      uint32
	User     *protocol.User
	Position *protocol.Position
}

func (r Record) clone() Record {
	out := Record{Num: r.Num}
	if r.User != nil {
		u := *r.User
		out.User = &u
	}
	if r.Position != nil {
		p := *r.Position
		out.Position = &p
	}
	return out
}

// Directory stores node records and reports every mutation as a
// NodeListChanged event once notifications are enabled. Notifications stay
// off until the session's first configuration handshake completes so the
// initial node dump does not flood subscribers; suppressed notifications are
// dropped, not queued.
type Directory struct {
	mu     sync.RWMutex
	nodes  map[uint32]Record
	bus    *events.Bus
	notify atomic.Bool
}

func New(bus *events.Bus) *Directory {
	return &Directory{
		nodes: make(map[uint32]Record),
		bus:   bus,
	}
}

// EnableNotifications starts change notification delivery. Called by the
// session after the first completed handshake; never reverted.
func (d *Directory) EnableNotifications() {
	d.notify.Store(true)
}

func (d *Directory) notifyChanged(num uint32) {
	if d.bus != nil && d.notify.Load() {
		d.bus.Publish(events.NodeListChanged{Num: num})
	}
}

// UpsertFull inserts or fully replaces the record for rec.Num.
func (d *Directory) UpsertFull(rec Record) {
	d.mu.Lock()
	d.nodes[rec.Num] = rec.clone()
	d.mu.Unlock()
	d.notifyChanged(rec.Num)
}

// MergeUser replaces only the identity of num, creating the record when the
// node is unknown. This is how peers become known from user broadcasts alone.
func (d *Directory) MergeUser(num uint32, user protocol.User) {
	d.mu.Lock()
	rec := d.nodes[num]
	rec.Num = num
	u := user
	rec.User = &u
	d.nodes[num] = rec
	d.mu.Unlock()
	d.notifyChanged(num)
}

// MergePosition replaces only the position of num, creating the record when
// the node is unknown.
func (d *Directory) MergePosition(num uint32, pos protocol.Position) {
	d.mu.Lock()
	rec := d.nodes[num]
	rec.Num = num
	p := pos
	rec.Position = &p
	d.nodes[num] = rec
	d.mu.Unlock()
	d.notifyChanged(num)
}

// Remove deletes the record for num if present.
func (d *Directory) Remove(num uint32) {
	d.mu.Lock()
	delete(d.nodes, num)
	d.mu.Unlock()
	d.notifyChanged(num)
}

// Get returns a copy of the record for num.
func (d *Directory) Get(num uint32) (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.nodes[num]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Len returns the number of known nodes.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.nodes)
}

// All iterates a point-in-time snapshot of the directory. Iteration order is
// unspecified; the sequence is restartable.
func (d *Directory) All() iter.Seq2[uint32, Record] {
	d.mu.RLock()
	snapshot := make([]Record, 0, len(d.nodes))
	for _, rec := range d.nodes {
		snapshot = append(snapshot, rec.clone())
	}
	d.mu.RUnlock()
	return func(yield func(uint32, Record) bool) {
		for _, rec := range snapshot {
			if !yield(rec.Num, rec) {
				return
			}
		}
	}
}

// FindNumByExternalID scans for the node whose identity carries the given
// external id. Duplicate ids are possible on a mesh; the lowest node number
// wins so repeated lookups stay deterministic.
func (d *Directory) FindNumByExternalID(externalID string) (uint32, bool) {
	if externalID == "" {
		return 0, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	matches := make([]uint32, 0, 1)
	for num, rec := range d.nodes {
		if rec.User != nil && rec.User.ID == externalID {
			matches = append(matches, num)
		}
	}
	if len(matches) == 0 {
		return 0, false
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })
	return matches[0], true
}
