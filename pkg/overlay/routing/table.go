// Package routing implements the process-wide routing table and pending
// buffer shared by every worker and the controller. Both types serialize
// all mutation and iteration behind a mutex; broadcast loops must use
// Snapshot so they never observe a half-applied gossip update.
package routing

import (
	"fmt"
	"net"
	"sync"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
)

// Entry pairs a PeerId with its RoutingEntry, returned by Snapshot in
// insertion order.
type Entry struct {
	Id    types.PeerId
	Entry types.RoutingEntry
}

// Table is the process-wide PeerId -> RoutingEntry mapping. The zero
// value is not usable; construct with NewTable.
type Table struct {
	mu      sync.Mutex
	entries map[types.PeerId]types.RoutingEntry
	order   []types.PeerId
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	return &Table{entries: make(map[types.PeerId]types.RoutingEntry)}
}

// AddDirect inserts or replaces a Direct entry for id, carrying conn.
func (t *Table) AddDirect(id types.PeerId, conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(id, types.RoutingEntry{Kind: types.Direct, Conn: conn})
}

func (t *Table) insertLocked(id types.PeerId, entry types.RoutingEntry) {
	if _, ok := t.entries[id]; !ok {
		t.order = append(t.order, id)
	}
	t.entries[id] = entry
}

// AddRemote inserts a Remote entry for id only if id is absent; it never
// overwrites an existing Direct entry with a Remote one.
func (t *Table) AddRemote(id, via types.PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[id]; exists {
		return
	}
	t.insertLocked(id, types.RoutingEntry{Kind: types.Remote, Via: via})
}

// Remove drops the entry for id; a no-op if absent.
func (t *Table) Remove(id types.PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(id)
}

func (t *Table) removeLocked(id types.PeerId) {
	if _, ok := t.entries[id]; !ok {
		return
	}
	delete(t.entries, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// SweepRemoteVia removes every Remote entry whose via-id equals
// departed. Used after a LEAVE so the table stops pointing at a hop
// that is already known to be gone (the conservative LEAVE policy
// chosen in DESIGN.md).
func (t *Table) SweepRemoteVia(departed types.PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var dead []types.PeerId
	for id, entry := range t.entries {
		if entry.Kind == types.Remote && entry.Via == departed {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		t.removeLocked(id)
	}
}

// Contains reports whether id has an entry.
func (t *Table) Contains(id types.PeerId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[id]
	return ok
}

// Resolve walks a Remote->via chain until it reaches a Direct entry's
// connection, bounded by the table's current size to guarantee
// termination even across a cycle.
func (t *Table) Resolve(id types.PeerId) (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hops := len(t.entries)
	current := id
	for hops >= 0 {
		entry, ok := t.entries[current]
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrNoRoute, id)
		}
		if entry.Kind == types.Direct {
			return entry.Conn, nil
		}
		current = entry.Via
		hops--
	}
	return nil, fmt.Errorf("%w: %s (hop cap exceeded)", types.ErrNoRoute, id)
}

// Snapshot returns a consistent copy of the table's (id, entry) pairs in
// insertion order, safe to range over without holding the table lock.
func (t *Table) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, Entry{Id: id, Entry: t.entries[id]})
	}
	return out
}

// Len reports the current number of entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
