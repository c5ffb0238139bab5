package routing

import (
	"sync"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
)

// Buffer is the process-wide PeerId -> ordered message queue. FIFO per
// destination; no ordering is promised across destinations.
type Buffer struct {
	mu     sync.Mutex
	queues map[types.PeerId][]*types.PeerMessage
}

// NewBuffer returns an empty pending buffer.
func NewBuffer() *Buffer {
	return &Buffer{queues: make(map[types.PeerId][]*types.PeerMessage)}
}

// Enqueue appends msg to the queue for dest, creating it if absent.
func (b *Buffer) Enqueue(dest types.PeerId, msg *types.PeerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[dest] = append(b.queues[dest], msg)
}

// Drain atomically removes and returns the queue for dest, in enqueue
// order. Returns an empty (nil) slice if dest has no queue.
func (b *Buffer) Drain(dest types.PeerId) []*types.PeerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.queues[dest]
	delete(b.queues, dest)
	return queue
}

// Sizes returns the current per-destination backlog counts, for
// user-visible introspection (the `buffer` command).
func (b *Buffer) Sizes() map[types.PeerId]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	sizes := make(map[types.PeerId]int, len(b.queues))
	for dest, queue := range b.queues {
		sizes[dest] = len(queue)
	}
	return sizes
}

// Total returns the sum of all per-destination backlogs.
func (b *Buffer) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, queue := range b.queues {
		total += len(queue)
	}
	return total
}
