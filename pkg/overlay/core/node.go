package core

import (
	"fmt"
	"net"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
)

// Node is the controller the CLI adapter drives: it owns the shared
// state, the listener and every command the interactive loop exposes
// (spec.md §4.9's final item, expanded in SPEC_FULL.md §5.4).
type Node struct {
	State *NodeState
	addr  string
}

// NewNode constructs a controller bound to addr, ready to Listen and
// optionally Join a bootstrap peer.
func NewNode(state *NodeState, addr string) *Node {
	return &Node{State: state, addr: addr}
}

// Listen starts the accept loop in a tracked goroutine and returns
// immediately; failures surface only via the logger, matching the
// fire-and-forget shape the other workers use.
func (n *Node) Listen() {
	n.State.Spawn(func() {
		if err := RunListener(n.State, n.addr); err != nil {
			n.State.Log.Errorf("listener stopped: %v", err)
		}
	})
}

// Join performs the bootstrap outbound handshake against peerAddr,
// installs the resulting Direct entry, drains any backlog queued for
// it and spawns the client-side worker (spec.md §4.5, §6). Called at
// most once, before the node's self id is locked.
func (n *Node) Join(peerAddr string) error {
	conn, err := net.Dial("tcp", peerAddr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", types.ErrTransport, peerAddr, err)
	}

	peerID, err := InitiateHandshake(conn, n.State)
	if err != nil {
		conn.Close()
		return err
	}

	n.State.Table.AddDirect(peerID, conn)
	drainPendingTo(n.State, peerID, conn)

	n.State.Spawn(func() {
		RunClientWorker(n.State, conn, peerID)
	})
	return nil
}

// Send issues a locally-originated chat message. A self-addressed send
// is rejected outright; otherwise it is delivered or forwarded via the
// resolve/buffer logic in HandleInboundMessage (spec.md §4.7).
func (n *Node) Send(to types.PeerId, text string) error {
	self := n.State.SelfId()
	if to == self {
		return types.ErrSelfSend
	}
	HandleInboundMessage(n.State, &types.ChatMessage{From: self, To: to, Text: text})
	return nil
}

// TableSnapshot exposes the routing table for the `table` command.
func (n *Node) TableSnapshot() []Entry {
	snap := n.State.Table.Snapshot()
	out := make([]Entry, 0, len(snap))
	for _, e := range snap {
		out = append(out, Entry{Id: e.Id, Entry: e.Entry})
	}
	return out
}

// Entry re-exports routing.Entry's shape for callers that only import
// the core package.
type Entry = struct {
	Id    types.PeerId
	Entry types.RoutingEntry
}

// BufferSnapshot exposes the per-destination backlog sizes for the
// `buffer` command.
func (n *Node) BufferSnapshot() map[types.PeerId]int {
	return n.State.Buffer.Sizes()
}

// Exit requests shutdown and blocks until the listener and every
// worker spawned via n.State.Spawn has returned (spec.md §5).
func (n *Node) Exit() {
	n.State.RequestExit()
	n.State.Wait()
}
