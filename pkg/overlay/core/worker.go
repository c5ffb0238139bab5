package core

import (
	"errors"
	"net"
	"time"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
	"github.com/lucadibello/p2p-chat/pkg/overlay/wire"
)

// role distinguishes the two worker flavors the spec describes; the
// only real behavioral difference between them is Prepare (spec.md §4.8).
type role int

const (
	serverSide role = iota
	clientSide
)

// worker is the per-connection state machine: Prepare -> Listen ->
// Teardown. A single run-loop parametrized by role replaces the
// teacher's abstract-worker-plus-two-subclasses shape (spec.md §9).
type worker struct {
	node   *NodeState
	conn   net.Conn
	role   role
	peerID types.PeerId
	// installed is true once a Direct entry for peerID has actually been
	// added to the table, which is the only case Teardown must undo.
	installed bool
}

// RunServerWorker drives the lifecycle of an accepted inbound
// connection: handshake, then listen, then teardown. Teardown always
// runs, even if the handshake never completed.
func RunServerWorker(node *NodeState, conn net.Conn) {
	node.incWorkers()
	defer node.decWorkers()

	w := &worker{node: node, conn: conn, role: serverSide}
	defer w.teardown()

	if !w.prepareServer() {
		return
	}
	w.listen()
}

// RunClientWorker drives the lifecycle of an outbound connection whose
// handshake has already been completed by the caller (the controller's
// Join, spec.md §4.8: "Prepare is a no-op" for the client side).
func RunClientWorker(node *NodeState, conn net.Conn, peerID types.PeerId) {
	node.incWorkers()
	defer node.decWorkers()

	w := &worker{node: node, conn: conn, role: clientSide, peerID: peerID, installed: true}
	defer w.teardown()
	w.listen()
}

// prepareServer performs the server-side handshake and, on success,
// installs the Direct entry, drains the pending buffer and runs gossip.
// Returns false on handshake rejection or failure, in which case the
// caller must skip straight to Teardown without any table mutation.
func (w *worker) prepareServer() bool {
	id, ok, err := AcceptHandshake(w.conn, w.node)
	// A rejected initiator regenerates its id and retries on the same
	// connection, up to HandshakeAttempts starts in total.
	for attempt := 1; err == nil && !ok && attempt < w.node.Config.HandshakeAttempts; attempt++ {
		w.node.Log.Infof("handshake rejected duplicate/self id %s", id)
		id, ok, err = AcceptHandshake(w.conn, w.node)
	}
	if err != nil {
		w.node.Log.Warnf("handshake failed: %v", err)
		return false
	}
	if !ok {
		w.node.Log.Infof("handshake rejected duplicate/self id %s", id)
		return false
	}

	w.peerID = id

	w.node.Table.AddDirect(id, w.conn)
	w.installed = true
	drainPendingTo(w.node, id, w.conn)

	// Teach the newcomer about the rest of the mesh (spec.md §4.6 step 1).
	seedNewcomer(w.node, w.conn, id)

	// Teach the rest of the mesh about the newcomer (spec.md §4.6 step 2).
	broadcastJoin(w.node, id)

	w.node.Log.Infof("peer %s connected", id)
	return true
}

// listen reads one framed message at a time, polling the exit flag
// between reads via a short read deadline so shutdown is observed
// promptly (spec.md §4.8, §5).
func (w *worker) listen() {
	for !w.node.ExitRequested() {
		_ = w.conn.SetReadDeadline(time.Now().Add(w.node.Config.PollInterval))

		msg, err := wire.Receive(w.conn)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			w.node.Log.Debugf("worker %s leaving listen: %v", w.peerID, err)
			return
		}
		w.dispatch(msg)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// dispatch applies one received PeerMessage: chat messages go through
// the routing logic (spec.md §4.7), announcements mutate the routing
// table directly, anything else is logged and dropped.
func (w *worker) dispatch(msg *types.PeerMessage) {
	switch msg.Type {
	case types.TypeMessage:
		HandleInboundMessage(w.node, msg.Message)
	case types.TypeAnnouncement:
		handleAnnouncement(w.node, msg.Announcement)
	default:
		w.node.Log.Warnf("worker %s: dropping unexpected message type %d", w.peerID, msg.Type)
	}
}

// teardown removes the peer's Direct entry (if one was installed),
// sweeps now-dangling Remote entries routed through it, broadcasts
// LEAVE to the remaining directly-connected peers and closes the
// connection. Runs on every exit path (see DESIGN.md for the choice to
// broadcast LEAVE symmetrically on both worker flavors).
func (w *worker) teardown() {
	if w.installed {
		w.node.Table.Remove(w.peerID)
		w.node.Table.SweepRemoteVia(w.peerID)
		broadcastLeave(w.node, w.peerID)
		w.node.Log.Infof("peer %s disconnected", w.peerID)
	}
	w.conn.Close()
}

// drainPendingTo flushes any pending-buffer backlog for dest over conn,
// in FIFO enqueue order, the moment a Direct entry for dest exists.
func drainPendingTo(node *NodeState, dest types.PeerId, conn net.Conn) {
	queued := node.Buffer.Drain(dest)
	for _, msg := range queued {
		if err := wire.Send(conn, msg); err != nil {
			node.Log.Errorf("failed draining buffered message to %s: %v", dest, err)
			return
		}
	}
}

// HandleInboundMessage implements spec.md §4.7's inbound message
// routing: deliver locally, forward along a resolved route, or buffer
// it for later if no route exists yet.
func HandleInboundMessage(node *NodeState, msg *types.ChatMessage) {
	if msg.To == node.SelfId() {
		node.Log.Infof("[Peer %s]: %s", msg.From, msg.Text)
		return
	}

	conn, err := node.Table.Resolve(msg.To)
	if err != nil {
		node.Log.Debugf("no route to %s, buffering message from %s", msg.To, msg.From)
		node.Buffer.Enqueue(msg.To, types.NewChatMessage(msg.From, msg.To, msg.Text))
		return
	}

	if sendErr := wire.Send(conn, types.NewChatMessage(msg.From, msg.To, msg.Text)); sendErr != nil {
		node.Log.Errorf("failed forwarding message to %s: %v", msg.To, sendErr)
	}
}

// handleAnnouncement applies a JOIN/LEAVE gossip message to the local
// routing table. Announcements are never re-flooded (spec.md §4.6).
func handleAnnouncement(node *NodeState, ann *types.Announcement) {
	if ann == nil {
		return
	}
	switch ann.Kind {
	case types.Join:
		if ann.Join == nil {
			return
		}
		node.Table.AddRemote(ann.Join.Id, ann.Join.Via)
	case types.Leave:
		if ann.Leave == nil {
			return
		}
		node.Table.Remove(ann.Leave.Id)
		node.Table.SweepRemoteVia(ann.Leave.Id)
	}
}
