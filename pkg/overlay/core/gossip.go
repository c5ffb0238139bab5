package core

import (
	"net"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
	"github.com/lucadibello/p2p-chat/pkg/overlay/wire"
)

// seedNewcomer teaches a just-accepted peer about every other peer
// already known to this node, so the newcomer can reach them as Remote
// entries via this node. The newcomer's own entry, if already in
// node.Table, is skipped.
func seedNewcomer(node *NodeState, conn net.Conn, newcomer types.PeerId) {
	for _, entry := range node.Table.Snapshot() {
		if entry.Id == newcomer {
			continue
		}
		if err := wire.Send(conn, types.NewJoinAnnouncement(entry.Id, node.SelfId())); err != nil {
			node.Log.Warnf("gossip: failed seeding %s with %s: %v", newcomer, entry.Id, err)
		}
	}
}

// broadcastJoin notifies every other directly-connected peer that
// newcomer has joined, reachable via this node.
func broadcastJoin(node *NodeState, newcomer types.PeerId) {
	ann := types.NewJoinAnnouncement(newcomer, node.SelfId())
	for _, entry := range node.Table.Snapshot() {
		if entry.Id == newcomer || entry.Entry.Kind != types.Direct {
			continue
		}
		if err := wire.Send(entry.Entry.Conn, ann); err != nil {
			node.Log.Warnf("gossip: failed notifying %s of join %s: %v", entry.Id, newcomer, err)
		}
	}
}

// broadcastLeave notifies every remaining directly-connected peer that
// departed has disconnected.
func broadcastLeave(node *NodeState, departed types.PeerId) {
	ann := types.NewLeaveAnnouncement(departed)
	for _, entry := range node.Table.Snapshot() {
		if entry.Entry.Kind != types.Direct {
			continue
		}
		if err := wire.Send(entry.Entry.Conn, ann); err != nil {
			node.Log.Warnf("gossip: failed notifying %s of leave %s: %v", entry.Id, departed, err)
		}
	}
}
