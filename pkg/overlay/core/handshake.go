package core

import (
	"fmt"
	"net"

	"github.com/lucadibello/p2p-chat/pkg/overlay/ids"
	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
	"github.com/lucadibello/p2p-chat/pkg/overlay/wire"
)

// AcceptHandshake is the responder side of the handshake (spec.md §4.5,
// step 2). It reports the candidate id, whether it was accepted, and an
// error only for a transport/protocol failure that should abort the
// connection outright (a rejected-but-well-formed handshake is not an
// error: ok is simply false).
func AcceptHandshake(conn net.Conn, node *NodeState) (id types.PeerId, ok bool, err error) {
	msg, err := wire.Receive(conn)
	if err != nil {
		return 0, false, err
	}
	if msg.Type != types.TypeHandshakeStart || msg.HandshakeStart == nil {
		return 0, false, fmt.Errorf("%w: expected HandshakeStart, got type %d", types.ErrProtocolViolation, msg.Type)
	}

	candidate := msg.HandshakeStart.Id
	if candidate == node.SelfId() || node.Table.Contains(candidate) {
		if sendErr := wire.Send(conn, types.NewHandshakeResponse(0, true)); sendErr != nil {
			return candidate, false, sendErr
		}
		return candidate, false, nil
	}

	if sendErr := wire.Send(conn, types.NewHandshakeResponse(node.SelfId(), false)); sendErr != nil {
		return candidate, false, sendErr
	}
	return candidate, true, nil
}

// InitiateHandshake is the initiator side (spec.md §4.5, steps 1 and 3).
// On a collision response it regenerates the local id via
// ids.FreshRandomId and retries, up to node.Config.HandshakeAttempts
// total attempts. Returns the peer id the responder confirmed on
// success.
func InitiateHandshake(conn net.Conn, node *NodeState) (types.PeerId, error) {
	attempts := node.Config.HandshakeAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if err := wire.Send(conn, types.NewHandshakeStart(node.SelfId())); err != nil {
			return 0, err
		}

		resp, err := wire.Receive(conn)
		if err != nil {
			return 0, err
		}
		if resp.Type != types.TypeHandshakeResponse || resp.HandshakeResponse == nil {
			return 0, fmt.Errorf("%w: expected HandshakeResponse, got type %d", types.ErrProtocolViolation, resp.Type)
		}

		if !resp.HandshakeResponse.Error {
			return resp.HandshakeResponse.Id, nil
		}

		node.Log.Warnf("handshake collision on id %s, regenerating", node.SelfId())
		if attempt == attempts-1 {
			break
		}
		newID, err := ids.FreshRandomId()
		if err != nil {
			return 0, err
		}
		node.SetSelfId(newID)
	}

	return 0, types.ErrHandshakeExhausted
}
