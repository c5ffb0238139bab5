package core

import (
	"errors"
	"net"
	"testing"

	"github.com/lucadibello/p2p-chat/pkg/overlay/definition"
	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
	"github.com/lucadibello/p2p-chat/pkg/overlay/wire"
)

func newTestNode(selfID types.PeerId) *NodeState {
	return NewNodeState(selfID, definition.NoopLogger{}, definition.DefaultConfiguration())
}

// TestAcceptHandshake_RejectsDuplicateId verifies property 2: an
// inbound HandshakeStart naming an id already present in the
// responder's table is rejected without any table mutation.
func TestAcceptHandshake_RejectsDuplicateId(t *testing.T) {
	responder := newTestNode(100)
	existingConn, _ := net.Pipe()
	responder.Table.AddDirect(types.PeerId(42), existingConn)

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = wire.Send(clientConn, types.NewHandshakeStart(42))
		resp, err := wire.Receive(clientConn)
		if err != nil {
			t.Errorf("receive response: %v", err)
			return
		}
		if !resp.HandshakeResponse.Error {
			t.Errorf("expected collision response, got accepted")
		}
	}()

	id, ok, err := AcceptHandshake(serverConn, responder)
	if err != nil {
		t.Fatalf("AcceptHandshake: %v", err)
	}
	if ok {
		t.Fatalf("expected handshake to be rejected")
	}
	if id != 42 {
		t.Fatalf("expected candidate id 42, got %s", id)
	}
	<-done

	if responder.Table.Len() != 1 {
		t.Fatalf("expected table unchanged at 1 entry, got %d", responder.Table.Len())
	}
}

// TestAcceptHandshake_RejectsSelfId verifies the self-id branch of
// property 2.
func TestAcceptHandshake_RejectsSelfId(t *testing.T) {
	responder := newTestNode(7)
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		_ = wire.Send(clientConn, types.NewHandshakeStart(7))
		_, _ = wire.Receive(clientConn)
	}()

	_, ok, err := AcceptHandshake(serverConn, responder)
	if err != nil {
		t.Fatalf("AcceptHandshake: %v", err)
	}
	if ok {
		t.Fatalf("expected self-id handshake to be rejected")
	}
}

// TestInitiateHandshake_RetriesOnCollisionThenSucceeds verifies
// property 3: after a collision response, the initiator regenerates
// its id and a subsequent attempt succeeds.
func TestInitiateHandshake_RetriesOnCollisionThenSucceeds(t *testing.T) {
	initiator := newTestNode(5)
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		first, err := wire.Receive(serverConn)
		if err != nil {
			t.Errorf("receive first attempt: %v", err)
			return
		}
		if first.HandshakeStart.Id != 5 {
			t.Errorf("expected first attempt id 5, got %s", first.HandshakeStart.Id)
		}
		_ = wire.Send(serverConn, types.NewHandshakeResponse(0, true))

		second, err := wire.Receive(serverConn)
		if err != nil {
			t.Errorf("receive second attempt: %v", err)
			return
		}
		if second.HandshakeStart.Id == 5 {
			t.Errorf("expected regenerated id, still 5")
		}
		_ = wire.Send(serverConn, types.NewHandshakeResponse(999, false))
	}()

	peerID, err := InitiateHandshake(clientConn, initiator)
	if err != nil {
		t.Fatalf("InitiateHandshake: %v", err)
	}
	if peerID != 999 {
		t.Fatalf("expected confirmed peer id 999, got %s", peerID)
	}
	if initiator.SelfId() == 5 {
		t.Fatalf("expected self id to have changed after collision")
	}
}

// TestInitiateHandshake_ExhaustsAttempts verifies property 3's failure
// branch: repeated collisions eventually return ErrHandshakeExhausted.
func TestInitiateHandshake_ExhaustsAttempts(t *testing.T) {
	initiator := newTestNode(1)
	initiator.Config.HandshakeAttempts = 2
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		for i := 0; i < 2; i++ {
			if _, err := wire.Receive(serverConn); err != nil {
				return
			}
			_ = wire.Send(serverConn, types.NewHandshakeResponse(0, true))
		}
	}()

	_, err := InitiateHandshake(clientConn, initiator)
	if !errors.Is(err, types.ErrHandshakeExhausted) {
		t.Fatalf("expected ErrHandshakeExhausted, got %v", err)
	}
}
