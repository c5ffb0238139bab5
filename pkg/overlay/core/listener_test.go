package core

import (
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
	"github.com/lucadibello/p2p-chat/pkg/overlay/wire"
)

// TestListener_ConnectionCap verifies property 8: with a cap of 2 and
// two already-active workers, a third inbound connection is accepted
// then immediately closed, and the routing table never grows past the
// two established peers.
func TestListener_ConnectionCap(t *testing.T) {
	defer goleak.VerifyNone(t)

	node := newTestNode(types.PeerId(1))
	node.Config.PollInterval = 10 * time.Millisecond
	node.Config.ConnectionCap = 2

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	node.Spawn(func() {
		_ = RunListener(node, addr)
	})

	waitForListener(t, addr)

	conn1 := completeHandshake(t, addr, types.PeerId(10))
	defer conn1.Close()
	conn2 := completeHandshake(t, addr, types.PeerId(20))
	defer conn2.Close()

	waitUntil(t, func() bool { return node.Table.Len() == 2 })

	conn3, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial third connection: %v", err)
	}
	defer conn3.Close()

	_ = conn3.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn3.Read(buf); err == nil {
		t.Fatalf("expected third connection to be closed with no handshake reply")
	}

	if node.Table.Len() != 2 {
		t.Fatalf("expected table to stay at 2 entries, got %d", node.Table.Len())
	}

	node.RequestExit()
	node.Wait()
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("listener on %s never came up", addr)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

func completeHandshake(t *testing.T, addr string, id types.PeerId) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := wire.Send(conn, types.NewHandshakeStart(id)); err != nil {
		t.Fatalf("send handshake start: %v", err)
	}
	resp, err := wire.Receive(conn)
	if err != nil {
		t.Fatalf("receive handshake response: %v", err)
	}
	if resp.HandshakeResponse.Error {
		t.Fatalf("handshake for id %s was rejected", id)
	}
	return conn
}
