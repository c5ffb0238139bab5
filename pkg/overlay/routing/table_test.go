package routing_test

import (
	"errors"
	"net"
	"testing"

	"github.com/lucadibello/p2p-chat/pkg/overlay/routing"
	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
)

func pipe() (net.Conn, net.Conn) {
	return net.Pipe()
}

func TestTable_AddRemoteDoesNotOverwriteDirect(t *testing.T) {
	table := routing.NewTable()
	a, b := pipe()
	defer a.Close()
	defer b.Close()

	table.AddDirect(42, a)
	table.AddRemote(42, 7)

	conn, err := table.Resolve(42)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if conn != a {
		t.Fatal("AddRemote overwrote an existing Direct entry")
	}
}

func TestTable_ResolveHopCappedOnCycle(t *testing.T) {
	table := routing.NewTable()
	table.AddRemote(1, 2)
	table.AddRemote(2, 1)

	_, err := table.Resolve(1)
	if !errors.Is(err, types.ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute on a cycle, got %v", err)
	}
}

func TestTable_ResolveWalksRemoteChain(t *testing.T) {
	table := routing.NewTable()
	a, b := pipe()
	defer a.Close()
	defer b.Close()

	table.AddDirect(1, a)
	table.AddRemote(2, 1)

	conn, err := table.Resolve(2)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if conn != a {
		t.Fatal("Resolve did not follow the remote hop to the direct connection")
	}
}

func TestTable_RemoveAndContains(t *testing.T) {
	table := routing.NewTable()
	table.AddRemote(9, 1)
	if !table.Contains(9) {
		t.Fatal("expected table to contain 9")
	}
	table.Remove(9)
	if table.Contains(9) {
		t.Fatal("expected table to no longer contain 9 after Remove")
	}
	// no-op remove of an absent id must not panic
	table.Remove(9)
}

func TestTable_SweepRemoteVia(t *testing.T) {
	table := routing.NewTable()
	table.AddRemote(100, 2)
	table.AddRemote(101, 2)
	table.AddRemote(102, 3)

	table.SweepRemoteVia(2)

	if table.Contains(100) || table.Contains(101) {
		t.Fatal("expected remote entries via 2 to be swept")
	}
	if !table.Contains(102) {
		t.Fatal("expected remote entry via 3 to survive the sweep")
	}
}

func TestTable_SnapshotIsInsertionOrder(t *testing.T) {
	table := routing.NewTable()
	table.AddRemote(3, 0)
	table.AddRemote(1, 0)
	table.AddRemote(2, 0)

	snap := table.Snapshot()
	want := []types.PeerId{3, 1, 2}
	if len(snap) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(snap))
	}
	for i, id := range want {
		if snap[i].Id != id {
			t.Fatalf("position %d: expected %d, got %d", i, id, snap[i].Id)
		}
	}
}
