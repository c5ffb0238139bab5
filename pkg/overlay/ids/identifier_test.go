package ids_test

import (
	"testing"

	"github.com/lucadibello/p2p-chat/pkg/overlay/ids"
)

func TestDeriveId_NeverZero(t *testing.T) {
	for _, seed := range []uint64{0, 1, 42, ^uint64(0)} {
		if id := ids.DeriveId(seed); id == 0 {
			t.Fatalf("DeriveId(%d) returned 0", seed)
		}
	}
}

func TestDeriveId_DeterministicForSameSeed(t *testing.T) {
	for _, seed := range []uint64{0, 1, 42, ^uint64(0)} {
		first := ids.DeriveId(seed)
		second := ids.DeriveId(seed)
		if first != second {
			t.Fatalf("DeriveId(%d) not deterministic: got %s then %s", seed, first, second)
		}
	}
}

func TestDeriveId_SpreadsAcrossSmallMesh(t *testing.T) {
	seen := make(map[uint64]bool)
	for seed := uint64(0); seed < 64; seed++ {
		id := ids.DeriveId(seed)
		if seen[uint64(id)] {
			t.Fatalf("seed %d collided with a previous derivation: %d", seed, id)
		}
		seen[uint64(id)] = true
	}
}

func TestFreshRandomId_NeverZero(t *testing.T) {
	for i := 0; i < 16; i++ {
		id, err := ids.FreshRandomId()
		if err != nil {
			t.Fatalf("FreshRandomId failed: %v", err)
		}
		if id == 0 {
			t.Fatal("FreshRandomId returned 0")
		}
	}
}
