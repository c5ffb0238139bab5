// Package ids derives PeerId values using a Snowflake-style transform:
// a seed-derived "monotonic slot" component combined with a seed-mixed
// "random" component, per spec. No ecosystem Snowflake library accepts
// an arbitrary derivation seed (they mint ids from wall-clock time plus
// a node number), so this is a small, deliberately minimal stdlib
// component rather than a borrowed one.
package ids

import (
	cryptorand "crypto/rand"
	"encoding/binary"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
)

// mixSeed applies a SplitMix64 avalanche step so that nearby seeds
// (e.g. sequential --desired-id values across a test) spread uniformly
// across the 64-bit space.
func mixSeed(seed uint64) uint64 {
	z := seed + 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// DeriveId deterministically derives a PeerId from seed alone: the same
// seed always yields the same id. The high 22 bits mirror Snowflake's
// node/sequence slot, sourced from the seed's own low bits rather than a
// live counter (there is no wall-clock timestamp to draw one from and
// the derivation must stay pure); the low 42 bits are the SplitMix64
// "random" component. The result is never 0.
func DeriveId(seed uint64) types.PeerId {
	monotonic := seed & ((1 << 22) - 1)
	mixed := mixSeed(seed)

	id := (monotonic << 42) ^ (mixed & ((1 << 42) - 1))
	if id == 0 {
		id = mixed | 1
	}
	return types.PeerId(id)
}

// FreshRandomId draws a seed from a system random source and derives a
// PeerId from it. Used for handshake collision retries, where the
// caller has no specific seed in mind.
func FreshRandomId() (types.PeerId, error) {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return 0, err
	}
	seed := binary.BigEndian.Uint64(buf[:])
	return DeriveId(seed), nil
}
