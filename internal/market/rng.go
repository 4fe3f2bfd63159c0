package market

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand/v2"
)

var ErrEmptyPool = errors.New("event pool is empty")

// RandomSource is what event draws and simulations read randomness from.
// *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64 // [0, 1)
	IntN(n int) int   // [0, n), n > 0
}

// eventStream keeps seeded event draws independent of other PCG users that
// share a seed.
const eventStream = 0x6361726263726674

// Live games draw from crypto/rand so students cannot replay the seed and
// predict the next market event.
type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Uint64()
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func DefaultRNG() RandomSource { return rand.New(cryptoSource{}) }

// NewSeededRNG returns a reproducible source for simulations and tests.
func NewSeededRNG(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, eventStream))
}

// DrawEvent picks one event from pool uniformly. A nil rng uses DefaultRNG.
func DrawEvent(pool []Event, rng RandomSource) (Event, error) {
	if len(pool) == 0 {
		return EventNone, ErrEmptyPool
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	return pool[rng.IntN(len(pool))], nil
}
