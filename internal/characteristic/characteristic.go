// Package characteristic searches for high-probability differential
// characteristics across the first three rounds of the SPN primitive by
// Monte-Carlo sampling, following Heys' construction: subkey mixing
// cancels in XOR, so the first three rounds can be simulated as a
// subkey-free composition of substitute and permute.
package characteristic

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gocrack/spn-diffcrack/internal/spn"
)

// BitOffset selects which half of the last round's S-box inputs a search
// or extraction targets: Offset0 covers nibbles 0 and 2, Offset4 covers
// nibbles 1 and 3.
type BitOffset uint8

const (
	Offset0 BitOffset = 0
	Offset4 BitOffset = 4
)

// checkValid panics on any bit offset other than the two defined above;
// spec.md §7.3 treats this as a programmer error, not a recoverable one.
func (b BitOffset) checkValid() {
	if b != Offset0 && b != Offset4 {
		panic(fmt.Sprintf("characteristic: invalid bit offset %d, want 0 or 4", b))
	}
}

// Characteristic is an immutable (ΔP, ΔU, probability) triple: the
// empirical probability that a random plaintext pair differing by DP
// yields, after three subkey-free rounds, intermediate states differing
// by DU.
type Characteristic struct {
	DP          spn.Block
	DU          spn.Block
	Probability float64
}

// Config tunes the search's sample count and worker-pool size. Both are
// configuration knobs, not contracts (spec.md §6).
type Config struct {
	// Iterations is the number of random plaintext pairs sampled per
	// (ΔP, ΔU) trial.
	Iterations int
	// Workers is the number of goroutines fanned out over the ΔP loop.
	Workers int
}

// DefaultConfig matches the reference's sample count and the spec's
// 16-worker search pool.
func DefaultConfig() Config {
	return Config{Iterations: 0x1000, Workers: 16}
}

// simplifiedRounds3 applies permute(substitute(·)) three times with no
// subkey mix, the reduction spec.md §4.3 requires: subkey XORs cancel
// out of the differential, so estimating characteristic probabilities
// never needs real keys.
func simplifiedRounds3(x spn.Block) spn.Block {
	for range 3 {
		x = spn.Substitute(x)
		x = spn.Permute(x)
	}
	return x
}

// probability estimates, by sampling iterations uniform random
// plaintexts, the fraction of pairs (p, p^dp) whose simplifiedRounds3
// outputs differ by exactly du.
func probability(rng *rand.Rand, dp, du spn.Block, iterations int) float64 {
	var successes int
	for range iterations {
		p1 := spn.Block(rng.Uint64())
		p2 := p1 ^ dp
		u1 := simplifiedRounds3(p1)
		u2 := simplifiedRounds3(p2)
		if u1^u2 == du {
			successes++
		}
	}
	return float64(successes) / float64(iterations)
}

// deltaUValues returns the 256 ΔU candidates for the given bit offset:
// for du in 0..255 with nibbles du_hi, du_lo, ΔU = (du_hi << (8+offset))
// | (du_lo << offset). For Offset0 this confines non-zero bits to
// nibbles 0 and 2; for Offset4, to nibbles 1 and 3.
func deltaUValues(offset BitOffset) []spn.Block {
	values := make([]spn.Block, 0, 256)
	for du := 0; du < 256; du++ {
		hi := spn.Block((du >> 4) & 0xF)
		lo := spn.Block(du & 0xF)
		values = append(values, (hi<<(8+spn.Block(offset)))|(lo<<spn.Block(offset)))
	}
	return values
}

// Find searches all (ΔP, ΔU) pairs in the space defined by offset and
// returns the one with maximum estimated probability. The 15 candidate
// ΔP values are sharded across at most cfg.Workers goroutines via
// errgroup.Group, each exploring all 256 ΔU candidates for each of its
// ΔP values and reporting its local best into a mutex-guarded shared
// best — the same shape the teacher's estimateKeySize uses for its own
// embarrassingly parallel search, generalized from one unit of work per
// goroutine to a worker pool of fixed size (spec.md §5's "fixed-size
// pool per search phase").
func Find(rng *rand.Rand, offset BitOffset, cfg Config) Characteristic {
	offset.checkValid()

	deltaUs := deltaUValues(offset)

	deltaPs := make([]spn.Block, 0, 0xF)
	for nibble := uint16(1); nibble <= 0xF; nibble++ {
		deltaPs = append(deltaPs, spn.Block(nibble)<<8)
	}

	workers := cfg.Workers
	if workers > len(deltaPs) {
		workers = len(deltaPs)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		best Characteristic
		eg   errgroup.Group
	)

	shardSize := (len(deltaPs) + workers - 1) / workers
	for w := 0; w < len(deltaPs); w += shardSize {
		start, end := w, min(w+shardSize, len(deltaPs))

		// Each goroutine needs its own RNG stream so sampling stays
		// data-race free; math/rand/v2's Rand is not safe for concurrent
		// use, so every worker gets an independently-seeded generator
		// derived from the shared rng under the same lock that guards
		// the best-so-far slot.
		mu.Lock()
		workerSeed1, workerSeed2 := rng.Uint64(), rng.Uint64()
		mu.Unlock()
		workerRNG := rand.New(rand.NewPCG(workerSeed1, workerSeed2))

		eg.Go(func() error {
			var localBest Characteristic
			for _, dp := range deltaPs[start:end] {
				for _, du := range deltaUs {
					p := probability(workerRNG, dp, du, cfg.Iterations)
					if p > localBest.Probability {
						localBest = Characteristic{DP: dp, DU: du, Probability: p}
					}
				}
			}

			mu.Lock()
			if localBest.Probability > best.Probability {
				best = localBest
			}
			mu.Unlock()
			return nil
		})
	}

	_ = eg.Wait() // workers never return an error
	return best
}
