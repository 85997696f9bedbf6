// Package extract recovers an 8-bit fragment of the cipher's last round
// key via a count-max chosen-plaintext attack: for each of 256 candidate
// subkeys, count how often partially decrypting an oracle-produced
// ciphertext pair reproduces a characteristic's expected intermediate
// difference, then pick the candidate with the highest count.
package extract

import (
	"context"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gocrack/spn-diffcrack/internal/characteristic"
	"github.com/gocrack/spn-diffcrack/internal/oracle"
	"github.com/gocrack/spn-diffcrack/internal/spn"
)

// candidateCount is the size of the candidate-subkey set for either bit
// offset, and of the counter table used to score them.
const candidateCount = 256

// Config tunes the extraction's sample count and worker-pool size.
type Config struct {
	// Iterations is the number of chosen-plaintext pairs probed per
	// candidate subkey.
	Iterations int
	// Workers is the number of goroutines the 256 candidates are sharded
	// across.
	Workers int
}

// DefaultConfig matches spec.md §5's 10-worker extraction pool.
func DefaultConfig() Config {
	return Config{Iterations: 0x1000, Workers: 10}
}

// CandidateSubkeys returns the 256 sixteen-bit values of the form
// (i<<(8+offset)) | (j<<offset) for i, j in 0..15, the set of candidate
// last-round-key projections onto the 8 bits selected by offset.
// It panics if offset is not characteristic.Offset0 or Offset4
// (spec.md §7.3: a programmer error, not a recoverable one).
func CandidateSubkeys(offset characteristic.BitOffset) []uint16 {
	if offset != characteristic.Offset0 && offset != characteristic.Offset4 {
		panic("extract: invalid bit offset, want characteristic.Offset0 or Offset4")
	}

	candidates := make([]uint16, 0, candidateCount)
	for i := uint16(0); i < 16; i++ {
		for j := uint16(0); j < 16; j++ {
			candidates = append(candidates, (i<<(8+uint16(offset)))|(j<<uint16(offset)))
		}
	}
	return candidates
}

// Recover runs the count-max attack: for cfg.Iterations chosen-plaintext
// pairs per candidate, it asks o to encrypt p and p^c.DP, partially
// decrypts both ciphertexts under each candidate subkey, and counts
// matches of c.DU. It returns the candidate with the highest count,
// breaking ties by lowest index.
//
// The 256 candidates are sharded across cfg.Workers goroutines, each
// owning its shard of the counter table outright (each count is written
// by exactly one worker); the argmax is taken once every worker has
// returned, so no atomics or shared-counter locking is needed.
func Recover(
	ctx context.Context,
	rng *rand.Rand,
	o *oracle.Oracle,
	c characteristic.Characteristic,
	candidates []uint16,
	cfg Config,
) spn.Block {
	counts := make([]int, len(candidates))

	workers := cfg.Workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		eg errgroup.Group
		mu sync.Mutex
	)

	shardSize := (len(candidates) + workers - 1) / workers
	for w := 0; w < len(candidates); w += shardSize {
		start, end := w, min(w+shardSize, len(candidates))

		mu.Lock()
		seed1, seed2 := rng.Uint64(), rng.Uint64()
		mu.Unlock()
		workerRNG := rand.New(rand.NewPCG(seed1, seed2))

		eg.Go(func() error {
			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				counts[i] = countMatches(workerRNG, o, c, candidates[i], cfg.Iterations)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		// Cancellation is the only way Recover's workers return an error;
		// fall through and score whatever partial counts were gathered,
		// matching spec.md §7's "no retries, return whatever argmax
		// yielded" philosophy.
		_ = err
	}

	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return spn.Block(candidates[best])
}

// countMatches probes a single candidate subkey over `iterations` chosen
// plaintext pairs and returns how many times partial decryption
// reproduces c.DU.
func countMatches(
	rng *rand.Rand,
	o *oracle.Oracle,
	c characteristic.Characteristic,
	guess uint16,
	iterations int,
) int {
	var matches int
	for range iterations {
		p1 := spn.Block(rng.Uint64())
		p2 := p1 ^ c.DP

		c1 := o.Encrypt(p1)
		c2 := o.Encrypt(p2)

		u1 := o.PartialDecrypt(c1, spn.Block(guess))
		u2 := o.PartialDecrypt(c2, spn.Block(guess))

		if u1^u2 == c.DU {
			matches++
		}
	}
	return matches
}
