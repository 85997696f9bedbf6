// Package attack glues the characteristic search and partial subkey
// extraction together: it runs both halves of the last-round key
// recovery concurrently, one per bit offset, and OR-merges their
// fragments into a single recovered 16-bit key.
package attack

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gocrack/spn-diffcrack/internal/characteristic"
	"github.com/gocrack/spn-diffcrack/internal/extract"
	"github.com/gocrack/spn-diffcrack/internal/oracle"
	"github.com/gocrack/spn-diffcrack/internal/spn"
)

// Config bundles the two phases' tuning knobs.
type Config struct {
	Search  characteristic.Config
	Extract extract.Config
}

// DefaultConfig matches spec.md §6's reference sample counts and
// worker-pool sizes.
func DefaultConfig() Config {
	return Config{
		Search:  characteristic.DefaultConfig(),
		Extract: extract.DefaultConfig(),
	}
}

// Half holds one bit-offset's search and extraction results.
type Half struct {
	Offset         characteristic.BitOffset
	Characteristic characteristic.Characteristic
	Fragment       spn.Block
}

// Result is everything cmd/spncrack reports: both characteristics, both
// recovered fragments, the merged key, the verdict, and elapsed time.
type Result struct {
	Low, High Half
	Recovered spn.Block
	Correct   bool
	Elapsed   time.Duration
}

// Run searches for characteristics and recovers key fragments for
// Offset0 ("Low") and Offset4 ("High") concurrently, ORs the fragments
// into the recovered last-round key, and scores it against o's true K4.
// No retry is attempted; the attack is probabilistic and reports
// whatever it finds (spec.md §7).
func Run(ctx context.Context, rng *rand.Rand, o *oracle.Oracle, cfg Config) (Result, error) {
	start := time.Now()

	var (
		eg        errgroup.Group
		low, high Half
	)

	// math/rand/v2's *Rand is not safe for concurrent use. The two halves
	// run in separate goroutines, so each gets its own generator seeded
	// from the shared rng before either goroutine starts; from that
	// point on neither half's RNG is ever touched by the other.
	lowRNG := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
	highRNG := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))

	runHalf := func(offset characteristic.BitOffset, halfRNG *rand.Rand, dst *Half) func() error {
		return func() error {
			c := characteristic.Find(halfRNG, offset, cfg.Search)
			candidates := extract.CandidateSubkeys(offset)
			fragment := extract.Recover(ctx, halfRNG, o, c, candidates, cfg.Extract)
			*dst = Half{Offset: offset, Characteristic: c, Fragment: fragment}
			return nil
		}
	}

	eg.Go(runHalf(characteristic.Offset0, lowRNG, &low))
	eg.Go(runHalf(characteristic.Offset4, highRNG, &high))

	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	recovered := low.Fragment | high.Fragment

	return Result{
		Low:       low,
		High:      high,
		Recovered: recovered,
		Correct:   o.LastRoundKeyEquals(recovered),
		Elapsed:   time.Since(start),
	}, nil
}
