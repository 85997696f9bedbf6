// Package oracle holds the cipher's secret round keys and exposes exactly
// the black-box operations the differential attack is allowed to use:
// full encryption and a partial decrypt under a guessed last-round
// subkey. The round keys themselves are exposed only through Reveal,
// which the CLI uses for its report and the attack code never calls.
package oracle

import (
	"math/rand/v2"

	"github.com/gocrack/spn-diffcrack/internal/spn"
)

// Oracle encapsulates a secret 5-tuple of round keys. It is safe for
// concurrent read-only use by multiple goroutines once constructed: none
// of its methods mutate state.
type Oracle struct {
	keys spn.RoundKeys
}

// New draws five uniform 16-bit round keys from rng and returns an Oracle
// wrapping them.
func New(rng *rand.Rand) *Oracle {
	var keys spn.RoundKeys
	for i := range keys {
		keys[i] = spn.Block(rng.Uint64())
	}
	return &Oracle{keys: keys}
}

// Encrypt runs the full 5-round cipher over p under the oracle's secret
// keys.
func (o *Oracle) Encrypt(p spn.Block) spn.Block {
	return spn.EncryptBlock(p, o.keys)
}

// PartialDecrypt assumes guess is the true last-round subkey and undoes
// the final XOR and final S-box layer, returning the putative state
// immediately before round 4's substitution.
func (o *Oracle) PartialDecrypt(c spn.Block, guess spn.Block) spn.Block {
	return spn.SubstituteInverse(spn.MixSubkey(c, guess))
}

// LastRoundKeyEquals reports whether guess equals the oracle's true last
// round key K4. It exists solely so a driver can score a recovered key
// against ground truth; attack code must never call it, only consult it
// after the attack has already produced a guess.
func (o *Oracle) LastRoundKeyEquals(guess spn.Block) bool {
	return o.keys[4] == guess
}

// Reveal returns the oracle's full round-key tuple. It exists only for
// the CLI's "print the round keys used this run" report (spec.md §6);
// internal/characteristic, internal/extract, and internal/attack must
// never call it, and the interface boundary they actually use
// (Encrypt/PartialDecrypt/LastRoundKeyEquals) gives them no way to.
func (o *Oracle) Reveal() spn.RoundKeys {
	return o.keys
}
