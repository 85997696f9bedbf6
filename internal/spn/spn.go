// Package spn implements the fixed 16-bit substitution-permutation network
// primitive: a 4-bit S-box applied to four nibbles, a 16-bit bit
// permutation, subkey mixing, and the 5-round encrypt/decrypt round
// structure built from them.
package spn

// KeySize is the number of distinct nibble values the S-box maps, and the
// number of bit positions the permutation maps.
const KeySize = 16

// Block is a 16-bit cipher state: four 4-bit nibbles, nibble 0 occupying
// the least-significant 4 bits.
type Block = uint16

// RoundKeys is the 5-tuple of 16-bit subkeys K0..K4 mixed into the state
// across the cipher's 5 rounds.
type RoundKeys [5]Block

// sbox is the cipher's only non-linear component, a fixed bijection on
// 4-bit values.
var sbox = [KeySize]uint16{14, 4, 13, 1, 2, 15, 11, 8, 3, 10, 6, 12, 5, 9, 0, 7}

// sboxInverse is derived from sbox at package init so the two tables can
// never drift out of sync with each other.
var sboxInverse [KeySize]uint16

// permutationTable is the 1-based bit-permutation table: permutationTable[i-1]
// gives the 1-based output position of input bit i (bit 1 = MSB).
var permutationTable = [KeySize]uint16{1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15, 4, 8, 12, 16}

func init() {
	for i, s := range sbox {
		sboxInverse[s] = uint16(i)
	}
}

// Substitute partitions x into four nibbles and replaces each with its
// S-box image, preserving nibble positions.
func Substitute(x Block) Block {
	var result Block
	for i := range 4 {
		nibble := (x >> (4 * i)) & 0xF
		result |= sbox[nibble] << (4 * i)
	}
	return result
}

// SubstituteInverse is the inverse of Substitute: substitute with the
// inverse S-box.
func SubstituteInverse(x Block) Block {
	var result Block
	for i := range 4 {
		nibble := (x >> (4 * i)) & 0xF
		result |= sboxInverse[nibble] << (4 * i)
	}
	return result
}

// Permute applies the fixed 16-bit bit permutation. Using 1-based bit
// positions where bit 1 is the MSB: for each i in 1..16, output bit
// permutationTable[i] receives input bit i. Re-expressed in 0-based
// LSB-first indices (k = 16-i, j = 16-permutationTable[i]), output bit j
// receives input bit k.
func Permute(x Block) Block {
	var result Block
	for i := 1; i <= KeySize; i++ {
		k := KeySize - i
		j := KeySize - int(permutationTable[i-1])
		bit := (x >> k) & 1
		result |= bit << j
	}
	return result
}

// MixSubkey XORs the state with a subkey.
func MixSubkey(x, k Block) Block {
	return x ^ k
}

// EncryptBlock runs the 5-round SPN: three full rounds of mix-substitute-
// permute, one round of mix-substitute with no permutation, then final
// whitening.
func EncryptBlock(p Block, keys RoundKeys) Block {
	x := p
	for r := range 3 {
		x = MixSubkey(x, keys[r])
		x = Substitute(x)
		x = Permute(x)
	}
	x = MixSubkey(x, keys[3])
	x = Substitute(x)
	x = MixSubkey(x, keys[4])
	return x
}

// DecryptBlock inverts EncryptBlock. It exists to validate the primitive's
// correctness via round-trip tests; the attack never calls it.
func DecryptBlock(c Block, keys RoundKeys) Block {
	x := c
	x = MixSubkey(x, keys[4])
	x = SubstituteInverse(x)
	x = MixSubkey(x, keys[3])

	for r := 2; r >= 0; r-- {
		x = Permute(x)
		x = SubstituteInverse(x)
		x = MixSubkey(x, keys[r])
	}
	return x
}
