package dice

import (
	crand "crypto/rand"
	"math"
	"math/rand/v2"
)

// cryptoSource implements Source with a ChaCha8 generator keyed from
// crypto/rand.
//
// Invariant: values are uniformly distributed in [0, n) and not reproducible.
type cryptoSource struct {
	rng *rand.Rand
}

// NewCryptoSource returns an unseeded Source keyed from crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return &cryptoSource{rng: rand.New(rand.NewChaCha8(key))}
}

// Intn returns a random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	return c.rng.IntN(n)
}

// LCG parameters. Golden-output tests depend on these exact values.
const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
	lcgModulus    = 1 << 31
)

// SeededSource is a deterministic linear congruential generator evaluated in
// float64 arithmetic. Once state*multiplier exceeds 2^53 the product is
// rounded, and the published seeded sequences include that rounding, so the
// recurrence must not be computed in exact integers.
//
// Invariant: state is an integer value in [0, 2^31).
type SeededSource struct {
	state float64
}

// NewSeededSource returns a SeededSource whose initial state is seed mod 2^31.
//
// Postcondition: two sources built from the same seed produce identical sequences.
func NewSeededSource(seed uint32) *SeededSource {
	return &SeededSource{state: float64(seed % lcgModulus)}
}

// Intn advances the generator and scales the normalized state into [0, n):
// floor(state / 2^31 * n). For n == 6 a die face is Intn(6)+1.
//
// Precondition: n > 0.
func (s *SeededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	// The explicit conversion rounds the product before the add, preventing
	// a fused multiply-add.
	s.state = math.Mod(float64(s.state*lcgMultiplier)+lcgIncrement, lcgModulus)
	return int(math.Floor(s.state / lcgModulus * float64(n)))
}
