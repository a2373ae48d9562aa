// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package srp

import (
	"math/big"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal/encoding"
)

// Group is a safe-prime modular exponentiation group for SRP: a large safe
// prime N and a generator g, with all arithmetic done modulo N.
//
// Exponentiation uses math/big, whose modular exponentiation for odd moduli
// runs a fixed-window Montgomery ladder. The backend offers no hard
// constant-time or zeroization guarantee for arbitrary-precision values;
// private exponents are therefore wiped from their fixed-width byte form as
// early as possible, and the residual risk is accepted rather than claimed
// away.
type Group struct {
	name string
	g    *big.Int
	n    *big.Int
}

// RFC 5054 Appendix A groups. The hex digits of the 3072-bit and larger
// primes are the RFC 3526 MODP primes.
var (
	// G1024 is the 1024-bit group. Too small for new deployments; kept for
	// interoperability and fast tests.
	G1024 = mustGroup("srp.1024", 2, hex1024)

	// G2048 is the 2048-bit group.
	G2048 = mustGroup("srp.2048", 2, hex2048)

	// G3072 is the 3072-bit group.
	G3072 = mustGroup("srp.3072", 5, hex3072)

	// G4096 is the 4096-bit group.
	G4096 = mustGroup("srp.4096", 5, hex4096)
)

func mustGroup(name string, g int64, nHex string) *Group {
	n, ok := new(big.Int).SetString(nHex, 16)
	if !ok {
		panic("srp: malformed group prime constant")
	}

	return &Group{
		name: name,
		g:    big.NewInt(g),
		n:    n,
	}
}

// String returns the group's name.
func (g *Group) String() string {
	return g.name
}

// ByteLength returns the byte length of N, the fixed width of every encoded
// group element.
func (g *Group) ByteLength() int {
	return (g.n.BitLen() + 7) / 8
}

// Generator returns a copy of the group generator.
func (g *Group) Generator() *big.Int {
	return new(big.Int).Set(g.g)
}

// N returns a copy of the group modulus.
func (g *Group) N() *big.Int {
	return new(big.Int).Set(g.n)
}

// Exp returns base^exp mod N.
func (g *Group) Exp(base, exp *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, g.n)
}

// ExpG returns g^exp mod N.
func (g *Group) ExpG(exp *big.Int) *big.Int {
	return g.Exp(g.g, exp)
}

// Mul returns a*b mod N.
func (g *Group) Mul(a, b *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Mod(out, g.n)
}

// IsZero reports whether v mod N == 0, the degenerate public value both sides
// must reject.
func (g *Group) IsZero(v *big.Int) bool {
	return new(big.Int).Mod(v, g.n).Sign() == 0
}

// Encode serializes v as a fixed-width big-endian integer, zero-padded to the
// byte length of N. v must already be reduced modulo N.
func (g *Group) Encode(v *big.Int) []byte {
	out, err := encoding.PadLeft(v.Bytes(), g.ByteLength())
	if err != nil {
		// Values reduced mod N always fit the width.
		panic("srp: unreduced value passed to Encode")
	}

	return out
}

// Decode parses a fixed-width element encoding. Buffers of the wrong length
// or encoding a value >= N are rejected as non-canonical.
func (g *Group) Decode(in []byte) (*big.Int, error) {
	if len(in) != g.ByteLength() {
		return nil, pake.ErrEncoding.Join(errElementLength)
	}

	v := new(big.Int).SetBytes(in)
	if v.Cmp(g.n) >= 0 {
		return nil, pake.ErrEncoding.Join(errElementRange)
	}

	return v, nil
}

// RandomExponent draws a uniformly distributed secret exponent in [1, N-1)
// by rejection sampling: raw draws outside the range are discarded and
// redrawn, never reduced.
func (g *Group) RandomExponent(source pake.RandomSource) (*big.Int, error) {
	buf := make([]byte, g.ByteLength())
	defer func() {
		for i := range buf {
			buf[i] = 0
		}
	}()

	limit := new(big.Int).Sub(g.n, big.NewInt(1))

	for range maxExponentRejections {
		if err := source.Read(buf); err != nil {
			return nil, pake.ErrRandomness.Join(err)
		}

		v := new(big.Int).SetBytes(buf)
		if v.Sign() == 0 || v.Cmp(limit) >= 0 {
			continue
		}

		return v, nil
	}

	return nil, pake.ErrRandomness.Join(errSamplingExhausted)
}

// The acceptance probability per draw exceeds 1/2 for every supported group,
// so this bound is unreachable with a functioning source.
const maxExponentRejections = 128
