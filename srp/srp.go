// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package srp implements the SRP-6a verifier-based password-authenticated
// key exchange over a safe-prime modular exponentiation group.
//
// The server stores a verifier v = g^x mod N derived once at registration;
// the password itself is never stored, and a stolen verifier permits only
// online guessing. A handshake exchanges the ephemeral values A and B, both
// sides derive the session key K = H(S), and the exchange of the proofs M1
// and M2 confirms that the keys match.
//
// All fixed-width encodings are big-endian and zero-padded to the byte
// length of N on both sides.
package srp

import (
	"crypto"
	"errors"
	"math/big"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal"
	"github.com/thatnewyorker/pake/secret"
)

var (
	errElementLength     = errors.New("element encoding has wrong length")
	errElementRange      = errors.New("element encoding is out of range")
	errSamplingExhausted = errors.New("exponent sampling bound exceeded")
	errNoGroup           = errors.New("no group set")
	errHashUnavailable   = errors.New("hash function unavailable")
	errEmptyIdentity     = errors.New("empty identity")
	errFallbackKeyShort  = errors.New("fallback key must be at least 16 bytes")
	errSaltLength        = errors.New("salt has wrong length")
	errProofLength       = errors.New("proof has wrong length")
	errNotConfirmed      = errors.New("confirmation incomplete")
)

// DefaultSaltLength is the salt length used when the configuration leaves it
// unset.
const DefaultSaltLength = 16

// Configuration gathers the group and digest capabilities an SRP session is
// parametrized over. The zero value is not usable; both Group and Hash must
// be set.
type Configuration struct {
	// Group is the modular exponentiation group.
	Group *Group

	// Hash is the digest used for all derivations.
	Hash crypto.Hash

	// SaltLength is the registration salt length. Defaults to
	// DefaultSaltLength when zero.
	SaltLength int
}

func (c *Configuration) verify() error {
	if c.Group == nil {
		return pake.ErrConfiguration.Join(errNoGroup)
	}

	if !c.Hash.Available() {
		return pake.ErrConfiguration.Join(errHashUnavailable)
	}

	if c.SaltLength < 0 {
		return pake.ErrConfiguration.Join(errSaltLength)
	}

	return nil
}

func (c *Configuration) saltLength() int {
	if c.SaltLength == 0 {
		return DefaultSaltLength
	}

	return c.SaltLength
}

func (c *Configuration) hash() *internal.Hash {
	return internal.NewHash(c.Hash)
}

func (c *Configuration) mac() *internal.Mac {
	return internal.NewMac(c.Hash)
}

// multiplier computes the SRP-6a multiplier k = H(PAD(N) || PAD(g)).
func (c *Configuration) multiplier() *big.Int {
	g := c.Group
	digest := c.hash().Hash(g.Encode(g.n), g.Encode(g.g))

	return new(big.Int).SetBytes(digest)
}

// scrambler computes u = H(PAD(A) || PAD(B)) and rejects a zero result.
func (c *Configuration) scrambler(bigA, bigB *big.Int) (*big.Int, error) {
	digest := c.hash().Hash(c.Group.Encode(bigA), c.Group.Encode(bigB))

	u := new(big.Int).SetBytes(digest)
	if u.Sign() == 0 {
		return nil, pake.ErrZeroChallenge
	}

	return u, nil
}

// privateKey computes x = H(salt || H(identity ":" password)). The caller
// owns the result and must clear it as soon as the dependent value is
// derived.
func (c *Configuration) privateKey(identity, password, salt []byte) *big.Int {
	h := c.hash()

	inner := h.Hash(identity, []byte(":"), password)
	outer := h.Hash(salt, inner)

	secret.Wipe(inner)

	x := new(big.Int).SetBytes(outer)
	secret.Wipe(outer)

	return x
}

// sessionKey derives K = H(PAD(S)) and wipes the padded premaster.
func (c *Configuration) sessionKey(premaster *big.Int) *secret.Key {
	padded := c.Group.Encode(premaster)
	k := c.hash().Hash(padded)
	secret.Wipe(padded)

	return secret.NewKey(k)
}

// clientProof computes M1 = H(PAD(A) || PAD(B) || K).
func (c *Configuration) clientProof(bigA, bigB *big.Int, key *secret.Key) []byte {
	return c.hash().Hash(c.Group.Encode(bigA), c.Group.Encode(bigB), key.Expose())
}

// serverProof computes M2 = H(PAD(A) || M1 || K).
func (c *Configuration) serverProof(bigA *big.Int, m1 []byte, key *secret.Key) []byte {
	return c.hash().Hash(c.Group.Encode(bigA), m1, key.Expose())
}

// stage is the discriminant marking which handshake step is next. All
// transitions are irreversible; an aborted session only transitions to
// stageFailed.
type stage byte

const (
	stageCreated stage = iota
	stageStarted
	stageKeyComputed
	stageConfirmed
	stageFailed
)
