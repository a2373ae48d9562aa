// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package srp

import (
	"errors"
	"math/big"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal"
	"github.com/thatnewyorker/pake/internal/tag"
	"github.com/thatnewyorker/pake/secret"
)

// Server holds one party's state for a single SRP-6a handshake. Like Client,
// a Server is single-use and assumes the caller serializes calls per
// session. The verifier store is only read, never mutated, so concurrent
// sessions need no locking inside the engine.
type Server struct {
	conf        *Configuration
	store       VerifierStore
	fallbackKey []byte

	bigA *big.Int
	bigB *big.Int

	key        *secret.Key
	expectedM1 []byte

	stage stage
}

// NewServer prepares a server session. The fallback key is a long-term
// secret of at least 16 bytes: when a verifier lookup fails, it keys the
// deterministic fake salt and verifier so that unknown identities are
// indistinguishable on the wire from known identities with a wrong password.
// The same key must be used across sessions and restarts for the fallback to
// stay consistent per identity.
func NewServer(conf *Configuration, store VerifierStore, fallbackKey []byte) (*Server, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	if store == nil {
		return nil, pake.ErrConfiguration.Join(errors.New("no verifier store"))
	}

	if len(fallbackKey) < 16 {
		return nil, pake.ErrConfiguration.Join(errFallbackKeyShort)
	}

	return &Server{
		conf:        conf,
		store:       store,
		fallbackKey: append([]byte(nil), fallbackKey...),
		stage:       stageCreated,
	}, nil
}

// Respond consumes the client's hello, loads (or fabricates) the verifier
// record, draws the secret exponent b, and returns the salt and
// B = k*v + g^b mod N. The session key and the expected client proof are
// derived here; the exponent b is wiped before returning.
func (s *Server) Respond(source pake.RandomSource, hello *ClientHello) (*ServerChallenge, error) {
	if s.stage != stageCreated {
		return nil, pake.ErrState
	}

	group := s.conf.Group

	bigA, err := group.Decode(hello.Ephemeral)
	if err != nil {
		return s.fail(pake.ErrInvalidPeer.Join(err))
	}

	if group.IsZero(bigA) {
		return s.fail(pake.ErrInvalidPeer)
	}

	record, err := s.lookup(hello.Identity)
	if err != nil {
		return s.fail(err)
	}

	v, err := group.Decode(record.Verifier)
	if err != nil {
		return s.fail(pake.ErrEncoding.Join(err))
	}

	b, err := group.RandomExponent(source)
	if err != nil {
		return s.fail(err)
	}
	defer internal.ClearBigInt(&b)

	k := s.conf.multiplier()
	bigB := new(big.Int).Add(group.Mul(k, v), group.ExpG(b))
	bigB.Mod(bigB, group.n)

	if bigB.Sign() == 0 {
		return s.fail(pake.ErrZeroChallenge)
	}

	u, err := s.conf.scrambler(bigA, bigB)
	if err != nil {
		return s.fail(err)
	}

	// S = (A * v^u)^b mod N
	premaster := group.Exp(group.Mul(bigA, group.Exp(v, u)), b)

	s.bigA = bigA
	s.bigB = bigB
	s.key = s.conf.sessionKey(premaster)
	internal.ClearBigInt(&premaster)

	s.expectedM1 = s.conf.clientProof(s.bigA, s.bigB, s.key)
	s.stage = stageKeyComputed

	return &ServerChallenge{
		Salt:      record.Salt,
		Ephemeral: group.Encode(bigB),
	}, nil
}

// Confirm verifies the client's proof M1 and, on success, returns the
// server's proof M2. The client must prove first; on a mismatch the session
// is destroyed without revealing M2 or the key, and the reason for the
// mismatch is not distinguished.
func (s *Server) Confirm(proof *ClientProof) (*ServerProof, error) {
	if s.stage != stageKeyComputed {
		return nil, pake.ErrState
	}

	if !pake.ConstantTimeCompare(s.expectedM1, proof.Proof) {
		s.Abort()
		return nil, pake.ErrAuthentication
	}

	m2 := s.conf.serverProof(s.bigA, s.expectedM1, s.key)
	s.stage = stageConfirmed

	return &ServerProof{Proof: m2}, nil
}

// SessionKey hands the session key to the caller once the client's proof has
// been accepted.
func (s *Server) SessionKey() (*secret.Key, error) {
	if s.stage != stageConfirmed || s.key == nil {
		return nil, pake.ErrState.Join(errNotConfirmed)
	}

	key := s.key
	s.key = nil

	return key, nil
}

// Abort destroys the session and wipes all secret material.
func (s *Server) Abort() {
	if s.key != nil {
		s.key.Wipe()
		s.key = nil
	}

	internal.ClearSlice(&s.expectedM1)
	s.stage = stageFailed
}

func (s *Server) fail(err error) (*ServerChallenge, error) {
	s.Abort()
	return nil, err
}

// lookup loads the identity's verifier record, falling back to a
// deterministic fake record when none exists. The fake salt and verifier are
// a keyed PRF of the identity, so repeated attempts for the same unknown
// identity see the same challenge shape a registered identity would produce.
// Store failures other than a missing record propagate.
func (s *Server) lookup(identity []byte) (*VerifierRecord, error) {
	record, err := s.store.LoadVerifier(identity)
	if err == nil {
		return record, nil
	}

	if !errors.Is(err, pake.ErrLookup) {
		return nil, pake.ErrLookup.Join(err)
	}

	mac := s.conf.mac()

	salt := mac.MAC(s.fallbackKey, append([]byte(tag.SRPFallbackSalt), identity...))
	for len(salt) < s.conf.saltLength() {
		salt = append(salt, mac.MAC(s.fallbackKey, salt)...)
	}
	salt = salt[:s.conf.saltLength()]

	seed := mac.MAC(s.fallbackKey, append([]byte(tag.SRPFallbackVerifier), identity...))
	x := new(big.Int).SetBytes(seed)
	v := s.conf.Group.ExpG(x)
	internal.ClearBigInt(&x)
	secret.Wipe(seed)

	return &VerifierRecord{
		Identity: append([]byte(nil), identity...),
		Salt:     salt,
		Verifier: s.conf.Group.Encode(v),
	}, nil
}
