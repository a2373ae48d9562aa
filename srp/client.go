// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package srp

import (
	"math/big"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal"
	"github.com/thatnewyorker/pake/secret"
)

// Client holds one party's state for a single SRP-6a handshake. A Client is
// single-use: it advances Created -> Started -> KeyComputed -> Confirmed and
// never goes back. It is not safe for concurrent use; the caller serializes
// calls per session.
type Client struct {
	conf     *Configuration
	identity []byte
	password *secret.Bytes

	a    *big.Int // ephemeral secret exponent
	bigA *big.Int
	bigB *big.Int

	key *secret.Key
	m1  []byte

	stage stage
}

// NewClient prepares a client session for the identity and password. The
// password is copied into a zeroizing container; the caller keeps ownership
// of its own buffer.
func NewClient(conf *Configuration, identity, password []byte) (*Client, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	if len(identity) == 0 {
		return nil, pake.ErrConfiguration.Join(errEmptyIdentity)
	}

	return &Client{
		conf:     conf,
		identity: append([]byte(nil), identity...),
		password: secret.NewBytes(append([]byte(nil), password...)),
		stage:    stageCreated,
	}, nil
}

// Start draws the secret exponent a and returns the opening message carrying
// A = g^a mod N. On a randomness failure the session remains in its initial
// state.
func (c *Client) Start(source pake.RandomSource) (*ClientHello, error) {
	if c.stage != stageCreated {
		return nil, pake.ErrState
	}

	a, err := c.conf.Group.RandomExponent(source)
	if err != nil {
		return nil, err
	}

	c.a = a
	c.bigA = c.conf.Group.ExpG(a)
	c.stage = stageStarted

	return &ClientHello{
		Identity:  append([]byte(nil), c.identity...),
		Ephemeral: c.conf.Group.Encode(c.bigA),
	}, nil
}

// ProcessChallenge consumes the server's salt and B, computes the premaster
// secret and session key, and returns the proof M1. The ephemeral exponent,
// the recomputed private key x, and the password copy are wiped before
// returning, on success and failure alike.
func (c *Client) ProcessChallenge(challenge *ServerChallenge) (*ClientProof, error) {
	if c.stage != stageStarted {
		return nil, pake.ErrState
	}

	if len(challenge.Salt) != c.conf.saltLength() {
		return c.fail(pake.ErrEncoding.Join(errSaltLength))
	}

	group := c.conf.Group

	bigB, err := group.Decode(challenge.Ephemeral)
	if err != nil {
		return c.fail(pake.ErrInvalidPeer.Join(err))
	}

	if group.IsZero(bigB) {
		return c.fail(pake.ErrInvalidPeer)
	}

	u, err := c.conf.scrambler(c.bigA, bigB)
	if err != nil {
		return c.fail(err)
	}

	x := c.conf.privateKey(c.identity, c.password.Expose(), challenge.Salt)
	defer internal.ClearBigInt(&x)

	// S = (B - k*g^x)^(a + u*x) mod N
	k := c.conf.multiplier()
	base := new(big.Int).Sub(bigB, group.Mul(k, group.ExpG(x)))
	base.Mod(base, group.n)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.a)

	premaster := group.Exp(base, exp)
	internal.ClearBigInt(&exp)
	internal.ClearBigInt(&c.a)
	c.password.Wipe()

	c.bigB = bigB
	c.key = c.conf.sessionKey(premaster)
	internal.ClearBigInt(&premaster)

	c.m1 = c.conf.clientProof(c.bigA, c.bigB, c.key)
	c.stage = stageKeyComputed

	return &ClientProof{Proof: append([]byte(nil), c.m1...)}, nil
}

// Finish verifies the server's proof M2 and, on success, hands the session
// key to the caller. On a mismatch the key is destroyed and never released.
func (c *Client) Finish(proof *ServerProof) (*secret.Key, error) {
	if c.stage != stageKeyComputed {
		return nil, pake.ErrState
	}

	expected := c.conf.serverProof(c.bigA, c.m1, c.key)
	if !pake.ConstantTimeCompare(expected, proof.Proof) {
		c.Abort()
		return nil, pake.ErrAuthentication
	}

	key := c.key
	c.key = nil
	c.stage = stageConfirmed

	return key, nil
}

// Abort destroys the session and wipes all secret material. A session that
// returned an error has already been aborted.
func (c *Client) Abort() {
	internal.ClearBigInt(&c.a)
	c.password.Wipe()

	if c.key != nil {
		c.key.Wipe()
		c.key = nil
	}

	c.stage = stageFailed
}

func (c *Client) fail(err error) (*ClientProof, error) {
	c.Abort()
	return nil, err
}
