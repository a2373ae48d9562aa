// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package aucpace implements the AuCPace augmented password-authenticated
// key exchange and its CPace sub-protocol over a prime-order elliptic curve
// group.
//
// The server stores a verifier W = g*w derived from the password at
// registration. Authentication runs in three layers: agreement on a session
// identifier (ssid), an augmentation exchange that gives both sides a
// password-related string (PRS), and a CPace exchange over a generator
// derived from ssid and PRS, closed by explicit mutual authentication.
//
// Three variants change how the PRS is produced. The base variant sends the
// salt in the clear. The strong variant blinds the salt lookup with a fresh
// scalar so a later password compromise does not open past transcripts to
// offline search. The partially augmented variant replaces the server's
// per-session exponent with a static long-term keypair. The variant is fixed
// in the configuration; a peer running a different variant produces messages
// of the wrong kind, which fail parsing rather than downgrade.
package aucpace

import (
	"crypto"
	"errors"

	"github.com/bytemare/ecc"
	"github.com/bytemare/ksf"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal"
	"github.com/thatnewyorker/pake/internal/encoding"
	"github.com/thatnewyorker/pake/internal/tag"
	"github.com/thatnewyorker/pake/secret"
)

var (
	errNoGroup          = errors.New("no group set")
	errHashUnavailable  = errors.New("hash function unavailable")
	errBadVariant       = errors.New("unknown protocol variant")
	errVariantMismatch  = errors.New("message kind does not match the configured variant")
	errNonceLength      = errors.New("nonce has wrong length")
	errShortSSID        = errors.New("pre-established ssid too short")
	errEmptyUsername    = errors.New("empty username")
	errFallbackKeyShort = errors.New("fallback key must be at least 16 bytes")
	errNoKeypair        = errors.New("no long-term keypair set")
	errNotConfirmed     = errors.New("mutual authentication incomplete")
)

// Variant selects which augmentation layer a configuration runs. Both sides
// must configure the same variant.
type Variant byte

const (
	// Augmented is the base AuCPace augmentation layer: the salt travels in
	// the clear and the server draws a fresh exponent per session.
	Augmented Variant = 1 + iota

	// StrongAugmented blinds the salt lookup with a fresh client scalar.
	StrongAugmented

	// PartiallyAugmented uses a static server keypair in place of the fresh
	// per-session exponent.
	PartiallyAugmented
)

// MinSSIDLength is the minimum accepted length for a pre-established session
// identifier.
const MinSSIDLength = 16

// DefaultNonceLength is the ssid-agreement nonce length used when the
// configuration leaves it unset.
const DefaultNonceLength = 16

// Configuration gathers the capabilities an AuCPace session is parametrized
// over. Group, Hash, and Variant must be set; the channel identifier binds
// the session to a named transport endpoint pair and may be empty.
type Configuration struct {
	// ChannelIdentifier names the communication channel, e.g. a
	// concatenation of transport addresses. Both sides must agree on it.
	ChannelIdentifier []byte

	// Group is the elliptic curve group.
	Group ecc.Group

	// Hash is the digest behind the numbered-hash schedule.
	Hash crypto.Hash

	// KSF stretches passwords at registration and on the client. Zero
	// selects the identity function.
	KSF ksf.Identifier

	// Variant selects the augmentation layer.
	Variant Variant

	// NonceLength is the ssid-agreement nonce length. Defaults to
	// DefaultNonceLength when zero.
	NonceLength int
}

func (c *Configuration) verify() error {
	if !c.Group.Available() {
		return pake.ErrConfiguration.Join(errNoGroup)
	}

	if !c.Hash.Available() {
		return pake.ErrConfiguration.Join(errHashUnavailable)
	}

	if c.KSF != 0 && !c.KSF.Available() {
		return pake.ErrConfiguration.Join(errBadKSF)
	}

	switch c.Variant {
	case Augmented, StrongAugmented, PartiallyAugmented:
	default:
		return pake.ErrConfiguration.Join(errBadVariant)
	}

	if c.NonceLength < 0 {
		return pake.ErrConfiguration.Join(errNonceLength)
	}

	return nil
}

func (c *Configuration) nonceLength() int {
	if c.NonceLength == 0 {
		return DefaultNonceLength
	}

	return c.NonceLength
}

func (c *Configuration) hash() *internal.Hash {
	return internal.NewHash(c.Hash)
}

func (c *Configuration) mac() *internal.Mac {
	return internal.NewMac(c.Hash)
}

// The session derivations run through a schedule of numbered hashes: each
// value is bound to its position in the protocol by the hash counter, so no
// two derivations can be confused even over identical inputs.
//
//	ssid = H0(s || t)
//	g'   = HashToGroup(H1 input)
//	sk1  = H2(ssid || K)
//	Ta   = H3(ssid || sk1)
//	Tb   = H4(ssid || sk1)
//	sk   = H5(ssid || sk1)

// computeSSID derives the session identifier from the server and client
// nonces, in that order.
func (c *Configuration) computeSSID(s, t []byte) []byte {
	return c.hash().Numbered(0, s, t)
}

// generator derives the CPace session generator from the ssid, the PRS, and
// the channel identifier.
func (c *Configuration) generator(ssid, prs []byte) *ecc.Element {
	input := encoding.Concat(
		encoding.EncodeVector(ssid),
		encoding.EncodeVector(prs),
		encoding.EncodeVector(c.ChannelIdentifier),
	)
	defer secret.Wipe(input)

	return c.Group.HashToGroup(input, []byte(tag.AuCPaceGeneratorDST))
}

func (c *Configuration) intermediateKey(ssid []byte, shared *ecc.Element) []byte {
	enc := shared.Encode()
	defer secret.Wipe(enc)

	return c.hash().Numbered(2, ssid, enc)
}

func (c *Configuration) serverAuthenticator(ssid, sk1 []byte) []byte {
	return c.hash().Numbered(3, ssid, sk1)
}

func (c *Configuration) clientAuthenticator(ssid, sk1 []byte) []byte {
	return c.hash().Numbered(4, ssid, sk1)
}

func (c *Configuration) sessionKey(ssid, sk1 []byte) *secret.Key {
	return secret.NewKey(c.hash().Numbered(5, ssid, sk1))
}

// passwordScalar derives the scalar w binding the username and password,
// stretched by the named KSF under the salt.
func (c *Configuration) passwordScalar(id ksf.Identifier, username, password, salt []byte) *ecc.Scalar {
	input := encoding.Concat(
		encoding.EncodeVector(username),
		encoding.EncodeVector(password),
	)
	defer secret.Wipe(input)

	stretched := internal.NewKSF(id).Harden(input, salt, c.Group.ScalarLength())
	defer secret.Wipe(stretched)

	return c.Group.HashToScalar(stretched, []byte(tag.AuCPacePasswordDST))
}

// saltPoint maps the username and password to the curve point the strong
// variant's blinded salt lookup is built on.
func (c *Configuration) saltPoint(username, password []byte) *ecc.Element {
	input := encoding.Concat(
		encoding.EncodeVector(username),
		encoding.EncodeVector(password),
	)
	defer secret.Wipe(input)

	return c.Group.HashToGroup(input, []byte(tag.AuCPaceStrongDST))
}
