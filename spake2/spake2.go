// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package spake2 implements the SPAKE2 balanced password-authenticated key
// exchange over a prime-order elliptic curve group.
//
// Both sides know the same low-entropy password. Each side is assigned a
// fixed role, A or B, selecting a distinct blinding constant M or N; the
// per-role constants prevent reflection and unknown-key-share attacks when a
// message is replayed at its sender. One message per side yields a shared
// session key; the raw derivation carries no success signal, so an optional
// confirmation exchange is layered on top of the same key schedule.
package spake2

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
	errNoGroup         = errors.New("no group set")
	errHashUnavailable = errors.New("hash function unavailable")
	errBadKSF          = errors.New("unknown key stretching function identifier")
	errBadRole         = errors.New("role must be RoleA or RoleB")
	errElementLength   = errors.New("element encoding has wrong length")
	errTagLength       = errors.New("confirmation tag has wrong length")
	errNoConfirmation  = errors.New("key not derived yet")
)

// Role selects which blinding constant a party uses. The two sides of an
// exchange must use distinct roles; agreeing on who is A is part of the
// surrounding protocol.
type Role byte

const (
	// RoleA blinds with the constant M.
	RoleA Role = 1 + iota

	// RoleB blinds with the constant N.
	RoleB
)

func (r Role) blindingInput() []byte {
	if r == RoleA {
		return []byte(tag.SPAKE2PointM)
	}

	return []byte(tag.SPAKE2PointN)
}

func (r Role) other() Role {
	if r == RoleA {
		return RoleB
	}

	return RoleA
}

// Configuration gathers the group, digest, and optional key-stretching
// capabilities a SPAKE2 exchange is parametrized over, plus the two public
// identities bound into the transcript. The identities may be empty when the
// surrounding protocol provides no names; both sides must agree on them.
type Configuration struct {
	IdentityA []byte
	IdentityB []byte

	// Group is the elliptic curve group.
	Group ecc.Group

	// Hash is the digest used for the transcript and key schedule.
	Hash crypto.Hash

	// KSF optionally stretches the password before it is mapped to a
	// scalar. Zero selects the identity function.
	KSF ksf.Identifier
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

	return nil
}

// blindingPoint derives the fixed role constant, M for A and N for B. The
// constants are hashed into the group so that nobody knows their discrete
// logarithms.
func (c *Configuration) blindingPoint(role Role) *ecc.Element {
	return c.Group.HashToGroup(role.blindingInput(), []byte(tag.SPAKE2BlindingDST))
}

// passwordScalar maps the (optionally stretched) password to the scalar w
// shared by both sides.
func (c *Configuration) passwordScalar(password []byte) *ecc.Scalar {
	stretched := internal.NewKSF(c.KSF).Harden(password, nil, c.Group.ScalarLength())
	defer secret.Wipe(stretched)

	return c.Group.HashToScalar(stretched, []byte(tag.SPAKE2PasswordDST))
}

// Message carries one side's public value X = x*G + w*M_role as a
// fixed-width encoded point.
type Message struct {
	Element []byte
}

// Serialize returns the byte encoding of the message.
func (m *Message) Serialize() []byte {
	return append([]byte(nil), m.Element...)
}

// DeserializeMessage parses a Message, checking the element width. Validity
// of the point itself is checked when the message is consumed.
func (c *Configuration) DeserializeMessage(in []byte) (*Message, error) {
	if len(in) != c.Group.ElementLength() {
		return nil, pake.ErrEncoding.Join(errElementLength)
	}

	return &Message{Element: append([]byte(nil), in...)}, nil
}

// Confirmation carries a key-confirmation tag over the transcript.
type Confirmation struct {
	Tag []byte
}

// Serialize returns the byte encoding of the message.
func (m *Confirmation) Serialize() []byte {
	return append([]byte(nil), m.Tag...)
}

// DeserializeConfirmation parses a Confirmation, checking the tag width.
func (c *Configuration) DeserializeConfirmation(in []byte) (*Confirmation, error) {
	if len(in) != c.hashSize() {
		return nil, pake.ErrEncoding.Join(errTagLength)
	}

	return &Confirmation{Tag: append([]byte(nil), in...)}, nil
}

func (c *Configuration) hashSize() int {
	return internal.NewHash(c.Hash).Size()
}

// Party holds one side's state for a single exchange. A Party is single-use:
// it advances Created -> MessageSent -> KeyDerived and never goes back. Not
// safe for concurrent use.
type Party struct {
	conf *Configuration
	w    *ecc.Scalar

	x       *ecc.Scalar
	ownMsg  []byte
	peerMsg []byte

	key         *secret.Key
	ownTag      []byte
	expectedTag []byte
	role        Role

	stage stage
}

type stage byte

const (
	stageCreated stage = iota
	stageMessageSent
	stageKeyDerived
	stageConfirmed
	stageFailed
)

// New prepares one side of an exchange for the given role and password. The
// password scalar is derived immediately; the caller keeps ownership of the
// password buffer.
func New(conf *Configuration, role Role, password []byte) (*Party, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	if role != RoleA && role != RoleB {
		return nil, pake.ErrConfiguration.Join(errBadRole)
	}

	w := conf.passwordScalar(password)
	if w.IsZero() {
		return nil, pake.ErrZeroChallenge
	}

	return &Party{
		conf:  conf,
		role:  role,
		w:     w,
		stage: stageCreated,
	}, nil
}

// Start draws the ephemeral scalar x and returns the public message
// X = x*G + w*M_role.
func (p *Party) Start(source pake.RandomSource) (*Message, error) {
	if p.stage != stageCreated {
		return nil, pake.ErrState
	}

	x, err := pake.RandomScalar(source, p.conf.Group)
	if err != nil {
		return nil, err
	}

	blind := p.conf.blindingPoint(p.role).Multiply(p.w)
	public := p.conf.Group.Base().Multiply(x).Add(blind)

	p.x = x
	p.ownMsg = public.Encode()
	p.stage = stageMessageSent

	return &Message{Element: append([]byte(nil), p.ownMsg...)}, nil
}

// Receive consumes the peer's message and derives the session key and the
// confirmation tags. The ephemeral scalar is wiped before returning. The raw
// derivation signals nothing about whether the passwords matched; a
// mismatch only surfaces through confirmation or through the keys failing to
// agree.
func (p *Party) Receive(message *Message) error {
	if p.stage != stageMessageSent {
		return pake.ErrState
	}

	peer := p.conf.Group.NewElement()
	if err := peer.Decode(message.Element); err != nil {
		return p.fail(pake.ErrInvalidPeer.Join(err))
	}

	if peer.IsIdentity() {
		return p.fail(pake.ErrInvalidPeer)
	}

	// K = x * (Y - w * M_peer)
	peerBlind := p.conf.blindingPoint(p.role.other()).Multiply(p.w)
	shared := peer.Subtract(peerBlind).Multiply(p.x)

	if shared.IsIdentity() {
		return p.fail(pake.ErrInvalidPeer)
	}

	p.peerMsg = append([]byte(nil), message.Element...)
	p.deriveKeys(shared)

	internal.ClearScalar(&p.x)
	internal.ClearScalar(&p.w)
	p.stage = stageKeyDerived

	return nil
}

// deriveKeys hashes the transcript into the session key Ke and the
// confirmation sub-keys. The transcript orders A's values before B's
// regardless of which role this party holds.
func (p *Party) deriveKeys(shared *ecc.Element) {
	msgA, msgB := p.ownMsg, p.peerMsg
	if p.role == RoleB {
		msgA, msgB = p.peerMsg, p.ownMsg
	}

	wEnc := p.w.Encode()
	sharedEnc := shared.Encode()

	transcript := encoding.Concat(
		encoding.EncodeVector(p.conf.IdentityA),
		encoding.EncodeVector(p.conf.IdentityB),
	)
	transcript = append(transcript, encoding.EncodeVector(msgA)...)
	transcript = append(transcript, encoding.EncodeVector(msgB)...)
	transcript = append(transcript, encoding.EncodeVector(sharedEnc)...)
	transcript = append(transcript, encoding.EncodeVector(wEnc)...)

	h := internal.NewHash(p.conf.Hash)
	digest := h.Hash(transcript)

	secret.Wipe(transcript)
	secret.Wipe(wEnc)
	secret.Wipe(sharedEnc)
	shared.Identity()

	half := len(digest) / 2
	ke, ka := digest[:half], digest[half:]

	p.key = secret.NewKey(append([]byte(nil), ke...))

	mac := internal.NewMac(p.conf.Hash)
	kdf := internal.NewKDF(p.conf.Hash)
	prk := kdf.Extract(nil, ka)
	okm := kdf.Expand(prk, []byte(tag.SPAKE2ConfirmationKeys), 2*mac.Size())
	kcA, kcB := okm[:mac.Size()], okm[mac.Size():]

	transcriptHash := h.Hash(
		encoding.EncodeVector(msgA),
		encoding.EncodeVector(msgB),
	)

	tagA := mac.MAC(kcA, transcriptHash)
	tagB := mac.MAC(kcB, transcriptHash)

	if p.role == RoleA {
		p.ownTag, p.expectedTag = tagA, tagB
	} else {
		p.ownTag, p.expectedTag = tagB, tagA
	}

	secret.Wipe(digest)
	secret.Wipe(prk)
	secret.Wipe(okm)
}

// Confirmation returns this side's key-confirmation tag. Sending it is
// optional; a caller that skips confirmation accepts that a password
// mismatch only shows up as divergent session keys.
func (p *Party) Confirmation() (*Confirmation, error) {
	if p.stage != stageKeyDerived && p.stage != stageConfirmed {
		return nil, pake.ErrState.Join(errNoConfirmation)
	}

	return &Confirmation{Tag: append([]byte(nil), p.ownTag...)}, nil
}

// VerifyConfirmation checks the peer's tag. On a mismatch the session is
// destroyed and the key is never released.
func (p *Party) VerifyConfirmation(confirmation *Confirmation) error {
	if p.stage != stageKeyDerived {
		return pake.ErrState
	}

	if !pake.ConstantTimeCompare(p.expectedTag, confirmation.Tag) {
		p.Abort()
		return pake.ErrAuthentication
	}

	p.stage = stageConfirmed

	return nil
}

// SessionKey hands the session key to the caller. It is available as soon as
// the key is derived; callers requiring explicit confirmation call
// VerifyConfirmation first.
func (p *Party) SessionKey() (*secret.Key, error) {
	if (p.stage != stageKeyDerived && p.stage != stageConfirmed) || p.key == nil {
		return nil, pake.ErrState
	}

	key := p.key
	p.key = nil

	return key, nil
}

// Abort destroys the session and wipes all secret material.
func (p *Party) Abort() {
	internal.ClearScalar(&p.x)
	internal.ClearScalar(&p.w)

	if p.key != nil {
		p.key.Wipe()
		p.key = nil
	}

	internal.ClearSlice(&p.ownTag)
	internal.ClearSlice(&p.expectedTag)
	p.stage = stageFailed
}

func (p *Party) fail(err error) error {
	p.Abort()
	return err
}
