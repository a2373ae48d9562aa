// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package aucpace

import (
	"github.com/bytemare/ecc"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal"
	"github.com/thatnewyorker/pake/secret"
)

type stage byte

const (
	stageCreated stage = iota
	stageNonceSent
	stageSSIDSet
	stageAugmentation
	stagePRSReady
	stageCPaceStarted
	stageKeyEstablished
	stageConfirmed
	stageFailed
)

// Client holds one side's state for a single AuCPace handshake. A Client is
// single-use and not safe for concurrent use; the caller serializes calls
// per session.
type Client struct {
	conf     *Configuration
	username []byte
	password *secret.Bytes

	nonce []byte
	ssid  []byte

	blind *ecc.Scalar
	prs   []byte

	y *ecc.Scalar

	sk1        []byte
	expectedTa []byte
	tb         []byte
	key        *secret.Key

	stage stage
}

// NewClient prepares a client session for the username and password. The
// password is copied into a zeroizing container; the caller keeps ownership
// of its own buffer.
func NewClient(conf *Configuration, username, password []byte) (*Client, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	if len(username) == 0 {
		return nil, pake.ErrConfiguration.Join(errEmptyUsername)
	}

	return &Client{
		conf:     conf,
		username: append([]byte(nil), username...),
		password: secret.NewBytes(append([]byte(nil), password...)),
		stage:    stageCreated,
	}, nil
}

// Begin draws the client nonce t and returns it. The nonces are public but
// must be unpredictable; they only serve to bind both sides to one fresh
// session identifier.
func (c *Client) Begin(source pake.RandomSource) (*ClientMessage, error) {
	if c.stage != stageCreated {
		return nil, pake.ErrState
	}

	nonce, err := pake.RandomBytes(source, c.conf.nonceLength())
	if err != nil {
		return nil, err
	}

	c.nonce = nonce
	c.stage = stageNonceSent

	return &ClientMessage{Kind: KindClientNonce, Nonce: nonce}, nil
}

// EstablishSSID consumes the server nonce s and fixes the session identifier
// ssid = H0(s || t).
func (c *Client) EstablishSSID(message *ServerMessage) error {
	if c.stage != stageNonceSent {
		return pake.ErrState
	}

	if message.Kind != KindServerNonce {
		return c.failErr(pake.ErrEncoding.Join(errVariantMismatch))
	}

	if len(message.Nonce) != c.conf.nonceLength() {
		return c.failErr(pake.ErrEncoding.Join(errNonceLength))
	}

	c.ssid = c.conf.computeSSID(message.Nonce, c.nonce)
	c.stage = stageSSIDSet

	return nil
}

// WithPreestablishedSSID skips the nonce exchange and uses an ssid agreed by
// the surrounding protocol. The ssid must carry enough entropy to be unique
// per session.
func (c *Client) WithPreestablishedSSID(ssid []byte) error {
	if c.stage != stageCreated {
		return pake.ErrState
	}

	if len(ssid) < MinSSIDLength {
		return pake.ErrConfiguration.Join(errShortSSID)
	}

	c.ssid = append([]byte(nil), ssid...)
	c.stage = stageSSIDSet

	return nil
}

// RequestAugmentation returns the augmentation request for the configured
// variant. The base and partially augmented variants send the username in
// the clear; the strong variant additionally sends the blinded salt request
// point U = r * saltPoint(username, password).
func (c *Client) RequestAugmentation(source pake.RandomSource) (*ClientMessage, error) {
	if c.stage != stageSSIDSet {
		return nil, pake.ErrState
	}

	if c.conf.Variant != StrongAugmented {
		c.stage = stageAugmentation

		return &ClientMessage{
			Kind:     KindUsername,
			Username: append([]byte(nil), c.username...),
		}, nil
	}

	r, err := pake.RandomScalar(source, c.conf.Group)
	if err != nil {
		return nil, err
	}

	blinded := c.conf.saltPoint(c.username, c.password.Expose()).Multiply(r)

	c.blind = r
	c.stage = stageAugmentation

	return &ClientMessage{
		Kind:     KindStrongUsername,
		Username: append([]byte(nil), c.username...),
		Blinded:  blinded.Encode(),
	}, nil
}

// ProcessAugmentationInfo consumes the server's public key and salt
// material, recovers the salt (unblinding it in the strong variant), and
// derives the password-related string PRS = w * X_pub. The password and the
// blinding scalar are wiped before returning.
func (c *Client) ProcessAugmentationInfo(message *ServerMessage) error {
	if c.stage != stageAugmentation {
		return pake.ErrState
	}

	expectedKind := KindAugmentationInfo
	if c.conf.Variant == StrongAugmented {
		expectedKind = KindStrongAugmentationInfo
	}

	if message.Kind != expectedKind {
		return c.failErr(pake.ErrEncoding.Join(errVariantMismatch))
	}

	if message.KSF != 0 && !message.KSF.Available() {
		return c.failErr(pake.ErrEncoding.Join(errBadKSF))
	}

	serverPublic := c.conf.Group.NewElement()
	if err := serverPublic.Decode(message.PublicKey); err != nil {
		return c.failErr(pake.ErrInvalidPeer.Join(err))
	}

	if serverPublic.IsIdentity() {
		return c.failErr(pake.ErrInvalidPeer)
	}

	salt, err := c.recoverSalt(message)
	if err != nil {
		return c.failErr(err)
	}

	w := c.conf.passwordScalar(message.KSF, c.username, c.password.Expose(), salt)
	if c.conf.Variant == StrongAugmented {
		secret.Wipe(salt)
	}

	if w.IsZero() {
		internal.ClearScalar(&w)
		return c.failErr(pake.ErrZeroChallenge)
	}

	prs := serverPublic.Multiply(w).Encode()

	internal.ClearScalar(&w)
	c.password.Wipe()

	c.prs = prs
	c.stage = stagePRSReady

	return nil
}

// recoverSalt returns the salt for the password scalar derivation. In the
// strong variant the server's blinded salt point U*q is unblinded with the
// inverse of the request scalar r, yielding q * saltPoint(username,
// password) without the salt ever crossing the wire.
func (c *Client) recoverSalt(message *ServerMessage) ([]byte, error) {
	if c.conf.Variant != StrongAugmented {
		if len(message.Salt) == 0 {
			return nil, pake.ErrEncoding.Join(errShortMessage)
		}

		return message.Salt, nil
	}

	blindedSalt := c.conf.Group.NewElement()
	if err := blindedSalt.Decode(message.BlindedSalt); err != nil {
		return nil, pake.ErrInvalidPeer.Join(err)
	}

	if blindedSalt.IsIdentity() {
		return nil, pake.ErrInvalidPeer
	}

	rInv := c.blind.Copy().Invert()
	salt := blindedSalt.Multiply(rInv).Encode()

	internal.ClearScalar(&rInv)
	internal.ClearScalar(&c.blind)

	return salt, nil
}

// CPaceStart derives the session generator from ssid and PRS, draws the
// ephemeral scalar, and returns the public point. The PRS is wiped once the
// generator is fixed.
func (c *Client) CPaceStart(source pake.RandomSource) (*ClientMessage, error) {
	if c.stage != stagePRSReady {
		return nil, pake.ErrState
	}

	y, err := pake.RandomScalar(source, c.conf.Group)
	if err != nil {
		return nil, err
	}

	generator := c.conf.generator(c.ssid, c.prs)
	internal.ClearSlice(&c.prs)

	public := generator.Multiply(y)

	c.y = y
	c.stage = stageCPaceStarted

	return &ClientMessage{Kind: KindClientPublicKey, Element: public.Encode()}, nil
}

// CPaceFinish consumes the server's public point, computes the shared point
// K, and derives the intermediate key sk1 with both authenticators and the
// session key. The ephemeral scalar is wiped before returning.
func (c *Client) CPaceFinish(message *ServerMessage) error {
	if c.stage != stageCPaceStarted {
		return pake.ErrState
	}

	if message.Kind != KindServerPublicKey {
		return c.failErr(pake.ErrEncoding.Join(errVariantMismatch))
	}

	peer := c.conf.Group.NewElement()
	if err := peer.Decode(message.Element); err != nil {
		return c.failErr(pake.ErrInvalidPeer.Join(err))
	}

	if peer.IsIdentity() {
		return c.failErr(pake.ErrInvalidPeer)
	}

	shared := peer.Multiply(c.y)
	if shared.IsIdentity() {
		return c.failErr(pake.ErrInvalidPeer)
	}

	internal.ClearScalar(&c.y)

	c.sk1 = c.conf.intermediateKey(c.ssid, shared)
	shared.Identity()

	c.expectedTa = c.conf.serverAuthenticator(c.ssid, c.sk1)
	c.tb = c.conf.clientAuthenticator(c.ssid, c.sk1)
	c.key = c.conf.sessionKey(c.ssid, c.sk1)

	internal.ClearSlice(&c.sk1)
	c.stage = stageKeyEstablished

	return nil
}

// VerifyServerAuthenticator checks the server's explicit authenticator Ta
// and, on success, returns the client's authenticator Tb. On a mismatch the
// session is destroyed and the key is never released.
func (c *Client) VerifyServerAuthenticator(message *ServerMessage) (*ClientMessage, error) {
	if c.stage != stageKeyEstablished {
		return nil, pake.ErrState
	}

	if message.Kind != KindServerAuthenticator {
		c.Abort()
		return nil, pake.ErrEncoding.Join(errVariantMismatch)
	}

	if !pake.ConstantTimeCompare(c.expectedTa, message.Tag) {
		c.Abort()
		return nil, pake.ErrAuthentication
	}

	c.stage = stageConfirmed

	return &ClientMessage{
		Kind: KindClientAuthenticator,
		Tag:  append([]byte(nil), c.tb...),
	}, nil
}

// SessionKey hands the session key to the caller once the server has been
// authenticated.
func (c *Client) SessionKey() (*secret.Key, error) {
	if c.stage != stageConfirmed || c.key == nil {
		return nil, pake.ErrState.Join(errNotConfirmed)
	}

	key := c.key
	c.key = nil

	return key, nil
}

// Abort destroys the session and wipes all secret material.
func (c *Client) Abort() {
	c.password.Wipe()
	internal.ClearScalar(&c.blind)
	internal.ClearScalar(&c.y)
	internal.ClearSlice(&c.prs)
	internal.ClearSlice(&c.sk1)
	internal.ClearSlice(&c.expectedTa)
	internal.ClearSlice(&c.tb)

	if c.key != nil {
		c.key.Wipe()
		c.key = nil
	}

	c.stage = stageFailed
}

func (c *Client) failErr(err error) error {
	c.Abort()
	return err
}
