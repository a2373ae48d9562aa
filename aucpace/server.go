// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package aucpace

import (
	"errors"

	"github.com/bytemare/ecc"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal"
	"github.com/thatnewyorker/pake/internal/tag"
	"github.com/thatnewyorker/pake/secret"
)

// Server holds one side's state for a single AuCPace handshake. A Server is
// single-use; the databases and the long-term keypair are shared across
// sessions and only read during authentication.
type Server struct {
	conf        *Configuration
	db          Database
	strongDB    StrongDatabase
	keypair     *LongTermKeypair
	fallbackKey []byte

	nonce []byte
	ssid  []byte

	prs []byte
	y   *ecc.Scalar

	sk1        []byte
	ta         []byte
	expectedTb []byte
	key        *secret.Key

	stage stage
}

// NewServer prepares a server session for the base augmented variant. The
// fallback key is a long-term secret of at least 16 bytes keying the fake
// credentials served for unknown usernames; it must stay fixed across
// sessions for the fallback to be consistent per username.
func NewServer(conf *Configuration, db Database, fallbackKey []byte) (*Server, error) {
	if err := verifyServerSetup(conf, Augmented, fallbackKey); err != nil {
		return nil, err
	}

	if db == nil {
		return nil, pake.ErrConfiguration.Join(errors.New("no database"))
	}

	return &Server{
		conf:        conf,
		db:          db,
		fallbackKey: append([]byte(nil), fallbackKey...),
		stage:       stageCreated,
	}, nil
}

// NewStrongServer prepares a server session for the strong variant.
func NewStrongServer(conf *Configuration, db StrongDatabase, fallbackKey []byte) (*Server, error) {
	if err := verifyServerSetup(conf, StrongAugmented, fallbackKey); err != nil {
		return nil, err
	}

	if db == nil {
		return nil, pake.ErrConfiguration.Join(errors.New("no database"))
	}

	return &Server{
		conf:        conf,
		strongDB:    db,
		fallbackKey: append([]byte(nil), fallbackKey...),
		stage:       stageCreated,
	}, nil
}

// NewPartialServer prepares a server session for the partially augmented
// variant. The keypair is static: generated once at server setup and reused
// across sessions in place of the per-session exponent.
func NewPartialServer(
	conf *Configuration,
	db Database,
	keypair *LongTermKeypair,
	fallbackKey []byte,
) (*Server, error) {
	if err := verifyServerSetup(conf, PartiallyAugmented, fallbackKey); err != nil {
		return nil, err
	}

	if db == nil {
		return nil, pake.ErrConfiguration.Join(errors.New("no database"))
	}

	if keypair == nil {
		return nil, pake.ErrConfiguration.Join(errNoKeypair)
	}

	return &Server{
		conf:        conf,
		db:          db,
		keypair:     keypair,
		fallbackKey: append([]byte(nil), fallbackKey...),
		stage:       stageCreated,
	}, nil
}

func verifyServerSetup(conf *Configuration, variant Variant, fallbackKey []byte) error {
	if err := conf.verify(); err != nil {
		return err
	}

	if conf.Variant != variant {
		return pake.ErrConfiguration.Join(errVariantMismatch)
	}

	if len(fallbackKey) < 16 {
		return pake.ErrConfiguration.Join(errFallbackKeyShort)
	}

	return nil
}

// Begin draws the server nonce s and returns it.
func (s *Server) Begin(source pake.RandomSource) (*ServerMessage, error) {
	if s.stage != stageCreated {
		return nil, pake.ErrState
	}

	nonce, err := pake.RandomBytes(source, s.conf.nonceLength())
	if err != nil {
		return nil, err
	}

	s.nonce = nonce
	s.stage = stageNonceSent

	return &ServerMessage{Kind: KindServerNonce, Nonce: nonce}, nil
}

// EstablishSSID consumes the client nonce t and fixes the session identifier
// ssid = H0(s || t).
func (s *Server) EstablishSSID(message *ClientMessage) error {
	if s.stage != stageNonceSent {
		return pake.ErrState
	}

	if message.Kind != KindClientNonce {
		return s.failErr(pake.ErrEncoding.Join(errVariantMismatch))
	}

	if len(message.Nonce) != s.conf.nonceLength() {
		return s.failErr(pake.ErrEncoding.Join(errNonceLength))
	}

	s.ssid = s.conf.computeSSID(s.nonce, message.Nonce)
	s.stage = stageSSIDSet

	return nil
}

// WithPreestablishedSSID skips the nonce exchange and uses an ssid agreed by
// the surrounding protocol.
func (s *Server) WithPreestablishedSSID(ssid []byte) error {
	if s.stage != stageCreated {
		return pake.ErrState
	}

	if len(ssid) < MinSSIDLength {
		return pake.ErrConfiguration.Join(errShortSSID)
	}

	s.ssid = append([]byte(nil), ssid...)
	s.stage = stageSSIDSet

	return nil
}

// ProcessAugmentationRequest consumes the client's augmentation request and
// returns the augmentation info for the configured variant: the server
// public key, the salt material, and the KSF the client must apply. Unknown
// usernames are answered from the deterministic fallback branch so they are
// indistinguishable on the wire from wrong-password attempts.
func (s *Server) ProcessAugmentationRequest(
	source pake.RandomSource,
	message *ClientMessage,
) (*ServerMessage, error) {
	if s.stage != stageSSIDSet {
		return nil, pake.ErrState
	}

	if s.conf.Variant == StrongAugmented {
		if message.Kind != KindStrongUsername {
			return nil, s.failErr(pake.ErrEncoding.Join(errVariantMismatch))
		}

		return s.strongAugmentation(source, message)
	}

	if message.Kind != KindUsername {
		return nil, s.failErr(pake.ErrEncoding.Join(errVariantMismatch))
	}

	return s.augmentation(source, message)
}

func (s *Server) augmentation(source pake.RandomSource, message *ClientMessage) (*ServerMessage, error) {
	record, err := s.lookupRecord(message.Username)
	if err != nil {
		return nil, s.failErr(err)
	}

	verifier := s.conf.Group.NewElement()
	if err := verifier.Decode(record.Verifier); err != nil {
		return nil, s.failErr(pake.ErrEncoding.Join(err))
	}

	x, public, err := s.exponent(source)
	if err != nil {
		return nil, s.failErr(err)
	}

	s.prs = verifier.Multiply(x).Encode()
	internal.ClearScalar(&x)

	s.stage = stageAugmentation

	return &ServerMessage{
		Kind:      KindAugmentationInfo,
		KSF:       record.KSF,
		PublicKey: public,
		Salt:      record.Salt,
	}, nil
}

func (s *Server) strongAugmentation(source pake.RandomSource, message *ClientMessage) (*ServerMessage, error) {
	blinded := s.conf.Group.NewElement()
	if err := blinded.Decode(message.Blinded); err != nil {
		return nil, s.failErr(pake.ErrInvalidPeer.Join(err))
	}

	if blinded.IsIdentity() {
		return nil, s.failErr(pake.ErrInvalidPeer)
	}

	record, err := s.lookupStrongRecord(message.Username)
	if err != nil {
		return nil, s.failErr(err)
	}

	verifier := s.conf.Group.NewElement()
	if err := verifier.Decode(record.Verifier); err != nil {
		return nil, s.failErr(pake.ErrEncoding.Join(err))
	}

	q := s.conf.Group.NewScalar()
	if err := q.Decode(record.Exponent); err != nil {
		return nil, s.failErr(pake.ErrEncoding.Join(err))
	}

	blindedSalt := blinded.Multiply(q)
	internal.ClearScalar(&q)

	x, public, err := s.exponent(source)
	if err != nil {
		return nil, s.failErr(err)
	}

	s.prs = verifier.Multiply(x).Encode()
	internal.ClearScalar(&x)

	s.stage = stageAugmentation

	return &ServerMessage{
		Kind:        KindStrongAugmentationInfo,
		KSF:         record.KSF,
		PublicKey:   public,
		BlindedSalt: blindedSalt.Encode(),
	}, nil
}

// exponent returns the augmentation exponent and its public key: a fresh
// draw per session, or the static keypair in the partially augmented
// variant.
func (s *Server) exponent(source pake.RandomSource) (*ecc.Scalar, []byte, error) {
	if s.conf.Variant == PartiallyAugmented {
		x := s.conf.Group.NewScalar()
		if err := x.Decode(s.keypair.private.Expose()); err != nil {
			return nil, nil, pake.ErrConfiguration.Join(err)
		}

		return x, s.keypair.PublicKey(), nil
	}

	x, err := pake.RandomScalar(source, s.conf.Group)
	if err != nil {
		return nil, nil, err
	}

	return x, s.conf.Group.Base().Multiply(x).Encode(), nil
}

// CPaceStart derives the session generator from ssid and PRS, draws the
// ephemeral scalar, and returns the public point.
func (s *Server) CPaceStart(source pake.RandomSource) (*ServerMessage, error) {
	if s.stage != stageAugmentation {
		return nil, pake.ErrState
	}

	y, err := pake.RandomScalar(source, s.conf.Group)
	if err != nil {
		return nil, err
	}

	generator := s.conf.generator(s.ssid, s.prs)
	internal.ClearSlice(&s.prs)

	public := generator.Multiply(y)

	s.y = y
	s.stage = stageCPaceStarted

	return &ServerMessage{Kind: KindServerPublicKey, Element: public.Encode()}, nil
}

// CPaceFinish consumes the client's public point, computes the shared point
// K, derives sk1 with both authenticators and the session key, and returns
// the server authenticator Ta. The server authenticates first; the client's
// Tb is only accepted afterwards.
func (s *Server) CPaceFinish(message *ClientMessage) (*ServerMessage, error) {
	if s.stage != stageCPaceStarted {
		return nil, pake.ErrState
	}

	if message.Kind != KindClientPublicKey {
		return nil, s.failErr(pake.ErrEncoding.Join(errVariantMismatch))
	}

	peer := s.conf.Group.NewElement()
	if err := peer.Decode(message.Element); err != nil {
		return nil, s.failErr(pake.ErrInvalidPeer.Join(err))
	}

	if peer.IsIdentity() {
		return nil, s.failErr(pake.ErrInvalidPeer)
	}

	shared := peer.Multiply(s.y)
	if shared.IsIdentity() {
		return nil, s.failErr(pake.ErrInvalidPeer)
	}

	internal.ClearScalar(&s.y)

	s.sk1 = s.conf.intermediateKey(s.ssid, shared)
	shared.Identity()

	s.ta = s.conf.serverAuthenticator(s.ssid, s.sk1)
	s.expectedTb = s.conf.clientAuthenticator(s.ssid, s.sk1)
	s.key = s.conf.sessionKey(s.ssid, s.sk1)

	internal.ClearSlice(&s.sk1)
	s.stage = stageKeyEstablished

	return &ServerMessage{
		Kind: KindServerAuthenticator,
		Tag:  append([]byte(nil), s.ta...),
	}, nil
}

// VerifyClientAuthenticator checks the client's explicit authenticator Tb.
// On a mismatch the session is destroyed without releasing the key.
func (s *Server) VerifyClientAuthenticator(message *ClientMessage) error {
	if s.stage != stageKeyEstablished {
		return pake.ErrState
	}

	if message.Kind != KindClientAuthenticator {
		return s.failErr(pake.ErrEncoding.Join(errVariantMismatch))
	}

	if !pake.ConstantTimeCompare(s.expectedTb, message.Tag) {
		s.Abort()
		return pake.ErrAuthentication
	}

	s.stage = stageConfirmed

	return nil
}

// SessionKey hands the session key to the caller once the client has been
// authenticated.
func (s *Server) SessionKey() (*secret.Key, error) {
	if s.stage != stageConfirmed || s.key == nil {
		return nil, pake.ErrState.Join(errNotConfirmed)
	}

	key := s.key
	s.key = nil

	return key, nil
}

// Abort destroys the session and wipes all secret material. The long-term
// keypair and the fallback key are shared across sessions and left intact.
func (s *Server) Abort() {
	internal.ClearScalar(&s.y)
	internal.ClearSlice(&s.prs)
	internal.ClearSlice(&s.sk1)
	internal.ClearSlice(&s.ta)
	internal.ClearSlice(&s.expectedTb)

	if s.key != nil {
		s.key.Wipe()
		s.key = nil
	}

	s.stage = stageFailed
}

func (s *Server) failErr(err error) error {
	s.Abort()
	return err
}

// lookupRecord loads the username's record, falling back to deterministic
// fake credentials when none exists. The fake salt and verifier are a keyed
// PRF of the username, so repeated probes for the same unknown username see
// consistent answers. Store failures other than a missing record propagate.
func (s *Server) lookupRecord(username []byte) (*Record, error) {
	record, err := s.db.LookupRecord(username)
	if err == nil {
		return record, nil
	}

	if !errors.Is(err, pake.ErrLookup) {
		return nil, pake.ErrLookup.Join(err)
	}

	mac := s.conf.mac()

	salt := mac.MAC(s.fallbackKey, append([]byte(tag.AuCPaceFallbackSalt), username...))
	for len(salt) < DefaultSaltLength {
		salt = append(salt, mac.MAC(s.fallbackKey, salt)...)
	}
	salt = salt[:DefaultSaltLength]

	return &Record{
		Username: append([]byte(nil), username...),
		Salt:     salt,
		Verifier: s.fallbackVerifier(username),
		KSF:      s.conf.KSF,
	}, nil
}

// lookupStrongRecord is the strong-variant counterpart of lookupRecord. The
// fake salt exponent is derived the same way, so the blinded salt answered
// for an unknown username is a valid non-identity point.
func (s *Server) lookupStrongRecord(username []byte) (*StrongRecord, error) {
	record, err := s.strongDB.LookupStrongRecord(username)
	if err == nil {
		return record, nil
	}

	if !errors.Is(err, pake.ErrLookup) {
		return nil, pake.ErrLookup.Join(err)
	}

	seed := s.conf.mac().MAC(s.fallbackKey, append([]byte(tag.AuCPaceFallbackExponent), username...))
	q := s.conf.Group.HashToScalar(seed, []byte(tag.AuCPaceFallbackExponent))
	secret.Wipe(seed)

	exponent := q.Encode()
	internal.ClearScalar(&q)

	return &StrongRecord{
		Username: append([]byte(nil), username...),
		Exponent: exponent,
		Verifier: s.fallbackVerifier(username),
		KSF:      s.conf.KSF,
	}, nil
}

// fallbackVerifier derives the deterministic fake verifier W' = g * w' for
// an unknown username.
func (s *Server) fallbackVerifier(username []byte) []byte {
	seed := s.conf.mac().MAC(s.fallbackKey, append([]byte(tag.AuCPaceFallbackVerifier), username...))
	w := s.conf.Group.HashToScalar(seed, []byte(tag.AuCPaceFallbackVerifier))
	secret.Wipe(seed)

	verifier := s.conf.Group.Base().Multiply(w)
	internal.ClearScalar(&w)

	return verifier.Encode()
}
