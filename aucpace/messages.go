// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package aucpace

import (
	"errors"

	"github.com/bytemare/ksf"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal/encoding"
)

var (
	errShortMessage  = errors.New("message too short")
	errBadKind       = errors.New("unknown message kind")
	errTrailingBytes = errors.New("trailing bytes after message")
	errElementLength = errors.New("element encoding has wrong length")
	errTagLength     = errors.New("authenticator tag has wrong length")
	errBadKSF        = errors.New("unknown key stretching function identifier")
)

// MessageKind discriminates the wire messages. Each protocol step produces
// exactly one kind; receiving a different kind than the current step expects
// is a protocol failure, which is how variant mismatches surface.
type MessageKind byte

const (
	// KindClientNonce carries the client nonce t.
	KindClientNonce MessageKind = 1 + iota

	// KindUsername requests augmentation info for the base and partially
	// augmented variants.
	KindUsername

	// KindStrongUsername requests augmentation info for the strong variant,
	// carrying the blinded salt request point U.
	KindStrongUsername

	// KindClientPublicKey carries the client's CPace public point.
	KindClientPublicKey

	// KindClientAuthenticator carries the client's explicit authenticator.
	KindClientAuthenticator

	// KindServerNonce carries the server nonce s.
	KindServerNonce

	// KindAugmentationInfo answers a KindUsername request.
	KindAugmentationInfo

	// KindStrongAugmentationInfo answers a KindStrongUsername request with
	// the blinded salt point U*q in place of cleartext salt bytes.
	KindStrongAugmentationInfo

	// KindServerPublicKey carries the server's CPace public point.
	KindServerPublicKey

	// KindServerAuthenticator carries the server's explicit authenticator.
	KindServerAuthenticator
)

// ClientMessage is a tagged union of all client-to-server messages. Only the
// fields of the indicated kind are set.
type ClientMessage struct {
	Nonce    []byte
	Username []byte
	Blinded  []byte
	Element  []byte
	Tag      []byte
	Kind     MessageKind
}

// Serialize returns the byte encoding of the message, a kind byte followed
// by the kind's fields.
func (m *ClientMessage) Serialize() []byte {
	out := []byte{byte(m.Kind)}

	switch m.Kind {
	case KindClientNonce:
		out = append(out, m.Nonce...)
	case KindUsername:
		out = append(out, encoding.EncodeVector(m.Username)...)
	case KindStrongUsername:
		out = append(out, encoding.EncodeVector(m.Username)...)
		out = append(out, m.Blinded...)
	case KindClientPublicKey:
		out = append(out, m.Element...)
	case KindClientAuthenticator:
		out = append(out, m.Tag...)
	}

	return out
}

// DeserializeClientMessage parses a ClientMessage, checking all fixed
// widths.
func (c *Configuration) DeserializeClientMessage(in []byte) (*ClientMessage, error) {
	if len(in) < 1 {
		return nil, pake.ErrEncoding.Join(errShortMessage)
	}

	m := &ClientMessage{Kind: MessageKind(in[0])}
	body := in[1:]

	switch m.Kind {
	case KindClientNonce:
		if len(body) != c.nonceLength() {
			return nil, pake.ErrEncoding.Join(errNonceLength)
		}

		m.Nonce = append([]byte(nil), body...)
	case KindUsername:
		username, offset, err := encoding.DecodeVector(body)
		if err != nil {
			return nil, pake.ErrEncoding.Join(err)
		}

		if len(username) == 0 {
			return nil, pake.ErrEncoding.Join(errEmptyUsername)
		}

		if offset != len(body) {
			return nil, pake.ErrEncoding.Join(errTrailingBytes)
		}

		m.Username = username
	case KindStrongUsername:
		username, offset, err := encoding.DecodeVector(body)
		if err != nil {
			return nil, pake.ErrEncoding.Join(err)
		}

		if len(username) == 0 {
			return nil, pake.ErrEncoding.Join(errEmptyUsername)
		}

		if len(body)-offset != c.Group.ElementLength() {
			return nil, pake.ErrEncoding.Join(errElementLength)
		}

		m.Username = username
		m.Blinded = append([]byte(nil), body[offset:]...)
	case KindClientPublicKey:
		if len(body) != c.Group.ElementLength() {
			return nil, pake.ErrEncoding.Join(errElementLength)
		}

		m.Element = append([]byte(nil), body...)
	case KindClientAuthenticator:
		if len(body) != c.hash().Size() {
			return nil, pake.ErrEncoding.Join(errTagLength)
		}

		m.Tag = append([]byte(nil), body...)
	default:
		return nil, pake.ErrEncoding.Join(errBadKind)
	}

	return m, nil
}

// ServerMessage is a tagged union of all server-to-client messages. Only the
// fields of the indicated kind are set.
type ServerMessage struct {
	Nonce       []byte
	PublicKey   []byte
	Salt        []byte
	BlindedSalt []byte
	Element     []byte
	Tag         []byte
	KSF         ksf.Identifier
	Kind        MessageKind
}

// Serialize returns the byte encoding of the message.
func (m *ServerMessage) Serialize() []byte {
	out := []byte{byte(m.Kind)}

	switch m.Kind {
	case KindServerNonce:
		out = append(out, m.Nonce...)
	case KindAugmentationInfo:
		out = append(out, byte(m.KSF))
		out = append(out, m.PublicKey...)
		out = append(out, encoding.EncodeVector(m.Salt)...)
	case KindStrongAugmentationInfo:
		out = append(out, byte(m.KSF))
		out = append(out, m.PublicKey...)
		out = append(out, m.BlindedSalt...)
	case KindServerPublicKey:
		out = append(out, m.Element...)
	case KindServerAuthenticator:
		out = append(out, m.Tag...)
	}

	return out
}

// DeserializeServerMessage parses a ServerMessage, checking all fixed
// widths.
func (c *Configuration) DeserializeServerMessage(in []byte) (*ServerMessage, error) {
	if len(in) < 1 {
		return nil, pake.ErrEncoding.Join(errShortMessage)
	}

	m := &ServerMessage{Kind: MessageKind(in[0])}
	body := in[1:]
	elementLen := c.Group.ElementLength()

	switch m.Kind {
	case KindServerNonce:
		if len(body) != c.nonceLength() {
			return nil, pake.ErrEncoding.Join(errNonceLength)
		}

		m.Nonce = append([]byte(nil), body...)
	case KindAugmentationInfo:
		if len(body) < 1+elementLen {
			return nil, pake.ErrEncoding.Join(errShortMessage)
		}

		m.KSF = ksf.Identifier(body[0])
		if m.KSF != 0 && !m.KSF.Available() {
			return nil, pake.ErrEncoding.Join(errBadKSF)
		}

		m.PublicKey = append([]byte(nil), body[1:1+elementLen]...)

		salt, offset, err := encoding.DecodeVector(body[1+elementLen:])
		if err != nil {
			return nil, pake.ErrEncoding.Join(err)
		}

		if 1+elementLen+offset != len(body) {
			return nil, pake.ErrEncoding.Join(errTrailingBytes)
		}

		m.Salt = salt
	case KindStrongAugmentationInfo:
		if len(body) != 1+2*elementLen {
			return nil, pake.ErrEncoding.Join(errShortMessage)
		}

		m.KSF = ksf.Identifier(body[0])
		if m.KSF != 0 && !m.KSF.Available() {
			return nil, pake.ErrEncoding.Join(errBadKSF)
		}

		m.PublicKey = append([]byte(nil), body[1:1+elementLen]...)
		m.BlindedSalt = append([]byte(nil), body[1+elementLen:]...)
	case KindServerPublicKey:
		if len(body) != elementLen {
			return nil, pake.ErrEncoding.Join(errElementLength)
		}

		m.Element = append([]byte(nil), body...)
	case KindServerAuthenticator:
		if len(body) != c.hash().Size() {
			return nil, pake.ErrEncoding.Join(errTagLength)
		}

		m.Tag = append([]byte(nil), body...)
	default:
		return nil, pake.ErrEncoding.Join(errBadKind)
	}

	return m, nil
}
