// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package srp

import (
	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal/encoding"
)

// ClientHello is the client's opening message: its identity and the
// ephemeral public value A. It carries no secret material and is safe to
// log.
type ClientHello struct {
	Identity  []byte
	Ephemeral []byte
}

// Serialize returns the byte encoding of the message: the length-prefixed
// identity followed by the fixed-width A.
func (m *ClientHello) Serialize() []byte {
	return append(encoding.EncodeVector(m.Identity), m.Ephemeral...)
}

// DeserializeClientHello parses a ClientHello, checking the fixed element
// width.
func (c *Configuration) DeserializeClientHello(in []byte) (*ClientHello, error) {
	identity, offset, err := encoding.DecodeVector(in)
	if err != nil {
		return nil, pake.ErrEncoding.Join(err)
	}

	if len(identity) == 0 {
		return nil, pake.ErrEncoding.Join(errEmptyIdentity)
	}

	ephemeral := in[offset:]
	if len(ephemeral) != c.Group.ByteLength() {
		return nil, pake.ErrEncoding.Join(errElementLength)
	}

	return &ClientHello{Identity: identity, Ephemeral: ephemeral}, nil
}

// ServerChallenge is the server's reply: the registration salt and the
// ephemeral public value B.
type ServerChallenge struct {
	Salt      []byte
	Ephemeral []byte
}

// Serialize returns the byte encoding of the message.
func (m *ServerChallenge) Serialize() []byte {
	return append(encoding.EncodeVector(m.Salt), m.Ephemeral...)
}

// DeserializeServerChallenge parses a ServerChallenge, checking the salt and
// element widths.
func (c *Configuration) DeserializeServerChallenge(in []byte) (*ServerChallenge, error) {
	salt, offset, err := encoding.DecodeVector(in)
	if err != nil {
		return nil, pake.ErrEncoding.Join(err)
	}

	if len(salt) != c.saltLength() {
		return nil, pake.ErrEncoding.Join(errSaltLength)
	}

	ephemeral := in[offset:]
	if len(ephemeral) != c.Group.ByteLength() {
		return nil, pake.ErrEncoding.Join(errElementLength)
	}

	return &ServerChallenge{Salt: salt, Ephemeral: ephemeral}, nil
}

// ClientProof carries M1, the client's confirmation tag over the transcript.
type ClientProof struct {
	Proof []byte
}

// Serialize returns the byte encoding of the message.
func (m *ClientProof) Serialize() []byte {
	return append([]byte(nil), m.Proof...)
}

// DeserializeClientProof parses a ClientProof, checking the tag width.
func (c *Configuration) DeserializeClientProof(in []byte) (*ClientProof, error) {
	if len(in) != c.hash().Size() {
		return nil, pake.ErrEncoding.Join(errProofLength)
	}

	return &ClientProof{Proof: append([]byte(nil), in...)}, nil
}

// ServerProof carries M2, the server's confirmation tag over the transcript.
type ServerProof struct {
	Proof []byte
}

// Serialize returns the byte encoding of the message.
func (m *ServerProof) Serialize() []byte {
	return append([]byte(nil), m.Proof...)
}

// DeserializeServerProof parses a ServerProof, checking the tag width.
func (c *Configuration) DeserializeServerProof(in []byte) (*ServerProof, error) {
	if len(in) != c.hash().Size() {
		return nil, pake.ErrEncoding.Join(errProofLength)
	}

	return &ServerProof{Proof: append([]byte(nil), in...)}, nil
}
