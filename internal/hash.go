// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package internal provides the digest, KDF, MAC, and key-stretching
// capability wrappers the protocol engines are parametrized over.
package internal

import (
	"crypto"
	"crypto/hmac"
	"encoding/binary"

	"github.com/bytemare/hash"
)

// NewHash returns a newly instantiated Hash.
func NewHash(id crypto.Hash) *Hash {
	return &Hash{id: id}
}

// Hash wraps a hash function and exposes one-shot hashing methods. A fresh
// digest state is created per call, so a Hash is safe for reuse across
// protocol steps.
type Hash struct {
	id crypto.Hash
}

// Size returns the output size of the hash function.
func (h *Hash) Size() int {
	return hash.FromCrypto(h.id).GetHashFunction().Size()
}

// Hash returns the digest of the concatenation of the input parts.
func (h *Hash) Hash(parts ...[]byte) []byte {
	f := hash.FromCrypto(h.id).GetHashFunction()
	for _, p := range parts {
		_, _ = f.Write(p)
	}

	return f.Sum(nil)
}

// Numbered returns the digest of the input parts with the hash state seeded
// by the little-endian encoding of n. The AuCPace sub-protocols use the
// numbered hashes H0 through H5 for domain separation.
func (h *Hash) Numbered(n uint32, parts ...[]byte) []byte {
	var counter [4]byte

	binary.LittleEndian.PutUint32(counter[:], n)

	f := hash.FromCrypto(h.id).GetHashFunction()
	_, _ = f.Write(counter[:])

	for _, p := range parts {
		_, _ = f.Write(p)
	}

	return f.Sum(nil)
}

// NewKDF returns a newly instantiated KDF.
func NewKDF(id crypto.Hash) *KDF {
	return &KDF{h: hash.FromCrypto(id).GetHashFunction()}
}

// KDF wraps a hash function and exposes KDF methods.
type KDF struct {
	h *hash.Fixed
}

// Extract exposes an Extract only KDF method.
func (k *KDF) Extract(salt, ikm []byte) []byte {
	return k.h.HKDFExtract(ikm, salt)
}

// Expand exposes an Expand only KDF method.
func (k *KDF) Expand(key, info []byte, length int) []byte {
	return k.h.HKDFExpand(key, info, length)
}

// Size returns the output size of the Extract method.
func (k *KDF) Size() int {
	return k.h.Size()
}

// NewMac returns a newly instantiated Mac.
func NewMac(id crypto.Hash) *Mac {
	return &Mac{h: hash.FromCrypto(id).GetHashFunction()}
}

// Mac wraps a hash function and exposes Message Authentication Code methods.
type Mac struct {
	h *hash.Fixed
}

// Equal returns a constant-time comparison of the input.
func (m *Mac) Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// MAC computes a MAC over the message using key.
func (m *Mac) MAC(key, message []byte) []byte {
	return m.h.Hmac(message, key)
}

// Size returns the MAC's output length.
func (m *Mac) Size() int {
	return m.h.Size()
}
