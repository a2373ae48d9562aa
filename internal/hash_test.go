// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package internal_test

import (
	"crypto"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thatnewyorker/pake/internal"
)

func TestHash(t *testing.T) {
	h := internal.NewHash(crypto.SHA256)

	require.Equal(t, 32, h.Size())
	require.Len(t, h.Hash([]byte("in")), 32)

	// One-shot hashing is stateless across calls.
	require.Equal(t, h.Hash([]byte("in")), h.Hash([]byte("in")))
	require.NotEqual(t, h.Hash([]byte("in")), h.Hash([]byte("other")))

	// Concatenation boundaries do not matter for the plain digest.
	require.Equal(t, h.Hash([]byte("ab"), []byte("cd")), h.Hash([]byte("abcd")))
}

func TestNumberedHash(t *testing.T) {
	h := internal.NewHash(crypto.SHA512)
	in := []byte("session-id")

	// Distinct counters domain-separate identical inputs.
	require.NotEqual(t, h.Numbered(0, in), h.Numbered(1, in))
	require.Equal(t, h.Numbered(3, in), h.Numbered(3, in))

	// The counter is part of the hash state, not a parallel input: H3(x)
	// differs from H(x) even though both hash the same payload.
	require.NotEqual(t, h.Numbered(3, in), h.Hash(in))
}

func TestMac(t *testing.T) {
	m := internal.NewMac(crypto.SHA256)
	key := []byte("0123456789abcdef")

	tag := m.MAC(key, []byte("message"))
	require.Len(t, tag, m.Size())
	require.Equal(t, tag, m.MAC(key, []byte("message")))
	require.NotEqual(t, tag, m.MAC(key, []byte("other")))
	require.NotEqual(t, tag, m.MAC([]byte("fedcba9876543210"), []byte("message")))

	require.True(t, m.Equal(tag, append([]byte(nil), tag...)))
	require.False(t, m.Equal(tag, m.MAC(key, []byte("other"))))
}

func TestKDF(t *testing.T) {
	k := internal.NewKDF(crypto.SHA256)

	prk := k.Extract([]byte("salt"), []byte("input keying material"))
	require.Len(t, prk, k.Size())

	okm := k.Expand(prk, []byte("info"), 42)
	require.Len(t, okm, 42)
	require.Equal(t, okm, k.Expand(prk, []byte("info"), 42))
	require.NotEqual(t, okm[:32], k.Expand(prk, []byte("other"), 32))
}

func TestIdentityKSF(t *testing.T) {
	ksf := internal.NewKSF(0)

	out := ksf.Harden([]byte("password"), []byte("salt"), 32)
	require.Equal(t, []byte("password"), out)
}
