// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package spake2_test

import (
	"crypto"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"errors"
	"testing"

	"github.com/bytemare/ecc"
	"github.com/stretchr/testify/require"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/spake2"
)

type failingSource struct{}

func (failingSource) Read([]byte) error {
	return errors.New("entropy exhausted")
}

func testConfiguration(group ecc.Group) *spake2.Configuration {
	return &spake2.Configuration{
		IdentityA: []byte("client"),
		IdentityB: []byte("server"),
		Group:     group,
		Hash:      crypto.SHA512,
	}
}

// exchange runs both message flows between two prepared parties and returns
// them with keys derived.
func exchange(t *testing.T, a, b *spake2.Party) {
	t.Helper()

	source := pake.CryptoRand{}

	msgA, err := a.Start(source)
	require.NoError(t, err)

	msgB, err := b.Start(source)
	require.NoError(t, err)

	require.NoError(t, a.Receive(msgB))
	require.NoError(t, b.Receive(msgA))
}

func TestExchange(t *testing.T) {
	password := []byte("pairing-code-1234")

	for _, group := range []ecc.Group{
		ecc.Ristretto255Sha512,
		ecc.P256Sha256,
		ecc.P384Sha384,
		ecc.P521Sha512,
	} {
		t.Run(group.String(), func(t *testing.T) {
			conf := testConfiguration(group)

			a, err := spake2.New(conf, spake2.RoleA, password)
			require.NoError(t, err)

			b, err := spake2.New(conf, spake2.RoleB, password)
			require.NoError(t, err)

			exchange(t, a, b)

			keyA, err := a.SessionKey()
			require.NoError(t, err)

			keyB, err := b.SessionKey()
			require.NoError(t, err)

			require.True(t, keyA.Equal(keyB))
			require.NotZero(t, keyA.Len())
		})
	}
}

func TestExchangeWithConfirmation(t *testing.T) {
	conf := testConfiguration(ecc.Ristretto255Sha512)
	password := []byte("pairing-code-1234")

	a, err := spake2.New(conf, spake2.RoleA, password)
	require.NoError(t, err)

	b, err := spake2.New(conf, spake2.RoleB, password)
	require.NoError(t, err)

	exchange(t, a, b)

	confA, err := a.Confirmation()
	require.NoError(t, err)

	confB, err := b.Confirmation()
	require.NoError(t, err)

	// Tags travel over the wire format.
	parsedB, err := conf.DeserializeConfirmation(confB.Serialize())
	require.NoError(t, err)
	require.NoError(t, a.VerifyConfirmation(parsedB))

	parsedA, err := conf.DeserializeConfirmation(confA.Serialize())
	require.NoError(t, err)
	require.NoError(t, b.VerifyConfirmation(parsedA))

	keyA, err := a.SessionKey()
	require.NoError(t, err)

	keyB, err := b.SessionKey()
	require.NoError(t, err)

	require.True(t, keyA.Equal(keyB))
}

func TestPasswordMismatch(t *testing.T) {
	conf := testConfiguration(ecc.Ristretto255Sha512)

	a, err := spake2.New(conf, spake2.RoleA, []byte("pairing-code-1234"))
	require.NoError(t, err)

	b, err := spake2.New(conf, spake2.RoleB, []byte("pairing-code-4321"))
	require.NoError(t, err)

	exchange(t, a, b)

	// The raw derivation succeeds on both sides; only the keys diverge.
	keyA, err := a.SessionKey()
	require.NoError(t, err)

	keyB, err := b.SessionKey()
	require.NoError(t, err)

	require.False(t, keyA.Equal(keyB))

	// Explicit confirmation turns the divergence into a typed failure.
	confB, err := b.Confirmation()
	require.NoError(t, err)
	require.ErrorIs(t, a.VerifyConfirmation(confB), pake.ErrAuthentication)

	_, err = a.SessionKey()
	require.ErrorIs(t, err, pake.ErrState)
}

func TestRoleMisassignment(t *testing.T) {
	conf := testConfiguration(ecc.Ristretto255Sha512)
	password := []byte("pairing-code-1234")

	// Both sides claiming role A produces divergent keys even with the
	// right password.
	a1, err := spake2.New(conf, spake2.RoleA, password)
	require.NoError(t, err)

	a2, err := spake2.New(conf, spake2.RoleA, password)
	require.NoError(t, err)

	exchange(t, a1, a2)

	key1, err := a1.SessionKey()
	require.NoError(t, err)

	key2, err := a2.SessionKey()
	require.NoError(t, err)

	require.False(t, key1.Equal(key2))
}

func TestRejectsInvalidPeerMessage(t *testing.T) {
	conf := testConfiguration(ecc.Ristretto255Sha512)

	newStarted := func(t *testing.T) *spake2.Party {
		t.Helper()

		p, err := spake2.New(conf, spake2.RoleA, []byte("pw"))
		require.NoError(t, err)

		_, err = p.Start(pake.CryptoRand{})
		require.NoError(t, err)

		return p
	}

	t.Run("identity element", func(t *testing.T) {
		p := newStarted(t)

		identity := conf.Group.NewElement().Encode()
		err := p.Receive(&spake2.Message{Element: identity})
		require.ErrorIs(t, err, pake.ErrInvalidPeer)
	})

	t.Run("garbage encoding", func(t *testing.T) {
		p := newStarted(t)

		garbage := make([]byte, conf.Group.ElementLength())
		for i := range garbage {
			garbage[i] = 0xFF
		}

		err := p.Receive(&spake2.Message{Element: garbage})
		require.ErrorIs(t, err, pake.ErrInvalidPeer)
	})

	t.Run("wrong length on the wire", func(t *testing.T) {
		_, err := conf.DeserializeMessage(make([]byte, conf.Group.ElementLength()-1))
		require.ErrorIs(t, err, pake.ErrEncoding)
	})
}

func TestFailingRandomness(t *testing.T) {
	conf := testConfiguration(ecc.Ristretto255Sha512)

	p, err := spake2.New(conf, spake2.RoleA, []byte("pw"))
	require.NoError(t, err)

	_, err = p.Start(failingSource{})
	require.ErrorIs(t, err, pake.ErrRandomness)
}

func TestStateEnforcement(t *testing.T) {
	conf := testConfiguration(ecc.Ristretto255Sha512)

	p, err := spake2.New(conf, spake2.RoleA, []byte("pw"))
	require.NoError(t, err)

	require.ErrorIs(t, p.Receive(&spake2.Message{}), pake.ErrState)

	_, err = p.SessionKey()
	require.ErrorIs(t, err, pake.ErrState)

	_, err = p.Confirmation()
	require.ErrorIs(t, err, pake.ErrState)

	_, err = p.Start(pake.CryptoRand{})
	require.NoError(t, err)

	_, err = p.Start(pake.CryptoRand{})
	require.ErrorIs(t, err, pake.ErrState)
}

func TestConfigurationValidation(t *testing.T) {
	_, err := spake2.New(&spake2.Configuration{Hash: crypto.SHA512}, spake2.RoleA, []byte("pw"))
	require.ErrorIs(t, err, pake.ErrConfiguration)

	_, err = spake2.New(&spake2.Configuration{Group: ecc.Ristretto255Sha512}, spake2.RoleA, []byte("pw"))
	require.ErrorIs(t, err, pake.ErrConfiguration)

	_, err = spake2.New(testConfiguration(ecc.Ristretto255Sha512), spake2.Role(7), []byte("pw"))
	require.ErrorIs(t, err, pake.ErrConfiguration)

	conf := testConfiguration(ecc.Ristretto255Sha512)
	conf.KSF = 200
	_, err = spake2.New(conf, spake2.RoleA, []byte("pw"))
	require.ErrorIs(t, err, pake.ErrConfiguration)
}
