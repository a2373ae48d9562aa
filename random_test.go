// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package pake_test

import (
	"errors"
	"testing"

	"github.com/bytemare/ecc"
	"github.com/stretchr/testify/require"

	"github.com/thatnewyorker/pake"
)

type failingSource struct{}

func (failingSource) Read([]byte) error {
	return errors.New("entropy exhausted")
}

// zeroSource always returns zero bytes, which decode to the zero scalar and
// must be rejected forever.
type zeroSource struct{}

func (zeroSource) Read(dst []byte) error {
	for i := range dst {
		dst[i] = 0
	}

	return nil
}

func TestRandomBytes(t *testing.T) {
	buf, err := pake.RandomBytes(pake.CryptoRand{}, 32)
	require.NoError(t, err)
	require.Len(t, buf, 32)

	other, err := pake.RandomBytes(pake.CryptoRand{}, 32)
	require.NoError(t, err)
	require.NotEqual(t, buf, other)
}

func TestRandomBytesFailure(t *testing.T) {
	_, err := pake.RandomBytes(failingSource{}, 32)
	require.ErrorIs(t, err, pake.ErrRandomness)
}

func TestRandomScalar(t *testing.T) {
	for _, group := range []ecc.Group{
		ecc.Ristretto255Sha512,
		ecc.P256Sha256,
		ecc.P384Sha384,
		ecc.P521Sha512,
	} {
		t.Run(group.String(), func(t *testing.T) {
			s, err := pake.RandomScalar(pake.CryptoRand{}, group)
			require.NoError(t, err)
			require.False(t, s.IsZero())
			require.Len(t, s.Encode(), group.ScalarLength())
		})
	}
}

func TestRandomScalarFailure(t *testing.T) {
	_, err := pake.RandomScalar(failingSource{}, ecc.Ristretto255Sha512)
	require.ErrorIs(t, err, pake.ErrRandomness)
}

func TestRandomScalarRejectsZero(t *testing.T) {
	// A source that only ever yields the zero scalar exhausts the rejection
	// bound instead of returning a degenerate scalar.
	_, err := pake.RandomScalar(zeroSource{}, ecc.Ristretto255Sha512)
	require.ErrorIs(t, err, pake.ErrRandomness)
}

func TestConstantTimeCompare(t *testing.T) {
	require.True(t, pake.ConstantTimeCompare([]byte("abc"), []byte("abc")))
	require.False(t, pake.ConstantTimeCompare([]byte("abc"), []byte("abd")))
	require.False(t, pake.ConstantTimeCompare([]byte("abc"), []byte("abcd")))
	require.False(t, pake.ConstantTimeCompare([]byte("abc"), nil))
	require.True(t, pake.ConstantTimeCompare(nil, nil))
	require.True(t, pake.ConstantTimeCompare([]byte{}, nil))
}
