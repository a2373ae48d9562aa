// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package encoding_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thatnewyorker/pake/internal/encoding"
)

func TestI2OSP(t *testing.T) {
	require.Equal(t, []byte{0}, encoding.I2OSP(0, 1))
	require.Equal(t, []byte{255}, encoding.I2OSP(255, 1))
	require.Equal(t, []byte{1, 0}, encoding.I2OSP(256, 2))
	require.Equal(t, []byte{0, 0, 1, 0}, encoding.I2OSP(256, 4))

	require.Panics(t, func() { encoding.I2OSP(256, 1) })
	require.Panics(t, func() { encoding.I2OSP(-1, 2) })
	require.Panics(t, func() { encoding.I2OSP(1, 0) })
	require.Panics(t, func() { encoding.I2OSP(1, 5) })
}

func TestOS2IP(t *testing.T) {
	require.Equal(t, 0, encoding.OS2IP(nil))
	require.Equal(t, 256, encoding.OS2IP([]byte{1, 0}))
	require.Equal(t, 0xABCD, encoding.OS2IP([]byte{0xAB, 0xCD}))
}

func TestVectorRoundTrip(t *testing.T) {
	for _, in := range [][]byte{nil, {}, {1}, []byte("some identity")} {
		encoded := encoding.EncodeVector(in)

		out, consumed, err := encoding.DecodeVector(encoded)
		require.NoError(t, err)
		require.Equal(t, len(encoded), consumed)
		require.Equal(t, len(in), len(out))
		require.Equal(t, append([]byte(nil), in...), append([]byte(nil), out...))
	}
}

func TestDecodeVectorErrors(t *testing.T) {
	_, _, err := encoding.DecodeVector([]byte{0})
	require.Error(t, err)

	// Header claims more data than present.
	_, _, err = encoding.DecodeVector([]byte{0, 5, 1, 2})
	require.Error(t, err)
}

func TestDecodeVectorTrailing(t *testing.T) {
	// Trailing bytes are left for the caller, reported through the consumed
	// count.
	buf := append(encoding.EncodeVector([]byte("id")), 0xFF, 0xFF)

	out, consumed, err := encoding.DecodeVector(buf)
	require.NoError(t, err)
	require.Equal(t, []byte("id"), out)
	require.Equal(t, 4, consumed)
}

func TestPadLeft(t *testing.T) {
	out, err := encoding.PadLeft([]byte{1, 2}, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 1, 2}, out)

	out, err = encoding.PadLeft(nil, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0}, out)

	out, err = encoding.PadLeft([]byte{1, 2, 3}, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, out)

	_, err = encoding.PadLeft([]byte{1, 2, 3}, 2)
	require.Error(t, err)
}

func TestConcat(t *testing.T) {
	require.Equal(t, []byte{1, 2, 3}, encoding.Concat([]byte{1}, []byte{2, 3}))
	require.Empty(t, encoding.Concat())
	require.Equal(t, []byte("ab:cd"), encoding.SuffixString([]byte("ab"), ":cd"))
}
