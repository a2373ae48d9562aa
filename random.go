// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package pake

import (
	"crypto/rand"
	"crypto/subtle"
	"io"

	"github.com/bytemare/ecc"
)

// RandomSource is the capability every protocol step draws entropy from.
// Implementations must fill dst entirely or return an error; a failure is a
// recoverable, reportable condition and is never retried by the engines.
type RandomSource interface {
	Read(dst []byte) error
}

// CryptoRand is the default RandomSource, backed by crypto/rand.
type CryptoRand struct{}

// Read fills dst from the operating system's CSPRNG.
func (CryptoRand) Read(dst []byte) error {
	if _, err := io.ReadFull(rand.Reader, dst); err != nil {
		return ErrRandomness.Join(err)
	}

	return nil
}

// RandomBytes draws n bytes from the source.
func RandomBytes(source RandomSource, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := source.Read(buf); err != nil {
		return nil, ErrRandomness.Join(err)
	}

	return buf, nil
}

// maxRejections bounds the rejection sampling loop. With canonical scalar
// encodings the acceptance probability per draw is at least 1/16 across all
// supported groups, so hitting this bound means the source is broken.
const maxRejections = 128

// RandomScalar draws a uniformly distributed non-zero scalar in the exponent
// range of g by rejection sampling. Raw draws outside the range are discarded
// and redrawn, never reduced modulo the order.
func RandomScalar(source RandomSource, g ecc.Group) (*ecc.Scalar, error) {
	buf := make([]byte, g.ScalarLength())

	for range maxRejections {
		if err := source.Read(buf); err != nil {
			return nil, ErrRandomness.Join(err)
		}

		s := g.NewScalar()
		if err := s.Decode(buf); err != nil {
			// Out of range: reject and redraw.
			continue
		}

		if s.IsZero() {
			continue
		}

		return s, nil
	}

	return nil, ErrRandomness.Join(ErrCodeRandomness.New("rejection sampling bound exceeded"))
}

// ConstantTimeCompare reports whether a and b are equal, in time independent
// of their contents. A length mismatch returns false after a dummy comparison
// so the timing profile does not depend on where the inputs diverge.
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		_ = subtle.ConstantTimeCompare(b, b)
		return false
	}

	return subtle.ConstantTimeCompare(a, b) == 1
}
