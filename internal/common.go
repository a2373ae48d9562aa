// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package internal

import (
	"crypto/subtle"
	"math/big"

	"github.com/bytemare/ecc"
)

// ClearSlice does a best-effort wipe of the slice contents and sets the
// slice to nil.
func ClearSlice(s *[]byte) {
	if len(*s) != 0 {
		zero := make([]byte, len(*s))
		subtle.ConstantTimeCopy(1, *s, zero)
	}

	*s = nil
}

// ClearScalar zeroes the scalar and sets the pointer to nil.
func ClearScalar(s **ecc.Scalar) {
	if *s != nil {
		(*s).Zero()
		*s = nil
	}
}

// ClearBigInt overwrites the integer's limbs with zeros and sets the pointer
// to nil. Arbitrary-precision arithmetic may have left intermediate copies
// elsewhere; this wipes only the final representation, which is the best the
// backend allows.
func ClearBigInt(x **big.Int) {
	if *x != nil {
		limbs := (*x).Bits()
		for i := range limbs {
			limbs[i] = 0
		}

		(*x).SetInt64(0)
	}

	*x = nil
}
