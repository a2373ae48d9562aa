// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package internal

import "github.com/bytemare/ksf"

// NewKSF returns a newly instantiated KSF. The zero identifier selects the
// identity function, which stretches nothing and is intended for tests.
func NewKSF(id ksf.Identifier) *KSF {
	if id == 0 {
		return &KSF{&IdentityKSF{}}
	}

	return &KSF{id.Get()}
}

// KSF wraps a key stretching function and exposes its functions.
type KSF struct {
	ksfInterface
}

type ksfInterface interface {
	// Harden uses default parameters for the key derivation function over the
	// input password and salt.
	Harden(password, salt []byte, length int) []byte

	// Parameterize replaces the function's parameters with the new ones.
	Parameterize(parameters ...int)
}

// IdentityKSF represents a KSF with no operations.
type IdentityKSF struct{}

// Harden returns the password as is.
func (i IdentityKSF) Harden(password, _ []byte, _ int) []byte {
	return password
}

// Parameterize applies KSF parameters if defined.
func (i IdentityKSF) Parameterize(_ ...int) {
	// no-op
}
