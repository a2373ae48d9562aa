// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package srp

import (
	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal"
)

// VerifierRecord is the server-held registration tuple. The verifier value
// is the fixed-width encoding of v = g^x mod N; it cannot be used to recover
// the password, only to run the server side of a handshake.
type VerifierRecord struct {
	Identity []byte
	Salt     []byte
	Verifier []byte
}

// VerifierStore is the external storage interface the server reads records
// from. Implementations are owned by the integrator; the core never mutates
// the store during authentication.
type VerifierStore interface {
	// StoreVerifier persists a registration record.
	StoreVerifier(record *VerifierRecord) error

	// LoadVerifier returns the record for the identity, or an error wrapping
	// pake.ErrLookup when no record exists.
	LoadVerifier(identity []byte) (*VerifierRecord, error)
}

// Register derives a fresh verifier record for the identity and password.
// Registration runs once over a trusted channel; the derived private key x
// and the password copy are wiped before returning.
func Register(
	conf *Configuration,
	source pake.RandomSource,
	identity, password []byte,
) (*VerifierRecord, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	if len(identity) == 0 {
		return nil, pake.ErrConfiguration.Join(errEmptyIdentity)
	}

	salt, err := pake.RandomBytes(source, conf.saltLength())
	if err != nil {
		return nil, err
	}

	x := conf.privateKey(identity, password, salt)
	v := conf.Group.ExpG(x)
	internal.ClearBigInt(&x)

	return &VerifierRecord{
		Identity: append([]byte(nil), identity...),
		Salt:     salt,
		Verifier: conf.Group.Encode(v),
	}, nil
}
