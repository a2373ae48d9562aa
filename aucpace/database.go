// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package aucpace

import (
	"github.com/bytemare/ksf"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/internal"
	"github.com/thatnewyorker/pake/secret"
)

// DefaultSaltLength is the registration salt length for the base and
// partially augmented variants.
const DefaultSaltLength = 16

// Record is the server-held registration tuple for the base and partially
// augmented variants. Verifier is the fixed-width encoding of W = g*w. KSF
// names the stretching function used at registration so the server can echo
// it to clients during authentication.
type Record struct {
	Username []byte
	Salt     []byte
	Verifier []byte
	KSF      ksf.Identifier
}

// StrongRecord is the registration tuple for the strong variant. The salt
// never leaves the server; instead the secret salt exponent q answers
// blinded salt requests.
type StrongRecord struct {
	Username []byte
	Exponent []byte
	Verifier []byte
	KSF      ksf.Identifier
}

// Database is the external storage interface for the base and partially
// augmented variants. LookupRecord returns an error wrapping pake.ErrLookup
// when no record exists; the server then runs the fallback branch instead of
// surfacing the failure.
type Database interface {
	StoreRecord(record *Record) error
	LookupRecord(username []byte) (*Record, error)
}

// StrongDatabase is the external storage interface for the strong variant.
type StrongDatabase interface {
	StoreStrongRecord(record *StrongRecord) error
	LookupStrongRecord(username []byte) (*StrongRecord, error)
}

// LongTermKeypair is the static server keypair of the partially augmented
// variant, generated once at server setup.
type LongTermKeypair struct {
	private *secret.Bytes
	public  []byte
}

// PublicKey returns the encoded public key.
func (k *LongTermKeypair) PublicKey() []byte {
	return append([]byte(nil), k.public...)
}

// Wipe destroys the private key.
func (k *LongTermKeypair) Wipe() {
	k.private.Wipe()
}

// GenerateLongTermKeypair draws a static keypair for the partially augmented
// variant.
func GenerateLongTermKeypair(conf *Configuration, source pake.RandomSource) (*LongTermKeypair, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	x, err := pake.RandomScalar(source, conf.Group)
	if err != nil {
		return nil, err
	}

	public := conf.Group.Base().Multiply(x)
	private := x.Encode()
	internal.ClearScalar(&x)

	return &LongTermKeypair{
		private: secret.NewBytes(private),
		public:  public.Encode(),
	}, nil
}

// Register derives and stores a registration record for the base and
// partially augmented variants. Registration runs once over a trusted
// channel; the password scalar is wiped before returning.
func Register(
	conf *Configuration,
	source pake.RandomSource,
	db Database,
	username, password []byte,
) (*Record, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	if len(username) == 0 {
		return nil, pake.ErrConfiguration.Join(errEmptyUsername)
	}

	salt, err := pake.RandomBytes(source, DefaultSaltLength)
	if err != nil {
		return nil, err
	}

	w := conf.passwordScalar(conf.KSF, username, password, salt)
	verifier := conf.Group.Base().Multiply(w)
	internal.ClearScalar(&w)

	record := &Record{
		Username: append([]byte(nil), username...),
		Salt:     salt,
		Verifier: verifier.Encode(),
		KSF:      conf.KSF,
	}

	if err := db.StoreRecord(record); err != nil {
		return nil, pake.ErrLookup.Join(err)
	}

	return record, nil
}

// RegisterStrong derives and stores a registration record for the strong
// variant. The salt is q-dependent and reproduced per handshake from the
// stored exponent; no salt bytes are persisted.
func RegisterStrong(
	conf *Configuration,
	source pake.RandomSource,
	db StrongDatabase,
	username, password []byte,
) (*StrongRecord, error) {
	if err := conf.verify(); err != nil {
		return nil, err
	}

	if len(username) == 0 {
		return nil, pake.ErrConfiguration.Join(errEmptyUsername)
	}

	q, err := pake.RandomScalar(source, conf.Group)
	if err != nil {
		return nil, err
	}

	// The salt the client will recover by unblinding is the fixed point of
	// the username and password raised to q.
	salt := conf.saltPoint(username, password).Multiply(q).Encode()

	w := conf.passwordScalar(conf.KSF, username, password, salt)
	verifier := conf.Group.Base().Multiply(w)
	internal.ClearScalar(&w)
	secret.Wipe(salt)

	record := &StrongRecord{
		Username: append([]byte(nil), username...),
		Exponent: q.Encode(),
		Verifier: verifier.Encode(),
		KSF:      conf.KSF,
	}

	internal.ClearScalar(&q)

	if err := db.StoreStrongRecord(record); err != nil {
		return nil, pake.ErrLookup.Join(err)
	}

	return record, nil
}
