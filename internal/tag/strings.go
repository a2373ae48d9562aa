// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package tag provides the static domain-separation strings used by the
// protocol engines.
package tag

const (
	// SPAKE2 tags.

	// SPAKE2BlindingDST is the hash-to-group DST for the per-role blinding
	// constants M and N.
	SPAKE2BlindingDST = "SPAKE2-BlindingGenerator"

	// SPAKE2PointM is the hash-to-group input selecting side A's constant.
	SPAKE2PointM = "M"

	// SPAKE2PointN is the hash-to-group input selecting side B's constant.
	SPAKE2PointN = "N"

	// SPAKE2PasswordDST is the hash-to-scalar DST for the password scalar w.
	SPAKE2PasswordDST = "SPAKE2-PasswordScalar"

	// SPAKE2ConfirmationKeys is the KDF info string expanding Ka into the
	// per-side confirmation keys KcA and KcB.
	SPAKE2ConfirmationKeys = "ConfirmationKeys"

	// AuCPace tags.

	// AuCPaceGeneratorDST is the hash-to-group DST for the session generator
	// derived from ssid, PRS, and the channel identifier.
	AuCPaceGeneratorDST = "AuCPace-Generator"

	// AuCPacePasswordDST is the hash-to-scalar DST for the password scalar w.
	AuCPacePasswordDST = "AuCPace-PasswordScalar"

	// AuCPaceStrongDST is the hash-to-group DST for the strong variant's
	// blinded salt request point.
	AuCPaceStrongDST = "AuCPace-StrongSaltPoint"

	// AuCPaceFallbackSalt keys the deterministic fallback salt for unknown
	// users.
	AuCPaceFallbackSalt = "AuCPace-FallbackSalt"

	// AuCPaceFallbackVerifier keys the deterministic fallback verifier for
	// unknown users.
	AuCPaceFallbackVerifier = "AuCPace-FallbackVerifier"

	// AuCPaceFallbackExponent keys the deterministic fallback salt exponent
	// for unknown users in the strong variant.
	AuCPaceFallbackExponent = "AuCPace-FallbackExponent"

	// SRP tags.

	// SRPFallbackSalt keys the deterministic fallback salt for unknown users.
	SRPFallbackSalt = "SRP-FallbackSalt"

	// SRPFallbackVerifier keys the deterministic fallback private key for
	// unknown users.
	SRPFallbackVerifier = "SRP-FallbackVerifier"
)
