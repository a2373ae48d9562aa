// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package pake provides the shared substrate for a suite of
// password-authenticated key exchange protocols: the fallible randomness
// capability, the constant-time comparison helper, and the error taxonomy
// common to all engines.
//
// The protocol engines live in the srp, spake2, and aucpace subpackages, and
// all derived secrets flow through the containers of the secret subpackage.
// Engines never reach into process-wide state: every entry point that needs
// entropy takes a RandomSource, and every failure is a typed, returned error.
package pake
