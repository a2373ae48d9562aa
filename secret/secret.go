// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package secret provides zeroizing containers for sensitive byte buffers.
// All derived secrets in this module (password copies, ephemeral exponents,
// session keys) flow through these types.
//
// Go has no destructors, so wiping is explicit: owners call Wipe on every
// exit path, deferred where a panic could otherwise skip it. The containers
// are not cloneable, render redacted in all formatting verbs, and Key
// replaces bulk equality with an explicit constant-time comparison.
package secret

import (
	"crypto/subtle"
	"fmt"
)

// Bytes owns a buffer of sensitive bytes. Construction takes ownership: the
// caller must not retain an alias of the buffer it passed in.
type Bytes struct {
	data []byte
}

// NewBytes wraps buf, taking ownership. A nil or empty buffer is valid.
func NewBytes(buf []byte) *Bytes {
	return &Bytes{data: buf}
}

// Expose borrows the underlying bytes without copying. The returned slice is
// invalidated by Wipe and must not outlive the container.
func (b *Bytes) Expose() []byte {
	return b.data
}

// Len returns the buffer length.
func (b *Bytes) Len() int {
	return len(b.data)
}

// IntoBytes relinquishes ownership of the buffer and clears the container
// without wiping. This is the only path back to raw ownership; the extracted
// copy forfeits the zeroization guarantee.
func (b *Bytes) IntoBytes() []byte {
	out := b.data
	b.data = nil

	return out
}

// Wipe overwrites the buffer with zero bytes and releases it. Safe to call
// multiple times and on zero-length buffers.
func (b *Bytes) Wipe() {
	Wipe(b.data)
	b.data = nil
}

// String renders a redacted placeholder, never the contents.
func (b *Bytes) String() string {
	return fmt.Sprintf("secret.Bytes(redacted, %d bytes)", len(b.data))
}

// GoString renders a redacted placeholder for the %#v verb.
func (b *Bytes) GoString() string {
	return b.String()
}

// Format implements fmt.Formatter so that no verb leaks the contents.
func (b *Bytes) Format(f fmt.State, _ rune) {
	_, _ = fmt.Fprint(f, b.String())
}

// Key is a derived secret key. It behaves like Bytes but additionally
// provides the constant-time Equal comparison. Key intentionally contains a
// slice so the type is not comparable with ==; the only supported equality
// is Equal.
type Key struct {
	data []byte
}

// NewKey wraps buf as a secret key, taking ownership.
func NewKey(buf []byte) *Key {
	return &Key{data: buf}
}

// Expose borrows the key bytes without copying.
func (k *Key) Expose() []byte {
	return k.data
}

// Len returns the key length.
func (k *Key) Len() int {
	return len(k.data)
}

// Equal compares two keys in time independent of their contents. A length
// mismatch returns false after a dummy comparison so timing does not reveal
// the divergence point.
func (k *Key) Equal(other *Key) bool {
	if other == nil {
		return false
	}

	if len(k.data) != len(other.data) {
		_ = subtle.ConstantTimeCompare(other.data, other.data)
		return false
	}

	return subtle.ConstantTimeCompare(k.data, other.data) == 1
}

// IntoBytes relinquishes ownership of the key bytes, forfeiting the
// zeroization guarantee for the extracted copy.
func (k *Key) IntoBytes() []byte {
	out := k.data
	k.data = nil

	return out
}

// Wipe overwrites the key with zero bytes and releases it.
func (k *Key) Wipe() {
	Wipe(k.data)
	k.data = nil
}

// String renders a redacted placeholder, never the contents.
func (k *Key) String() string {
	return fmt.Sprintf("secret.Key(redacted, %d bytes)", len(k.data))
}

// GoString renders a redacted placeholder for the %#v verb.
func (k *Key) GoString() string {
	return k.String()
}

// Format implements fmt.Formatter so that no verb leaks the contents.
func (k *Key) Format(f fmt.State, _ rune) {
	_, _ = fmt.Fprint(f, k.String())
}

// Wipe overwrites b with zeros. The copy is performed with
// subtle.ConstantTimeCopy so it is not elided.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}

	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}
