// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package encoding provides the byte-level encoding helpers shared by the
// protocol engines: integer serialization, length-prefixed vectors, and
// fixed-width left padding.
package encoding

import "errors"

var (
	errI2OSPLength  = errors.New("requested I2OSP size out of range")
	errHeaderLength = errors.New("insufficient header length for decoding")
	errTotalLength  = errors.New("insufficient total length for decoding")
	errPadding      = errors.New("value exceeds fixed encoding width")
)

// I2OSP encodes value as a big-endian integer of the given byte length.
func I2OSP(value, length int) []byte {
	if length <= 0 || length > 4 {
		panic(errI2OSPLength)
	}

	if value < 0 || value >= 1<<(8*length) {
		panic(errI2OSPLength)
	}

	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = byte(value)
		value >>= 8
	}

	return out
}

// OS2IP decodes a big-endian integer from in.
func OS2IP(in []byte) int {
	out := 0
	for _, b := range in {
		out = out<<8 | int(b)
	}

	return out
}

// Concat returns the concatenation of the inputs in a freshly allocated
// buffer.
func Concat(in ...[]byte) []byte {
	length := 0
	for _, b := range in {
		length += len(b)
	}

	out := make([]byte, 0, length)
	for _, b := range in {
		out = append(out, b...)
	}

	return out
}

// SuffixString appends the string to the input in a new buffer.
func SuffixString(in []byte, s string) []byte {
	return append(Concat(in), s...)
}

// EncodeVector prefixes in with its 2-byte big-endian length.
func EncodeVector(in []byte) []byte {
	return append(I2OSP(len(in), 2), in...)
}

// DecodeVector reads a 2-byte length-prefixed vector from in, returning the
// vector and the total number of bytes consumed.
func DecodeVector(in []byte) ([]byte, int, error) {
	const headerLength = 2

	if len(in) < headerLength {
		return nil, 0, errHeaderLength
	}

	dataLen := OS2IP(in[:headerLength])
	total := headerLength + dataLen

	if len(in) < total {
		return nil, 0, errTotalLength
	}

	return in[headerLength:total], total, nil
}

// PadLeft zero-pads in on the left to exactly length bytes. It returns an
// error if in is longer than length; inconsistent padding of big-endian
// integers is a top interoperability hazard, so the width is enforced rather
// than truncated.
func PadLeft(in []byte, length int) ([]byte, error) {
	if len(in) > length {
		return nil, errPadding
	}

	out := make([]byte, length)
	copy(out[length-len(in):], in)

	return out, nil
}
