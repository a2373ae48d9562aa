// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package pake_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thatnewyorker/pake"
)

func TestSentinelMatching(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := pake.ErrInvalidPeer.Join(cause)

	require.ErrorIs(t, err, pake.ErrInvalidPeer)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, pake.ErrAuthentication)
}

func TestErrorCodeExtraction(t *testing.T) {
	err := pake.ErrEncoding.Join(fmt.Errorf("field too short"))

	var code pake.ErrorCode
	require.ErrorAs(t, err, &code)
	require.Equal(t, pake.ErrCodeEncoding, code)

	var pakeErr *pake.Error
	require.ErrorAs(t, err, &pakeErr)
	require.Equal(t, pake.ErrCodeEncoding, pakeErr.Code)
}

func TestErrorFormatting(t *testing.T) {
	err := pake.ErrCodeRandomness.New("random source failure", fmt.Errorf("read: broken pipe"))

	require.Equal(t, "random source failure", err.Error())
	require.Equal(t, "random source failure", fmt.Sprintf("%v", err))
	require.Equal(t, `"random source failure"`, fmt.Sprintf("%q", err))

	verbose := fmt.Sprintf("%+v", err)
	require.Contains(t, verbose, "randomness_error")
	require.Contains(t, verbose, "broken pipe")
}

func TestErrorCodeString(t *testing.T) {
	require.Equal(t, "authentication_error", pake.ErrCodeAuthentication.String())
	require.Equal(t, "unknown_error", pake.ErrorCode(200).String())
}
