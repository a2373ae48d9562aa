// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package commands

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/thatnewyorker/pake"
	"github.com/thatnewyorker/pake/srp"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [identity] [password]",
		Short: "Derive an SRP verifier and store it on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, password := []byte(args[0]), []byte(args[1])

			// The verifier is derived locally; the password never leaves
			// this process.
			record, err := srp.Register(demoConfiguration(), pake.CryptoRand{}, identity, password)
			if err != nil {
				return err
			}

			body, err := json.Marshal(registerRequest{
				Identity: args[0],
				Salt:     hex.EncodeToString(record.Salt),
				Verifier: hex.EncodeToString(record.Verifier),
			})
			if err != nil {
				return err
			}

			resp, err := http.Post(serverURL+"/srp/register", "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNoContent {
				return fmt.Errorf("register: unexpected status %s", resp.Status)
			}

			fmt.Printf("registered %q\n", args[0])

			return nil
		},
	}
}
