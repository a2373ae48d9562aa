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

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [identity] [password]",
		Short: "Run an SRP handshake against the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := demoConfiguration()

			client, err := srp.NewClient(conf, []byte(args[0]), []byte(args[1]))
			if err != nil {
				return err
			}

			hello, err := client.Start(pake.CryptoRand{})
			if err != nil {
				return err
			}

			var helloResp helloResponse
			if err := postJSON("/srp/hello", helloRequest{
				Hello: hex.EncodeToString(hello.Serialize()),
			}, &helloResp); err != nil {
				return err
			}

			rawChallenge, err := hex.DecodeString(helloResp.Challenge)
			if err != nil {
				return err
			}

			challenge, err := conf.DeserializeServerChallenge(rawChallenge)
			if err != nil {
				return err
			}

			clientProof, err := client.ProcessChallenge(challenge)
			if err != nil {
				return err
			}

			var proofResp proofResponse
			if err := postJSON("/srp/proof", proofRequest{
				Session: helloResp.Session,
				Proof:   hex.EncodeToString(clientProof.Serialize()),
			}, &proofResp); err != nil {
				return err
			}

			rawProof, err := hex.DecodeString(proofResp.Proof)
			if err != nil {
				return err
			}

			serverProof, err := conf.DeserializeServerProof(rawProof)
			if err != nil {
				return err
			}

			key, err := client.Finish(serverProof)
			if err != nil {
				return err
			}
			defer key.Wipe()

			fmt.Printf("authenticated %q, session key of %d bytes established\n", args[0], key.Len())

			return nil
		},
	}
}

func postJSON(path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
