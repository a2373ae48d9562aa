// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

// Package commands implements the pakecli demonstration commands: an SRP
// login server over HTTP and the matching register and login clients. The
// commands carry no protocol logic; they exercise the srp package the way an
// integrating service would.
package commands

import (
	"crypto"
	_ "crypto/sha256"

	"github.com/spf13/cobra"

	"github.com/thatnewyorker/pake/srp"
)

var serverURL string

// demoConfiguration is the fixed parameter set the demo commands run with.
// A real integrator chooses its own group and digest; the engines take no
// defaults.
func demoConfiguration() *srp.Configuration {
	return &srp.Configuration{
		Group: srp.G2048,
		Hash:  crypto.SHA256,
	}
}

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:   "pakecli",
		Short: "SRP password-authenticated key exchange demo",
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "server base URL")

	root.AddCommand(serveCmd(), registerCmd(), loginCmd())

	return root.Execute()
}
