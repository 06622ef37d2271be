// Copyright 2025 Nonvolatile Inc. d/b/a Confident Security

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     https://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/openpcc/seatattest/attestation/b64"
	"github.com/openpcc/seatattest/attestation/chain"
	"github.com/openpcc/seatattest/attestation/evidence"
	"github.com/openpcc/seatattest/attestation/flatjson"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var tokenFile string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the contents of a token without verifying it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readToken(cmd, tokenFile)
			if err != nil {
				return err
			}
			tok, err := evidence.SplitToken(raw)
			if err != nil {
				return err
			}
			piece, err := evidence.FromToken(raw)
			if err != nil {
				return err
			}

			header := b64.DecodeURL(tok.Header)
			payload := b64.DecodeURL(tok.Payload)
			if len(header) == 0 || len(payload) == 0 {
				return errors.New("token segments are not base64url")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			color.New(color.FgYellow).Fprintln(w, "UNVERIFIED TOKEN CONTENTS")
			fmt.Fprintf(w, "header:\t%s\n", header)
			fmt.Fprintf(w, "payload:\t%s\n", payload)
			fmt.Fprintf(w, "signature:\t%d bytes\n", len(piece.Signature))

			obj, err := flatjson.Scan(header)
			if err != nil {
				return w.Flush()
			}
			x5c, err := obj.Strings("x5c")
			if err != nil {
				return w.Flush()
			}
			for i, entry := range x5c {
				cert, err := chain.ParseDER(entry)
				if err != nil {
					fmt.Fprintf(w, "x5c[%d]:\t%v\n", i, err)
					continue
				}
				fmt.Fprintf(w, "x5c[%d]:\tsubject=%s\tissuer=%s\tnot_after=%s\n",
					i, cert.Subject, cert.Issuer, cert.NotAfter.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&tokenFile, "token-file", "", `file holding the token, "-" for stdin`)
	_ = cmd.MarkFlagRequired("token-file")
	return cmd
}
