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
	"os"

	"github.com/fatih/color"
	"github.com/openpcc/seatattest/attestation/verify"
	"github.com/spf13/cobra"
)

func newVerifyCmd(cfgFile *string) *cobra.Command {
	var (
		tokenFile   string
		nonceValue  string
		nonceFormat string
		backend     string
		evidenceOut string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an attestation token",
		Long: `Verify an attestation token against the pinned seat root and the nonce that
was sent with the challenge. Prints "verified" and exits 0, or prints "rejected"
and exits 1. The reason for a rejection is logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("backend") {
				cfg.Backend = backend
			}

			n, err := parseNonce(nonceValue, nonceFormat)
			if err != nil {
				return err
			}
			token, err := readToken(cmd, tokenFile)
			if err != nil {
				return err
			}

			v, err := verify.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("failed to create verifier: %w", err)
			}

			res, err := v.VerifyToken(cmd.Context(), token, n)
			if err != nil {
				var verr *verify.VerificationError
				if !errors.As(err, &verr) {
					return err
				}
				color.New(color.FgRed, color.Bold).Fprintln(cmd.OutOrStdout(), "rejected")
				return fmt.Errorf("%w: %w", ErrRejected, err)
			}

			if evidenceOut != "" {
				b, err := res.Evidence.MarshalBinary()
				if err != nil {
					return fmt.Errorf("failed to encode evidence: %w", err)
				}
				if err := os.WriteFile(evidenceOut, b, 0o600); err != nil {
					return fmt.Errorf("failed to write evidence: %w", err)
				}
			}

			_, err = color.New(color.FgGreen, color.Bold).Fprintln(cmd.OutOrStdout(), "verified")
			return err
		},
	}

	cmd.Flags().StringVar(&tokenFile, "token-file", "", `file holding the token, "-" for stdin`)
	cmd.Flags().StringVar(&nonceValue, "nonce", "", "nonce sent with the challenge")
	cmd.Flags().StringVar(&nonceFormat, "nonce-format", formatHex, "nonce encoding, hex or base64")
	cmd.Flags().StringVar(&backend, "backend", verify.BackendPool, "verification backend, pool or walk")
	cmd.Flags().StringVar(&evidenceOut, "evidence-out", "", "write the verified evidence to this file")
	_ = cmd.MarkFlagRequired("token-file")
	_ = cmd.MarkFlagRequired("nonce")
	return cmd
}
