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
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/openpcc/seatattest/attestation/b64"
	"github.com/openpcc/seatattest/attestation/nonce"
	"github.com/spf13/cobra"
)

const (
	formatHex    = "hex"
	formatBase64 = "base64"
)

func newNonceCmd() *cobra.Command {
	var (
		size   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Generate a challenge nonce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := nonce.Generate(size)
			if err != nil {
				return err
			}
			s, err := formatNonce(n, format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
			return err
		},
	}
	cmd.Flags().IntVar(&size, "size", nonce.DefaultSize, "nonce size in bytes")
	cmd.Flags().StringVar(&format, "format", formatHex, "output format, hex or base64")
	return cmd
}

func formatNonce(n []byte, format string) (string, error) {
	switch format {
	case formatHex:
		return hex.EncodeToString(n), nil
	case formatBase64:
		return b64.EncodeStd(n), nil
	default:
		return "", fmt.Errorf("unknown nonce format %q", format)
	}
}

func parseNonce(s, format string) ([]byte, error) {
	switch format {
	case formatHex:
		n, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex nonce: %w", err)
		}
		return n, nil
	case formatBase64:
		n := b64.DecodeStd(s)
		if len(n) == 0 {
			return nil, errors.New("invalid base64 nonce")
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown nonce format %q", format)
	}
}
