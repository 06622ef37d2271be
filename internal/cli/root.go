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

// Package cli implements the seatverify command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogenv "github.com/cbrewster/slog-env"
	"github.com/openpcc/seatattest/attestation/verify"
	slogotel "github.com/remychantenay/slog-otel"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrRejected is returned by the verify command when a token is not trusted.
var ErrRejected = errors.New("attestation rejected")

// Execute runs the command line and returns the process exit code.
func Execute() int {
	slog.SetDefault(slog.New(slogotel.OtelHandler{
		Next: slogenv.NewHandler(slog.NewTextHandler(os.Stderr, nil)),
	}))

	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, ErrRejected) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "seatverify",
		Short: "Verify cloud seat attestation tokens",
		Long: `seatverify checks attestation tokens issued by a cloud seat against the
pinned seat root certificate and the nonce sent with the challenge.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML verifier config file")

	root.AddCommand(
		newNonceCmd(),
		newVerifyCmd(&cfgFile),
		newInspectCmd(),
	)
	return root
}

// loadConfig reads path over the default config. An empty path yields the defaults.
func loadConfig(path string) (verify.Config, error) {
	cfg := verify.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return verify.Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return verify.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// readToken reads a token from path, or from stdin when path is "-".
func readToken(cmd *cobra.Command, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
