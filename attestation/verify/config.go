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

package verify

import (
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openpcc/seatattest/attestation/nonce"
)

type Config struct {
	// Backend selects the verification primitives, "pool" or "walk".
	Backend string `yaml:"backend"`
	// MaxTokenSize is the largest token in bytes that is considered at all.
	MaxTokenSize int `yaml:"max_token_size"`
	// MinNonceSize is the smallest caller nonce in bytes that is accepted.
	MinNonceSize int `yaml:"min_nonce_size"`
}

func DefaultConfig() Config {
	return Config{
		Backend:      BackendPool,
		MaxTokenSize: 64 * 1024,
		MinNonceSize: nonce.MinSize,
	}
}

type Option func(v *Verifier) error

// WithBackend overrides the backend selected by the config.
func WithBackend(b Backend) Option {
	return func(v *Verifier) error {
		if b == nil {
			return errors.New("nil backend")
		}
		v.backend = b
		return nil
	}
}

// WithLogger sets the logger rejections are reported to. By default the logger
// returned by [slog.Default] at the time of the call is used.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) error {
		v.logger = logger
		return nil
	}
}

// WithClock sets the source of the time certificates are validated at.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) error {
		if now == nil {
			return errors.New("nil clock")
		}
		v.now = now
		return nil
	}
}

// WithRootCertificate replaces the pinned root. Should only be used in tests and
// by deployments that ship their own trust anchor.
func WithRootCertificate(root *x509.Certificate) Option {
	return func(v *Verifier) error {
		if root == nil {
			return errors.New("nil root certificate")
		}
		v.root = root
		return nil
	}
}

// New creates a verifier from the default config.
func New(opts ...Option) (*Verifier, error) {
	return NewFromConfig(DefaultConfig(), opts...)
}

func NewFromConfig(cfg Config, opts ...Option) (*Verifier, error) {
	if cfg.MaxTokenSize <= 0 {
		return nil, fmt.Errorf("invalid max token size %d", cfg.MaxTokenSize)
	}
	if cfg.MinNonceSize < nonce.MinSize {
		return nil, fmt.Errorf("min nonce size %d is below %d", cfg.MinNonceSize, nonce.MinSize)
	}

	backend, err := BackendByName(cfg.Backend)
	if err != nil {
		return nil, err
	}

	v := &Verifier{
		cfg:     cfg,
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if v.root == nil {
		root, err := PinnedRoot()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load pinned root: %w", ErrResource, err)
		}
		v.root = root
	}

	return v, nil
}
