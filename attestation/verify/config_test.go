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

package verify_test

import (
	"bytes"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/openpcc/seatattest/attestation/chain"
	"github.com/openpcc/seatattest/attestation/verify"
	"github.com/openpcc/seatattest/internal/test/seattest"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func pemEncode(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func TestNewFromConfig(t *testing.T) {
	tests := map[string]struct {
		mutate func(cfg *verify.Config)
		opts   []verify.Option
		ok     bool
		err    error
	}{
		"ok, default": {
			ok: true,
		},
		"ok, walk backend": {
			mutate: func(cfg *verify.Config) { cfg.Backend = verify.BackendWalk },
			ok:     true,
		},
		"fail, unknown backend": {
			mutate: func(cfg *verify.Config) { cfg.Backend = "system" },
			err:    verify.ErrUnknownBackend,
		},
		"fail, zero max token size": {
			mutate: func(cfg *verify.Config) { cfg.MaxTokenSize = 0 },
		},
		"fail, min nonce size below floor": {
			mutate: func(cfg *verify.Config) { cfg.MinNonceSize = 8 },
		},
		"fail, nil backend option": {
			opts: []verify.Option{verify.WithBackend(nil)},
		},
		"fail, nil clock option": {
			opts: []verify.Option{verify.WithClock(nil)},
		},
		"fail, nil root option": {
			opts: []verify.Option{verify.WithRootCertificate(nil)},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := verify.DefaultConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}

			v, err := verify.NewFromConfig(cfg, tc.opts...)
			if tc.ok {
				require.NoError(t, err)
				require.Equal(t, cfg.Backend, v.Backend())
				return
			}
			require.Error(t, err)
			require.Nil(t, v)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestConfigYAML(t *testing.T) {
	cfg := verify.DefaultConfig()
	doc := []byte("backend: walk\nmin_nonce_size: 32\n")
	require.NoError(t, yaml.Unmarshal(doc, &cfg))

	require.Equal(t, verify.Config{
		Backend:      verify.BackendWalk,
		MaxTokenSize: 64 * 1024,
		MinNonceSize: 32,
	}, cfg)
}

func TestBackendByName(t *testing.T) {
	pool, err := verify.BackendByName(verify.BackendPool)
	require.NoError(t, err)
	require.Equal(t, verify.BackendPool, pool.Name())

	walk, err := verify.BackendByName(verify.BackendWalk)
	require.NoError(t, err)
	require.Equal(t, verify.BackendWalk, walk.Name())

	_, err = verify.BackendByName("")
	require.ErrorIs(t, err, verify.ErrUnknownBackend)
}

func TestBackendsAgreeOnSignatures(t *testing.T) {
	pki := seattest.NewPKI(t)
	nonce := testNonce(t)
	token := pki.Token(t, nonce, nil)

	c, err := chain.Build(pki.X5C(), pki.Root, chain.ParseDER)
	require.NoError(t, err)

	dot := strings.LastIndex(token, ".")
	input := []byte(token[:dot])
	sig, err := base64.RawURLEncoding.DecodeString(token[dot+1:])
	require.NoError(t, err)

	tampered := bytes.Clone(input)
	tampered[len(tampered)-1] ^= 0x01
	digest := sha512.Sum512(input)

	for _, name := range backends {
		b, err := verify.BackendByName(name)
		require.NoError(t, err)

		require.NoError(t, b.VerifySignature(input, sig, c.Leaf()), name)
		require.Error(t, b.VerifySignature(tampered, sig, c.Leaf()), name)
		require.Error(t, b.VerifySignature(input, digest[:], c.Leaf()), name)
		require.ErrorIs(t, b.VerifySignature(input, sig, seattest.NewPKI(t, seattest.WithECDSALeaf(), seattest.WithIntermediates(0)).Leaf), verify.ErrUnsupportedKey, name)
	}
}
