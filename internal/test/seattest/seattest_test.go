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

package seattest_test

import (
	"crypto/x509"
	"testing"
	"time"

	"github.com/openpcc/seatattest/internal/test/seattest"
	"github.com/stretchr/testify/require"
)

func TestNewPKI(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		pki := seattest.NewPKI(t, seattest.WithIntermediates(n))
		require.Len(t, pki.Intermediates, n)
		require.Len(t, pki.X5C(), n+1)

		certs := pki.Certificates()
		for i := 0; i < len(certs)-1; i++ {
			require.NoError(t, certs[i].CheckSignatureFrom(certs[i+1]), "position %d", i)
		}
		require.NoError(t, pki.Root.CheckSignatureFrom(pki.Root))

		roots := x509.NewCertPool()
		roots.AddCert(pki.Root)
		intermediates := x509.NewCertPool()
		for _, cert := range pki.Intermediates {
			intermediates.AddCert(cert)
		}
		_, err := pki.Leaf.Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			CurrentTime:   time.Now(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		})
		require.NoError(t, err)
	}
}
