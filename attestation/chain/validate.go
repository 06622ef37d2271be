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

package chain

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/multierr"
)

var (
	ErrUntrusted      = errors.New("chain is not trusted")
	ErrAmbiguousChain = errors.New("chain verification produced more than one path")
	ErrLengthMismatch = errors.New("verified path length differs from assembled chain")
	ErrOrderMismatch  = errors.New("verified path order differs from assembled chain")
	ErrValidity       = errors.New("certificate not valid at the current time")
	ErrIssuerMismatch = errors.New("issuer does not match parent subject")
	ErrSignature      = errors.New("certificate signature does not verify")
	ErrNotCA          = errors.New("issuing certificate is not a CA")
	ErrPathLen        = errors.New("path length constraint exceeded")
	ErrPurpose        = errors.New("certificate not valid for server authentication")
	ErrNotSelfSigned  = errors.New("root is not self-signed")
	ErrUnhandledCrit  = errors.New("certificate has unhandled critical extensions")
)

// checkShape enforces the length and root invariants shared by both validators.
func checkShape(c Chain, root *x509.Certificate) error {
	if root == nil {
		return ErrNoRoot
	}
	if len(c) < 2 {
		return fmt.Errorf("%w: need a leaf and the root, got %d certificates", ErrEmpty, len(c))
	}
	if len(c) > MaxLen || len(c.Intermediates()) > MaxIntermediates {
		return fmt.Errorf("%w: got %d", ErrTooLong, len(c))
	}
	if !c.Root().Equal(root) {
		return ErrRootMismatch
	}
	return nil
}

// ValidatePool verifies the chain with the standard library path builder. The
// pinned root is the only entry of an ephemeral root pool, the system store is
// never consulted.
func ValidatePool(c Chain, root *x509.Certificate, now time.Time) error {
	if err := checkShape(c, root); err != nil {
		return err
	}

	roots := x509.NewCertPool()
	roots.AddCert(root)

	intermediates := x509.NewCertPool()
	for _, cert := range c.Intermediates() {
		intermediates.AddCert(cert)
	}

	paths, err := c.Leaf().Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUntrusted, err)
	}

	if len(paths) != 1 {
		return fmt.Errorf("%w: %w: got %d", ErrUntrusted, ErrAmbiguousChain, len(paths))
	}
	path := paths[0]
	if len(path) != len(c) {
		return fmt.Errorf("%w: %w: path has %d certificates, chain has %d", ErrUntrusted, ErrLengthMismatch, len(path), len(c))
	}
	for i := range path {
		if !path[i].Equal(c[i]) {
			return fmt.Errorf("%w: %w: position %d", ErrUntrusted, ErrOrderMismatch, i)
		}
	}

	return nil
}

// ValidateWalk verifies the chain by checking every link explicitly. All failed
// checks are reported, joined into one error.
func ValidateWalk(c Chain, root *x509.Certificate, now time.Time) error {
	if err := checkShape(c, root); err != nil {
		return err
	}

	var errs error
	for i, cert := range c {
		if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			errs = multierr.Append(errs, fmt.Errorf("%w: %d (%s) valid %s to %s",
				ErrValidity, i, cert.Subject, cert.NotBefore.Format(time.RFC3339), cert.NotAfter.Format(time.RFC3339)))
		}
	}

	for i, cert := range c {
		if len(cert.UnhandledCriticalExtensions) != 0 {
			errs = multierr.Append(errs, fmt.Errorf("%w: %d (%s) %v",
				ErrUnhandledCrit, i, cert.Subject, cert.UnhandledCriticalExtensions))
		}
	}

	for i := 0; i < len(c)-1; i++ {
		child, parent := c[i], c[i+1]
		if !bytes.Equal(child.RawIssuer, parent.RawSubject) {
			errs = multierr.Append(errs, fmt.Errorf("%w: %d (%s) issued by %s, parent is %s",
				ErrIssuerMismatch, i, child.Subject, child.Issuer, parent.Subject))
			continue
		}
		if err := child.CheckSignatureFrom(parent); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %d (%s): %w", ErrSignature, i, child.Subject, err))
		}
	}

	// c[1:] are the issuing certificates, the one at offset i has i intermediates below it.
	for i, ca := range c[1:] {
		if !ca.BasicConstraintsValid || !ca.IsCA {
			errs = multierr.Append(errs, fmt.Errorf("%w: %d (%s)", ErrNotCA, i+1, ca.Subject))
			continue
		}
		if ca.MaxPathLen >= 0 && i > ca.MaxPathLen {
			errs = multierr.Append(errs, fmt.Errorf("%w: %d (%s) allows %d, has %d below it",
				ErrPathLen, i+1, ca.Subject, ca.MaxPathLen, i))
		}
	}

	if !allowsServerAuth(c.Leaf()) {
		errs = multierr.Append(errs, fmt.Errorf("%w: leaf (%s)", ErrPurpose, c.Leaf().Subject))
	}
	for i, cert := range c.Intermediates() {
		if !allowsServerAuth(cert) {
			errs = multierr.Append(errs, fmt.Errorf("%w: intermediate %d (%s)", ErrPurpose, i+1, cert.Subject))
		}
	}

	if err := root.CheckSignatureFrom(root); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: %w", ErrNotSelfSigned, err))
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrUntrusted, errs)
	}
	return nil
}

// allowsServerAuth reports whether cert is usable for server authentication.
// A certificate without any extended key usage is unrestricted.
func allowsServerAuth(cert *x509.Certificate) bool {
	if len(cert.ExtKeyUsage) == 0 && len(cert.UnknownExtKeyUsage) == 0 {
		return true
	}
	return slices.ContainsFunc(cert.ExtKeyUsage, func(u x509.ExtKeyUsage) bool {
		return u == x509.ExtKeyUsageServerAuth || u == x509.ExtKeyUsageAny
	})
}
