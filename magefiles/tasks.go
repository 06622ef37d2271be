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

//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Build compiles the seatverify command into ./bin.
func Build() error {
	return sh.RunV("go", "build", "-o", "bin/seatverify", "./cmd/seatverify")
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet over the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs vet and the tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Nonce prints a fresh challenge nonce.
func Nonce() error {
	return sh.RunV("go", "run", "./cmd/seatverify", "nonce")
}

// Inspect prints the unverified contents of the token in the file named by $TOKEN.
func Inspect() error {
	return sh.RunWithV(nil, "go", "run", "./cmd/seatverify", "inspect", "--token-file", "$TOKEN")
}

// Verify checks the token in $TOKEN against the hex nonce in $NONCE.
func Verify() error {
	mg.Deps(Build)
	return sh.RunWithV(nil, "bin/seatverify", "verify", "--token-file", "$TOKEN", "--nonce", "$NONCE")
}
