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

// Package inttest loads test fixtures stored as text archives.
package inttest

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

// TextArchiveFS parses the txtar file at path into an in-memory file system.
func TextArchiveFS(t testing.TB, path string) fs.FS {
	t.Helper()

	archive, err := txtar.ParseFile(path)
	require.NoError(t, err)

	fsys := fstest.MapFS{}
	for _, f := range archive.Files {
		fsys[f.Name] = &fstest.MapFile{
			Data: f.Data,
			Mode: 0o644,
		}
	}
	return fsys
}

// ReadFile reads name from fsys and fails the test if it is missing.
func ReadFile(t testing.TB, fsys fs.FS, name string) []byte {
	t.Helper()

	b, err := fs.ReadFile(fsys, name)
	require.NoError(t, err)
	return b
}
