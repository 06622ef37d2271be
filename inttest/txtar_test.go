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

package inttest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openpcc/seatattest/inttest"
	"github.com/stretchr/testify/require"
)

func TestTextArchiveFS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.txtar")
	archive := "comment line\n-- a.txt --\nhello\n-- dir/b.txt --\nworld\n"
	require.NoError(t, os.WriteFile(path, []byte(archive), 0o600))

	fsys := inttest.TextArchiveFS(t, path)
	require.Equal(t, "hello\n", string(inttest.ReadFile(t, fsys, "a.txt")))
	require.Equal(t, "world\n", string(inttest.ReadFile(t, fsys, "dir/b.txt")))
}
