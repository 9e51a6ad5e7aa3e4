/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("aspects: []"), 0644))
}

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.yaml"))
	touch(t, filepath.Join(root, "a.json"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.yml"))
	touch(t, filepath.Join(root, "skip", "d.yaml"))
	touch(t, filepath.Join(root, "e.bak.yaml"))

	paths, err := FindFiles(root, []string{"*.yaml", "*.yml", "*.json"}, "skip", "*.bak.*")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.json"),
		filepath.Join(root, "b.yaml"),
		filepath.Join(root, "sub", "c.yml"),
	}, paths)

	paths, err = FindFiles(root, []string{"*.toml"})
	require.NoError(t, err)
	assert.Empty(t, paths)

	_, err = FindFiles(filepath.Join(root, "notFound"), []string{"*.yaml"})
	assert.Error(t, err)
}
