// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
)

func writeManifest(t *testing.T, root, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o750))
	path := filepath.Join(root, dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const goManifest = `
id: acme.go
name: go
publisher: acme
version: 1.2.3
main: main.go
activationEvents:
  - onLanguage:go
  - workspaceContains:go.mod
dependencies:
  - acme.tools
`

func TestLoad(t *testing.T) {
	t.Run("Reads manifests in directory order", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "b-go", "extension.yaml", goManifest)
		writeManifest(t, root, "a-tools", "extension.json", `{"name": "tools", "publisher": "acme", "version": "0.1.0", "location": "dist"}`)
		writeManifest(t, root, ".hidden", "extension.yaml", goManifest)
		require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("readme"), 0o600))

		set, err := Load(root)
		require.NoError(t, err)
		require.Equal(t, 2, set.Len())
		assert.Equal(t, []extension.Identifier{"acme.tools", "acme.go"}, set.IDs())

		tools, ok := set.Get("ACME.tools")
		require.True(t, ok)
		assert.Equal(t, filepath.Join(root, "a-tools", "dist"), tools.Descriptor.Location)
		assert.False(t, tools.Descriptor.HasEntryPoint())

		desc := set.Descriptors()[1]
		assert.Equal(t, filepath.Join(root, "b-go"), desc.Location)
		assert.Equal(t, "main.go", desc.Main)
		assert.Equal(t, []string{"onLanguage:go", "workspaceContains:go.mod"}, desc.ActivationEvents)
		assert.Equal(t, []extension.Identifier{"acme.tools"}, desc.Dependencies)
	})
	t.Run("Prefers yaml over json", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "go", "extension.yaml", goManifest)
		writeManifest(t, root, "go", "extension.json", `{"name": "other", "publisher": "acme", "version": "1.0.0"}`)

		set, err := Load(root)
		require.NoError(t, err)
		assert.Equal(t, []extension.Identifier{"acme.go"}, set.IDs())
	})
	t.Run("Skips invalid manifests", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "a", "extension.yaml", goManifest)
		writeManifest(t, root, "b", "extension.yaml", "name: [broken")
		writeManifest(t, root, "c", "extension.yaml", "name: x\npublisher: acme\nversion: not-a-version\n")
		writeManifest(t, root, "d", "extension.yaml", "id: no-dot\nname: x\npublisher: acme\nversion: 1.0.0\n")
		writeManifest(t, root, "e", "extension.yaml", goManifest)

		set, err := Load(root)
		require.ErrorIs(t, err, gerrors.ErrInvalidManifest)
		assert.Contains(t, err.Error(), filepath.Join(root, "b", "extension.yaml"))
		assert.Contains(t, err.Error(), filepath.Join(root, "c", "extension.yaml"))
		assert.Contains(t, err.Error(), "no-dot")
		assert.Contains(t, err.Error(), "duplicate extension id acme.go")
		require.NotNil(t, set)
		assert.Equal(t, []extension.Identifier{"acme.go"}, set.IDs())
	})
	t.Run("Missing directory", func(t *testing.T) {
		set, err := Load(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
		assert.Nil(t, set)
	})
}

func TestParse(t *testing.T) {
	entry, err := Parse("/ext/go/extension.yaml", []byte(goManifest))
	require.NoError(t, err)
	assert.Equal(t, extension.Identifier("acme.go"), entry.Descriptor.ID)
	assert.Equal(t, filepath.Clean("/ext/go"), entry.Descriptor.Location)

	again, err := Parse("/ext/go/extension.yaml", []byte(goManifest))
	require.NoError(t, err)
	assert.Equal(t, entry.Fingerprint, again.Fingerprint)

	moved, err := Parse("/ext/go2/extension.yaml", []byte(goManifest))
	require.NoError(t, err)
	assert.NotEqual(t, entry.Fingerprint, moved.Fingerprint)

	_, err = Parse("/ext/bad/extension.yaml", []byte("id: acme.bad\nname: bad\npublisher: acme\nversion: 1.0.0\ndependencies: [\"bad dep\"]\n"))
	require.ErrorIs(t, err, gerrors.ErrInvalidManifest)
}

func TestDiff(t *testing.T) {
	parse := func(t *testing.T, path, content string) *Entry {
		entry, err := Parse(path, []byte(content))
		require.NoError(t, err)
		return entry
	}
	goEntry := parse(t, "/ext/go/extension.yaml", goManifest)
	toolsEntry := parse(t, "/ext/tools/extension.yaml", "name: tools\npublisher: acme\nversion: 1.0.0\n")
	lintEntry := parse(t, "/ext/lint/extension.yaml", "name: lint\npublisher: acme\nversion: 1.0.0\n")

	t.Run("Identical sets", func(t *testing.T) {
		delta := Diff(NewSet(goEntry, toolsEntry), NewSet(goEntry, toolsEntry))
		assert.True(t, delta.IsEmpty())
	})
	t.Run("From nothing", func(t *testing.T) {
		delta := Diff(nil, NewSet(goEntry))
		assert.Equal(t, []*extension.Descriptor{goEntry.Descriptor}, delta.ToAdd)
		assert.Equal(t, []extension.Identifier{"acme.go"}, delta.MyToAdd)
		assert.Empty(t, delta.ToRemove)
	})
	t.Run("Added and removed", func(t *testing.T) {
		delta := Diff(NewSet(goEntry, toolsEntry), NewSet(goEntry, lintEntry))
		assert.Equal(t, []extension.Identifier{"acme.tools"}, delta.ToRemove)
		assert.Equal(t, []extension.Identifier{"acme.tools"}, delta.MyToRemove)
		assert.Equal(t, []*extension.Descriptor{lintEntry.Descriptor}, delta.ToAdd)
		assert.Equal(t, []extension.Identifier{"acme.lint"}, delta.MyToAdd)
	})
	t.Run("Modified manifest is replaced", func(t *testing.T) {
		modified := parse(t, "/ext/go/extension.yaml", goManifest+"underDevelopment: true\n")
		delta := Diff(NewSet(goEntry), NewSet(modified))
		assert.Equal(t, []extension.Identifier{"acme.go"}, delta.ToRemove)
		assert.Equal(t, []*extension.Descriptor{modified.Descriptor}, delta.ToAdd)
		assert.True(t, delta.ToAdd[0].UnderDevelopment)
	})
}
