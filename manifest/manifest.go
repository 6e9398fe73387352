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

// Package manifest discovers extension descriptors from a directory tree.
//
// Every immediate subdirectory of the extensions directory may hold one
// manifest named extension.yaml, extension.yml or extension.json. JSON
// manifests are decoded by the YAML decoder.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zeebo/xxh3"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	gerrors "github.com/tochemey/exthost/errors"
	"github.com/tochemey/exthost/extension"
	"github.com/tochemey/exthost/internal/validation"
)

// FileNames lists the manifest file names looked up in every extension directory, in order.
var FileNames = []string{"extension.yaml", "extension.yml", "extension.json"}

var (
	identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-_]*\.[a-zA-Z0-9][a-zA-Z0-9-_.]*$`)
	validate          = validator.New()
)

// document is the on-disk form of a manifest.
type document struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name" validate:"required"`
	Publisher        string   `yaml:"publisher" validate:"required"`
	Version          string   `yaml:"version" validate:"required,semver"`
	Main             string   `yaml:"main"`
	Location         string   `yaml:"location"`
	Builtin          bool     `yaml:"builtin"`
	ActivationEvents []string `yaml:"activationEvents" validate:"dive,required"`
	Dependencies     []string `yaml:"dependencies" validate:"dive,required"`
	UnderDevelopment bool     `yaml:"underDevelopment"`
}

// Entry is a parsed manifest.
type Entry struct {
	// Descriptor is the extension described by the manifest.
	Descriptor *extension.Descriptor
	// Path is the manifest file.
	Path string
	// Fingerprint changes whenever the manifest content or location changes.
	Fingerprint uint64
}

// Set is an ordered collection of manifests keyed by extension identifier.
type Set struct {
	entries []*Entry
	index   map[string]*Entry
}

// NewSet creates a Set. Entries sharing an identifier are dropped after the first one.
func NewSet(entries ...*Entry) *Set {
	set := &Set{index: make(map[string]*Entry, len(entries))}
	for _, entry := range entries {
		set.add(entry)
	}
	return set
}

func (s *Set) add(entry *Entry) bool {
	key := entry.Descriptor.ID.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = entry
	s.entries = append(s.entries, entry)
	return true
}

// Len returns the number of manifests.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Get returns the manifest of the extension.
func (s *Set) Get(id extension.Identifier) (*Entry, bool) {
	if s == nil {
		return nil, false
	}
	entry, ok := s.index[id.Key()]
	return entry, ok
}

// Entries returns the manifests in directory order.
func (s *Set) Entries() []*Entry {
	if s == nil {
		return nil
	}
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Descriptors returns the described extensions in directory order.
func (s *Set) Descriptors() []*extension.Descriptor {
	if s == nil {
		return nil
	}
	out := make([]*extension.Descriptor, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Descriptor)
	}
	return out
}

// IDs returns the extension identifiers in directory order.
func (s *Set) IDs() []extension.Identifier {
	if s == nil {
		return nil
	}
	out := make([]extension.Identifier, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Descriptor.ID)
	}
	return out
}

// Load reads the manifests found under dir.
//
// Invalid manifests are skipped: the returned Set holds the valid ones and
// the error combines one errors.ErrInvalidManifest per skipped manifest. The
// Set is nil only when dir itself cannot be read.
func Load(dir string) (*Set, error) {
	return load(dir, ParseFile)
}

// ParseFile reads and validates a single manifest file.
func ParseFile(path string) (*Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, raw)
}

// Parse decodes and validates the content of the manifest stored at path.
func Parse(path string, raw []byte) (*Entry, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, gerrors.NewErrInvalidManifest(path, err)
	}

	if doc.ID == "" && doc.Publisher != "" && doc.Name != "" {
		doc.ID = doc.Publisher + "." + doc.Name
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, gerrors.NewErrInvalidManifest(path, err)
	}

	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewPatternValidator("id", identifierPattern, doc.ID))
	for _, dep := range doc.Dependencies {
		chain.AddValidator(validation.NewPatternValidator("dependencies", identifierPattern, dep))
	}
	if err := chain.Validate(); err != nil {
		return nil, gerrors.NewErrInvalidManifest(path, err)
	}

	dir := filepath.Dir(path)
	location := doc.Location
	switch {
	case location == "":
		location = dir
	case !filepath.IsAbs(location):
		location = filepath.Join(dir, location)
	}

	dependencies := make([]extension.Identifier, 0, len(doc.Dependencies))
	for _, dep := range doc.Dependencies {
		dependencies = append(dependencies, extension.Identifier(dep))
	}

	return &Entry{
		Descriptor: &extension.Descriptor{
			ID:               extension.Identifier(doc.ID),
			Name:             doc.Name,
			Publisher:        doc.Publisher,
			Version:          doc.Version,
			Location:         filepath.Clean(location),
			Main:             doc.Main,
			Builtin:          doc.Builtin,
			ActivationEvents: doc.ActivationEvents,
			Dependencies:     dependencies,
			UnderDevelopment: doc.UnderDevelopment,
		},
		Path:        path,
		Fingerprint: fingerprint(path, raw),
	}, nil
}

func fingerprint(path string, raw []byte) uint64 {
	hasher := xxh3.New()
	_, _ = hasher.WriteString(path)
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write(raw)
	return hasher.Sum64()
}

func load(dir string, parse func(path string) (*Entry, error)) (*Set, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extensions directory %s: %w", dir, err)
	}

	set := NewSet()
	var violations error
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() || strings.HasPrefix(dirEntry.Name(), ".") {
			continue
		}

		path, ok := lookup(filepath.Join(dir, dirEntry.Name()))
		if !ok {
			continue
		}

		entry, err := parse(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			violations = multierr.Append(violations, err)
			continue
		case entry == nil:
			continue
		}

		if !set.add(entry) {
			violations = multierr.Append(violations,
				gerrors.NewErrInvalidManifest(path, fmt.Errorf("duplicate extension id %s", entry.Descriptor.ID)))
		}
	}
	return set, violations
}

// lookup returns the first manifest file present in dir.
func lookup(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
