// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// CoreSection is the reserved section holding classkit's own settings.
	CoreSection = "classkit"

	// ParentConfigKey points at a parent configuration file. A relative
	// value is interpreted relative to the file that contains it.
	ParentConfigKey = "parent_config"
)

// ErrFormat is wrapped by all errors caused by a malformed backing file.
var ErrFormat = errors.New("malformed configuration file")

// CycleError reports a cyclic parent-configuration chain. Chain holds the
// file paths along the cycle, first element repeated at the end.
type CycleError struct {
	Chain []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "cyclic parent configuration: " + strings.Join(e.Chain, " -> ")
}

// Store is a layered section/key/value store backed by a TOML file. The
// file does not have to exist; a missing file yields an empty store.
// Lookups fall back to the parent chain, writes always target the local
// store.
type Store struct {
	path     string
	sections map[string]map[string]string
	parent   *Store
}

// NewStore creates a store backed by the file at path, reading it if it
// exists and resolving the parent chain declared via parent_config keys.
func NewStore(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path %q: %w", path, err)
	}
	s := &Store{path: abs, sections: map[string]map[string]string{}}
	if err := s.load(map[string]bool{abs: true}, []string{abs}); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the absolute path of the backing file.
func (s *Store) Path() string { return s.path }

// Parent returns the parent store, or nil.
func (s *Store) Parent() *Store { return s.parent }

// Get returns the value for key in section, falling back to the parent
// chain. The second return reports whether the key was found anywhere.
func (s *Store) Get(section, key string) (string, bool) {
	if sec, ok := s.sections[section]; ok {
		if v, ok := sec[key]; ok {
			return v, true
		}
	}
	if s.parent != nil {
		return s.parent.Get(section, key)
	}
	return "", false
}

// GetDefault returns the value for key in section, or fallback when the
// key is absent from the whole chain. A total miss is not an error.
func (s *Store) GetDefault(section, key, fallback string) string {
	if v, ok := s.Get(section, key); ok {
		return v
	}
	return fallback
}

// CreateSection adds the named section to the local store. Adding an
// existing section is a no-op.
func (s *Store) CreateSection(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty section name", ErrFormat)
	}
	if _, ok := s.sections[name]; !ok {
		s.sections[name] = map[string]string{}
	}
	return nil
}

// Set writes a value into the local store, creating the section as needed.
// The parent chain is never mutated.
func (s *Store) Set(section, key, value string) {
	sec, ok := s.sections[section]
	if !ok {
		sec = map[string]string{}
		s.sections[section] = sec
	}
	sec[key] = value
}

// Sections returns the local section names in sorted order.
func (s *Store) Sections() []string {
	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys returns the local keys of a section in sorted order.
func (s *Store) Keys(section string) []string {
	sec := s.sections[section]
	keys := make([]string, 0, len(sec))
	for k := range sec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetParent assigns a parent store after re-validating the full chain for
// cycles. On a detected cycle the parent pointer is left untouched and the
// returned CycleError names the full cycle path.
func (s *Store) SetParent(p *Store) error {
	chain := []string{s.path}
	for node := p; node != nil; node = node.parent {
		chain = append(chain, node.path)
		if node == s || node.path == s.path {
			return &CycleError{Chain: chain}
		}
	}
	s.parent = p
	return nil
}

// Save serializes the local store to its backing file, creating parent
// directories as needed. The file and directories are owner-only since the
// store may hold an access token.
func (s *Store) Save() error {
	data, err := toml.Marshal(s.sections)
	if err != nil {
		return fmt.Errorf("serialize configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create configuration directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write configuration file: %w", err)
	}
	return nil
}

// Refresh re-reads the backing file if it exists and re-resolves the
// parent link from the parent_config key.
func (s *Store) Refresh() error {
	s.sections = map[string]map[string]string{}
	s.parent = nil
	return s.load(map[string]bool{s.path: true}, []string{s.path})
}

// load reads the backing file into the store and follows the declared
// parent chain. visited and trail track the files seen so far so that an
// on-disk parent cycle is rejected at load time with the full cycle path.
func (s *Store) load(visited map[string]bool, trail []string) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read configuration file %s: %w", s.path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFormat, s.path, err)
	}

	for name, v := range raw {
		table, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s: top-level key %q must live inside a section", ErrFormat, s.path, name)
		}
		sec := map[string]string{}
		for k, val := range table {
			str, err := valueToString(val)
			if err != nil {
				return fmt.Errorf("%w: %s: [%s] %s: %v", ErrFormat, s.path, name, k, err)
			}
			sec[k] = str
		}
		s.sections[name] = sec
	}

	parentPath, ok := s.sections[CoreSection][ParentConfigKey]
	if !ok || strings.TrimSpace(parentPath) == "" {
		return nil
	}
	if !filepath.IsAbs(parentPath) {
		parentPath = filepath.Join(filepath.Dir(s.path), parentPath)
	}
	parentPath = filepath.Clean(parentPath)

	if visited[parentPath] {
		return &CycleError{Chain: append(trail, parentPath)}
	}
	visited[parentPath] = true

	parent := &Store{path: parentPath, sections: map[string]map[string]string{}}
	if err := parent.load(visited, append(trail, parentPath)); err != nil {
		return err
	}
	s.parent = parent
	return nil
}

// valueToString renders a scalar TOML value as the string form the store
// works with. Arrays and nested tables are not part of the store format.
func valueToString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool, int64, float64:
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
