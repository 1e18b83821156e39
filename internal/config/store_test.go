// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeStoreFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestGetFallsBackToParent(t *testing.T) {
	dir := t.TempDir()
	child, err := NewStore(filepath.Join(dir, "child.toml"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	parent, err := NewStore(filepath.Join(dir, "parent.toml"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	parent.Set("classkit", "org", "course-2026")
	parent.Set("classkit", "user", "teacher")
	child.Set("classkit", "user", "assistant")
	if err := child.SetParent(parent); err != nil {
		t.Fatalf("SetParent() error = %v", err)
	}

	tests := []struct {
		key   string
		want  string
		found bool
	}{
		{"user", "assistant", true}, // local wins
		{"org", "course-2026", true},
		{"token", "", false},
	}
	for _, tt := range tests {
		got, ok := child.Get("classkit", tt.key)
		if ok != tt.found || got != tt.want {
			t.Errorf("Get(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.found)
		}
	}
}

func TestSetWritesLocalOnly(t *testing.T) {
	dir := t.TempDir()
	child, _ := NewStore(filepath.Join(dir, "child.toml"))
	parent, _ := NewStore(filepath.Join(dir, "parent.toml"))
	if err := child.SetParent(parent); err != nil {
		t.Fatalf("SetParent() error = %v", err)
	}

	child.Set("javac", "flags", "-Werror")

	if _, ok := parent.Get("javac", "flags"); ok {
		t.Error("write leaked into the parent store")
	}
	if got, _ := child.Get("javac", "flags"); got != "-Werror" {
		t.Errorf("local value = %q, want -Werror", got)
	}
}

func TestSetParentRejectsCycle(t *testing.T) {
	dir := t.TempDir()
	a, _ := NewStore(filepath.Join(dir, "a.toml"))
	b, _ := NewStore(filepath.Join(dir, "b.toml"))
	c, _ := NewStore(filepath.Join(dir, "c.toml"))

	if err := b.SetParent(c); err != nil {
		t.Fatalf("SetParent(b->c) error = %v", err)
	}
	if err := a.SetParent(b); err != nil {
		t.Fatalf("SetParent(a->b) error = %v", err)
	}

	err := c.SetParent(a)
	if err == nil {
		t.Fatal("SetParent() accepted a cyclic chain")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error type = %T, want *CycleError", err)
	}
	// The message must name the full cycle path.
	for _, name := range []string{"a.toml", "b.toml", "c.toml"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("cycle message %q does not name %s", err.Error(), name)
		}
	}
	if !strings.Contains(err.Error(), " -> ") {
		t.Errorf("cycle message %q missing arrow separators", err.Error())
	}

	// The rejected assignment must leave the store untouched.
	if c.Parent() != nil {
		t.Error("parent pointer mutated despite cycle rejection")
	}
}

func TestParentConfigResolvedRelativeToOwnFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "course")
	if err := os.MkdirAll(sub, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	writeStoreFile(t, filepath.Join(dir, "base.toml"), `
[classkit]
org = "base-org"
`)
	writeStoreFile(t, filepath.Join(sub, "child.toml"), `
[classkit]
parent_config = "../base.toml"
user = "assistant"
`)

	// Run from an unrelated working directory: the relative parent path
	// must resolve against the child file's location, not the cwd.
	other := t.TempDir()
	origWd, _ := os.Getwd()
	if err := os.Chdir(other); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() {
		if err := os.Chdir(origWd); err != nil {
			t.Errorf("restore wd: %v", err)
		}
	}()

	store, err := NewStore(filepath.Join(sub, "child.toml"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if got, _ := store.Get("classkit", "org"); got != "base-org" {
		t.Errorf("org = %q, want base-org via parent chain", got)
	}
	if got, _ := store.Get("classkit", "user"); got != "assistant" {
		t.Errorf("user = %q, want assistant", got)
	}
}

func TestLoadRejectsOnDiskCycle(t *testing.T) {
	dir := t.TempDir()
	writeStoreFile(t, filepath.Join(dir, "a.toml"), `
[classkit]
parent_config = "b.toml"
`)
	writeStoreFile(t, filepath.Join(dir, "b.toml"), `
[classkit]
parent_config = "a.toml"
`)

	_, err := NewStore(filepath.Join(dir, "a.toml"))
	if err == nil {
		t.Fatal("NewStore() accepted an on-disk parent cycle")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error type = %T, want *CycleError", err)
	}
}

func TestMalformedFileIsFormatError(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"invalid toml", "[classkit\norg ="},
		{"top-level key outside section", `org = "x"`},
		{"array value", "[classkit]\norg = [1, 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".toml")
			writeStoreFile(t, path, tt.content)
			_, err := NewStore(path)
			if !errors.Is(err, ErrFormat) {
				t.Errorf("NewStore() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestMissingFileYieldsEmptyStore(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if got := store.Sections(); len(got) != 0 {
		t.Errorf("Sections() = %v, want empty", got)
	}
}

func TestSaveCreatesOwnerOnlyFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "config.toml")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	store.Set("classkit", "token", "secret")

	if err := store.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0o700 {
		t.Errorf("dir mode = %o, want 700", perm)
	}
}

func TestRefreshPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeStoreFile(t, path, "[classkit]\norg = \"before\"\n")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if got, _ := store.Get("classkit", "org"); got != "before" {
		t.Fatalf("org = %q, want before", got)
	}

	writeStoreFile(t, path, "[classkit]\norg = \"after\"\n")
	if err := store.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got, _ := store.Get("classkit", "org"); got != "after" {
		t.Errorf("org = %q after refresh, want after", got)
	}
}

func TestScalarValuesStringified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeStoreFile(t, path, `
[javac]
enabled = true
count = 3
ratio = 1.5
`)

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	for key, want := range map[string]string{"enabled": "true", "count": "3", "ratio": "1.5"} {
		if got, _ := store.Get("javac", key); got != want {
			t.Errorf("Get(javac, %s) = %q, want %q", key, got, want)
		}
	}
}
