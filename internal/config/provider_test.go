// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadLayersStoreValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
[classkit]
base_url = "https://gitea.example.com"
org = "course-2026"
plugins = "javac, pylint"
`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, store, err := NewProvider().Load(context.Background(), LoadOptions{StorePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "https://gitea.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Org != "course-2026" {
		t.Errorf("Org = %q", cfg.Org)
	}
	if store == nil || store.Path() != path {
		t.Errorf("store path = %v, want %s", store, path)
	}

	names := cfg.PluginNames()
	if len(names) != 2 || names[0] != "javac" || names[1] != "pylint" {
		t.Errorf("PluginNames() = %v, want [javac pylint]", names)
	}
}

func TestLoadEnvOverridesStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[classkit]\norg = \"from-file\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("CLASSKIT_ORG", "from-env")

	cfg, _, err := NewProvider().Load(context.Background(), LoadOptions{StorePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Org != "from-env" {
		t.Errorf("Org = %q, want from-env", cfg.Org)
	}
}

func TestLoadRejectsUnknownCoreKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
[classkit]
org = "ok"
tokn = "typo"
`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, err := NewProvider().Load(context.Background(), LoadOptions{StorePath: path})
	if err == nil {
		t.Fatal("Load() accepted an unknown core key")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name the offending file", err.Error())
	}
}

func TestLoadAllowsUnknownPluginSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
[classkit]
org = "ok"

[javac]
anything = "goes"
`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := NewProvider().Load(context.Background(), LoadOptions{StorePath: path}); err != nil {
		t.Fatalf("Load() rejected a plugin section: %v", err)
	}
}

func TestLoadValidatesParentChain(t *testing.T) {
	dir := t.TempDir()
	parent := filepath.Join(dir, "parent.toml")
	child := filepath.Join(dir, "child.toml")
	if err := os.WriteFile(parent, []byte("[classkit]\nbadkey = \"x\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(child, []byte("[classkit]\nparent_config = \"parent.toml\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, err := NewProvider().Load(context.Background(), LoadOptions{StorePath: child})
	if err == nil {
		t.Fatal("Load() accepted an unknown key in a parent store")
	}
	if !strings.Contains(err.Error(), parent) {
		t.Errorf("error %q does not name the parent file", err.Error())
	}
}

func TestPluginNamesEmpty(t *testing.T) {
	cfg := &CoreConfig{Plugins: "  "}
	if names := cfg.PluginNames(); names != nil {
		t.Errorf("PluginNames() = %v, want nil", names)
	}
}
