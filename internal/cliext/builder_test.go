// SPDX-License-Identifier: MPL-2.0

package cliext

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"classkit-cli/internal/config"
	"classkit-cli/internal/forge"
	"classkit-cli/internal/plug"

	"github.com/spf13/cobra"
)

// newTestStore creates an empty store backed by a temp file.
func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

// captureRunner records the last invocation handed to the runner.
type captureRunner struct {
	cmd  *Command
	args *ParsedArgs
}

func (c *captureRunner) run(_ context.Context, cmd *Command, args *ParsedArgs) error {
	c.cmd = cmd
	c.args = args
	return nil
}

func newTestBuilder(t *testing.T, store *config.Store) (*Builder, *cobra.Command, *captureRunner) {
	t.Helper()
	root := &cobra.Command{Use: "classkit", SilenceUsage: true, SilenceErrors: true}
	capture := &captureRunner{}
	return NewBuilder(root, store, capture.run, nil), root, capture
}

func execute(t *testing.T, root *cobra.Command, args ...string) error {
	t.Helper()
	root.SetArgs(args)
	return root.Execute()
}

func TestAddCreatesCategoryAndAction(t *testing.T) {
	b, root, capture := newTestBuilder(t, newTestStore(t))

	err := b.Add("greeter", &Command{
		Name:     "hello",
		Category: "misc",
		Opts:     []Opt{&Option{Key: "greeting", Default: "hi"}},
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := execute(t, root, "misc", "hello", "--greeting", "hej"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if capture.args == nil {
		t.Fatal("runner not invoked")
	}
	if capture.args.Category != "misc" || capture.args.Action != "hello" {
		t.Errorf("dispatched to %s/%s", capture.args.Category, capture.args.Action)
	}
	if got := capture.args.String("greeting"); got != "hej" {
		t.Errorf("greeting = %q, want hej", got)
	}
}

func TestBareActionAttachesToRoot(t *testing.T) {
	b, root, capture := newTestBuilder(t, newTestStore(t))

	if err := b.Add("verify", &Command{Name: "verify"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := execute(t, root, "verify"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if capture.cmd == nil || !capture.cmd.Bare() {
		t.Error("bare action not marked bare")
	}
}

func TestNameDerivedFromPluginAndKebabed(t *testing.T) {
	b, root, capture := newTestBuilder(t, newTestStore(t))

	if err := b.Add("myPluginName", &Command{Category: "tools"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := execute(t, root, "tools", "my-plugin-name"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if capture.args.Action != "my-plugin-name" {
		t.Errorf("action = %q, want my-plugin-name", capture.args.Action)
	}
}

func TestDuplicateActionRejected(t *testing.T) {
	b, _, _ := newTestBuilder(t, newTestStore(t))

	if err := b.Add("one", &Command{Name: "run", Category: "tools"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	err := b.Add("two", &Command{Name: "run", Category: "tools"})
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("error = %v, want *DefinitionError", err)
	}
}

func TestCommandAndExtensionRolesExclusive(t *testing.T) {
	b, _, _ := newTestBuilder(t, newTestStore(t))

	err := b.Add("confused", &Command{
		Category: "tools",
		Extends:  []Action{{Category: "repos", Name: "setup"}},
	})
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("error = %v, want *DefinitionError", err)
	}
	if !strings.Contains(err.Error(), "both") {
		t.Errorf("message %q should name the role conflict", err.Error())
	}
}

func TestRepoDiscoveryRequiresStudentsAndAPI(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
		ok   bool
	}{
		{
			"valid combination",
			&Command{
				Name: "clone", Category: "repos", RequiresAPI: true,
				BaseParsers: []BaseParser{BaseParserStudents, BaseParserRepoDiscovery},
			},
			true,
		},
		{
			"missing students parser",
			&Command{
				Name: "clone", Category: "repos", RequiresAPI: true,
				BaseParsers: []BaseParser{BaseParserRepoDiscovery},
			},
			false,
		},
		{
			"missing api request",
			&Command{
				Name: "clone", Category: "repos",
				BaseParsers: []BaseParser{BaseParserStudents, BaseParserRepoDiscovery},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, _ := newTestBuilder(t, newTestStore(t))
			err := b.Add("p", tt.cmd)
			if tt.ok && err != nil {
				t.Errorf("Add() error = %v, want nil", err)
			}
			if !tt.ok {
				var defErr *DefinitionError
				if !errors.As(err, &defErr) {
					t.Errorf("Add() error = %v, want *DefinitionError", err)
				}
			}
		})
	}
}

func TestConfiguredValueSatisfiesRequired(t *testing.T) {
	store := newTestStore(t)
	store.Set("classkit", "org", "course-2026")
	store.Set("classkit", "base_url", "https://forge.test")
	store.Set("classkit", "user", "teacher")
	store.Set("classkit", "token", "secret")

	b, root, capture := newTestBuilder(t, store)
	if err := b.Add("classkit", &Command{
		Name: "ping", Category: "debug",
		BaseParsers: []BaseParser{BaseParserBase},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// All four connection options are required, none passed on the line.
	if err := execute(t, root, "debug", "ping"); err != nil {
		t.Fatalf("Execute() error = %v, configured values must satisfy required options", err)
	}
	if got := capture.args.String("org"); got != "course-2026" {
		t.Errorf("org = %q, want the configured value", got)
	}

	// A flag still overrides the configured default.
	if err := execute(t, root, "debug", "ping", "--org", "other"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := capture.args.String("org"); got != "other" {
		t.Errorf("org = %q, want the flag value", got)
	}
}

func TestRequiredOptionStillEnforcedWithoutConfig(t *testing.T) {
	b, root, _ := newTestBuilder(t, newTestStore(t))
	if err := b.Add("p", &Command{
		Name: "run", Category: "tools",
		Opts: []Opt{&Option{Key: "target", Required: true}},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := execute(t, root, "tools", "run"); err == nil {
		t.Error("missing required option accepted")
	}
}

func TestConfiguredValueForNonConfigurableOptionRejected(t *testing.T) {
	store := newTestStore(t)
	store.Set("mytool", "secret_knob", "on")

	b, _, _ := newTestBuilder(t, store)
	err := b.Add("mytool", &Command{
		Name: "run", Category: "tools",
		Opts: []Opt{&Option{Key: "secret_knob"}},
	})
	if !errors.Is(err, ErrNotConfigurable) {
		t.Fatalf("Add() error = %v, want ErrNotConfigurable", err)
	}
	for _, want := range []string{"mytool", "secret_knob"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %s", err.Error(), want)
		}
	}
}

func TestConfiguredMultiValueTokenized(t *testing.T) {
	store := newTestStore(t)
	store.Set("grader", "assignments", `task-1 "hard task" task-3`)

	b, root, capture := newTestBuilder(t, store)
	if err := b.Add("grader", &Command{
		Name: "grade", Category: "tools",
		Opts: []Opt{&Option{Key: "assignments", Nargs: NargsPlus, Configurable: true, Required: true}},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := execute(t, root, "tools", "grade"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	got := capture.args.StringSlice("assignments")
	want := []string{"task-1", "hard task", "task-3"}
	if len(got) != len(want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("assignments = %v, want shell-tokenized %v", got, want)
		}
	}
}

func TestConverterAppliedPerToken(t *testing.T) {
	b, root, capture := newTestBuilder(t, newTestStore(t))
	upper := func(tok string) (any, error) { return strings.ToUpper(tok), nil }
	if err := b.Add("p", &Command{
		Name: "run", Category: "tools",
		Opts: []Opt{&Option{Key: "names", Nargs: NargsPlus, Convert: upper}},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := execute(t, root, "tools", "run", "--names", "a", "--names", "b"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	got := capture.args.StringSlice("names")
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("names = %v, want [A B]", got)
	}
}

func TestVariadicBeforeFixedPositional(t *testing.T) {
	b, root, capture := newTestBuilder(t, newTestStore(t))
	if err := b.Add("p", &Command{
		Name: "run", Category: "tools",
		Opts: []Opt{
			&Positional{Key: "files", Nargs: NargsPlus},
			&Positional{Key: "mode"},
		},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// The variadic positional consumes every token, leaving none for the
	// fixed one. Binding must leave the fixed key unset, not fall over.
	if err := execute(t, root, "tools", "run", "a", "b"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	files := capture.args.StringSlice("files")
	if len(files) != 2 || files[0] != "a" || files[1] != "b" {
		t.Errorf("files = %v, want [a b]", files)
	}
	if v, ok := capture.args.Get("mode"); ok {
		t.Errorf("mode bound to %v, want unset", v)
	}
}

func TestFlagStoreConstSemantics(t *testing.T) {
	b, root, capture := newTestBuilder(t, newTestStore(t))
	if err := b.Add("p", &Command{
		Name: "run", Category: "tools",
		Opts: []Opt{&Flag{Key: "discover_repos", Const: true}},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := execute(t, root, "tools", "run"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if capture.args.Bool("discover_repos") {
		t.Error("flag true without being passed")
	}

	if err := execute(t, root, "tools", "run", "--discover-repos"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !capture.args.Bool("discover_repos") {
		t.Error("flag not stored as const when passed")
	}
}

func TestMutexGroupAtMostOneConfigurable(t *testing.T) {
	b, _, _ := newTestBuilder(t, newTestStore(t))
	err := b.Add("p", &Command{
		Name: "run", Category: "tools",
		Opts: []Opt{&MutexGroup{Members: []Opt{
			&Option{Key: "left", Configurable: true},
			&Option{Key: "right", Configurable: true},
		}}},
	})
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("error = %v, want *DefinitionError", err)
	}
}

func TestMutexGroupExclusivityEnforced(t *testing.T) {
	// Flag state persists across Execute calls, so each case gets a
	// fresh command tree.
	tests := []struct {
		name string
		args []string
		ok   bool
	}{
		{"both members", []string{"tools", "run", "--assignments", "a", "--discover-repos"}, false},
		{"no member", []string{"tools", "run"}, false},
		{"single member", []string{"tools", "run", "--assignments", "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, root, _ := newTestBuilder(t, newTestStore(t))
			if err := b.Add("p", &Command{
				Name: "run", Category: "tools",
				Opts: []Opt{&MutexGroup{Required: true, Members: []Opt{
					&Option{Key: "assignments", Nargs: NargsPlus},
					&Flag{Key: "discover_repos", Const: true},
				}}},
			}); err != nil {
				t.Fatalf("Add() error = %v", err)
			}

			err := execute(t, root, tt.args...)
			if tt.ok && err != nil {
				t.Errorf("Execute() error = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Execute() accepted an invalid member combination")
			}
		})
	}
}

func TestExtensionAddsOptionsToExistingAction(t *testing.T) {
	store := newTestStore(t)
	b, root, capture := newTestBuilder(t, store)

	if err := b.Add("classkit", &Command{Name: "clone", Category: "repos"}); err != nil {
		t.Fatalf("Add(command) error = %v", err)
	}
	if err := b.Add("javac", &Command{
		Extends: []Action{{Category: "repos", Name: "clone"}},
		Opts:    []Opt{&Option{Key: "javac_flags", Default: "-Werror"}},
	}); err != nil {
		t.Fatalf("Add(extension) error = %v", err)
	}

	if err := execute(t, root, "repos", "clone"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := capture.args.String("javac_flags"); got != "-Werror" {
		t.Errorf("javac_flags = %q, want the extension's default", got)
	}
}

func TestExtensionOfUnknownActionRejected(t *testing.T) {
	b, _, _ := newTestBuilder(t, newTestStore(t))
	err := b.Add("javac", &Command{
		Extends: []Action{{Category: "repos", Name: "nope"}},
	})
	var defErr *DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("error = %v, want *DefinitionError", err)
	}
}

func TestReporterUnitsPerSection(t *testing.T) {
	store := newTestStore(t)
	b, _, _ := newTestBuilder(t, store)

	if err := b.Add("javac", &Command{
		Name: "check", Category: "tools",
		Opts: []Opt{
			&Option{Key: "flags", Configurable: true},
			&Option{Key: "timeout", Configurable: true},
			&Option{Key: "hidden"},
		},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	units := b.ReporterUnits()
	if len(units) != 1 {
		t.Fatalf("got %d reporter units, want 1", len(units))
	}
	if got := units[0].QualifiedName; got != "classkit/cli/javac" {
		t.Errorf("QualifiedName = %q, want classkit/cli/javac", got)
	}

	report, ok := units[0].Plugin.Hooks()[plug.HookConfigurableArgs].(func() *plug.ConfigurableArgs)
	if !ok {
		t.Fatal("reporter does not implement the configurable-args hook")
	}
	r := report()
	if r.Section != "javac" {
		t.Errorf("Section = %q, want javac", r.Section)
	}
	want := []string{"flags", "timeout"}
	if len(r.Keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", r.Keys, want)
	}
	for i := range want {
		if r.Keys[i] != want[i] {
			t.Fatalf("Keys = %v, want %v (configurable only, sorted)", r.Keys, want)
		}
	}
}

func TestParsedArgsInitArgs(t *testing.T) {
	args := &ParsedArgs{}
	args.Set("base_url", "https://forge.test")
	args.Set("org", "course")
	args.Set("user", "teacher")
	args.Set("token", "secret")

	got := args.InitArgs()
	want := forge.InitArgs{BaseURL: "https://forge.test", Org: "course", User: "teacher", Token: "secret"}
	if got != want {
		t.Errorf("InitArgs() = %+v, want %+v", got, want)
	}
}
