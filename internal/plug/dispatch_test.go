// SPDX-License-Identifier: MPL-2.0

package plug

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func registerAll(t *testing.T, reg *Registry, units ...*Unit) {
	t.Helper()
	if err := reg.Register(units); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestFirstShortCircuits(t *testing.T) {
	var called []string
	reg := NewRegistry(nil)
	registerAll(t, reg,
		unitFor(&fakePlugin{name: "early", hooks: map[string]any{
			HookGenerateRepoName: func(team, assignment string) string {
				called = append(called, "early")
				return "early-answer"
			},
		}}, 0),
		unitFor(&fakePlugin{name: "late", hooks: map[string]any{
			HookGenerateRepoName: func(team, assignment string) string {
				called = append(called, "late")
				return "late-answer"
			},
		}}, 1),
	)

	got, err := NewDispatcher(reg, nil).First(HookGenerateRepoName, "t", "a")
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	// The later-registered plugin runs first and wins.
	if got != "late-answer" {
		t.Errorf("result = %v, want late-answer", got)
	}
	if len(called) != 1 || called[0] != "late" {
		t.Errorf("called = %v, dispatch must stop at the winner", called)
	}
}

func TestFirstSkipsNilResults(t *testing.T) {
	reg := NewRegistry(nil)
	registerAll(t, reg,
		unitFor(&fakePlugin{name: "fallback", tryLast: true, hooks: map[string]any{
			HookParseStudentsFile: func(path string) any { return []string{"team"} },
		}}, 1),
		unitFor(&fakePlugin{name: "abstains", hooks: map[string]any{
			HookParseStudentsFile: func(path string) any { return nil },
		}}, 0),
	)

	got, err := NewDispatcher(reg, nil).First(HookParseStudentsFile, "roster.txt")
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if got == nil {
		t.Fatal("nil result not skipped")
	}
}

func TestFirstWithNoImplementations(t *testing.T) {
	got, err := NewDispatcher(NewRegistry(nil), nil).First(HookPlatformAPI)
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if got != nil {
		t.Errorf("result = %v, want nil", got)
	}
}

func TestFirstRejectsUnknownAndWrongKind(t *testing.T) {
	d := NewDispatcher(NewRegistry(nil), nil)
	if _, err := d.First("no-such-hook"); err == nil {
		t.Error("First() accepted an unknown hook")
	}
	if _, err := d.First(HookPostClone); err == nil {
		t.Error("First() accepted a fan-out hook")
	}
	if _, err := d.All(HookGenerateRepoName, "t", "a"); err == nil {
		t.Error("All() accepted a first-result hook")
	}
}

func TestAllCollectsNonNilInOrder(t *testing.T) {
	reg := NewRegistry(nil)
	mkUnit := func(name string, ret any, ordinal int) *Unit {
		return unitFor(&fakePlugin{name: name, hooks: map[string]any{
			HookHandleParsedArgs: func(map[string]string) any { return ret },
		}}, ordinal)
	}
	registerAll(t, reg,
		mkUnit("first", "one", 0),
		mkUnit("second", nil, 1),
		mkUnit("third", "three", 2),
	)

	got, err := NewDispatcher(reg, nil).All(HookHandleParsedArgs, map[string]string{})
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	// LIFO: third, second (nil, dropped), first.
	if len(got) != 2 || got[0] != "three" || got[1] != "one" {
		t.Errorf("results = %v, want [three one]", got)
	}
}

func TestImplementationErrorAbortsAndAttributes(t *testing.T) {
	var reached bool
	reg := NewRegistry(nil)
	registerAll(t, reg,
		unitFor(&fakePlugin{name: "innocent", hooks: map[string]any{
			HookHandleParsedArgs: func(map[string]string) { reached = true },
		}}, 0),
		unitFor(&fakePlugin{name: "guilty", hooks: map[string]any{
			HookHandleParsedArgs: func(map[string]string) (any, error) {
				return nil, fmt.Errorf("boom")
			},
		}}, 1),
	)

	_, err := NewDispatcher(reg, nil).All(HookHandleParsedArgs, map[string]string{})
	var crash *CrashError
	if !errors.As(err, &crash) {
		t.Fatalf("error = %v, want *CrashError", err)
	}
	if crash.Module != "classkit/ext/guilty" {
		t.Errorf("crash attributed to %q, want classkit/ext/guilty", crash.Module)
	}
	if !strings.Contains(err.Error(), "crashed while running hook") {
		t.Errorf("message = %q, want crash wording", err.Error())
	}
	if reached {
		t.Error("implementations after the failure still ran")
	}
}

func TestPanicIsWrappedNotPropagated(t *testing.T) {
	reg := NewRegistry(nil)
	registerAll(t, reg, unitFor(&fakePlugin{name: "panics", hooks: map[string]any{
		HookGenerateRepoName: func(team, assignment string) string {
			panic("unexpected state")
		},
	}}, 0))

	_, err := NewDispatcher(reg, nil).First(HookGenerateRepoName, "t", "a")
	var crash *CrashError
	if !errors.As(err, &crash) {
		t.Fatalf("error = %v, want *CrashError", err)
	}
	if !strings.Contains(crash.Cause.Error(), "unexpected state") {
		t.Errorf("cause = %v, want the panic value", crash.Cause)
	}
}

func TestPrefixImplementationGetsTrimmedArgs(t *testing.T) {
	var gotTeam string
	reg := NewRegistry(nil)
	registerAll(t, reg, unitFor(&fakePlugin{name: "short", hooks: map[string]any{
		HookGenerateRepoName: func(team string) string {
			gotTeam = team
			return "ok"
		},
	}}, 0))

	if _, err := NewDispatcher(reg, nil).First(HookGenerateRepoName, "team-a", "task-1"); err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if gotTeam != "team-a" {
		t.Errorf("team = %q, want team-a", gotTeam)
	}
}

func TestConfigurableArgsMerged(t *testing.T) {
	reg := NewRegistry(nil)
	mkReporter := func(name, section string, keys []string, ordinal int) *Unit {
		return unitFor(&fakePlugin{name: name, hooks: map[string]any{
			HookConfigurableArgs: func() *ConfigurableArgs {
				return &ConfigurableArgs{Section: section, Keys: keys}
			},
		}}, ordinal)
	}
	registerAll(t, reg,
		mkReporter("a", "javac", []string{"flags", "timeout"}, 0),
		mkReporter("b", "javac", []string{"flags", "classpath"}, 1),
		mkReporter("c", "pylint", []string{"rcfile"}, 2),
	)

	reports, err := ConfigurableArgsReport(NewDispatcher(reg, nil))
	if err != nil {
		t.Fatalf("ConfigurableArgsReport() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2 (one per section): %+v", len(reports), reports)
	}
	if reports[0].Section != "javac" || reports[1].Section != "pylint" {
		t.Fatalf("sections = [%s, %s], want sorted [javac, pylint]", reports[0].Section, reports[1].Section)
	}
	want := []string{"classpath", "flags", "timeout"}
	if len(reports[0].Keys) != len(want) {
		t.Fatalf("javac keys = %v, want %v", reports[0].Keys, want)
	}
	for i := range want {
		if reports[0].Keys[i] != want[i] {
			t.Fatalf("javac keys = %v, want deduplicated sorted %v", reports[0].Keys, want)
		}
	}
}
