// SPDX-License-Identifier: MPL-2.0

package plug

import (
	"reflect"
	"sort"

	"classkit-cli/internal/config"
	"classkit-cli/internal/forge"
)

// Hook names. The set is fixed: adding a spec never breaks existing
// plugins, removing or renaming one goes through the deprecation table.
const (
	// HookPlatformAPI selects the platform API factory. First-result.
	HookPlatformAPI = "platform-api"
	// HookAPIInitRequires reports which connection arguments the active
	// platform constructor requires. First-result.
	HookAPIInitRequires = "api-init-requires"
	// HookGenerateRepoName produces the repo name for a team/assignment
	// pair. First-result.
	HookGenerateRepoName = "generate-repo-name"
	// HookParseStudentsFile parses a student roster file. First-result.
	HookParseStudentsFile = "parse-students-file"
	// HookAllocateReviews allocates peer reviews. First-result.
	HookAllocateReviews = "allocate-reviews"
	// HookPreSetup runs against the template repo before setup. Fan-out.
	HookPreSetup = "pre-setup"
	// HookPostClone runs against each cloned student repo. Fan-out.
	HookPostClone = "post-clone"
	// HookHandleParsedArgs lets plugins inspect parsed CLI arguments.
	// Fan-out, side effect only.
	HookHandleParsedArgs = "handle-parsed-args"
	// HookConfig hands plugins the active configuration store. Fan-out,
	// side effect only.
	HookConfig = "config-hook"
	// HookConfigurableArgs reports a plugin's configurable option keys
	// grouped by configuration section. Fan-out with a deduplicating
	// merge step.
	HookConfigurableArgs = "configurable-args"
)

// ConfigurableArgs is one plugin's report of which of its option keys may
// be sourced from the configuration store.
type ConfigurableArgs struct {
	// Section is the configuration section the keys belong to.
	Section string
	// Keys are the configurable option keys within Section.
	Keys []string
}

// Spec declares one extension point: its name, the formal parameter list
// the dispatcher will pass, and its call semantics. Implementations may
// accept any prefix of Params and return nothing, a single value, or a
// value and an error.
type Spec struct {
	Name        string
	Params      []reflect.Type
	FirstResult bool

	// Merge post-processes the collected fan-out results. Nil for most
	// hooks; configurable-args uses it to deduplicate keys per section.
	Merge func([]any) []any
}

// Specs builds the immutable hook specification table. The Registry
// installs it once at construction.
func Specs() map[string]Spec {
	specs := []Spec{
		{
			Name:        HookPlatformAPI,
			Params:      nil,
			FirstResult: true,
		},
		{
			Name:        HookAPIInitRequires,
			Params:      nil,
			FirstResult: true,
		},
		{
			Name:        HookGenerateRepoName,
			Params:      []reflect.Type{reflect.TypeOf(""), reflect.TypeOf("")},
			FirstResult: true,
		},
		{
			Name:        HookParseStudentsFile,
			Params:      []reflect.Type{reflect.TypeOf("")},
			FirstResult: true,
		},
		{
			Name: HookAllocateReviews,
			Params: []reflect.Type{
				reflect.TypeOf([]forge.StudentTeam(nil)),
				reflect.TypeOf(0),
			},
			FirstResult: true,
		},
		{
			Name: HookPreSetup,
			Params: []reflect.Type{
				reflect.TypeOf(forge.TemplateRepo{}),
				reflect.TypeOf((*forge.API)(nil)).Elem(),
			},
		},
		{
			Name: HookPostClone,
			Params: []reflect.Type{
				reflect.TypeOf(forge.StudentRepo{}),
				reflect.TypeOf((*forge.API)(nil)).Elem(),
			},
		},
		{
			Name:   HookHandleParsedArgs,
			Params: []reflect.Type{reflect.TypeOf(map[string]string(nil))},
		},
		{
			Name:   HookConfig,
			Params: []reflect.Type{reflect.TypeOf((*config.Store)(nil))},
		},
		{
			Name:   HookConfigurableArgs,
			Params: nil,
			Merge:  mergeConfigurableArgs,
		},
	}

	table := make(map[string]Spec, len(specs))
	for _, s := range specs {
		table[s.Name] = s
	}
	return table
}

// mergeConfigurableArgs combines per-plugin reports into one report per
// configuration section with deduplicated, sorted keys.
func mergeConfigurableArgs(in []any) []any {
	bySection := map[string]map[string]bool{}
	for _, v := range in {
		report, ok := v.(*ConfigurableArgs)
		if !ok || report == nil {
			continue
		}
		keys := bySection[report.Section]
		if keys == nil {
			keys = map[string]bool{}
			bySection[report.Section] = keys
		}
		for _, k := range report.Keys {
			keys[k] = true
		}
	}

	sections := make([]string, 0, len(bySection))
	for s := range bySection {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	out := make([]any, 0, len(sections))
	for _, s := range sections {
		keys := make([]string, 0, len(bySection[s]))
		for k := range bySection[s] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out = append(out, &ConfigurableArgs{Section: s, Keys: keys})
	}
	return out
}
