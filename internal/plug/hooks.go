// SPDX-License-Identifier: MPL-2.0

package plug

import (
	"fmt"

	"classkit-cli/internal/config"
	"classkit-cli/internal/forge"
	"classkit-cli/internal/results"
)

// Typed dispatch helpers. These wrap the generic Dispatcher calls with the
// concrete argument and result types each hook declares, so callers don't
// deal in any-values.

// PlatformAPI resolves the active platform API factory. Returns
// forge.ErrNoPlatform when no plugin answered.
func PlatformAPI(d *Dispatcher) (forge.APIFactory, error) {
	res, err := d.First(HookPlatformAPI)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, forge.ErrNoPlatform
	}
	factory, ok := res.(forge.APIFactory)
	if !ok {
		return nil, fmt.Errorf("hook %s returned %T, want forge.APIFactory", HookPlatformAPI, res)
	}
	return factory, nil
}

// APIInitRequires reports the connection argument names the active
// platform constructor requires.
func APIInitRequires(d *Dispatcher) ([]string, error) {
	res, err := d.First(HookAPIInitRequires)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	names, ok := res.([]string)
	if !ok {
		return nil, fmt.Errorf("hook %s returned %T, want []string", HookAPIInitRequires, res)
	}
	return names, nil
}

// GenerateRepoName produces the repository name for a team/assignment pair.
func GenerateRepoName(d *Dispatcher, team, assignment string) (string, error) {
	res, err := d.First(HookGenerateRepoName, team, assignment)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", fmt.Errorf("no plugin generated a repo name for team %q", team)
	}
	// File plugins answer through a pointer so they can decline with nil.
	switch name := res.(type) {
	case string:
		return name, nil
	case *string:
		return *name, nil
	default:
		return "", fmt.Errorf("hook %s returned %T, want string", HookGenerateRepoName, res)
	}
}

// ParseStudentsFile parses a student roster file into teams.
func ParseStudentsFile(d *Dispatcher, path string) ([]forge.StudentTeam, error) {
	res, err := d.First(HookParseStudentsFile, path)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("no plugin could parse students file %s", path)
	}
	teams, ok := res.([]forge.StudentTeam)
	if !ok {
		return nil, fmt.Errorf("hook %s returned %T, want []forge.StudentTeam", HookParseStudentsFile, res)
	}
	return teams, nil
}

// AllocateReviews allocates n peer reviews per team.
func AllocateReviews(d *Dispatcher, teams []forge.StudentTeam, n int) ([]forge.ReviewAlloc, error) {
	res, err := d.First(HookAllocateReviews, teams, n)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("no plugin allocated peer reviews")
	}
	allocs, ok := res.([]forge.ReviewAlloc)
	if !ok {
		return nil, fmt.Errorf("hook %s returned %T, want []forge.ReviewAlloc", HookAllocateReviews, res)
	}
	return allocs, nil
}

// PreSetup runs every pre-setup hook against the template repo.
func PreSetup(d *Dispatcher, repo forge.TemplateRepo, api forge.API) ([]*results.Result, error) {
	return collectResults(d, HookPreSetup, repo, api)
}

// PostClone runs every post-clone hook against a cloned student repo.
func PostClone(d *Dispatcher, repo forge.StudentRepo, api forge.API) ([]*results.Result, error) {
	return collectResults(d, HookPostClone, repo, api)
}

// HandleParsedArgs hands the parsed CLI arguments to every interested
// plugin.
func HandleParsedArgs(d *Dispatcher, args map[string]string) error {
	_, err := d.All(HookHandleParsedArgs, args)
	return err
}

// Config hands the active configuration store to every interested plugin.
func Config(d *Dispatcher, store *config.Store) error {
	_, err := d.All(HookConfig, store)
	return err
}

// ConfigurableArgsReport collects and merges the configurable-option
// reports of all active plugins, one entry per configuration section.
func ConfigurableArgsReport(d *Dispatcher) ([]*ConfigurableArgs, error) {
	raw, err := d.All(HookConfigurableArgs)
	if err != nil {
		return nil, err
	}
	reports := make([]*ConfigurableArgs, 0, len(raw))
	for _, v := range raw {
		report, ok := v.(*ConfigurableArgs)
		if !ok {
			return nil, fmt.Errorf("hook %s returned %T, want *plug.ConfigurableArgs", HookConfigurableArgs, v)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// collectResults dispatches a fan-out hook whose results are *results.Result.
func collectResults(d *Dispatcher, hook string, args ...any) ([]*results.Result, error) {
	raw, err := d.All(hook, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*results.Result, 0, len(raw))
	for _, v := range raw {
		res, ok := v.(*results.Result)
		if !ok {
			return nil, fmt.Errorf("hook %s returned %T, want *results.Result", hook, v)
		}
		out = append(out, res)
	}
	return out, nil
}
