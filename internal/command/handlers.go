// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"classkit-cli/internal/config"
	"classkit-cli/internal/dispatch"
	"classkit-cli/internal/forge"
	"classkit-cli/internal/plug"
	"classkit-cli/internal/results"

	"github.com/charmbracelet/log"
)

// Env carries the shared collaborators of the built-in command handlers.
type Env struct {
	Logger *log.Logger
	Out    io.Writer
}

// SetupRepos creates one repository per student team and assignment from
// the template repos, running pre-setup hooks against each template first.
func (e *Env) SetupRepos(ctx context.Context, req *dispatch.Request) (results.Mapping, error) {
	teams, err := plug.ParseStudentsFile(req.Hooks, req.Args.String("students_file"))
	if err != nil {
		return nil, err
	}
	assignments := req.Args.StringSlice("assignments")
	if len(assignments) == 0 {
		return nil, fmt.Errorf("no assignments given")
	}

	mapping := results.Mapping{}
	for _, assignment := range assignments {
		template := forge.TemplateRepo{
			Name: assignment,
			URL:  templateURL(req.Args.String("base_url"), req.Args.String("template_org"), assignment),
		}

		preResults, err := plug.PreSetup(req.Hooks, template, req.API)
		if err != nil {
			return nil, err
		}
		if len(preResults) > 0 {
			mapping[assignment] = preResults
		}

		for _, team := range teams {
			created, err := req.API.CreateTeam(ctx, team)
			if err != nil {
				return nil, fmt.Errorf("create team %s: %w", team, err)
			}

			repoName, err := plug.GenerateRepoName(req.Hooks, created.Name, assignment)
			if err != nil {
				return nil, err
			}

			repo, err := req.API.CreateRepo(ctx, repoName,
				fmt.Sprintf("%s created for %s", assignment, created.Name), true, created)
			if err != nil {
				mapping[repoName] = append(mapping[repoName],
					results.Error("setup", err.Error()))
				continue
			}
			mapping[repo.Name] = append(mapping[repo.Name],
				results.Success("setup", fmt.Sprintf("created %s", repo.URL)))
		}
	}
	return mapping, nil
}

// CloneRepos fetches the student repos for the requested assignments (or
// discovers them from the student teams) and runs the post-clone hooks
// against each.
func (e *Env) CloneRepos(ctx context.Context, req *dispatch.Request) (results.Mapping, error) {
	teams, err := plug.ParseStudentsFile(req.Hooks, req.Args.String("students_file"))
	if err != nil {
		return nil, err
	}

	var repos []forge.StudentRepo
	if req.Args.Bool("discover_repos") {
		repos, err = discoverRepos(ctx, req.API, teams)
	} else {
		repos, err = reposByName(ctx, req, teams, req.Args.StringSlice("assignments"))
	}
	if err != nil {
		return nil, err
	}

	mapping := results.Mapping{}
	for _, repo := range repos {
		rs, err := plug.PostClone(req.Hooks, repo, req.API)
		if err != nil {
			return nil, err
		}
		mapping[repo.Name] = rs
	}
	return mapping, nil
}

// AssignReviews allocates peer reviews over the student teams and opens a
// review issue on each reviewed repository.
func (e *Env) AssignReviews(ctx context.Context, req *dispatch.Request) (results.Mapping, error) {
	teams, err := plug.ParseStudentsFile(req.Hooks, req.Args.String("students_file"))
	if err != nil {
		return nil, err
	}
	assignments := req.Args.StringSlice("assignments")
	if len(assignments) == 0 {
		return nil, fmt.Errorf("no assignments given")
	}
	numReviews := req.Args.Int("num_reviews")
	if numReviews < 1 {
		numReviews = 1
	}

	allocs, err := plug.AllocateReviews(req.Hooks, teams, numReviews)
	if err != nil {
		return nil, err
	}

	mapping := results.Mapping{}
	for _, assignment := range assignments {
		for _, alloc := range allocs {
			repoName, err := plug.GenerateRepoName(req.Hooks, alloc.Reviewed.Name, assignment)
			if err != nil {
				return nil, err
			}
			reviewIssue := forge.Issue{
				Title: fmt.Sprintf("Peer review of %s", repoName),
				Body: fmt.Sprintf("Team %s: please review the work in %s.",
					alloc.Reviewer.Name, repoName),
			}
			if err := req.API.CreateIssue(ctx, repoName, reviewIssue); err != nil {
				mapping[repoName] = append(mapping[repoName],
					results.Error("assign-reviews", err.Error()))
				continue
			}
			mapping[repoName] = append(mapping[repoName],
				results.Success("assign-reviews",
					fmt.Sprintf("assigned %s to review %s", alloc.Reviewer.Name, repoName)))
		}
	}
	return mapping, nil
}

// ShowConfig prints the active configuration store, walking the parent
// chain. Token values are masked unless --secrets is passed.
func (e *Env) ShowConfig(ctx context.Context, req *dispatch.Request) (results.Mapping, error) {
	showSecrets := req.Args.Bool("secrets")

	for node := req.Store; node != nil; node = node.Parent() {
		fmt.Fprintf(e.Out, "# %s\n", node.Path())
		for _, section := range node.Sections() {
			fmt.Fprintf(e.Out, "[%s]\n", section)
			for _, key := range node.Keys(section) {
				val, _ := node.Get(section, key)
				if key == config.KeyToken && !showSecrets {
					val = "***"
				}
				fmt.Fprintf(e.Out, "%s = %q\n", key, val)
			}
		}
		if node.Parent() != nil {
			fmt.Fprintln(e.Out)
		}
	}
	if !showSecrets {
		fmt.Fprintln(e.Out, "\n# pass --secrets to show token values")
	}
	return results.Mapping{}, nil
}

// VerifyConfig validates the store's core sections against the schema and
// warns about section keys no active plugin declared configurable.
func (e *Env) VerifyConfig(ctx context.Context, req *dispatch.Request) (results.Mapping, error) {
	if err := config.ValidateCoreSections(req.Store); err != nil {
		return nil, err
	}

	reports, err := plug.ConfigurableArgsReport(req.Hooks)
	if err != nil {
		return nil, err
	}
	known := map[string]map[string]bool{}
	for _, report := range reports {
		if known[report.Section] == nil {
			known[report.Section] = map[string]bool{}
		}
		for _, key := range report.Keys {
			known[report.Section][key] = true
		}
	}

	for _, section := range req.Store.Sections() {
		if section == config.CoreSection {
			continue
		}
		for _, key := range req.Store.Keys(section) {
			if !known[section][key] {
				e.Logger.Warn("configured key not declared configurable by any active plugin",
					"section", section, "key", key)
			}
		}
	}

	fmt.Fprintln(e.Out, "configuration OK")
	return results.Mapping{}, nil
}

// reposByName resolves the repositories for every team/assignment pair by
// generated name.
func reposByName(ctx context.Context, req *dispatch.Request, teams []forge.StudentTeam, assignments []string) ([]forge.StudentRepo, error) {
	if len(assignments) == 0 {
		return nil, fmt.Errorf("no assignments given")
	}
	names := make([]string, 0, len(teams)*len(assignments))
	for _, team := range teams {
		for _, assignment := range assignments {
			name, err := plug.GenerateRepoName(req.Hooks, team.Name, assignment)
			if err != nil {
				return nil, err
			}
			names = append(names, name)
		}
	}
	return req.API.GetRepos(ctx, names)
}

// discoverRepos lists every repository owned by the student teams.
func discoverRepos(ctx context.Context, api forge.API, teams []forge.StudentTeam) ([]forge.StudentRepo, error) {
	repos, err := api.GetRepos(ctx, nil)
	if err != nil {
		return nil, err
	}
	owned := make([]forge.StudentRepo, 0, len(repos))
	byName := map[string]bool{}
	for _, team := range teams {
		byName[team.Name] = true
	}
	for _, repo := range repos {
		if byName[repo.Team.Name] {
			owned = append(owned, repo)
		}
	}
	return owned, nil
}

// templateURL derives the template repo URL from the connection arguments.
func templateURL(baseURL, templateOrg, assignment string) string {
	base := strings.TrimRight(baseURL, "/")
	if templateOrg == "" {
		return base + "/" + assignment
	}
	return base + "/" + templateOrg + "/" + assignment
}
