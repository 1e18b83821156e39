// SPDX-License-Identifier: MPL-2.0

// Package defaults is the built-in fallback plugin. It answers the
// first-result hooks no user plugin claimed: naming repositories, parsing
// student roster files, and allocating peer reviews. All of its
// implementations run last, so any active plugin takes precedence.
package defaults

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"classkit-cli/internal/forge"
	"classkit-cli/internal/plug"
)

// Name is the plugin name the loader resolves.
const Name = "defaults"

// Plugin is the default plugin.
type Plugin struct{}

// New returns the default plugin.
func New() *Plugin { return &Plugin{} }

// Name implements plug.Plugin.
func (*Plugin) Name() string { return Name }

// TryLast marks every implementation to run after user plugins.
func (*Plugin) TryLast() bool { return true }

// Hooks implements plug.Plugin.
func (p *Plugin) Hooks() map[string]any {
	return map[string]any{
		plug.HookGenerateRepoName:  p.generateRepoName,
		plug.HookParseStudentsFile: p.parseStudentsFile,
		plug.HookAllocateReviews:   p.allocateReviews,
	}
}

// generateRepoName joins team and assignment with a hyphen.
func (*Plugin) generateRepoName(team, assignment string) string {
	return team + "-" + assignment
}

// parseStudentsFile reads a roster file with one team per line, members
// separated by whitespace. Blank lines and #-comments are skipped. The
// team name is the members joined by hyphens in sorted order, so member
// order in the file does not matter.
func (*Plugin) parseStudentsFile(path string) ([]forge.StudentTeam, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read students file: %w", err)
	}

	var teams []forge.StudentTeam
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		members := strings.Fields(line)
		sorted := append([]string(nil), members...)
		sort.Strings(sorted)
		teams = append(teams, forge.StudentTeam{
			Name:    strings.Join(sorted, "-"),
			Members: members,
		})
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("students file %s contains no teams", path)
	}
	return teams, nil
}

// allocateReviews assigns each team n reviewers round-robin: team i is
// reviewed by teams i+1 .. i+n (mod len). A team never reviews itself, so
// n is capped at len(teams)-1.
func (*Plugin) allocateReviews(teams []forge.StudentTeam, n int) ([]forge.ReviewAlloc, error) {
	if len(teams) < 2 {
		return nil, fmt.Errorf("peer review requires at least 2 teams, got %d", len(teams))
	}
	if n < 1 {
		return nil, fmt.Errorf("reviews per team must be positive, got %d", n)
	}
	if n > len(teams)-1 {
		n = len(teams) - 1
	}

	allocs := make([]forge.ReviewAlloc, 0, len(teams)*n)
	for i, team := range teams {
		for j := 1; j <= n; j++ {
			allocs = append(allocs, forge.ReviewAlloc{
				Reviewer: teams[(i+j)%len(teams)],
				Reviewed: team,
			})
		}
	}
	return allocs, nil
}
