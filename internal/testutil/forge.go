// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"sync"

	"classkit-cli/internal/forge"
)

// FakeForge is an in-memory forge.API for tests. It records every created
// team, repo and issue, and can be primed with repos for GetRepos calls.
type FakeForge struct {
	mu sync.Mutex

	Teams  map[string]forge.StudentTeam
	Repos  map[string]forge.StudentRepo
	Issues map[string][]forge.Issue

	// FailRepo makes CreateRepo fail for the named repo.
	FailRepo string
}

// NewFakeForge creates an empty fake.
func NewFakeForge() *FakeForge {
	return &FakeForge{
		Teams:  map[string]forge.StudentTeam{},
		Repos:  map[string]forge.StudentRepo{},
		Issues: map[string][]forge.Issue{},
	}
}

// Factory returns an APIFactory producing this fake, for the platform-api
// hook in tests.
func (f *FakeForge) Factory() forge.APIFactory {
	return func(forge.InitArgs) (forge.API, error) { return f, nil }
}

// CreateTeam implements forge.API.
func (f *FakeForge) CreateTeam(_ context.Context, team forge.StudentTeam) (forge.StudentTeam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Teams[team.Name] = team
	return team, nil
}

// CreateRepo implements forge.API.
func (f *FakeForge) CreateRepo(_ context.Context, name, description string, private bool, team forge.StudentTeam) (forge.StudentRepo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == f.FailRepo {
		return forge.StudentRepo{}, fmt.Errorf("repo %s rejected", name)
	}
	if existing, ok := f.Repos[name]; ok {
		return existing, nil
	}
	repo := forge.StudentRepo{
		Name:    name,
		URL:     "https://forge.test/" + team.Name + "/" + name,
		Private: private,
		Team:    team,
	}
	f.Repos[name] = repo
	return repo, nil
}

// GetRepos implements forge.API. A nil names slice returns every repo.
func (f *FakeForge) GetRepos(_ context.Context, names []string) ([]forge.StudentRepo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if names == nil {
		repos := make([]forge.StudentRepo, 0, len(f.Repos))
		for _, repo := range f.Repos {
			repos = append(repos, repo)
		}
		return repos, nil
	}
	repos := make([]forge.StudentRepo, 0, len(names))
	for _, name := range names {
		if repo, ok := f.Repos[name]; ok {
			repos = append(repos, repo)
		}
	}
	return repos, nil
}

// CreateIssue implements forge.API.
func (f *FakeForge) CreateIssue(_ context.Context, repoName string, issue forge.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Issues[repoName] = append(f.Issues[repoName], issue)
	return nil
}
