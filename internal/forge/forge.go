// SPDX-License-Identifier: MPL-2.0

// Package forge defines the contract between classkit and a forge platform
// (GitHub/GitLab/Gitea-like API). Concrete adapters live in platform
// plugins; the core only depends on the interface and value types declared
// here.
package forge

import (
	"context"
	"fmt"
)

// StudentTeam is a named group of students that owns one repo per assignment.
type StudentTeam struct {
	Name    string
	Members []string
}

// String returns the team name.
func (t StudentTeam) String() string { return t.Name }

// StudentRepo is a student team's repository for one assignment.
type StudentRepo struct {
	Name    string
	URL     string
	Private bool
	Team    StudentTeam
}

// TemplateRepo is a template repository that student repos are created from.
type TemplateRepo struct {
	Name string
	URL  string
}

// Issue is a tracker issue to open or close on student repos.
type Issue struct {
	Title string
	Body  string
}

// ReviewAlloc assigns one team to review another team's repo.
type ReviewAlloc struct {
	Reviewer StudentTeam
	Reviewed StudentTeam
}

// InitArgs carries the connection arguments a platform API constructor may
// consume. Which of these are required is reported by the active platform
// plugin through the api-init-requires hook.
type InitArgs struct {
	BaseURL     string
	Org         string
	User        string
	Token       string
	TemplateOrg string
}

// APIFactory constructs a platform API from connection arguments. The
// active factory is selected through the platform-api hook.
type APIFactory func(args InitArgs) (API, error)

// API is the platform operations surface consumed by the built-in domain
// commands. Adapters are expected to translate these calls into forge
// REST/GraphQL requests; the core never talks to the network itself.
type API interface {
	// CreateTeam ensures the team exists on the platform and returns its
	// platform-side representation.
	CreateTeam(ctx context.Context, team StudentTeam) (StudentTeam, error)

	// CreateRepo creates a repository owned by team, or returns the
	// existing one if it was already created.
	CreateRepo(ctx context.Context, name, description string, private bool, team StudentTeam) (StudentRepo, error)

	// GetRepos fetches the repositories with the given names.
	GetRepos(ctx context.Context, names []string) ([]StudentRepo, error)

	// CreateIssue opens an issue on the named repository.
	CreateIssue(ctx context.Context, repoName string, issue Issue) error
}

// ErrNoPlatform is returned when no plugin answered the platform-api hook.
var ErrNoPlatform = fmt.Errorf("no platform plugin active")
