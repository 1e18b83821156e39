// SPDX-License-Identifier: MPL-2.0

package cliext

import (
	"context"
	"regexp"
	"strings"

	"classkit-cli/internal/forge"
	"classkit-cli/internal/results"
)

// Action identifies a command's position in the two-level CLI namespace.
type Action struct {
	Category string
	Name     string
}

// String returns "<category> <name>", or just the name for bare actions.
func (a Action) String() string {
	if a.Category == "" || a.Category == a.Name {
		return a.Name
	}
	return a.Category + " " + a.Name
}

// BaseParser tokens select shared flag groups for a command.
type BaseParser int

const (
	// BaseParserBase adds the forge connection flags (--base-url, --org,
	// --user, --token), all configurable from the core section.
	BaseParserBase BaseParser = iota
	// BaseParserStudents adds the student roster flag (--students-file).
	BaseParserStudents
	// BaseParserTemplateOrg adds the template organization flag.
	BaseParserTemplateOrg
	// BaseParserRepoDiscovery adds the mutually exclusive
	// --assignments / --discover-repos pair. Requires BaseParserStudents
	// and an API-requesting callback.
	BaseParserRepoDiscovery
)

// String returns the token name used in declaration error messages.
func (b BaseParser) String() string {
	switch b {
	case BaseParserBase:
		return "BASE"
	case BaseParserStudents:
		return "STUDENTS"
	case BaseParserTemplateOrg:
		return "TEMPLATE_ORG"
	case BaseParserRepoDiscovery:
		return "REPO_DISCOVERY"
	default:
		return "unknown"
	}
}

// Callback is an extension command's entry point. The api argument is only
// non-nil when the command declared RequiresAPI.
type Callback func(ctx context.Context, args *ParsedArgs, api forge.API) (*results.Result, error)

// Command declares one CLI command (or command extension) as data.
//
// A command owns an action; a command extension instead names existing
// actions it adds options to via Extends. Declaring both roles at once is
// a definition error.
type Command struct {
	// Name is the action name. When empty it is derived from the
	// declaring plugin's name. CamelCase names are kebab-normalized.
	Name string

	// Category is the action's category. Empty means a bare action: a
	// synthetic single-action category is created from the action name.
	Category string

	// Help is the one-line command description.
	Help string

	// Description is the long help text.
	Description string

	// BaseParsers selects shared flag groups.
	BaseParsers []BaseParser

	// Opts are the declared option descriptors, in declaration order.
	Opts []Opt

	// ConfigSection overrides the configuration section configurable
	// options read from. Defaults to the declaring plugin's name.
	ConfigSection string

	// RequiresAPI requests a platform API instance for the callback.
	RequiresAPI bool

	// Extends marks the declaration as a command extension naming the
	// actions it adds options to.
	Extends []Action

	// Core marks a built-in command routed through the static dispatch
	// table instead of Callback.
	Core bool

	// Callback is the extension command's entry point. Unused for Core
	// commands.
	Callback Callback

	// bare records that the category was synthesized from the action
	// name, so downstream metadata injection must not add a category
	// level again.
	bare bool
}

// Extension reports whether the declaration is a command extension.
func (c *Command) Extension() bool { return len(c.Extends) > 0 }

// Bare reports whether the command's category was synthesized from its
// action name.
func (c *Command) Bare() bool { return c.bare }

// Action returns the command's resolved position. Only valid after the
// builder classified the command.
func (c *Command) Action() Action {
	return Action{Category: c.Category, Name: c.Name}
}

// CommandProvider is implemented by plugins that contribute commands or
// command extensions.
type CommandProvider interface {
	Commands() []*Command
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// kebab normalizes a declared name to CLI form: CamelCase boundaries and
// underscores become hyphens, everything is lowercased.
func kebab(name string) string {
	name = camelBoundary.ReplaceAllString(name, "$1-$2")
	name = strings.ReplaceAll(name, "_", "-")
	return strings.ToLower(name)
}

// sharedOpts materializes the descriptors for one shared flag group.
// Connection flags read the core configuration section regardless of the
// command's own section.
func sharedOpts(token BaseParser, coreSection string) []Opt {
	core := func(o *Option) *Option {
		o.section = coreSection
		o.Configurable = true
		return o
	}

	switch token {
	case BaseParserBase:
		return []Opt{
			core(&Option{Key: "base_url", Help: "base URL of the forge API", Required: true}),
			core(&Option{Key: "org", Short: "o", Help: "name of the course organization", Required: true}),
			core(&Option{Key: "user", Short: "u", Help: "your forge username", Required: true}),
			core(&Option{Key: "token", Short: "t", Help: "forge access token", Required: true}),
		}
	case BaseParserStudents:
		return []Opt{
			core(&Option{Key: "students_file", Short: "s", Help: "path to the student roster file", Required: true}),
		}
	case BaseParserTemplateOrg:
		return []Opt{
			core(&Option{Key: "template_org", Help: "organization holding the template repos"}),
		}
	case BaseParserRepoDiscovery:
		return []Opt{
			&MutexGroup{
				Required: true,
				Members: []Opt{
					&Option{Key: "assignments", Short: "a", Help: "assignment names", Nargs: NargsPlus, Configurable: true},
					&Flag{Key: "discover_repos", Help: "discover repos from the student teams", Const: true},
				},
			},
		}
	default:
		return nil
	}
}
