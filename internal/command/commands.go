// SPDX-License-Identifier: MPL-2.0

package command

import (
	"fmt"
	"strconv"

	"classkit-cli/internal/cliext"
	"classkit-cli/internal/dispatch"
)

// CoreCommands returns the built-in command declarations. They pass
// through the same builder as plugin commands, so shared flag groups and
// configurable options behave identically for both.
func CoreCommands() []*cliext.Command {
	return []*cliext.Command{
		{
			Name:     "setup",
			Category: "repos",
			Help:     "create student repositories from template repos",
			Description: "Creates one repository per student team and assignment, " +
				"copied from the corresponding template repository.",
			BaseParsers: []cliext.BaseParser{
				cliext.BaseParserBase,
				cliext.BaseParserStudents,
				cliext.BaseParserTemplateOrg,
			},
			Opts: []cliext.Opt{
				&cliext.Option{
					Key:          "assignments",
					Short:        "a",
					Help:         "assignment names",
					Nargs:        cliext.NargsPlus,
					Required:     true,
					Configurable: true,
				},
			},
			RequiresAPI: true,
			Core:        true,
		},
		{
			Name:     "clone",
			Category: "repos",
			Help:     "run tasks against the student repositories",
			BaseParsers: []cliext.BaseParser{
				cliext.BaseParserBase,
				cliext.BaseParserStudents,
				cliext.BaseParserRepoDiscovery,
			},
			RequiresAPI: true,
			Core:        true,
		},
		{
			Name:     "assign",
			Category: "reviews",
			Help:     "allocate and announce peer reviews",
			BaseParsers: []cliext.BaseParser{
				cliext.BaseParserBase,
				cliext.BaseParserStudents,
			},
			Opts: []cliext.Opt{
				&cliext.Option{
					Key:          "assignments",
					Short:        "a",
					Help:         "assignment names",
					Nargs:        cliext.NargsPlus,
					Required:     true,
					Configurable: true,
				},
				&cliext.Option{
					Key:     "num_reviews",
					Short:   "n",
					Help:    "reviews each team receives",
					Default: "1",
					Convert: parseCount,
				},
			},
			RequiresAPI: true,
			Core:        true,
		},
		{
			Name:     "show",
			Category: "config",
			Help:     "print the active configuration",
			Opts: []cliext.Opt{
				&cliext.Flag{Key: "secrets", Help: "show token values", Const: true},
			},
			Core: true,
		},
		{
			Name:     "verify",
			Category: "config",
			Help:     "check the configuration file for problems",
			Core:     true,
		},
	}
}

// Register installs the handler for every core command into the table.
func (e *Env) Register(t *dispatch.Table) {
	t.Register(cliext.Action{Category: "repos", Name: "setup"}, e.SetupRepos)
	t.Register(cliext.Action{Category: "repos", Name: "clone"}, e.CloneRepos)
	t.Register(cliext.Action{Category: "reviews", Name: "assign"}, e.AssignReviews)
	t.Register(cliext.Action{Category: "config", Name: "show"}, e.ShowConfig)
	t.Register(cliext.Action{Category: "config", Name: "verify"}, e.VerifyConfig)
}

// parseCount converts a positive integer token.
func parseCount(tok string) (any, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", tok)
	}
	if n < 1 {
		return nil, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
