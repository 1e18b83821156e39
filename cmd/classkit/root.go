// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for classkit.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"classkit-cli/internal/cliext"
	"classkit-cli/internal/config"
	"classkit-cli/internal/forge"
	"classkit-cli/internal/issue"
	"classkit-cli/internal/plug"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config store file
	cfgFile string
	// pluginNames are the plugins requested via --plug
	pluginNames []string
	// allowQualified permits loading plugins by raw qualified name
	allowQualified bool
	// allowFilepath permits loading standalone Lua plugin files
	allowFilepath bool
	// resultsFile receives the aggregated results document when set
	resultsFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "classkit",
		Short: "A plugin-extensible course repo manager",
		Long: TitleStyle.Render("classkit") + SubtitleStyle.Render(" - A plugin-extensible course repo manager") + `

classkit automates the management of student repositories on a forge
platform: creating repos from templates, running tasks against student
code, and allocating peer reviews.

Almost everything classkit does goes through plugins. Platform adapters,
repo naming, roster parsing and review allocation are all hooks that any
active plugin can claim; built-in defaults answer what nothing else did.

` + SubtitleStyle.Render("Examples:") + `
  classkit repos setup -a task-1      Create student repos for task-1
  classkit repos clone -a task-1      Run tasks against student repos
  classkit reviews assign -a task-1   Allocate peer reviews
  classkit config show                Show current configuration
  classkit --plug gitea repos setup   Activate the gitea platform plugin`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config store file (default is the per-user classkit config)")
	rootCmd.PersistentFlags().StringSliceVar(&pluginNames, "plug", nil, "plugin to activate (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&allowQualified, "allow-qualified-names", false, "permit loading plugins by qualified name")
	rootCmd.PersistentFlags().BoolVar(&allowFilepath, "allow-filepath-plugins", false, "permit loading standalone Lua plugin files")
	rootCmd.PersistentFlags().StringVar(&resultsFile, "results-file", "", "write the aggregated results document to this file")

	rootCmd.AddCommand(pluginCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute assembles the application and runs the root command. Plugins
// contribute commands, so the CLI tree has to be built from the already
// loaded plugin list before cobra parses anything; the flags that control
// loading are read straight from argv first.
func Execute() {
	preparseLoadFlags(os.Args[1:])

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := buildApp(logger); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		if page := renderIssuePage(err); page != "" {
			fmt.Fprintln(os.Stderr, page)
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// preparseLoadFlags extracts the flags that influence application assembly
// from raw argv, before cobra gets to parse them properly.
func preparseLoadFlags(argv []string) {
	next := func(i int) string {
		if i+1 < len(argv) {
			return argv[i+1]
		}
		return ""
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--config-file":
			cfgFile = next(i)
			i++
		case strings.HasPrefix(arg, "--config-file="):
			cfgFile = strings.TrimPrefix(arg, "--config-file=")
		case arg == "--plug":
			pluginNames = append(pluginNames, splitPluginArg(next(i))...)
			i++
		case strings.HasPrefix(arg, "--plug="):
			pluginNames = append(pluginNames, splitPluginArg(strings.TrimPrefix(arg, "--plug="))...)
		case arg == "--allow-qualified-names":
			allowQualified = true
		case arg == "--allow-filepath-plugins":
			allowFilepath = true
		case arg == "--verbose" || arg == "-v":
			verbose = true
		}
	}
}

// splitPluginArg splits a --plug value on commas, matching cobra's
// StringSlice behavior.
func splitPluginArg(val string) []string {
	var names []string
	for _, name := range strings.Split(val, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain. When the error maps to a
// catalog issue, its rendered remediation page follows the message.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var msg string
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		msg = ae.Format(verboseMode)
	} else {
		msg = err.Error()
	}
	if page := renderIssuePage(err); page != "" {
		msg += "\n" + page
	}
	return msg
}

// issueFor maps classkit's error taxonomy to the issue catalog.
func issueFor(err error) *issue.Issue {
	var (
		loadErr  *plug.LoadError
		namesErr *plug.DisallowedNamesError
		sigErr   *plug.SignatureError
		defErr   *plug.DefinitionError
		cmdErr   *cliext.DefinitionError
		crashErr *plug.CrashError
		cycleErr *config.CycleError
	)
	switch {
	case errors.As(err, &loadErr):
		return issue.Get(issue.PluginNotFoundId)
	case errors.As(err, &namesErr):
		return issue.Get(issue.PluginPathDisallowedId)
	case errors.As(err, &sigErr):
		return issue.Get(issue.HookSignatureId)
	case errors.As(err, &defErr), errors.As(err, &cmdErr):
		return issue.Get(issue.PluginDefinitionId)
	case errors.As(err, &crashErr):
		return issue.Get(issue.HookCrashId)
	case errors.As(err, &cycleErr):
		return issue.Get(issue.ConfigCycleId)
	case errors.Is(err, config.ErrFormat):
		return issue.Get(issue.ConfigParseErrorId)
	case errors.Is(err, forge.ErrNoPlatform):
		return issue.Get(issue.NoPlatformId)
	default:
		return nil
	}
}

// renderIssuePage renders the remediation page for an error's catalog
// issue, or "" when the error has no page or rendering fails.
func renderIssuePage(err error) string {
	iss := issueFor(err)
	if iss == nil {
		return ""
	}
	page, renderErr := iss.Render("dark")
	if renderErr != nil {
		return ""
	}
	return page
}
