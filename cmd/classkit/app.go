// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"classkit-cli/internal/cliext"
	"classkit-cli/internal/command"
	"classkit-cli/internal/config"
	"classkit-cli/internal/dispatch"
	"classkit-cli/internal/ext"
	"classkit-cli/internal/ext/defaults"
	"classkit-cli/internal/plug"
	"classkit-cli/internal/results"

	"github.com/charmbracelet/log"
)

// app holds the assembled application state shared by the commands.
type app struct {
	store *config.Store
	core  *config.CoreConfig
	units []*plug.Unit
	hooks *plug.Dispatcher
	table *dispatch.Table
}

// activeApp is set once by buildApp before cobra runs.
var activeApp *app

// buildApp loads configuration and plugins and materializes the CLI tree.
//
// Assembly order matters: the store must exist before plugins register
// (the config hook hands it to them), and every plugin must be registered
// before the builder runs so plugin commands and configured option values
// are visible.
func buildApp(logger *log.Logger) error {
	ctx := context.Background()

	core, store, err := config.NewProvider().Load(ctx, config.LoadOptions{StorePath: cfgFile})
	if err != nil {
		return err
	}

	loader := plug.NewLoader(logger)
	loader.AllowQualified = allowQualified
	loader.AllowFilepath = allowFilepath
	ext.Install(loader)

	names := mergePluginNames(core.PluginNames(), pluginNames)
	names = append(names, defaults.Name)
	units, err := loader.Load(names)
	if err != nil {
		return err
	}

	registry := plug.NewRegistry(logger)
	if err := registry.Register(units); err != nil {
		return err
	}
	hooks := plug.NewDispatcher(registry, logger)

	if err := plug.Config(hooks, store); err != nil {
		return err
	}

	table := dispatch.NewTable(store, hooks, logger)
	env := &command.Env{Logger: logger, Out: os.Stdout}
	env.Register(table)

	builder := cliext.NewBuilder(rootCmd, store, runCommand(table), logger)
	for _, c := range command.CoreCommands() {
		if err := builder.Add(config.AppName, c); err != nil {
			return err
		}
	}
	for _, unit := range units {
		provider, ok := unit.Plugin.(cliext.CommandProvider)
		if !ok {
			continue
		}
		for _, c := range provider.Commands() {
			if err := builder.Add(unit.Plugin.Name(), c); err != nil {
				return err
			}
		}
	}

	if err := registry.Register(builder.ReporterUnits()); err != nil {
		return err
	}

	activeApp = &app{store: store, core: core, units: units, hooks: hooks, table: table}
	return nil
}

// runCommand is the builder's runner: dispatch the invocation, then emit
// the aggregated results.
func runCommand(table *dispatch.Table) cliext.Runner {
	return func(ctx context.Context, c *cliext.Command, args *cliext.ParsedArgs) error {
		mapping, err := table.Dispatch(ctx, c, args)
		if err != nil {
			return err
		}
		return emitResults(mapping)
	}
}

// emitResults prints a per-target summary and optionally writes the JSON
// interchange document.
func emitResults(mapping results.Mapping) error {
	for _, target := range sortedTargets(mapping) {
		for _, r := range mapping[target] {
			line := fmt.Sprintf("%s: %s", target, r.Msg)
			switch r.Status {
			case results.StatusSuccess:
				fmt.Println(SuccessStyle.Render("✓ ") + line)
			case results.StatusWarning:
				fmt.Println(WarningStyle.Render("! ") + line)
			case results.StatusError:
				fmt.Println(ErrorStyle.Render("✗ ") + line)
			}
		}
	}

	if resultsFile == "" || len(mapping) == 0 {
		return nil
	}
	doc, err := results.Serialize(mapping)
	if err != nil {
		return fmt.Errorf("serialize results: %w", err)
	}
	if err := os.WriteFile(resultsFile, doc, 0o600); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	fmt.Println(SubtitleStyle.Render("results written to " + resultsFile))
	return nil
}

// sortedTargets returns the mapping keys in stable order.
func sortedTargets(mapping results.Mapping) []string {
	targets := make([]string, 0, len(mapping))
	for target := range mapping {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}

// mergePluginNames combines configured and flag-passed plugin names,
// preserving order and dropping duplicates (flags win on position).
func mergePluginNames(configured, flagged []string) []string {
	seen := map[string]bool{}
	merged := make([]string, 0, len(configured)+len(flagged))
	for _, name := range append(append([]string{}, configured...), flagged...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		merged = append(merged, name)
	}
	return merged
}
