// SPDX-License-Identifier: MPL-2.0

package cliext

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"classkit-cli/internal/config"
	"classkit-cli/internal/plug"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"
)

// Runner executes a fully-bound command. The dispatch table provides the
// production implementation; tests substitute their own.
type Runner func(ctx context.Context, c *Command, args *ParsedArgs) error

// boundCommand tracks one declaration through the build phases together
// with its flattened descriptors, for post-parse binding.
type boundCommand struct {
	cmd         *Command
	plugin      string
	section     string
	cobraCmd    *cobra.Command
	opts        []*Option
	flags       []*Flag
	positionals []*Positional
}

// Builder materializes command declarations into cobra subcommands under a
// root command, wiring configurable defaults to the configuration store.
type Builder struct {
	root   *cobra.Command
	store  *config.Store
	run    Runner
	logger *log.Logger

	categories map[string]*cobra.Command
	actions    map[string]map[string]*boundCommand
	reporters  map[string][]string // section -> configurable keys
}

// NewBuilder creates a Builder attaching commands under root.
func NewBuilder(root *cobra.Command, store *config.Store, run Runner, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{
		root:       root,
		store:      store,
		run:        run,
		logger:     logger,
		categories: map[string]*cobra.Command{},
		actions:    map[string]map[string]*boundCommand{},
		reporters:  map[string][]string{},
	}
}

// Add processes one declaration from the named plugin through the build
// phases. Extensions must be added after the commands they extend.
func (b *Builder) Add(pluginName string, c *Command) error {
	if c.Extension() {
		if c.Category != "" || c.Callback != nil || c.Core {
			return &DefinitionError{
				Plugin: pluginName,
				Reason: "a declaration cannot be both a command and a command extension",
			}
		}
		return b.addExtension(pluginName, c)
	}

	bc, err := b.classify(pluginName, c)
	if err != nil {
		return err
	}
	if err := b.attachParser(bc); err != nil {
		return err
	}
	if err := b.materialize(bc); err != nil {
		return err
	}
	b.bind(bc)
	return nil
}

// classify resolves the declaration's category/action position and
// validates the requested shared parser combination.
func (b *Builder) classify(pluginName string, c *Command) (*boundCommand, error) {
	if c.Name == "" {
		c.Name = pluginName
	}
	c.Name = kebab(c.Name)

	if c.Category == "" {
		// Bare action: synthesize a single-action category from the
		// action name itself.
		c.Category = c.Name
		c.bare = true
	} else {
		c.Category = kebab(c.Category)
	}

	if existing := b.actions[c.Category][c.Name]; existing != nil {
		return nil, &DefinitionError{
			Plugin: pluginName,
			Reason: fmt.Sprintf("action %q already exists in category %q (declared by plugin %q)",
				c.Name, c.Category, existing.plugin),
		}
	}

	if hasParser(c, BaseParserRepoDiscovery) {
		if !hasParser(c, BaseParserStudents) {
			return nil, &DefinitionError{
				Plugin: pluginName,
				Reason: fmt.Sprintf("%s requires the %s shared parser",
					BaseParserRepoDiscovery, BaseParserStudents),
			}
		}
		if !c.RequiresAPI {
			return nil, &DefinitionError{
				Plugin: pluginName,
				Reason: fmt.Sprintf("%s requires a platform-API-accepting callback", BaseParserRepoDiscovery),
			}
		}
	}

	section := c.ConfigSection
	if section == "" {
		section = pluginName
	}
	return &boundCommand{cmd: c, plugin: pluginName, section: section}, nil
}

// attachParser creates the cobra commands: the category command is created
// once and reused across sibling actions; bare actions attach directly to
// the root without a category level.
func (b *Builder) attachParser(bc *boundCommand) error {
	c := bc.cmd
	actionCmd := &cobra.Command{
		Use:           c.Name,
		Short:         c.Help,
		Long:          c.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	parent := b.root
	if !c.bare {
		cat, ok := b.categories[c.Category]
		if !ok {
			cat = &cobra.Command{
				Use:   c.Category,
				Short: fmt.Sprintf("%s commands", c.Category),
			}
			b.root.AddCommand(cat)
			b.categories[c.Category] = cat
		}
		parent = cat
	}
	parent.AddCommand(actionCmd)

	bc.cobraCmd = actionCmd
	if b.actions[c.Category] == nil {
		b.actions[c.Category] = map[string]*boundCommand{}
	}
	b.actions[c.Category][c.Name] = bc
	return nil
}

// materialize turns the shared parser groups and declared descriptors into
// real flags on the action's cobra command.
func (b *Builder) materialize(bc *boundCommand) error {
	for _, token := range bc.cmd.BaseParsers {
		for _, opt := range sharedOpts(token, config.CoreSection) {
			if err := b.materializeOpt(bc, opt); err != nil {
				return err
			}
		}
	}
	for _, opt := range bc.cmd.Opts {
		if err := b.materializeOpt(bc, opt); err != nil {
			return err
		}
	}

	bc.cobraCmd.Args = positionalValidator(bc.positionals)
	return nil
}

// materializeOpt adds one descriptor (recursing into mutex groups).
func (b *Builder) materializeOpt(bc *boundCommand, opt Opt) error {
	switch o := opt.(type) {
	case *Option:
		_, err := b.addOption(bc, o)
		return err
	case *Flag:
		b.addFlag(bc, o)
		return nil
	case *Positional:
		bc.positionals = append(bc.positionals, o)
		return nil
	case *MutexGroup:
		return b.addMutexGroup(bc, o)
	default:
		return &DefinitionError{Plugin: bc.plugin, Reason: fmt.Sprintf("unknown descriptor type %T", opt)}
	}
}

// addOption registers one option flag, substituting a configured value as
// the default. It returns whether a configured value was found.
func (b *Builder) addOption(bc *boundCommand, o *Option) (bool, error) {
	long := longName(o.Key)
	section := o.section
	if section == "" {
		section = bc.section
	}

	configured, hasConfigured := b.store.Get(section, o.dest())
	if hasConfigured && !o.Configurable {
		return false, fmt.Errorf(
			"%w: plugin %q does not allow option %q (section [%s]) to be configured",
			ErrNotConfigurable, bc.plugin, o.dest(), section)
	}

	if o.multi() {
		var def []string
		if hasConfigured {
			tokens, err := shell.Fields(configured, nil)
			if err != nil {
				return false, fmt.Errorf("tokenize configured value for [%s] %s: %w", section, o.dest(), err)
			}
			def = tokens
		}
		bc.cobraCmd.Flags().StringSliceP(long, o.Short, def, o.Help)
	} else {
		def := o.Default
		if hasConfigured {
			def = configured
		}
		bc.cobraCmd.Flags().StringP(long, o.Short, def, o.Help)
	}

	// A configured value satisfies a required option.
	if o.Required && !hasConfigured {
		if err := bc.cobraCmd.MarkFlagRequired(long); err != nil {
			return false, err
		}
	}

	if o.Configurable {
		b.reporters[section] = append(b.reporters[section], o.dest())
	}

	bc.opts = append(bc.opts, o)
	return hasConfigured, nil
}

// addFlag registers one boolean flag with store-const semantics.
func (b *Builder) addFlag(bc *boundCommand, f *Flag) {
	long := longName(f.Key)
	bc.cobraCmd.Flags().BoolP(long, f.Short, f.defaultValue(), f.Help)
	bc.flags = append(bc.flags, f)
}

// addMutexGroup materializes the group members (flattening nested groups),
// enforces the single-configurable-member rule, and wires argparse-level
// exclusivity through cobra.
func (b *Builder) addMutexGroup(bc *boundCommand, g *MutexGroup) error {
	var longs []string
	configurable := 0
	anyConfigured := false

	var walk func(members []Opt) error
	walk = func(members []Opt) error {
		for _, m := range members {
			switch o := m.(type) {
			case *Option:
				if o.Configurable {
					configurable++
				}
				hasConfigured, err := b.addOption(bc, o)
				if err != nil {
					return err
				}
				anyConfigured = anyConfigured || hasConfigured
				longs = append(longs, longName(o.Key))
			case *Flag:
				b.addFlag(bc, o)
				longs = append(longs, longName(o.Key))
			case *MutexGroup:
				if err := walk(o.Members); err != nil {
					return err
				}
			default:
				return &DefinitionError{
					Plugin: bc.plugin,
					Reason: fmt.Sprintf("descriptor type %T not allowed in a mutually exclusive group", m),
				}
			}
		}
		return nil
	}
	if err := walk(g.Members); err != nil {
		return err
	}

	if configurable > 1 {
		return &DefinitionError{
			Plugin: bc.plugin,
			Reason: fmt.Sprintf("at most one option in a mutually exclusive group may be configurable, found %d", configurable),
		}
	}

	bc.cobraCmd.MarkFlagsMutuallyExclusive(longs...)
	// A configured member already satisfies the group.
	if g.Required && !anyConfigured {
		bc.cobraCmd.MarkFlagsOneRequired(longs...)
	}
	return nil
}

// bind installs the post-parse phase: flag and positional values are bound
// into a ParsedArgs and handed to the runner.
func (b *Builder) bind(bc *boundCommand) {
	bc.cobraCmd.RunE = func(cc *cobra.Command, argv []string) error {
		args, err := b.bindValues(bc, cc, argv)
		if err != nil {
			return err
		}
		return b.run(cc.Context(), bc.cmd, args)
	}
}

// bindValues reads every declared descriptor's value off the parsed flag
// set, applying converters per token.
func (b *Builder) bindValues(bc *boundCommand, cc *cobra.Command, argv []string) (*ParsedArgs, error) {
	args := &ParsedArgs{
		Category: bc.cmd.Category,
		Action:   bc.cmd.Name,
		Command:  bc.cmd,
		vals:     map[string]any{},
	}

	for _, o := range bc.opts {
		long := longName(o.Key)
		if o.multi() {
			raw, err := cc.Flags().GetStringSlice(long)
			if err != nil {
				return nil, err
			}
			val, err := convertTokens(raw, o.Convert)
			if err != nil {
				return nil, fmt.Errorf("option --%s: %w", long, err)
			}
			args.vals[o.dest()] = val
		} else {
			raw, err := cc.Flags().GetString(long)
			if err != nil {
				return nil, err
			}
			if o.Convert != nil && raw != "" {
				val, err := o.Convert(raw)
				if err != nil {
					return nil, fmt.Errorf("option --%s: %w", long, err)
				}
				args.vals[o.dest()] = val
			} else {
				args.vals[o.dest()] = raw
			}
		}
	}

	for _, f := range bc.flags {
		long := longName(f.Key)
		if cc.Flags().Changed(long) {
			args.vals[f.Key] = f.Const
		} else {
			args.vals[f.Key] = f.defaultValue()
		}
	}

	rest := argv
	for _, p := range bc.positionals {
		if p.Nargs == NargsPlus || p.Nargs == NargsStar {
			val, err := convertTokens(rest, p.Convert)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", p.Key, err)
			}
			args.vals[p.Key] = val
			rest = nil
			continue
		}
		if len(rest) > 0 {
			if p.Convert != nil {
				val, err := p.Convert(rest[0])
				if err != nil {
					return nil, fmt.Errorf("argument %s: %w", p.Key, err)
				}
				args.vals[p.Key] = val
			} else {
				args.vals[p.Key] = rest[0]
			}
			rest = rest[1:]
		}
	}

	return args, nil
}

// addExtension materializes an extension's options onto the actions it
// extends.
func (b *Builder) addExtension(pluginName string, c *Command) error {
	if c.Name == "" {
		c.Name = kebab(pluginName)
	}
	section := c.ConfigSection
	if section == "" {
		section = pluginName
	}

	for _, action := range c.Extends {
		bc := b.actions[kebab(action.Category)][kebab(action.Name)]
		if bc == nil {
			return &DefinitionError{
				Plugin: pluginName,
				Reason: fmt.Sprintf("extension %q extends unknown action %q", c.Name, action),
			}
		}
		// Extension options read the extension's own section, not the
		// extended command's.
		for _, opt := range c.Opts {
			if o, ok := opt.(*Option); ok && o.section == "" {
				o.section = section
			}
			if err := b.materializeOpt(bc, opt); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReporterUnits synthesizes one configurable-args hook provider per
// configuration section seen during the build, so the store schema can be
// introspected through the hook system without re-parsing declarations.
func (b *Builder) ReporterUnits() []*plug.Unit {
	sections := make([]string, 0, len(b.reporters))
	for s := range b.reporters {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	units := make([]*plug.Unit, 0, len(sections))
	for _, section := range sections {
		keys := dedupe(b.reporters[section])
		units = append(units, &plug.Unit{
			Plugin:        &argsReporter{section: section, keys: keys},
			QualifiedName: "classkit/cli/" + section,
			Origin:        plug.OriginBuiltin,
		})
	}
	return units
}

// argsReporter is the synthesized hook provider reporting one section's
// configurable keys.
type argsReporter struct {
	section string
	keys    []string
}

// Name returns the reporter's plugin name.
func (r *argsReporter) Name() string { return "cli-args-" + r.section }

// Hooks implements plug.Plugin.
func (r *argsReporter) Hooks() map[string]any {
	return map[string]any{
		plug.HookConfigurableArgs: func() *plug.ConfigurableArgs {
			return &plug.ConfigurableArgs{Section: r.section, Keys: r.keys}
		},
	}
}

// positionalValidator derives the cobra argument validator from the
// declared positionals.
func positionalValidator(positionals []*Positional) cobra.PositionalArgs {
	exact := 0
	variadic := false
	minExtra := 0
	for _, p := range positionals {
		switch p.Nargs {
		case NargsPlus:
			variadic = true
			minExtra = 1
		case NargsStar:
			variadic = true
		default:
			exact++
		}
	}
	if variadic {
		return cobra.MinimumNArgs(exact + minExtra)
	}
	return cobra.ExactArgs(exact)
}

// convertTokens applies a converter to each token, producing a tuple.
func convertTokens(tokens []string, convert Converter) (any, error) {
	if convert == nil {
		return tokens, nil
	}
	out := make([]any, len(tokens))
	for i, tok := range tokens {
		val, err := convert(tok)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", tok, err)
		}
		out[i] = val
	}
	return out, nil
}

// longName derives the hyphenated long flag name from a snake_case key.
func longName(key string) string {
	return strings.ReplaceAll(kebab(key), "_", "-")
}

// hasParser reports whether the command requested a shared parser token.
func hasParser(c *Command, token BaseParser) bool {
	for _, t := range c.BaseParsers {
		if t == token {
			return true
		}
	}
	return false
}

// dedupe returns the sorted unique elements of keys.
func dedupe(keys []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
