// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	PluginNotFoundId Id = iota + 1
	PluginPathDisallowedId
	HookSignatureId
	PluginDefinitionId
	ConfigParseErrorId
	ConfigCycleId
	UnknownActionId
	HookCrashId
	NoPlatformId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to look up the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links shown under "See also"
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	pluginNotFoundIssue = &Issue{
		id: PluginNotFoundId,
		mdMsg: `
# Plugin not found!

A plugin you asked for could not be resolved by any loading strategy.

## Resolution order:
1. Built-in plugins (shipped with classkit)
2. Installed plugin packages (classkit_<name>)
3. Fully qualified names (only with --allow-qualified)
4. Lua plugin files (only when paths are allowed)

## Things you can try:
- Check the plugin name for typos
- List the built-in plugins:
~~~
$ classkit plugin list
~~~
- If the plugin is a file, pass its path explicitly:
~~~
$ classkit --plug ./myplugin.lua repos setup ...
~~~`,
	}

	pluginPathDisallowedIssue = &Issue{
		id: PluginPathDisallowedId,
		mdMsg: `
# Plugin path rejected!

A plugin name looks like a filesystem path (or a fully qualified name), but
loading plugins from arbitrary locations is disabled.

Loading a plugin executes its code, so classkit refuses paths and qualified
names unless you opt in.

## Things you can try:
- If you trust the plugin file, opt in to path loading
- Otherwise, install the plugin as a package named classkit_<name>`,
	}

	hookSignatureIssue = &Issue{
		id: HookSignatureId,
		mdMsg: `
# Invalid hook implementation!

A plugin implements a known hook with the wrong signature, so it was
rejected before registration.

## Rules for hook implementations:
- Parameters must be a prefix of the hook's declared parameter list
- Return either nothing, a single value, or a value and an error

## Things you can try:
- Compare the implementation with the hook's declaration
- Contact the plugin author with the error message above`,
	}

	pluginDefinitionIssue = &Issue{
		id: PluginDefinitionId,
		mdMsg: `
# Invalid plugin definition!

A plugin declares a command or command extension that breaks the
declaration rules (for example mixing both roles, or requesting
repo discovery arguments without the student roster arguments).

## Things you can try:
- Read the error message above: it names the offending declaration
- Contact the plugin author`,
	}

	configParseErrorIssue = &Issue{
		id: ConfigParseErrorId,
		mdMsg: `
# Failed to parse configuration!

Your configuration file contains syntax errors or unknown keys.

## Things you can try:
- Check the error message above for the offending line or key
- Verify the file is valid TOML (sections in brackets, key = "value")
- Show the configuration classkit can read:
~~~
$ classkit config show
~~~`,
	}

	configCycleIssue = &Issue{
		id: ConfigCycleId,
		mdMsg: `
# Configuration inheritance cycle!

Your configuration files form a parent cycle, which would make lookups
loop forever. The error message above names the full cycle.

## Things you can try:
- Remove or change the parent_config key in one of the files in the cycle
- Keep parent chains strictly hierarchical (course -> org -> personal)`,
	}

	unknownActionIssue = &Issue{
		id: UnknownActionId,
		mdMsg: `
# Unknown command!

The category exists but has no such action.

## Things you can try:
- List the available actions:
~~~
$ classkit <category> --help
~~~
- Check for typos, or whether the action comes from a plugin you forgot
  to activate with --plug`,
	}

	hookCrashIssue = &Issue{
		id: HookCrashId,
		mdMsg: `
# A plugin task crashed!

A task from one of your active plugins raised an error. The message above
names the offending plugin; classkit aborted the command to avoid
producing incomplete results.

## Things you can try:
- Re-run without the offending plugin
- Report the error to the plugin author`,
	}

	noPlatformIssue = &Issue{
		id: NoPlatformId,
		mdMsg: `
# No platform plugin active!

This command talks to a forge platform, but no active plugin provides a
platform API.

## Things you can try:
- Activate a platform plugin:
~~~
$ classkit --plug github repos setup ...
~~~
- Or set a default in your configuration file:
~~~toml
[classkit]
plugins = "github"
~~~`,
	}

	issues = map[Id]*Issue{
		pluginNotFoundIssue.Id():        pluginNotFoundIssue,
		pluginPathDisallowedIssue.Id():  pluginPathDisallowedIssue,
		hookSignatureIssue.Id():         hookSignatureIssue,
		pluginDefinitionIssue.Id():      pluginDefinitionIssue,
		configParseErrorIssue.Id():      configParseErrorIssue,
		configCycleIssue.Id():           configCycleIssue,
		unknownActionIssue.Id():         unknownActionIssue,
		hookCrashIssue.Id():             hookCrashIssue,
		noPlatformIssue.Id():            noPlatformIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
