// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"context"
	"fmt"
	"strings"

	"classkit-cli/internal/cliext"
	"classkit-cli/internal/config"
	"classkit-cli/internal/forge"
	"classkit-cli/internal/issue"
	"classkit-cli/internal/plug"
	"classkit-cli/internal/results"

	"github.com/charmbracelet/log"
)

// Request bundles everything a command handler may need.
type Request struct {
	// Args carries the bound option values.
	Args *cliext.ParsedArgs
	// API is the resolved platform API, nil unless the command declared
	// RequiresAPI.
	API forge.API
	// Store is the active configuration store.
	Store *config.Store
	// Hooks dispatches plugin hooks.
	Hooks *plug.Dispatcher
}

// Handler executes one core command.
type Handler func(ctx context.Context, req *Request) (results.Mapping, error)

// Table routes invocations to core handlers or extension callbacks.
type Table struct {
	handlers map[cliext.Action]Handler
	store    *config.Store
	hooks    *plug.Dispatcher
	logger   *log.Logger
}

// NewTable creates an empty dispatch table.
func NewTable(store *config.Store, hooks *plug.Dispatcher, logger *log.Logger) *Table {
	if logger == nil {
		logger = log.Default()
	}
	return &Table{
		handlers: map[cliext.Action]Handler{},
		store:    store,
		hooks:    hooks,
		logger:   logger,
	}
}

// Register installs the handler for one core action. Re-registering an
// action replaces its handler.
func (t *Table) Register(action cliext.Action, h Handler) {
	t.handlers[action] = h
}

// Dispatch resolves and runs the invoked command.
//
// The handle-parsed-args hook fires before the handler, and the platform
// API is constructed from the connection arguments when the command
// declared RequiresAPI.
func (t *Table) Dispatch(ctx context.Context, c *cliext.Command, args *cliext.ParsedArgs) (results.Mapping, error) {
	if err := plug.HandleParsedArgs(t.hooks, args.Flat()); err != nil {
		return nil, err
	}

	var api forge.API
	if c.RequiresAPI {
		resolved, err := t.resolveAPI(args)
		if err != nil {
			return nil, err
		}
		api = resolved
	}

	if !c.Core {
		return t.runExtension(ctx, c, args, api)
	}

	action := c.Action()
	handler, ok := t.handlers[action]
	if !ok {
		return nil, issue.NewErrorContext().
			WithOperation("dispatch command").
			WithResource(action.String()).
			Wrap(fmt.Errorf("no handler registered for action %q in category %q",
				action.Name, action.Category)).
			WithSuggestion("run 'classkit --help' to list the available commands").
			BuildError()
	}

	t.logger.Debug("dispatching core command", "action", action.String())
	return handler(ctx, &Request{Args: args, API: api, Store: t.store, Hooks: t.hooks})
}

// runExtension invokes an extension command's callback and wraps its
// result into a one-entry mapping keyed by the action name.
func (t *Table) runExtension(ctx context.Context, c *cliext.Command, args *cliext.ParsedArgs, api forge.API) (results.Mapping, error) {
	if c.Callback == nil {
		return nil, issue.NewErrorContext().
			WithOperation("dispatch command").
			WithResource(c.Action().String()).
			Wrap(fmt.Errorf("extension command has no callback")).
			BuildError()
	}

	t.logger.Debug("dispatching extension command", "action", c.Action().String())
	res, err := c.Callback(ctx, args, api)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return results.Mapping{}, nil
	}
	if res.Name == "" {
		res.Name = c.Action().String()
	}
	return results.Mapping{c.Action().String(): {res}}, nil
}

// resolveAPI builds the platform API from the active platform plugin and
// the parsed connection arguments. The plugin's api-init-requires report is
// checked first, so a missing connection argument fails with its name
// instead of an opaque constructor error.
func (t *Table) resolveAPI(args *cliext.ParsedArgs) (forge.API, error) {
	factory, err := plug.PlatformAPI(t.hooks)
	if err != nil {
		if err == forge.ErrNoPlatform {
			return nil, issue.NewErrorContext().
				WithOperation("resolve platform API").
				WithSuggestion("activate a platform plugin, e.g. --plug gitea").
				Wrap(err).
				BuildError()
		}
		return nil, err
	}

	required, err := plug.APIInitRequires(t.hooks)
	if err != nil {
		return nil, err
	}
	init := args.InitArgs()
	for _, name := range required {
		if initArgValue(init, name) == "" {
			return nil, issue.NewErrorContext().
				WithOperation("resolve platform API").
				WithResource(name).
				Wrap(fmt.Errorf("the active platform requires the %q connection argument", name)).
				WithSuggestion(fmt.Sprintf("pass --%s or set %s in the core configuration section",
					strings.ReplaceAll(name, "_", "-"), name)).
				BuildError()
		}
	}

	api, err := factory(init)
	if err != nil {
		return nil, fmt.Errorf("initialize platform API: %w", err)
	}
	return api, nil
}

// initArgValue maps an api-init-requires name to its connection argument.
// Names outside the connection set read as empty, so a platform demanding
// an argument the CLI cannot supply fails the same way.
func initArgValue(init forge.InitArgs, name string) string {
	switch name {
	case "base_url":
		return init.BaseURL
	case "org":
		return init.Org
	case "user":
		return init.User
	case "token":
		return init.Token
	case "template_org":
		return init.TemplateOrg
	default:
		return ""
	}
}
