// SPDX-License-Identifier: MPL-2.0

package cliext

import (
	"fmt"
	"sort"

	"classkit-cli/internal/forge"
)

// ParsedArgs carries the bound option values of one command invocation.
// Values are keyed by each option's binding key (Dest or Key).
type ParsedArgs struct {
	// Category and Action locate the invoked command.
	Category string
	Action   string

	// Command is the declaration the values were bound for. The dispatch
	// table uses it to tell extension commands from core commands.
	Command *Command

	vals map[string]any
}

// Get returns the raw bound value for a key.
func (a *ParsedArgs) Get(key string) (any, bool) {
	v, ok := a.vals[key]
	return v, ok
}

// Set stores a bound value. Exposed for tests and for hook implementations
// that enrich the parsed arguments.
func (a *ParsedArgs) Set(key string, val any) {
	if a.vals == nil {
		a.vals = map[string]any{}
	}
	a.vals[key] = val
}

// String returns the value for key as a string, or "" when absent.
func (a *ParsedArgs) String(key string) string {
	if v, ok := a.vals[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// StringSlice returns a multi-value option's tokens.
func (a *ParsedArgs) StringSlice(key string) []string {
	switch v := a.vals[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			out[i] = fmt.Sprint(e)
		}
		return out
	default:
		return nil
	}
}

// Int returns the value for key as an int, 0 when absent or not numeric.
func (a *ParsedArgs) Int(key string) int {
	switch v := a.vals[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the value for key as a bool, false when absent.
func (a *ParsedArgs) Bool(key string) bool {
	v, ok := a.vals[key].(bool)
	return ok && v
}

// Flat renders every bound value as a string, for the handle-parsed-args
// hook.
func (a *ParsedArgs) Flat() map[string]string {
	out := make(map[string]string, len(a.vals))
	for k, v := range a.vals {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// Keys returns the bound keys in sorted order.
func (a *ParsedArgs) Keys() []string {
	keys := make([]string, 0, len(a.vals))
	for k := range a.vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InitArgs assembles the forge connection arguments from the shared
// connection flags.
func (a *ParsedArgs) InitArgs() forge.InitArgs {
	return forge.InitArgs{
		BaseURL:     a.String("base_url"),
		Org:         a.String("org"),
		User:        a.String("user"),
		Token:       a.String("token"),
		TemplateOrg: a.String("template_org"),
	}
}
