// SPDX-License-Identifier: MPL-2.0

package plug

import (
	"fmt"
	"strings"
)

// LoadError reports that a single plugin name could not be resolved by any
// allowed strategy.
type LoadError struct {
	// Name is the plugin name that failed to resolve.
	Name string
	// Tried lists the lookup strategies that were attempted.
	Tried []string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("could not resolve plugin %q (tried: %s)",
		e.Name, strings.Join(e.Tried, ", "))
}

// DisallowedNamesError reports plugin names that require an opt-in loading
// strategy which was not enabled. All offending names are collected before
// any resolution is attempted.
type DisallowedNamesError struct {
	// Strategy is the disabled strategy ("file path" or "qualified name").
	Strategy string
	// Names are the offending plugin names.
	Names []string
}

// Error implements the error interface.
func (e *DisallowedNamesError) Error() string {
	return fmt.Sprintf("%s plugin loading is disabled, refusing: %s",
		e.Strategy, strings.Join(e.Names, ", "))
}

// SignatureError reports a hook implementation whose signature does not
// match its specification. Raised at registration time, before any
// dispatch.
type SignatureError struct {
	// Module is the identity of the providing unit.
	Module string
	// Hook is the hook name.
	Hook string
	// Reason describes the mismatch.
	Reason string
}

// Error implements the error interface.
func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid implementation of hook %q in %s: %s",
		e.Hook, e.Module, e.Reason)
}

// DefinitionError reports a structurally invalid plugin declaration, such
// as providing an implementation for a hook name that does not exist.
type DefinitionError struct {
	// Module is the identity of the offending unit.
	Module string
	// Reason describes the problem.
	Reason string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid plugin definition in %s: %s", e.Module, e.Reason)
}

// CrashError wraps an error raised inside a hook implementation,
// attributing it to the owning plugin.
type CrashError struct {
	// Module is the identity of the offending unit.
	Module string
	// Hook is the hook that crashed.
	Hook string
	// Cause is the underlying error or recovered panic.
	Cause error
}

// Error implements the error interface.
func (e *CrashError) Error() string {
	return fmt.Sprintf("a task from module %s crashed while running hook %q: %v",
		e.Module, e.Hook, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *CrashError) Unwrap() error { return e.Cause }
