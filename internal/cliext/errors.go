// SPDX-License-Identifier: MPL-2.0

package cliext

import (
	"errors"
	"fmt"
)

// ErrNotConfigurable is wrapped by errors reporting a configuration-store
// value for an option the plugin did not mark configurable.
var ErrNotConfigurable = errors.New("option is not configurable")

// DefinitionError reports a structurally invalid command declaration.
// Raised while building the CLI, before any command runs.
type DefinitionError struct {
	// Plugin names the plugin the declaration came from.
	Plugin string
	// Reason describes the problem.
	Reason string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid command declaration in plugin %q: %s", e.Plugin, e.Reason)
}
