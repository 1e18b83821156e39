// SPDX-License-Identifier: MPL-2.0

// Package ext wires the built-in plugins into a loader.
package ext

import (
	"classkit-cli/internal/ext/defaults"
	"classkit-cli/internal/plug"
)

// Install registers every built-in plugin with the loader.
func Install(l *plug.Loader) {
	l.AddBuiltin(defaults.Name, defaults.New())
}
