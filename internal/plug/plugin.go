// SPDX-License-Identifier: MPL-2.0

package plug

import "fmt"

// Plugin is a hook provider: a named unit of code exposing hook
// implementations keyed by hook name. Implementations are plain Go
// functions; their signatures are validated against the hook specification
// table at registration time.
type Plugin interface {
	// Name returns the plugin's unqualified name (e.g. "javac"). By
	// convention it also names the plugin's configuration section.
	Name() string

	// Hooks returns the hook implementations this plugin provides, keyed
	// by hook name.
	Hooks() map[string]any
}

// Composite is implemented by plugins that contain nested hook providers.
// The containing unit is registered first, then each subplugin in
// declaration order.
type Composite interface {
	Subplugins() []Plugin
}

// TryLaster is implemented by units whose fan-out hooks must run after
// everyone else's. The built-in defaults use this so user plugins can
// shadow or precede them.
type TryLaster interface {
	TryLast() bool
}

// Origin describes which loading strategy produced a Unit.
type Origin int

const (
	// OriginBuiltin is a plugin shipped in the classkit/ext namespace.
	OriginBuiltin Origin = iota
	// OriginPackage is an installed plugin package (classkit_<name>).
	OriginPackage
	// OriginQualified is a plugin resolved from a raw qualified name.
	OriginQualified
	// OriginFile is a standalone Lua plugin file.
	OriginFile
)

// String returns a human-readable origin name.
func (o Origin) String() string {
	switch o {
	case OriginBuiltin:
		return "built-in"
	case OriginPackage:
		return "installed package"
	case OriginQualified:
		return "qualified name"
	case OriginFile:
		return "plugin file"
	default:
		return "unknown"
	}
}

// Unit is a loaded plugin together with its load metadata. Units are
// created by the Loader and owned by the Registry afterwards.
type Unit struct {
	// Plugin is the loaded hook provider.
	Plugin Plugin

	// QualifiedName is the unit's module identity, e.g.
	// "classkit/ext/defaults" or "<sha1>.<stem>" for file plugins. Error
	// messages and deprecation warnings use it to attribute problems.
	QualifiedName string

	// Origin records the loading strategy that resolved the unit.
	Origin Origin

	// Ordinal is the unit's position in the load list.
	Ordinal int
}

// String returns the unit's identity for diagnostics.
func (u *Unit) String() string {
	return fmt.Sprintf("%s (%s)", u.QualifiedName, u.Origin)
}

// tryLast reports whether the unit's hooks must run after everyone else's.
func (u *Unit) tryLast() bool {
	if tl, ok := u.Plugin.(TryLaster); ok {
		return tl.TryLast()
	}
	return false
}
