// SPDX-License-Identifier: MPL-2.0

package plug

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// BuiltinNamespace prefixes the module identity of built-in plugins.
	BuiltinNamespace = "classkit/ext"
	// PackagePrefix is the naming convention for installed plugin
	// packages: a plugin named "javac" lives in a package registered as
	// "classkit_javac".
	PackagePrefix = "classkit_"
)

// Loader resolves plugin name strings to Units. Resolution strategies are
// tried in a fixed priority order per name:
//
//  1. the built-in table (classkit/ext/<name>)
//  2. the installed-package convention (classkit_<name>)
//  3. the literal name as a registered qualified name, if AllowQualified
//  4. the name as a Lua plugin file path, if AllowFilepath
//
// Qualified names and file paths can execute arbitrary code from
// unexpected locations, so both strategies are disabled by default and
// guarded: offending names are rejected before any resolution attempt.
type Loader struct {
	// AllowQualified permits resolving raw qualified names.
	AllowQualified bool
	// AllowFilepath permits loading standalone Lua plugin files.
	AllowFilepath bool

	builtins map[string]Plugin
	packages map[string]Plugin
	logger   *log.Logger
}

// NewLoader creates a Loader with empty resolution tables. Built-in
// plugins are installed by the ext package; compiled-in third-party
// plugin packages add themselves with AddPackage.
func NewLoader(logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{
		builtins: map[string]Plugin{},
		packages: map[string]Plugin{},
		logger:   logger,
	}
}

// AddBuiltin installs a built-in plugin under its unqualified name.
func (l *Loader) AddBuiltin(name string, p Plugin) {
	l.builtins[name] = p
}

// AddPackage installs an external plugin under its registered name,
// either the classkit_<name> convention or a fully qualified name.
func (l *Loader) AddPackage(registeredName string, p Plugin) {
	l.packages[registeredName] = p
}

// Load resolves the given plugin names in order, failing loudly on the
// first name no allowed strategy can resolve. The returned units preserve
// input order, with Ordinal set to the list position.
func (l *Loader) Load(names []string) ([]*Unit, error) {
	if err := l.guard(names); err != nil {
		return nil, err
	}

	units := make([]*Unit, 0, len(names))
	for i, name := range names {
		unit, err := l.resolve(name)
		if err != nil {
			return nil, err
		}
		unit.Ordinal = i
		l.logger.Debug("resolved plugin", "name", name, "module", unit.QualifiedName, "origin", unit.Origin)
		units = append(units, unit)
	}
	return units, nil
}

// guard rejects names that require a disabled opt-in strategy, collecting
// every offending name into one structured error before any resolution is
// attempted.
func (l *Loader) guard(names []string) error {
	if !l.AllowFilepath {
		var offending []string
		for _, name := range names {
			if looksLikePath(name) {
				offending = append(offending, name)
			}
		}
		if len(offending) > 0 {
			return &DisallowedNamesError{Strategy: "file path", Names: offending}
		}
	}

	if !l.AllowQualified {
		var offending []string
		for _, name := range names {
			if looksLikePath(name) {
				continue // already permitted or rejected above
			}
			if strings.Contains(name, ".") {
				offending = append(offending, name)
			}
		}
		if len(offending) > 0 {
			return &DisallowedNamesError{Strategy: "qualified name", Names: offending}
		}
	}

	return nil
}

// resolve tries the loading strategies for one name in priority order.
func (l *Loader) resolve(name string) (*Unit, error) {
	tried := make([]string, 0, 4)

	builtinName := BuiltinNamespace + "/" + name
	tried = append(tried, builtinName)
	if p, ok := l.builtins[name]; ok {
		return &Unit{Plugin: p, QualifiedName: builtinName, Origin: OriginBuiltin}, nil
	}

	packageName := PackagePrefix + name
	tried = append(tried, packageName)
	if p, ok := l.packages[packageName]; ok {
		return &Unit{Plugin: p, QualifiedName: packageName, Origin: OriginPackage}, nil
	}

	if l.AllowQualified {
		tried = append(tried, name)
		if p, ok := l.packages[name]; ok {
			return &Unit{Plugin: p, QualifiedName: name, Origin: OriginQualified}, nil
		}
	}

	if l.AllowFilepath && looksLikePath(name) {
		tried = append(tried, "file:"+name)
		p, err := LoadLuaFile(name)
		if err != nil {
			return nil, err
		}
		return &Unit{Plugin: p, QualifiedName: p.ModuleName(), Origin: OriginFile}, nil
	}

	return nil, &LoadError{Name: name, Tried: tried}
}

// looksLikePath reports whether a plugin name should be treated as a
// filesystem path: it contains a path separator or names an existing file.
func looksLikePath(name string) bool {
	if strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		return true
	}
	_, err := os.Stat(name)
	return err == nil
}
