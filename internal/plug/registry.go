// SPDX-License-Identifier: MPL-2.0

package plug

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/charmbracelet/log"
)

// Deprecation describes a hook name scheduled for removal.
type Deprecation struct {
	// RemovedIn is the version in which the hook name stops working.
	RemovedIn string
	// Replacement names the hook to use instead, if any.
	Replacement string
}

// deprecatedHooks maps old hook names to their deprecation info. An
// implementation registered under an old name is rerouted to the
// replacement spec (when one exists) after a warning.
var deprecatedHooks = map[string]Deprecation{
	"act-on-cloned-repo": {RemovedIn: "3.0.0", Replacement: HookPostClone},
	"clone-task":         {RemovedIn: "3.0.0", Replacement: HookPostClone},
	"setup-task":         {RemovedIn: "3.0.0", Replacement: HookPreSetup},
}

// implEntry binds one validated hook implementation to its providing unit.
type implEntry struct {
	unit *Unit
	fn   reflect.Value
	// provider is the name of the concrete provider (the unit's plugin or
	// one of its subplugins).
	provider string
}

// Registry owns the set of active hook registrations. It validates
// implementations against the hook specification table and maintains the
// deterministic call order the Dispatcher relies on:
//
//   - registering a unit prepends its implementations, so later-loaded
//     plugins run before earlier-loaded ones;
//   - units flagged TryLast are appended instead, so the built-in
//     defaults always run last;
//   - within one unit, the unit-level implementation precedes contained
//     subplugin implementations, in declaration order.
//
// Registry state has an explicit lifecycle (Register/UnregisterAll) so
// tests can fully reset plugin state between cases.
type Registry struct {
	specs  map[string]Spec
	impls  map[string][]implEntry
	active map[Plugin]*Unit
	units  []*Unit
	logger *log.Logger
}

// NewRegistry creates a Registry with the fixed hook specification table
// installed.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		specs:  Specs(),
		impls:  map[string][]implEntry{},
		active: map[Plugin]*Unit{},
		logger: logger,
	}
}

// Spec returns the specification for a hook name.
func (r *Registry) Spec(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Active returns the registered units in registration order.
func (r *Registry) Active() []*Unit {
	out := make([]*Unit, len(r.units))
	copy(out, r.units)
	return out
}

// entries returns the call-order list for a hook.
func (r *Registry) entries(hook string) []implEntry {
	return r.impls[hook]
}

// Register activates the given units as hook providers, preserving the
// ordering guarantees described on Registry. A unit that is already active
// is skipped (compared by plugin identity), so repeated initialization is
// safe. Signature mismatches and unknown hook names fail the whole call
// before any of the offending unit's hooks become active.
func (r *Registry) Register(units []*Unit) error {
	for _, unit := range units {
		if _, ok := r.active[unit.Plugin]; ok {
			continue
		}

		providers := []Plugin{unit.Plugin}
		if comp, ok := unit.Plugin.(Composite); ok {
			providers = append(providers, comp.Subplugins()...)
		}

		// Validate and collect the whole unit before mutating call lists.
		batch := map[string][]implEntry{}
		for _, p := range providers {
			if err := r.collect(unit, p, batch); err != nil {
				return err
			}
		}

		for hook, entries := range batch {
			if unit.tryLast() {
				r.impls[hook] = append(r.impls[hook], entries...)
			} else {
				r.impls[hook] = append(entries, r.impls[hook]...)
			}
		}
		r.active[unit.Plugin] = unit
		r.units = append(r.units, unit)
	}
	return nil
}

// collect validates one provider's hook implementations and appends them
// to the unit's registration batch, emitting deprecation warnings for
// hooks registered under retired names.
func (r *Registry) collect(unit *Unit, p Plugin, batch map[string][]implEntry) error {
	hooks := p.Hooks()

	// Map iteration order is random; fix it for deterministic errors.
	names := make([]string, 0, len(hooks))
	for name := range hooks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		impl := hooks[name]
		hookName := name

		if dep, ok := deprecatedHooks[name]; ok {
			if dep.Replacement == "" {
				r.logger.Warn("deprecated hook ignored",
					"hook", name, "module", unit.QualifiedName, "removed_in", dep.RemovedIn)
				continue
			}
			r.logger.Warn("deprecated hook",
				"hook", name, "module", unit.QualifiedName,
				"removed_in", dep.RemovedIn, "replacement", dep.Replacement)
			hookName = dep.Replacement
		}

		spec, ok := r.specs[hookName]
		if !ok {
			return &DefinitionError{
				Module: unit.QualifiedName,
				Reason: fmt.Sprintf("provider %q implements unknown hook %q", p.Name(), name),
			}
		}

		fn, err := validateImpl(unit, spec, impl)
		if err != nil {
			return err
		}
		batch[hookName] = append(batch[hookName], implEntry{
			unit:     unit,
			fn:       fn,
			provider: p.Name(),
		})
	}
	return nil
}

// validateImpl checks an implementation against its specification: it must
// be a non-variadic function whose parameters are a prefix of the spec's
// parameter list, returning nothing, a single value, or a value and an
// error.
func validateImpl(unit *Unit, spec Spec, impl any) (reflect.Value, error) {
	fn := reflect.ValueOf(impl)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return reflect.Value{}, &SignatureError{
			Module: unit.QualifiedName,
			Hook:   spec.Name,
			Reason: fmt.Sprintf("implementation is %T, want a function", impl),
		}
	}

	t := fn.Type()
	if t.IsVariadic() {
		return reflect.Value{}, &SignatureError{
			Module: unit.QualifiedName,
			Hook:   spec.Name,
			Reason: "variadic implementations are not supported",
		}
	}
	if t.NumIn() > len(spec.Params) {
		return reflect.Value{}, &SignatureError{
			Module: unit.QualifiedName,
			Hook:   spec.Name,
			Reason: fmt.Sprintf("takes %d parameters, spec declares %d", t.NumIn(), len(spec.Params)),
		}
	}
	for i := 0; i < t.NumIn(); i++ {
		if t.In(i) != spec.Params[i] {
			return reflect.Value{}, &SignatureError{
				Module: unit.QualifiedName,
				Hook:   spec.Name,
				Reason: fmt.Sprintf("parameter %d has type %s, spec declares %s", i, t.In(i), spec.Params[i]),
			}
		}
	}

	switch t.NumOut() {
	case 0, 1:
	case 2:
		if t.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
			return reflect.Value{}, &SignatureError{
				Module: unit.QualifiedName,
				Hook:   spec.Name,
				Reason: fmt.Sprintf("second return value has type %s, want error", t.Out(1)),
			}
		}
	default:
		return reflect.Value{}, &SignatureError{
			Module: unit.QualifiedName,
			Hook:   spec.Name,
			Reason: fmt.Sprintf("returns %d values, want at most 2", t.NumOut()),
		}
	}

	return fn, nil
}

// Unregister removes a single unit's registrations.
func (r *Registry) Unregister(unit *Unit) {
	if _, ok := r.active[unit.Plugin]; !ok {
		return
	}
	delete(r.active, unit.Plugin)

	for i, u := range r.units {
		if u == unit {
			r.units = append(r.units[:i], r.units[i+1:]...)
			break
		}
	}
	for hook, entries := range r.impls {
		kept := entries[:0]
		for _, e := range entries {
			if e.unit != unit {
				kept = append(kept, e)
			}
		}
		r.impls[hook] = kept
	}
}

// UnregisterAll clears every active registration. Used at process teardown
// and for test isolation.
func (r *Registry) UnregisterAll() {
	r.impls = map[string][]implEntry{}
	r.active = map[Plugin]*Unit{}
	r.units = nil
}

// TryRegisterAndUnregister registers a unit, captures what got newly
// registered, unregisters it again, and verifies that exactly the expected
// provider names were found. It is a validation utility for plugin
// authors, not a production dispatch path.
func (r *Registry) TryRegisterAndUnregister(unit *Unit, expected ...string) error {
	if _, ok := r.active[unit.Plugin]; ok {
		return fmt.Errorf("unit %s is already registered", unit.QualifiedName)
	}

	if err := r.Register([]*Unit{unit}); err != nil {
		return err
	}
	defer r.Unregister(unit)

	found := map[string]bool{}
	for _, entries := range r.impls {
		for _, e := range entries {
			if e.unit == unit {
				found[e.provider] = true
			}
		}
	}

	for _, want := range expected {
		if !found[want] {
			return fmt.Errorf("expected provider %q was not registered by %s", want, unit.QualifiedName)
		}
		delete(found, want)
	}
	if len(found) > 0 {
		extra := make([]string, 0, len(found))
		for name := range found {
			extra = append(extra, name)
		}
		sort.Strings(extra)
		return fmt.Errorf("unexpected providers registered by %s: %v", unit.QualifiedName, extra)
	}
	return nil
}
