// SPDX-License-Identifier: MPL-2.0

package plug

import (
	"fmt"
	"reflect"

	"github.com/charmbracelet/log"
)

// Dispatcher invokes registered hook implementations with the call
// semantics declared by each hook's specification. Implementations run
// strictly sequentially in registry call order; there is no concurrency at
// this layer.
type Dispatcher struct {
	reg    *Registry
	logger *log.Logger
}

// NewDispatcher creates a Dispatcher over the given registry.
func NewDispatcher(reg *Registry, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{reg: reg, logger: logger}
}

// First dispatches a first-result hook: implementations are called in
// order and the first non-nil result wins. Dispatch short-circuits, so
// implementations after the winner are not called; side-effecting
// first-result implementations must not rely on always running. With zero
// registered implementations the result is nil without error.
func (d *Dispatcher) First(hook string, args ...any) (any, error) {
	spec, ok := d.reg.Spec(hook)
	if !ok {
		return nil, fmt.Errorf("unknown hook %q", hook)
	}
	if !spec.FirstResult {
		return nil, fmt.Errorf("hook %q is not a first-result hook", hook)
	}

	for _, entry := range d.reg.entries(hook) {
		res, err := d.call(entry, hook, args)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, nil
}

// All dispatches a fan-out hook: every registered implementation is
// called, and all non-nil results are collected in call order. An error
// from any implementation is logged, attributed to the offending plugin,
// and aborts the dispatch. With zero registered implementations the result
// is an empty list without error.
func (d *Dispatcher) All(hook string, args ...any) ([]any, error) {
	spec, ok := d.reg.Spec(hook)
	if !ok {
		return nil, fmt.Errorf("unknown hook %q", hook)
	}
	if spec.FirstResult {
		return nil, fmt.Errorf("hook %q is a first-result hook", hook)
	}

	collected := []any{}
	for _, entry := range d.reg.entries(hook) {
		res, err := d.call(entry, hook, args)
		if err != nil {
			return nil, err
		}
		if res != nil {
			collected = append(collected, res)
		}
	}

	if spec.Merge != nil {
		collected = spec.Merge(collected)
	}
	return collected, nil
}

// call invokes one implementation, trimming the argument list to the
// implementation's arity. Panics and returned errors are wrapped into a
// CrashError naming the offending module, never a bare stack trace from
// dispatcher internals.
func (d *Dispatcher) call(entry implEntry, hook string, args []any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = d.crash(entry, hook, fmt.Errorf("panic: %v", rec))
			result = nil
		}
	}()

	t := entry.fn.Type()
	in := make([]reflect.Value, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		if args[i] == nil {
			in[i] = reflect.Zero(t.In(i))
		} else {
			in[i] = reflect.ValueOf(args[i])
		}
	}

	out := entry.fn.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	if len(out) == 2 && !out[1].IsNil() {
		return nil, d.crash(entry, hook, out[1].Interface().(error))
	}
	return valueOrNil(out[0]), nil
}

// crash logs and wraps an implementation failure.
func (d *Dispatcher) crash(entry implEntry, hook string, cause error) error {
	d.logger.Error("hook implementation crashed",
		"hook", hook, "module", entry.unit.QualifiedName, "provider", entry.provider, "err", cause)
	return &CrashError{Module: entry.unit.QualifiedName, Hook: hook, Cause: cause}
}

// valueOrNil converts a reflected return value to any, mapping nil
// pointers, interfaces, maps, slices and funcs to a plain nil so that
// "no result" detection works across types.
func valueOrNil(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}
