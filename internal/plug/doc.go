// SPDX-License-Identifier: MPL-2.0

// Package plug implements classkit's plugin and hook execution engine.
//
// The engine has four parts:
//
//   - the hook specification table (spec.go): the fixed set of extension
//     points, each with a declared parameter list and first-result or
//     fan-out semantics;
//   - the Loader (load.go): resolves plugin names to Units through a fixed
//     priority of naming strategies (built-in table, installed package
//     convention, qualified names, Lua file paths);
//   - the Registry (registry.go): activates Units as hook providers,
//     validates implementation signatures against the specification table,
//     and maintains the deterministic call order;
//   - the Dispatcher (dispatch.go): invokes registered implementations with
//     first-result (true short-circuit) or fan-out semantics, attributing
//     crashes to the offending plugin.
//
// Call order is LIFO by load position: later-loaded plugins run before
// earlier-loaded ones, and units flagged TryLast (the built-in defaults)
// always run last. A user plugin therefore shadows the defaults in
// first-result hooks while the defaults still execute as a safety net in
// fan-out hooks.
//
// The Registry and Dispatcher are explicit values to be injected where
// needed; the package keeps no process-global registration state.
package plug
