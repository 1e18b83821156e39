// SPDX-License-Identifier: MPL-2.0

// Package dispatch routes parsed command invocations to their handlers.
//
// Core commands are resolved through a static table keyed by category and
// action. Extension commands carry their own callback and are detected by
// marker instead; their single result is wrapped into a one-entry mapping
// keyed by the action name.
package dispatch
