// SPDX-License-Identifier: MPL-2.0

// Package command implements the built-in domain commands. Each command is
// a thin orchestration over the forge API and the plugin hooks: the
// interesting behavior (repo naming, roster parsing, review allocation,
// setup/clone tasks) is delegated to plugins, with the defaults plugin
// answering whatever no user plugin claimed.
package command
