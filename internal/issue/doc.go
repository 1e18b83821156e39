// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines error types that carry remediation steps and a catalog of
// Markdown-rendered guidance pages for classkit's main failure modes
// (plugin loading, hook registration, configuration).
package issue
