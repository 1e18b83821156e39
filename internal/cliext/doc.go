// SPDX-License-Identifier: MPL-2.0

// Package cliext turns declaratively-defined command declarations into
// runnable cobra subcommands wired to the configuration store.
//
// A plugin declares commands as data: a category/action position, a set of
// requested shared flag groups, and an ordered list of option descriptors.
// The Builder processes each declaration through explicit phases —
// classification (category/action resolution), parser attachment (cobra
// command creation, categories reused idempotently), option
// materialization (descriptors become real flags, with configured values
// substituted as defaults), and post-parse binding (flag values land in a
// ParsedArgs handed to the command's runner).
//
// A configured value satisfies a required option; a configured value for a
// non-configurable option is rejected. Multi-value configured strings are
// shell-tokenized and converted per token. For every plugin with
// configurable options the Builder synthesizes a configurable-args hook
// implementation so the configuration schema can be introspected without
// re-parsing CLI declarations.
package cliext
