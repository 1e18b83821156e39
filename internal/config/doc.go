// SPDX-License-Identifier: MPL-2.0

// Package config implements classkit's layered configuration.
//
// The Store type is a section/key/value store backed by a TOML file, with
// an optional parent store: lookups fall back to the parent chain, writes
// always target the local store. Parent links are declared through the
// parent_config key in the reserved [classkit] section and are validated
// for cycles at assignment time.
//
// The Provider type layers the reserved core section with defaults and
// CLASSKIT_* environment variables through Viper, and validates it against
// a CUE schema (core_schema.cue) so that unknown core keys are rejected
// with clear error messages.
package config
