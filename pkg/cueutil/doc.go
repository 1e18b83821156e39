// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// The package consolidates the 3-step CUE validation pattern used by the
// configuration layer:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to a Go value
//
// # Usage
//
//	//go:embed core_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[CoreConfig](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Core",
//	    cueutil.WithFilename("classkit.toml"),
//	)
//	if err != nil {
//	    return nil, err // Error includes the CUE path for debugging
//	}
package cueutil
