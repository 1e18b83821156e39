// SPDX-License-Identifier: MPL-2.0

// Package results defines the outcome type produced by hook and command
// invocations, and the JSON interchange format used to exchange aggregated
// results between classkit and external tooling.
package results

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Status classifies the outcome of a single hook or command invocation.
type Status string

const (
	// StatusSuccess indicates the invocation completed as intended.
	StatusSuccess Status = "success"
	// StatusWarning indicates the invocation completed with caveats.
	StatusWarning Status = "warning"
	// StatusError indicates the invocation failed.
	StatusError Status = "error"
)

// Result is the outcome of one hook or command invocation.
//
// Name identifies the producing hook or command and is used as the key in
// the interchange mapping, so it is never serialized inline. Impl is an
// opaque handle to the producing implementation (for diagnostics only) and
// is dropped on serialization.
type Result struct {
	Name   string         `json:"-"`
	Status Status         `json:"status"`
	Msg    string         `json:"msg"`
	Data   map[string]any `json:"data"`
	Impl   any            `json:"-"`
}

// New creates a Result with the given name, status and message.
func New(name string, status Status, msg string) *Result {
	return &Result{Name: name, Status: status, Msg: msg}
}

// Success creates a success Result.
func Success(name, msg string) *Result {
	return New(name, StatusSuccess, msg)
}

// Warning creates a warning Result.
func Warning(name, msg string) *Result {
	return New(name, StatusWarning, msg)
}

// Error creates an error Result.
func Error(name, msg string) *Result {
	return New(name, StatusError, msg)
}

// Mapping aggregates Results per logical target (typically a student repo
// or team name).
type Mapping map[string][]*Result

// Serialize encodes a Mapping into the interchange format:
//
//	{"<target>": {"<result-name>": {"status": ..., "msg": ..., "data": ...}}}
//
// Impl handles are dropped. When a target holds two results with the same
// name, the later one wins.
func Serialize(m Mapping) ([]byte, error) {
	out := make(map[string]map[string]*Result, len(m))
	for target, rs := range m {
		inner := make(map[string]*Result, len(rs))
		for _, r := range rs {
			inner[r.Name] = r
		}
		out[target] = inner
	}
	return json.MarshalIndent(out, "", "  ")
}

// Deserialize decodes the interchange format back into a Mapping. Results
// within a target are ordered by name so that a serialize/deserialize
// round trip is deterministic.
func Deserialize(data []byte) (Mapping, error) {
	var raw map[string]map[string]*Result
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed results document: %w", err)
	}
	m := make(Mapping, len(raw))
	for target, inner := range raw {
		names := make([]string, 0, len(inner))
		for name := range inner {
			names = append(names, name)
		}
		sort.Strings(names)
		rs := make([]*Result, 0, len(inner))
		for _, name := range names {
			r := inner[name]
			r.Name = name
			rs = append(rs, r)
		}
		m[target] = rs
	}
	return m, nil
}
