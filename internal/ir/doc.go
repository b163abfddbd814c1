// Package ir provides the canonical intermediate representation all
// surface representations translate through.
//
// This package contains type definitions and representation-neutral
// helpers only. All other internal packages import ir; ir imports
// nothing internal. This ensures IR remains the foundational layer
// with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - literals carry exact source text
//   - Constraint variants are a closed tagged set, never open maps
//   - A Document is built fresh per translation request and discarded
//     with it; nothing in this package holds cross-request state
package ir
