// Package ir provides the typed intermediate representation for Stratum
// flow specs.
//
// This package contains type definitions and their canonical serialization
// only. All other internal packages import ir; ir imports nothing internal.
// This keeps IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - IR records are immutable after construction; nothing mutates a Spec
//     once spec.Parse returns it
//   - All JSON tags use snake_case and mirror the document format, so a
//     canonical encoding of a Spec is itself a parseable document
//   - Canonical serialization follows RFC 8785 (UTF-16 key order, NFC
//     strings, no HTML escaping) and is the only encoding used for
//     fingerprinting
package ir
