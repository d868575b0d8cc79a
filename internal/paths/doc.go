// Package paths builds and validates library target paths.
//
// The builder substitutes template variables, sanitizes every path component
// for cross-platform safety, and reports validation findings alongside the
// resolved path. Conflict resolution turns an occupied target into a
// numbered variant, falling back to a timestamp suffix when the numbered
// attempts are exhausted.
package paths
