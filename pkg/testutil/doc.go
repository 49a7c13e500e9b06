// Package testutil provides helpers for testing dirwand components.
//
// Key components:
//   - File helpers: CreateFile, CreateDir, CreateSymlink and friends operate
//     on a real temporary directory and fail the test on error
//   - TemplateBuilder: declarative setup of a template tree
//   - ReadTree: snapshot of a generated tree for whole-tree assertions
//
// Walker and runner tests use real directories since they depend on
// symlinks, permission bits and a shell. Resolver and swapfile tests use
// filesystem.NewMemory instead.
package testutil
