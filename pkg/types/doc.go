// Package types defines the core types and interfaces used throughout dirwand.
// This includes the FS interface, value specifications, swap sets and
// tables, template nodes, run targets and progress events.
package types
