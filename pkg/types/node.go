package types

import "io/fs"

// NodeKind is the type of an entry in a template tree
type NodeKind string

const (
	NodeDir     NodeKind = "dir"
	NodeFile    NodeKind = "file"
	NodeSymlink NodeKind = "symlink"
)

// TemplateNode is a file, directory or symlink inside a template tree.
// RelPath is slash separated, relative to the template root, and may
// contain placeholders.
type TemplateNode struct {
	RelPath    string
	Kind       NodeKind
	Mode       fs.FileMode
	LinkTarget string
}

// RunTarget pairs a resolved working directory and command with the
// swap set they were derived from.
type RunTarget struct {
	Index   int
	Dir     string
	Command string
	Swaps   SwapSet
}
