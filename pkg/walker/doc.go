// Package walker replicates a template directory once per swap set.
//
// A template is scanned once into a Tree. Each Copy then substitutes the
// swap set into every path, symlink target and text file before writing,
// so a copy that references an unknown placeholder fails without touching
// the destination. Binary files are copied byte for byte. File permission
// bits are preserved; directories are created with default permissions.
package walker
