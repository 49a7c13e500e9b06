// Package swapfile reads and writes swapfiles.
//
// A swapfile maps each placeholder key to exactly one value source:
//
//	num:
//	  range: 1-10
//	name:
//	  list: [alpha, beta]
//	flag:
//	  file: values.txt
//
// YAML is the default format; files ending in .toml are read and written
// as TOML. Keys keep their document order. Relative file paths are looked
// up next to the swapfile first, then relative to the working directory.
package swapfile
