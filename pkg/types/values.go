package types

import "fmt"

// ValueForm tells how a ValueSpec should be resolved
type ValueForm string

const (
	// FormRange is an inclusive integer range written "a-b"
	FormRange ValueForm = "range"

	// FormList is an explicit list of tokens used verbatim
	FormList ValueForm = "list"

	// FormFile is a path to a newline-delimited file of values
	FormFile ValueForm = "file"
)

// Source of a ValueSpec, used when reporting duplicate declarations
const (
	SourceCLI      = "command line"
	SourceSwapfile = "swapfile"
)

// ValueSpec is a raw user-supplied specification for one placeholder
type ValueSpec struct {
	Key   string
	Form  ValueForm
	Range string
	List  []string
	Path  string

	// Source records where the spec was declared
	Source string
}

// RangeSpec builds a range ValueSpec
func RangeSpec(key, raw string) ValueSpec {
	return ValueSpec{Key: key, Form: FormRange, Range: raw}
}

// ListSpec builds a list ValueSpec
func ListSpec(key string, values ...string) ValueSpec {
	return ValueSpec{Key: key, Form: FormList, List: values}
}

// FileSpec builds a file ValueSpec
func FileSpec(key, path string) ValueSpec {
	return ValueSpec{Key: key, Form: FormFile, Path: path}
}

// String returns a short human readable form of the spec
func (s ValueSpec) String() string {
	switch s.Form {
	case FormRange:
		return fmt.Sprintf("%s: range %s", s.Key, s.Range)
	case FormList:
		return fmt.Sprintf("%s: list %v", s.Key, s.List)
	case FormFile:
		return fmt.Sprintf("%s: file %s", s.Key, s.Path)
	default:
		return fmt.Sprintf("%s: <%s>", s.Key, s.Form)
	}
}
