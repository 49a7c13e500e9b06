package cli

import (
	"regexp"
	"strings"

	"github.com/spf13/pflag"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
	"github.com/arthur-debert/dirwand/pkg/values"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ExtractSwapArgs separates placeholder values from the arguments cobra
// understands. Flags known to flags, and their values, are returned in rest
// untouched. Unknown flags declare placeholder values:
//
//	--key VALUE   a range ("1-5") or a file of values, see values.ParseCLIValue
//	--key=VALUE   same
//	-key V1 V2    an explicit list, ending at the next argument starting with "-"
//
// Everything after "--" is passed through.
func ExtractSwapArgs(fs types.FS, flags *pflag.FlagSet, args []string) (specs []types.ValueSpec, rest []string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--":
			rest = append(rest, args[i:]...)
			return specs, rest, nil

		case strings.HasPrefix(arg, "--"):
			name, value, inline := strings.Cut(arg[2:], "=")
			if flag := flags.Lookup(name); flag != nil {
				rest = append(rest, arg)
				if !inline && takesValue(flag) && i+1 < len(args) {
					i++
					rest = append(rest, args[i])
				}
				continue
			}
			if err := checkKey(name, arg); err != nil {
				return nil, nil, err
			}
			if !inline {
				if i+1 >= len(args) || strings.HasPrefix(args[i+1], "-") {
					return nil, nil, errors.Newf(errors.ErrInvalidInput, "missing value for --%s", name).
						WithDetail("key", name)
				}
				i++
				value = args[i]
			}
			spec, err := values.ParseCLIValue(fs, name, value)
			if err != nil {
				return nil, nil, err
			}
			specs = append(specs, spec)

		case len(arg) > 1 && arg[0] == '-':
			name := arg[1:]
			if isShorthand(flags, name) {
				rest = append(rest, arg)
				if len(name) == 1 && takesValue(flags.ShorthandLookup(name)) && i+1 < len(args) {
					i++
					rest = append(rest, args[i])
				}
				continue
			}
			if flags.Lookup(name) != nil {
				return nil, nil, errors.Newf(errors.ErrInvalidInput, "-%s is a flag, write --%s", name, name)
			}
			if err := checkKey(name, arg); err != nil {
				return nil, nil, err
			}

			var list []string
			for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
				list = append(list, args[i])
			}
			if len(list) == 0 {
				return nil, nil, errors.Newf(errors.ErrInvalidInput, "no values given for -%s", name).
					WithDetail("key", name)
			}
			spec := types.ListSpec(name, list...)
			spec.Source = types.SourceCLI
			specs = append(specs, spec)

		default:
			rest = append(rest, arg)
		}
	}
	return specs, rest, nil
}

func checkKey(name, arg string) error {
	if keyPattern.MatchString(name) {
		return nil
	}
	return errors.Newf(errors.ErrInvalidInput,
		"%s is not a placeholder name: use letters, digits and underscores", arg)
}

// takesValue reports whether flag consumes the following argument.
func takesValue(flag *pflag.Flag) bool {
	return flag != nil && flag.NoOptDefVal == ""
}

// isShorthand reports whether name is one shorthand flag, or a group of
// shorthand flags that take no value, such as -vv.
func isShorthand(flags *pflag.FlagSet, name string) bool {
	if len(name) == 1 {
		return flags.ShorthandLookup(name) != nil
	}
	for i := 0; i < len(name); i++ {
		flag := flags.ShorthandLookup(name[i : i+1])
		if flag == nil || takesValue(flag) {
			return false
		}
	}
	return true
}
