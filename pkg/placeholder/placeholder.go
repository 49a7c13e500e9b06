// Package placeholder finds and substitutes {key} tokens in text.
//
// A token is an opening brace, one or more ASCII letters, digits or
// underscores, and a closing brace. Anything else that involves braces
// ("{", "{}", "{a-b}", "{ x }") is literal text and passes through
// unchanged.
package placeholder

import (
	"bytes"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
)

func isKeyByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// scan calls fn for every token in text with the key and the byte span of
// the whole token, braces included.
func scan(text string, fn func(key string, start, end int)) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		j := i + 1
		for j < len(text) && isKeyByte(text[j]) {
			j++
		}
		if j == i+1 || j >= len(text) || text[j] != '}' {
			continue
		}
		fn(text[i+1:j], i, j+1)
		i = j
	}
}

// FindTokens returns the distinct placeholder keys in text, in order of
// first appearance.
func FindTokens(text string) []string {
	seen := make(map[string]bool)
	var keys []string
	scan(text, func(key string, _, _ int) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	})
	return keys
}

// HasTokens reports whether text contains at least one placeholder
func HasTokens(text string) bool {
	found := false
	scan(text, func(string, int, int) { found = true })
	return found
}

// Substitute replaces every placeholder in text with its value from swaps.
// A placeholder without a value fails with ErrUnresolvedPlaceholder and
// nothing is substituted.
func Substitute(text string, swaps types.SwapSet) (string, error) {
	var (
		b       strings.Builder
		last    int
		missing map[string]bool
	)
	scan(text, func(key string, start, end int) {
		value, ok := swaps.Get(key)
		if !ok {
			if missing == nil {
				missing = make(map[string]bool)
			}
			missing[key] = true
			return
		}
		b.WriteString(text[last:start])
		b.WriteString(value)
		last = end
	})

	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", errors.Newf(errors.ErrUnresolvedPlaceholder,
			"no value for placeholder(s) %s", braced(keys)).
			WithDetail("missing", keys).
			WithDetail("swaps", swaps.String())
	}

	if last == 0 {
		return text, nil
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// IsText reports whether content can be treated as text: valid UTF-8
// with no NUL bytes.
func IsText(content []byte) bool {
	return utf8.Valid(content) && bytes.IndexByte(content, 0) < 0
}

// SubstituteBytes substitutes placeholders in content when it is text.
// Binary content is returned unmodified with substituted set to false.
func SubstituteBytes(content []byte, swaps types.SwapSet) (out []byte, substituted bool, err error) {
	if !IsText(content) {
		return content, false, nil
	}
	s, err := Substitute(string(content), swaps)
	if err != nil {
		return nil, true, err
	}
	return []byte(s), true, nil
}

func braced(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "{" + k + "}"
	}
	return strings.Join(parts, ", ")
}
