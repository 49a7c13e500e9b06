package style

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
)

func TestIndent(t *testing.T) {
	assert.Equal(t, "Hello", Indent("Hello", 0))
	assert.Equal(t, "    Hello", Indent("Hello", 2))
}

func TestPlainRenderer(t *testing.T) {
	r := NewPlainRenderer()
	swaps := types.NewSwapSet(1, []string{"num", "x"}, []string{"1", "2"})

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"header", r.Header([]string{"num", "x"}, 2), "2 copies over num, x"},
		{"header singular", r.Header([]string{"num"}, 1), "1 copy over num"},
		{"copy", r.Copy(1, swaps, "out/t_1"), "copied #1 num=1 x=2 -> out/t_1"},
		{"copy without root", r.Copy(1, swaps, ""), "copied #1 num=1 x=2"},
		{"command", r.Command(0, "echo 0"), "ran #0 echo 0"},
		{"command failed", r.CommandFailed(2, "false", 1), "exited #2 false: exit 1"},
		{"output", r.Output("a\nb\n"), "    a\n    b"},
		{"summary ok", r.Summary(3, 0), "3 done"},
		{"summary failed", r.Summary(3, 1), "1 of 3 failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestTerminalRendererKeepsText(t *testing.T) {
	r := NewTerminalRenderer()
	swaps := types.NewSwapSet(0, []string{"env"}, []string{"prod"})

	line := r.Copy(0, swaps, "/out/prod")
	for _, part := range []string{"copied", "#0", "env", "prod", "/out/prod"} {
		assert.Contains(t, line, part)
	}
	assert.Contains(t, r.CommandFailed(1, "make", 2), "exit 2")
	assert.Contains(t, r.Summary(4, 2), "2 of 4 failed")
}

func TestRendererErrors(t *testing.T) {
	err := errors.New(errors.ErrLengthMismatch, "lengths differ").
		WithDetail("lengths", map[string]int{"a": 1, "b": 2})

	plain := NewPlainRenderer().Error(err)
	assert.True(t, strings.HasPrefix(plain, "Error: [LENGTH_MISMATCH] lengths differ"))
	assert.Contains(t, plain, "lengths: map[a:1 b:2]")

	term := NewTerminalRenderer().Error(err)
	assert.Contains(t, term, "LENGTH_MISMATCH")
	assert.Contains(t, term, "lengths differ")

	assert.Empty(t, NewPlainRenderer().Error(nil))
	assert.Equal(t, "Error: "+assert.AnError.Error(), NewPlainRenderer().Error(assert.AnError))
}
