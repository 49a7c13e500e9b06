package progress

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/style"
	"github.com/arthur-debert/dirwand/pkg/types"
	"github.com/arthur-debert/dirwand/pkg/ui"
)

type recorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *recorder) Event(e types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func swaps(index int, num string) types.SwapSet {
	return types.NewSwapSet(index, []string{"num"}, []string{num})
}

func runEvents() []types.Event {
	return []types.Event{
		{Kind: types.EventRunStarted, Keys: []string{"num"}, Total: 2},
		{Kind: types.EventCopyStarted, Index: 0, Swaps: swaps(0, "0"), Path: "out/t_0"},
		{Kind: types.EventCopyDone, Index: 0, Swaps: swaps(0, "0"), Path: "out/t_0"},
		{Kind: types.EventCopyFailed, Index: 1, Swaps: swaps(1, "1"), Path: "out/t_1",
			Err: errors.New(errors.ErrDestinationExists, "destination out/t_1 already exists")},
		{Kind: types.EventCommandStarted, Index: 0, Command: "echo 0", Dir: "out/t_0"},
		{Kind: types.EventCommandDone, Index: 0, Command: "echo 0", Dir: "out/t_0", Stdout: "0\n"},
		{Kind: types.EventRunFinished, Total: 2, Failed: 1},
	}
}

func TestConsolePlain(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, style.NewPlainRenderer())
	for _, e := range runEvents() {
		sink.Event(e)
	}

	expected := strings.Join([]string{
		"2 copies over num",
		"copied #0 num=0 -> out/t_0",
		"failed #1 out/t_1: [DESTINATION_EXISTS] destination out/t_1 already exists",
		"ran #0 echo 0",
		"    0",
		"1 of 2 failed",
	}, "\n") + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestConsoleCommandFailureShowsStderr(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, style.NewPlainRenderer())
	sink.Event(types.Event{Kind: types.EventCommandFailed, Index: 3, Command: "make", ExitCode: 2, Stderr: "no rule\n"})

	assert.Equal(t, "exited #3 make: exit 2\n    no rule\n", buf.String())
}

func TestLogSinkWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))
	for _, e := range runEvents() {
		sink.Event(e)
	}

	var records []map[string]interface{}
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, len(runEvents()))

	assert.Equal(t, "run_started", records[0]["event"])
	assert.Equal(t, float64(2), records[0]["total"])
	assert.Equal(t, "copy_done", records[2]["event"])
	assert.Equal(t, map[string]interface{}{"num": "0"}, records[2]["swaps"])
	assert.Equal(t, "error", records[3]["level"])
	assert.Contains(t, records[3]["error"], "DESTINATION_EXISTS")
	assert.Equal(t, "echo 0", records[5]["command"])
	assert.Equal(t, "0\n", records[5]["stdout"])
	assert.Equal(t, float64(1), records[6]["failed"])
}

func TestNewSelectsSinkByFormat(t *testing.T) {
	var buf bytes.Buffer

	assert.IsType(t, &LogSink{}, New(&buf, ui.FormatJSON))
	assert.IsType(t, &Console{}, New(&buf, ui.FormatText))
	assert.IsType(t, &Console{}, New(&buf, ui.FormatTerminal))

	// A buffer is never a terminal
	sink := New(&buf, ui.FormatAuto)
	sink.Event(types.Event{Kind: types.EventRunFinished, Total: 1})
	assert.Equal(t, "1 done\n", buf.String())
}

func TestMultiAndNop(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	sink := Multi(a, nil, Nop(), b)

	sink.Event(types.Event{Kind: types.EventCopyDone, Index: 4})
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, 4, b.events[0].Index)
}

func TestConsoleConcurrentUse(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, style.NewPlainRenderer())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sink.Event(types.Event{Kind: types.EventCommandDone, Index: i, Command: "true", Stdout: fmt.Sprintf("line %d\n", i)})
		}(i)
	}
	wg.Wait()

	// Each command line is immediately followed by its own output.
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 40)
	for i := 0; i < len(lines); i += 2 {
		var idx int
		_, err := fmt.Sscanf(lines[i], "ran #%d true", &idx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("    line %d", idx), lines[i+1])
	}
}

func TestLogSinkIgnoresGlobalLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	defer zerolog.SetGlobalLevel(prev)

	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))
	sink.Event(types.Event{Kind: types.EventRunStarted, Keys: []string{"num"}, Total: 1})

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "run_started", rec["event"])
}
