package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"icebergtest/internal/component/componenttest"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader replays lines, then returns io.EOF.
type scriptedReader struct {
	lines   []string
	errs    map[int]error
	prompts []string
	closed  bool
	calls   int
}

func (r *scriptedReader) Readline() (string, error) {
	i := r.calls
	r.calls++
	if err, ok := r.errs[i]; ok {
		return "", err
	}
	if i >= len(r.lines) {
		return "", io.EOF
	}
	return r.lines[i], nil
}

func (r *scriptedReader) SetPrompt(p string) { r.prompts = append(r.prompts, p) }
func (r *scriptedReader) Close() error       { r.closed = true; return nil }

func useReader(t *testing.T, r *scriptedReader) *[]*readline.Config {
	t.Helper()
	var configs []*readline.Config
	orig := newLineReader
	newLineReader = func(cfg *readline.Config) (lineReader, error) {
		configs = append(configs, cfg)
		return r, nil
	}
	t.Cleanup(func() { newLineReader = orig })
	return &configs
}

func TestPrompter_Prompt(t *testing.T) {
	r := &scriptedReader{lines: []string{"  abc123  "}}
	configs := useReader(t, r)

	answer, err := (&Prompter{}).Prompt(context.Background(), "Enter the external ID:")
	require.NoError(t, err)
	assert.Equal(t, "abc123", answer)
	assert.Equal(t, "Enter the external ID: ", (*configs)[0].Prompt)
	assert.True(t, r.closed)
}

func TestPrompter_Interrupted(t *testing.T) {
	useReader(t, &scriptedReader{errs: map[int]error{0: readline.ErrInterrupt}})
	_, err := (&Prompter{}).Prompt(context.Background(), "?")
	assert.ErrorIs(t, err, ErrInterrupted)
}

type blockingReader struct{ release chan struct{} }

func (b *blockingReader) Readline() (string, error) { <-b.release; return "", io.EOF }
func (b *blockingReader) SetPrompt(string)          {}
func (b *blockingReader) Close() error              { close(b.release); return nil }

func TestPrompter_ContextCancelled(t *testing.T) {
	orig := newLineReader
	newLineReader = func(*readline.Config) (lineReader, error) {
		return &blockingReader{release: make(chan struct{})}, nil
	}
	t.Cleanup(func() { newLineReader = orig })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Prompter{}).Prompt(ctx, "?")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShell_Handle(t *testing.T) {
	engine := componenttest.NewQueryEngine("trino", nil)
	engine.Results["FROM orders"] = [][]any{{"COMPLETED", int64(2)}}
	var out bytes.Buffer
	sh := &Shell{Engine: engine, Out: &out}
	ctx := context.Background()

	assert.False(t, sh.Handle(ctx, ""))
	assert.False(t, sh.Handle(ctx, "SELECT status, count(*)"))
	assert.Empty(t, engine.Queries, "statement is incomplete")
	assert.False(t, sh.Handle(ctx, "FROM orders;"))

	require.Equal(t, []string{"SELECT status, count(*)\nFROM orders"}, engine.Queries)
	assert.Contains(t, out.String(), "COMPLETED")
	assert.Contains(t, out.String(), "(1 rows)")

	out.Reset()
	assert.False(t, sh.Handle(ctx, "CREATE SCHEMA s;"))
	assert.Contains(t, out.String(), "OK")

	assert.True(t, sh.Handle(ctx, "exit"))
	assert.True(t, sh.Handle(ctx, `\q`))
}

func TestShell_HandleError(t *testing.T) {
	engine := componenttest.NewQueryEngine("trino", nil)
	engine.Fail = func(op, arg string) error {
		if op == "query" {
			return errors.New("line 1:1: mismatched input")
		}
		return nil
	}
	var out bytes.Buffer
	sh := &Shell{Engine: engine, Out: &out}

	assert.False(t, sh.Handle(context.Background(), "SELEC 1;"))
	assert.Contains(t, out.String(), "Error: line 1:1: mismatched input")
}

func TestShell_Run(t *testing.T) {
	engine := componenttest.NewQueryEngine("trino", nil)
	r := &scriptedReader{
		lines: []string{"SELECT 1", "", "SELECT 2", "", "SELECT 3;", "quit"},
		errs:  map[int]error{3: readline.ErrInterrupt},
	}
	configs := useReader(t, r)
	var out bytes.Buffer

	sh := &Shell{Engine: engine, Out: &out, HistoryFile: "/dev/null"}
	require.NoError(t, sh.Run(context.Background()))

	// Ctrl+C discards the pending "SELECT 1 / SELECT 2" statement.
	assert.Equal(t, []string{"SELECT 3"}, engine.Queries)
	assert.True(t, strings.HasPrefix(out.String(), "Connected to trino."))
	assert.Equal(t, "/dev/null", (*configs)[0].HistoryFile)
	assert.Contains(t, r.prompts, shellContinuationPrompt)
	assert.True(t, r.closed)
}
