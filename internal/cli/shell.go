package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"icebergtest/internal/component"

	"github.com/chzyer/readline"
)

const (
	shellPrompt             = "icebergtest> "
	shellContinuationPrompt = "         -> "
)

// Shell is an interactive SQL prompt against a running query engine.
// Statements end with a semicolon and may span lines.
type Shell struct {
	Engine component.QueryEngine
	Out    io.Writer
	Stdin  io.ReadCloser
	// HistoryFile defaults to a file in the temp directory.
	HistoryFile string

	buf strings.Builder
}

// Run reads statements until exit, Ctrl+D or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	history := s.HistoryFile
	if history == "" {
		history = filepath.Join(os.TempDir(), ".icebergtest_sql_history")
	}
	rl, err := newLineReader(&readline.Config{
		Prompt:            shellPrompt,
		HistoryFile:       history,
		Stdin:             s.Stdin,
		Stdout:            s.Out,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(s.Out, "Connected to %s. End statements with ';', type 'exit' to leave.\n\n", s.Engine.Name())
	for {
		line, err := readLine(ctx, rl)
		if errors.Is(err, ErrInterrupted) {
			if s.buf.Len() > 0 {
				s.buf.Reset()
				rl.SetPrompt(shellPrompt)
				continue
			}
			return nil
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if s.Handle(ctx, line) {
			return nil
		}
		if s.buf.Len() > 0 {
			rl.SetPrompt(shellContinuationPrompt)
		} else {
			rl.SetPrompt(shellPrompt)
		}
	}
}

// Handle processes one input line and reports whether the shell should
// exit. Complete statements are executed and their rows printed.
func (s *Shell) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if s.buf.Len() == 0 {
		switch strings.ToLower(line) {
		case "":
			return false
		case "exit", "quit", `\q`:
			return true
		}
	}

	if s.buf.Len() > 0 {
		s.buf.WriteByte('\n')
	}
	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		return false
	}

	stmt := strings.TrimSpace(strings.TrimRight(s.buf.String(), "; \n"))
	s.buf.Reset()
	if stmt == "" {
		return false
	}

	rows, err := s.Engine.ExecuteQuery(ctx, stmt)
	if err != nil {
		fmt.Fprintln(s.Out, FormatError(err))
		return false
	}
	data, tbl := RowsView(rows)
	if err := Render(s.Out, Options{Format: OutputFormatTable}, data, tbl); err != nil {
		fmt.Fprintln(s.Out, FormatError(err))
	}
	return false
}
