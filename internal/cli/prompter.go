package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// lineReader is the part of *readline.Instance the prompter and shell use.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// newLineReader is a variable to allow mocking in tests.
var newLineReader = func(cfg *readline.Config) (lineReader, error) {
	return readline.NewEx(cfg)
}

// ErrInterrupted is returned when the operator presses Ctrl+C or Ctrl+D at
// a prompt.
var ErrInterrupted = errors.New("interrupted")

// Prompter asks the operator for input on the terminal. It implements
// component.Prompter.
type Prompter struct {
	// Stdin and Stdout default to the process streams.
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Prompt prints question and returns the trimmed answer. It gives up when
// ctx is done.
func (p *Prompter) Prompt(ctx context.Context, question string) (string, error) {
	rl, err := newLineReader(&readline.Config{
		Prompt:          question + " ",
		Stdin:           p.Stdin,
		Stdout:          p.Stdout,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return "", err
	}
	defer rl.Close()

	return readLine(ctx, rl)
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one line, abandoning the read when ctx is done.
func readLine(ctx context.Context, rl lineReader) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := rl.Readline()
		ch <- lineResult{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		switch {
		case errors.Is(r.err, readline.ErrInterrupt), errors.Is(r.err, io.EOF):
			return "", ErrInterrupted
		case r.err != nil:
			return "", r.err
		}
		return strings.TrimSpace(r.line), nil
	}
}
