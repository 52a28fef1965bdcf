package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"icebergtest/internal/component"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
)

// Progress shows a spinner while a stack is being assembled. A disabled
// Progress prints nothing, which is what non-interactive runs and tests use.
type Progress struct {
	s *spinner.Spinner
}

// NewProgress creates a spinner writing to out. It is disabled when quiet
// is set.
func NewProgress(out io.Writer, quiet bool) *Progress {
	if quiet {
		return &Progress{}
	}
	return &Progress{s: spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))}
}

// IsInteractive reports whether stdout is a terminal.
func IsInteractive() bool {
	return readline.IsTerminal(int(os.Stdout.Fd()))
}

// Start shows the spinner with msg.
func (p *Progress) Start(msg string) {
	if p.s == nil {
		return
	}
	p.s.Suffix = " " + msg
	p.s.Start()
}

// Update replaces the spinner message.
func (p *Progress) Update(msg string) {
	if p.s == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = " " + msg
	p.s.Unlock()
}

// Stop removes the spinner.
func (p *Progress) Stop() {
	if p.s == nil {
		return
	}
	p.s.Stop()
}

// OnStateChange is a component.StateChangeCallback that narrates the
// assembly.
func (p *Progress) OnStateChange(name string, role component.Role, _, newState component.State, err error) {
	switch newState {
	case component.StateStarting:
		p.Update(fmt.Sprintf("Starting %s %s...", role, name))
	case component.StateReady:
		p.Update(fmt.Sprintf("%s %s is ready", role, name))
	case component.StateStopping:
		p.Update(fmt.Sprintf("Stopping %s %s...", role, name))
	case component.StateFailed:
		if err != nil {
			p.Update(fmt.Sprintf("%s %s failed: %v", role, name, err))
		}
	}
}
