package approval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/process"
)

var (
	ErrNothingStaged   = errors.New("no command is staged for approval")
	ErrEmptyCommand    = errors.New("command text is empty")
	ErrDisabled        = errors.New("command execution is disabled")
	ErrNotAllowed      = errors.New("command is not in the allow-list")
	ErrCommandTooLarge = errors.New("command text is too long")
)

const maxCommandLen = 8 << 10

type State string

const (
	StateIdle   State = "idle"
	StateStaged State = "staged"
)

// Pending is a command awaiting human approval.
type Pending struct {
	Text     string
	StagedAt time.Time
}

// Outcome is the result of running an approved command. Status is "success"
// for a zero exit and "error" otherwise; Output carries stdout or stderr
// accordingly.
type Outcome struct {
	Command  string
	Status   string
	Output   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

type Config struct {
	Enabled bool
	// AllowList holds permitted leading program names. Empty means any.
	AllowList []string
	Timeout   time.Duration
}

// Machine is a two-phase gate for shell execution: Stage records a command,
// Approve runs it. At most one command is staged at a time.
type Machine struct {
	mu      sync.Mutex
	pending *Pending

	runner process.Runner
	cfg    Config
	logger logger.ILogger
}

func NewMachine(runner process.Runner, cfg Config, log logger.ILogger) *Machine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Machine{runner: runner, cfg: cfg, logger: log}
}

// Stage replaces any previously staged command.
func (m *Machine) Stage(text string) (Pending, error) {
	text = strings.TrimSpace(text)
	if err := m.check(text); err != nil {
		return Pending{}, err
	}

	p := Pending{Text: text, StagedAt: time.Now()}

	m.mu.Lock()
	replaced := m.pending != nil
	m.pending = &p
	m.mu.Unlock()

	m.logger.Info("Approval", "Command staged", map[string]interface{}{
		"command":  text,
		"replaced": replaced,
	})
	return p, nil
}

// Approve consumes the staged command and runs it. The machine is idle again
// before the child process starts, whatever its exit status.
func (m *Machine) Approve(ctx context.Context) (*Outcome, error) {
	m.mu.Lock()
	p := m.pending
	m.pending = nil
	m.mu.Unlock()

	if p == nil {
		return nil, ErrNothingStaged
	}

	name, args := process.ShellCommand(p.Text)
	res := m.runner.Run(ctx, process.Command{Name: name, Args: args, Timeout: m.cfg.Timeout})
	if res.Err != nil {
		return nil, fmt.Errorf("run approved command: %w", res.Err)
	}

	out := &Outcome{
		Command:  p.Text,
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
		Duration: res.Duration,
	}
	switch {
	case res.TimedOut:
		out.Status = "error"
		out.Output = fmt.Sprintf("Command timed out after %s", m.cfg.Timeout)
		if res.Stdout != "" {
			out.Output += "\n" + res.Stdout
		}
	case res.ExitCode == 0:
		out.Status = "success"
		out.Output = res.Stdout
	default:
		out.Status = "error"
		out.Output = res.Stderr
	}

	m.logger.Info("Approval", "Command executed", map[string]interface{}{
		"command":   p.Text,
		"exit_code": res.ExitCode,
		"timed_out": res.TimedOut,
		"duration":  res.Duration.String(),
	})
	return out, nil
}

// Pending returns the staged command, if any.
func (m *Machine) Pending() (Pending, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Pending{}, false
	}
	return *m.pending, true
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return StateIdle
	}
	return StateStaged
}

// Reset drops any staged command without running it.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

func (m *Machine) check(text string) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	if text == "" {
		return ErrEmptyCommand
	}
	if len(text) > maxCommandLen {
		return ErrCommandTooLarge
	}
	if len(m.cfg.AllowList) == 0 {
		return nil
	}

	program := filepath.Base(strings.Fields(text)[0])
	for _, allowed := range m.cfg.AllowList {
		if program == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotAllowed, program)
}
