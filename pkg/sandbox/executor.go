package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/process"
)

type Language string

const (
	Python Language = "python"
	Java   Language = "java"
)

// ParseLanguage accepts the supported language names case-insensitively.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Python:
		return Python, nil
	case Java:
		return Java, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Kind distinguishes the ways an execution can end.
type Kind string

const (
	KindOK           Kind = "ok"
	KindRuntimeError Kind = "runtime_error"
	KindCompileError Kind = "compile_error"
	KindTimeout      Kind = "timeout"
	KindInvalid      Kind = "invalid"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEmptyCode           = errors.New("code is empty")
)

var javaClassPattern = regexp.MustCompile(`public\s+(?:final\s+|abstract\s+)*class\s+(\w+)`)

// Request is one snippet to run.
type Request struct {
	Code     string
	Language Language
}

type Result struct {
	Status Status
	Output string
	Kind   Kind
}

type Config struct {
	// BaseDir holds the per-execution working directories; empty means the
	// system temp dir.
	BaseDir   string
	Timeout   time.Duration
	PythonBin string
	JavacBin  string
	JavaBin   string
}

// Executor compiles and runs short programs under a wall-clock timeout. Each
// call works in its own fresh directory, removed before returning.
type Executor struct {
	runner process.Runner
	cfg    Config
	logger logger.ILogger
}

func NewExecutor(runner process.Runner, cfg Config, log logger.ILogger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python3"
	}
	if cfg.JavacBin == "" {
		cfg.JavacBin = "javac"
	}
	if cfg.JavaBin == "" {
		cfg.JavaBin = "java"
	}
	return &Executor{runner: runner, cfg: cfg, logger: log}
}

func (e *Executor) Execute(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Code) == "" {
		return invalid(ErrEmptyCode.Error())
	}

	var (
		res Result
		err error
	)
	switch req.Language {
	case Python:
		res, err = e.runPython(ctx, req.Code)
	case Java:
		res, err = e.runJava(ctx, req.Code)
	default:
		return invalid(fmt.Sprintf("%s: %q", ErrUnsupportedLanguage, req.Language))
	}
	if err != nil {
		e.logger.Error("Sandbox", "Execution infrastructure failed", map[string]interface{}{
			"language": string(req.Language),
			"error":    err.Error(),
		})
		return Result{Status: StatusError, Output: err.Error(), Kind: KindRuntimeError}
	}

	e.logger.Info("Sandbox", "Code executed", map[string]interface{}{
		"language": string(req.Language),
		"kind":     string(res.Kind),
	})
	return res
}

func (e *Executor) runPython(ctx context.Context, code string) (Result, error) {
	dir, cleanup, err := e.workDir()
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte(code), 0o600); err != nil {
		return Result{}, fmt.Errorf("write source: %w", err)
	}

	run := e.runner.Run(ctx, process.Command{
		Name:    e.cfg.PythonBin,
		Args:    []string{"main.py"},
		Dir:     dir,
		Timeout: e.cfg.Timeout,
	})
	if run.Err != nil {
		return Result{}, run.Err
	}
	return e.fromRun(run, KindRuntimeError, ""), nil
}

func (e *Executor) runJava(ctx context.Context, code string) (Result, error) {
	match := javaClassPattern.FindStringSubmatch(code)
	if match == nil {
		return invalid("No public class declaration found. Declare the entry point as `public class Name`."), nil
	}
	className := match[1]

	dir, cleanup, err := e.workDir()
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	if err := os.WriteFile(filepath.Join(dir, className+".java"), []byte(code), 0o600); err != nil {
		return Result{}, fmt.Errorf("write source: %w", err)
	}

	compile := e.runner.Run(ctx, process.Command{
		Name:    e.cfg.JavacBin,
		Args:    []string{className + ".java"},
		Dir:     dir,
		Timeout: e.cfg.Timeout,
	})
	if compile.Err != nil {
		return Result{}, compile.Err
	}
	if !compile.Success() {
		return e.fromRun(compile, KindCompileError, "Compilation Error:\n"), nil
	}

	run := e.runner.Run(ctx, process.Command{
		Name:    e.cfg.JavaBin,
		Args:    []string{"-cp", dir, className},
		Dir:     dir,
		Timeout: e.cfg.Timeout,
	})
	if run.Err != nil {
		return Result{}, run.Err
	}
	return e.fromRun(run, KindRuntimeError, ""), nil
}

// fromRun maps a process result; failKind and prefix apply to non-zero exits.
func (e *Executor) fromRun(run process.Result, failKind Kind, prefix string) Result {
	switch {
	case run.TimedOut:
		return Result{
			Status: StatusError,
			Output: fmt.Sprintf("Execution timed out after %s", e.cfg.Timeout),
			Kind:   KindTimeout,
		}
	case run.ExitCode == 0:
		return Result{Status: StatusSuccess, Output: run.Stdout, Kind: KindOK}
	default:
		out := run.Stderr
		if strings.TrimSpace(out) == "" {
			out = run.Stdout
		}
		return Result{Status: StatusError, Output: prefix + out, Kind: failKind}
	}
}

func (e *Executor) workDir() (string, func(), error) {
	base := e.cfg.BaseDir
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", nil, fmt.Errorf("create sandbox base: %w", err)
		}
	}
	dir, err := os.MkdirTemp(base, "exec-*")
	if err != nil {
		return "", nil, fmt.Errorf("create sandbox dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

func invalid(msg string) Result {
	return Result{Status: StatusError, Output: msg, Kind: KindInvalid}
}
