package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/utils"
)

// Hooks for testing
var execLookPath = exec.LookPath

// Files that mark a directory as an installable Python package
var setupFiles = []string{"setup.py", "pyproject.toml", "setup.cfg"}

// Output tail kept in InstallError; pip build logs can run to megabytes
const maxOutputTail = 2000

// Bridge hands an extracted repository tree to pip. It is a thin subprocess
// pass-through; all build mechanics belong to pip itself.
type Bridge struct {
	python  string
	timeout time.Duration
	upgrade bool
	logger  *utils.Logger
}

// BridgeOptions contains options for creating a Bridge
type BridgeOptions struct {
	Python  string // Interpreter override; python3/python from PATH when empty
	Timeout time.Duration
	Upgrade bool
	Logger  *utils.Logger
}

// NewBridge creates a new installer Bridge
func NewBridge(opts BridgeOptions) *Bridge {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Bridge{
		python:  opts.Python,
		timeout: timeout,
		upgrade: opts.Upgrade,
		logger:  opts.Logger,
	}
}

// FindInterpreter locates the Python interpreter the bridge will use
func (b *Bridge) FindInterpreter() (string, error) {
	if b.python != "" {
		path, err := execLookPath(b.python)
		if err != nil {
			return "", fmt.Errorf("%w: %s", domain.ErrNoInterpreter, b.python)
		}
		return path, nil
	}

	for _, candidate := range []string{"python3", "python"} {
		if path, err := execLookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", domain.ErrNoInterpreter
}

// HasPackageDescriptor reports whether dir contains a recognized setup file
func HasPackageDescriptor(dir string) bool {
	for _, name := range setupFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// Install runs pip against dir. On a failed build it retries once without
// build isolation, which resolves most missing-build-backend failures.
func (b *Bridge) Install(ctx context.Context, dir string) error {
	python, err := b.FindInterpreter()
	if err != nil {
		return err
	}

	if !HasPackageDescriptor(dir) && b.logger != nil {
		b.logger.Warn().Str("dir", dir).Msg("No setup.py, pyproject.toml or setup.cfg found; pip will likely fail")
	}

	args := []string{"-m", "pip", "install"}
	if b.upgrade {
		args = append(args, "--upgrade")
	}

	exitCode, output, err := b.run(ctx, python, append(args, dir))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &domain.InstallError{ExitCode: exitCode, Output: output, Err: err}
	}

	if b.logger != nil {
		b.logger.Info().Msg("Retrying installation without build isolation")
	}
	retryArgs := append(args, "--no-build-isolation", dir)
	exitCode, output, err = b.run(ctx, python, retryArgs)
	if err == nil {
		return nil
	}

	return &domain.InstallError{
		ExitCode: exitCode,
		Output:   output,
		Err:      err,
	}
}

// run executes the interpreter with a per-attempt timeout and returns the
// exit code and the tail of the combined output.
func (b *Bridge) run(ctx context.Context, python string, args []string) (int, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if b.logger != nil {
		b.logger.Debug().Str("python", python).Strs("args", args).Msg("Running pip")
	}

	cmd := exec.CommandContext(runCtx, python, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := tail(buf.String(), maxOutputTail)
	if err == nil {
		return 0, output, nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	if runCtx.Err() != nil {
		err = fmt.Errorf("pip did not finish within %s: %w", b.timeout, runCtx.Err())
	}
	return exitCode, output, err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
