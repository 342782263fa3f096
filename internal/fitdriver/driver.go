// Package fitdriver runs hypothesis tests through the external fitting tool
// and drives per-point batches with catch-log-continue semantics.
package fitdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fitgrid/fitgrid/internal/fitresult"
)

// ErrFitFailed is returned when the fitting tool exits unsuccessfully, for
// example because the minimiser did not converge.
var ErrFitFailed = errors.New("fit failed")

// Driver computes observed and expected CLs for one workspace document with
// the signal already patched in.
type Driver interface {
	HypoTest(ctx context.Context, ws []byte) (fitresult.Result, error)
}

// CommandFunc runs name with args and returns its standard output and
// standard error.
type CommandFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// PyhfCLI runs "pyhf cls" on a temporary copy of the workspace and reads the
// JSON result from standard output.
type PyhfCLI struct {
	// Binary is the executable, "pyhf" by default.
	Binary string
	// Backend and Optimizer are passed through when set.
	Backend   string
	Optimizer string
	// TempDir holds the workspace copies; os.TempDir() when empty.
	TempDir string

	Run CommandFunc
}

// NewPyhfCLI returns a driver using the given backend and optimizer.
func NewPyhfCLI(backend, optimizer string) *PyhfCLI {
	return &PyhfCLI{Binary: "pyhf", Backend: backend, Optimizer: optimizer}
}

// Args returns the command line for a workspace file.
func (d *PyhfCLI) Args(wsPath string) []string {
	args := []string{"cls", wsPath}
	if d.Backend != "" {
		args = append(args, "--backend", d.Backend)
	}
	if d.Optimizer != "" {
		args = append(args, "--optimizer", d.Optimizer)
	}
	return args
}

// HypoTest implements Driver.
func (d *PyhfCLI) HypoTest(ctx context.Context, ws []byte) (fitresult.Result, error) {
	f, err := os.CreateTemp(d.TempDir, "workspace-*.json")
	if err != nil {
		return fitresult.Result{}, fmt.Errorf("failed to create workspace file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(ws); err != nil {
		f.Close()
		return fitresult.Result{}, fmt.Errorf("failed to write workspace file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fitresult.Result{}, fmt.Errorf("failed to write workspace file: %w", err)
	}
	return d.HypoTestFile(ctx, f.Name())
}

// HypoTestFile fits a workspace already on disk.
func (d *PyhfCLI) HypoTestFile(ctx context.Context, path string) (fitresult.Result, error) {
	bin := d.Binary
	if bin == "" {
		bin = "pyhf"
	}
	run := d.Run
	if run == nil {
		run = execCommand
	}

	stdout, stderr, err := run(ctx, bin, d.Args(path)...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fitresult.Result{}, ctxErr
	}
	if err != nil {
		return fitresult.Result{}, fmt.Errorf("%w: %s %s: %v%s", ErrFitFailed, bin, filepath.Base(path), err, tail(stderr))
	}
	r, err := fitresult.Decode(stdout)
	if err != nil {
		return fitresult.Result{}, fmt.Errorf("%w: unexpected output: %v", ErrFitFailed, err)
	}
	return r, nil
}

// tail returns the last non-empty line of a tool's stderr for error messages.
func tail(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return ""
	}
	return ": " + last
}
