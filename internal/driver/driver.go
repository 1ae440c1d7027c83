// SPDX-License-Identifier: MPL-2.0

// Package driver runs the upstream's native build tool.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// ErrBuildTool is the sentinel error wrapped by BuildToolError.
var ErrBuildTool = errors.New("build tool failed")

type (
	// Builder builds a prepared tree. It blocks until the build finishes.
	Builder interface {
		Build(ctx context.Context, dir string) error
	}

	// BuildToolError is returned when the build tool exits non-zero or
	// cannot be started. Code is the process exit status, propagated
	// verbatim as the process result.
	BuildToolError struct {
		Command []string
		Code    ExitCode
		// Err is set when the tool could not be run at all.
		Err error
	}

	// MakeDriver runs a make-style build command.
	MakeDriver struct {
		// Command is split into words with POSIX shell rules; $VAR
		// references are expanded from the environment.
		Command string
		// Jobs adds "-j N" when positive.
		Jobs int
		// Stdout and Stderr receive the tool's output; nil discards it.
		Stdout io.Writer
		Stderr io.Writer
	}
)

// Error implements the error interface.
func (e *BuildToolError) Error() string {
	cmd := strings.Join(e.Command, " ")
	if e.Err != nil {
		return fmt.Sprintf("build tool %q failed (exit code %s): %v", cmd, e.Code, e.Err)
	}
	return fmt.Sprintf("build tool %q exited with code %s", cmd, e.Code)
}

// Unwrap returns ErrBuildTool and the start failure, if any.
func (e *BuildToolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrBuildTool, e.Err}
	}
	return []error{ErrBuildTool}
}

// NewMakeDriver returns a driver writing to the process' stdout and stderr.
func NewMakeDriver(command string, jobs int) *MakeDriver {
	return &MakeDriver{Command: command, Jobs: jobs, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Args returns the argv the driver runs.
func (d *MakeDriver) Args() ([]string, error) {
	args, err := shell.Fields(d.Command, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("invalid build command %q: %w", d.Command, err)
	}
	if len(args) == 0 {
		return nil, errors.New("build command is empty")
	}
	if d.Jobs > 0 {
		args = append(args, "-j", strconv.Itoa(d.Jobs))
	}
	return args, nil
}

// Build runs the build command in dir.
func (d *MakeDriver) Build(ctx context.Context, dir string) error {
	args, err := d.Args()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr

	slog.Info("running build tool", "command", strings.Join(args, " "), "dir", dir)
	err = cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := ExitCode(exitErr.ExitCode())
		if code < 0 {
			// Killed by a signal; ExitCode() reports -1.
			code = ExitCodeSignaled
		}
		return &BuildToolError{Command: args, Code: code}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &BuildToolError{Command: args, Code: ExitCodeNotFound, Err: err}
	}
	return &BuildToolError{Command: args, Code: ExitCodeGeneric, Err: err}
}
