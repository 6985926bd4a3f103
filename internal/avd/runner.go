// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// RunOptions controls a single Runner.Run call.
type RunOptions struct {
	// Check turns a non-zero exit into a *CommandError.
	Check bool
	// Capture buffers stdout/stderr into the Result instead of the console.
	Capture bool
	// Stdin overrides the console as the child's input.
	Stdin io.Reader
}

type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner executes SDK tools. ExecRunner is the real implementation; tests swap in their own.
type Runner interface {
	Run(ctx context.Context, argv []string, opts RunOptions) (Result, error)
	// Start launches argv in the background and returns without waiting.
	Start(ctx context.Context, argv []string) (*exec.Cmd, error)
}

// ExecRunner runs children with os/exec, echoing every command line first.
type ExecRunner struct {
	env    Env
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecRunner(env Env) *ExecRunner {
	return &ExecRunner{
		env:    env,
		Stdin:  os.Stdin,
		Stdout: env.out(),
		Stderr: os.Stderr,
	}
}

func (r *ExecRunner) echo(argv []string) {
	fmt.Fprintln(r.Stdout, "+", strings.Join(argv, " "))
}

func (r *ExecRunner) Run(ctx context.Context, argv []string, opts RunOptions) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("empty command")
	}
	r.echo(argv)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = r.Stdin
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	var stdout, stderr bytes.Buffer
	var stderrLog *lineLogWriter
	if opts.Capture {
		stderrLog = newCommandLogWriter(r.env, argv[0], argv[1:])
		cmd.Stdout = &stdout
		cmd.Stderr = io.MultiWriter(&stderr, stderrLog)
	} else {
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
	}

	err := cmd.Run()
	if stderrLog != nil {
		stderrLog.Flush()
	}
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !opts.Check {
		return res, nil
	}
	if !errors.As(err, &exitErr) {
		res.ExitCode = -1
	}
	return res, &CommandError{
		Argv:     argv,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Err:      err,
	}
}

func (r *ExecRunner) Start(ctx context.Context, argv []string) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	r.echo(argv)
	// Not CommandContext: the child must outlive the operation that started it.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Start(); err != nil {
		return nil, &CommandError{Argv: argv, ExitCode: -1, Err: err}
	}
	return cmd, nil
}

// run executes argv through env's Runner inside a span.
func run(env Env, argv []string, opts RunOptions) (Result, error) {
	ctx, span := startSpan(
		env,
		"avd.run",
		attribute.String("command", argv[0]),
		attribute.String("args", strings.Join(argv[1:], " ")),
	)
	defer span.End()
	logEvent(env, "command start", "command", argv[0], "args", strings.Join(argv[1:], " "))
	res, err := env.runner().Run(ctx, argv, opts)
	span.SetAttributes(attribute.Int("exit_code", res.ExitCode))
	if err != nil {
		recordSpanError(span, err)
		logWarn(env, "command failed", "command", argv[0], "exit_code", res.ExitCode, "error", err.Error())
		return res, err
	}
	return res, nil
}
