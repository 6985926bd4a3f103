// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeStub drops an executable /bin/sh script named name into dir.
func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s stub: %v", name, err)
	}
	return path
}

// newTestEnv returns an Env whose console output is captured and whose tools are tools.
func newTestEnv(t *testing.T, tools ToolPaths) (Env, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	if tools == nil {
		tools = ToolPaths{}
	}
	env := Env{
		Tools:         tools,
		APILevel:      DefaultAPILevel,
		Tag:           DefaultTag,
		ABI:           DefaultABI,
		OutputDir:     t.TempDir(),
		Out:           &out,
		CorrelationID: "corr-test",
		Context:       context.Background(),
	}
	// stdin must not be the test binary's stdin.
	runner := NewExecRunner(env)
	runner.Stdin = strings.NewReader("")
	runner.Stderr = io.Discard
	env.Runner = runner
	return env, &out
}

// readLog returns the argument lines a stub appended to its log file.
func readLog(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read stub log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

// recordingRunner answers from a table keyed by the joined argv, without spawning anything.
type recordingRunner struct {
	responses map[string]Result
	failures  map[string]error
	calls     [][]string
}

func (r *recordingRunner) Run(_ context.Context, argv []string, opts RunOptions) (Result, error) {
	r.calls = append(r.calls, append([]string(nil), argv...))
	key := strings.Join(argv, " ")
	if err, ok := r.failures[key]; ok {
		return Result{ExitCode: 1}, err
	}
	return r.responses[key], nil
}

func (r *recordingRunner) Start(_ context.Context, argv []string) (*exec.Cmd, error) {
	r.calls = append(r.calls, append([]string(nil), argv...))
	return nil, nil
}

func (r *recordingRunner) called(prefix string) bool {
	for _, c := range r.calls {
		if strings.HasPrefix(strings.Join(c, " "), prefix) {
			return true
		}
	}
	return false
}

// scriptedPrompter answers prompts in order and remembers the labels it was shown.
type scriptedPrompter struct {
	answers []string
	labels  []string
}

func (p *scriptedPrompter) Prompt(label string) (string, error) {
	p.labels = append(p.labels, label)
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}
