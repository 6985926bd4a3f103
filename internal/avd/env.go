// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
)

const (
	DefaultAPILevel = "31"
	DefaultABI      = "x86_64"
	DefaultTag      = "google_apis"
)

// Env is the resolved configuration every operation runs against.
// It is built once by Detect and passed by value; nothing mutates it afterwards.
type Env struct {
	SDKRoot   string    // ANDROID_SDK_ROOT, falling back to ANDROID_HOME
	Tools     ToolPaths // resolved sdkmanager/avdmanager/emulator/adb
	APILevel  string    // AVDHELPER_API_LEVEL (default 31)
	Tag       string    // AVDHELPER_IMAGE_TAG (default google_apis)
	ABI       string    // AVDHELPER_ABI (default x86_64)
	OutputDir string    // AVDHELPER_OUTPUT_DIR (default .)
	// Out receives echoed command lines and progress messages.
	Out io.Writer
	// Runner executes child processes. Nil means an ExecRunner on the console.
	Runner Runner
	// CorrelationID is used to tie logs to a specific session.
	CorrelationID string
	// Context is used to parent OpenTelemetry spans.
	Context context.Context
}

func Detect() Env {
	sdk := getenv("ANDROID_SDK_ROOT", os.Getenv("ANDROID_HOME"))
	correlationID := os.Getenv("AVDHELPER_CORRELATION_ID")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return Env{
		SDKRoot:       sdk,
		Tools:         LocateTools(sdk),
		APILevel:      getenv("AVDHELPER_API_LEVEL", DefaultAPILevel),
		Tag:           getenv("AVDHELPER_IMAGE_TAG", DefaultTag),
		ABI:           getenv("AVDHELPER_ABI", DefaultABI),
		OutputDir:     getenv("AVDHELPER_OUTPUT_DIR", "."),
		Out:           os.Stdout,
		CorrelationID: correlationID,
		Context:       context.Background(),
	}
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func (env Env) out() io.Writer {
	if env.Out != nil {
		return env.Out
	}
	return io.Discard
}

func (env Env) runner() Runner {
	if env.Runner != nil {
		return env.Runner
	}
	return NewExecRunner(env)
}

// SystemImagePackage is the sdkmanager package ID for the Env's API level, tag and ABI.
// Empty fields take the package defaults.
func (env Env) SystemImagePackage() string {
	return SystemImagePackage(
		orDefault(env.APILevel, DefaultAPILevel),
		orDefault(env.Tag, DefaultTag),
		orDefault(env.ABI, DefaultABI),
	)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
