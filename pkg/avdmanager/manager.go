// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

// Package avdmanager provides a Go library for provisioning Android Virtual Devices,
// dumping system partitions and installing APKs without the interactive menu.
package avdmanager

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/forkbombeu/avdhelper/internal/avd"
)

// Manager provides high-level AVD operations.
type Manager struct {
	env avd.Env
}

// New creates a new Manager with auto-detected environment.
func New() *Manager {
	return &Manager{
		env: avd.Detect(),
	}
}

// NewWithContext creates a new Manager with a custom context for tracing.
func NewWithContext(ctx context.Context) *Manager {
	return NewWithContextAndCorrelationID(ctx, "")
}

// NewWithContextAndCorrelationID creates a new Manager with a custom context and correlation ID.
// An empty correlation ID keeps the detected one.
func NewWithContextAndCorrelationID(ctx context.Context, correlationID string) *Manager {
	env := avd.Detect()
	if ctx == nil {
		ctx = context.Background()
	}
	env.Context = ctx
	if correlationID != "" {
		env.CorrelationID = correlationID
	}
	return &Manager{
		env: env,
	}
}

// NewWithEnv creates a new Manager with custom environment configuration.
// Tool paths left empty are located under SDKRoot and on PATH.
func NewWithEnv(env Environment) *Manager {
	ctx := env.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tools := avd.LocateTools(env.SDKRoot)
	for tool, bin := range map[string]string{
		avd.ToolSdkManager: env.SdkManagerBin,
		avd.ToolAvdManager: env.AvdManagerBin,
		avd.ToolEmulator:   env.EmulatorBin,
		avd.ToolADB:        env.ADBBin,
	} {
		if bin != "" {
			tools[tool] = bin
		}
	}
	return &Manager{
		env: avd.Env{
			SDKRoot:       env.SDKRoot,
			Tools:         tools,
			APILevel:      env.APILevel,
			Tag:           env.Tag,
			ABI:           env.ABI,
			OutputDir:     env.OutputDir,
			Out:           env.Out,
			CorrelationID: env.CorrelationID,
			Context:       ctx,
		},
	}
}

// Environment holds configuration for SDK tools and outputs.
type Environment struct {
	SDKRoot       string          // ANDROID_SDK_ROOT
	SdkManagerBin string          // Path to sdkmanager (default: located)
	AvdManagerBin string          // Path to avdmanager (default: located)
	EmulatorBin   string          // Path to emulator (default: located)
	ADBBin        string          // Path to adb (default: located)
	APILevel      string          // System image API level (default: 31)
	Tag           string          // System image tag (default: google_apis)
	ABI           string          // System image ABI (default: x86_64)
	OutputDir     string          // Directory for dumps (default: current directory)
	Out           io.Writer       // Echoed commands and progress (default: discarded)
	CorrelationID string          // Correlation ID for log enrichment
	Context       context.Context // Context for tracing
}

// DeviceProfile is one hardware profile reported by avdmanager.
type DeviceProfile struct {
	ID    string // numeric id, e.g. "23"
	Alias string // quoted identifier, e.g. "pixel_5" (may be empty)
	Name  string // display name
}

// Device is a device or emulator attached to adb.
type Device struct {
	Serial string
	State  string // "device", "offline", "unauthorized", ...
}

// CreateOptions contains options for CreateDevice.
type CreateOptions struct {
	Kind string // "samsung" or "pixel" (required)
	Name string // AVD name (default: Samsung_Device_AVD / Pixel_Device_AVD)
}

// AVDInfo describes a created AVD.
type AVDInfo struct {
	Name    string // AVD name
	Profile string // hardware profile identifier, empty for avdmanager's default
	Package string // system image package
}

// StartOptions contains options for StartEmulator.
type StartOptions struct {
	Name     string // AVD name (required)
	Headless bool   // pass -no-window
}

// DumpOptions contains options for Dump.
type DumpOptions struct {
	Serial string // device serial (required)
	Method string // "block" (default) or "tree"
}

// DumpInfo describes a finished dump.
type DumpInfo struct {
	Serial    string
	Method    string
	LocalPath string // image file or directory
	SizeBytes int64
	BLAKE2b   string // hex checksum, block method only
}

func (m *Manager) startSpan(name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx := m.env.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if m.env.CorrelationID != "" {
		attrs = append(attrs, attribute.String("correlation_id", m.env.CorrelationID))
	}
	return otel.Tracer("avdhelper/avdmanager").Start(ctx, name, trace.WithAttributes(attrs...))
}

// envFor returns the environment with ctx as the parent of nested spans.
func (m *Manager) envFor(ctx context.Context) avd.Env {
	env := m.env
	env.Context = ctx
	return env
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// Tools returns the resolved path of every SDK tool that was found.
func (m *Manager) Tools() map[string]string {
	out := make(map[string]string, len(m.env.Tools))
	for k, v := range m.env.Tools {
		out[k] = v
	}
	return out
}

// MissingTools lists the SDK tools that could not be located.
func (m *Manager) MissingTools() []string {
	return m.env.Tools.Missing()
}

// DeviceProfiles lists the hardware profiles avdmanager knows about.
// An empty result with a nil error means the catalog was read and is empty.
func (m *Manager) DeviceProfiles() (profiles []DeviceProfile, err error) {
	ctx, span := m.startSpan("avdmanager.DeviceProfiles")
	defer func() { endSpan(span, err) }()

	records, err := avd.ListDeviceCatalog(m.envFor(ctx))
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		profiles = append(profiles, DeviceProfile{ID: r.ID, Alias: r.Alias, Name: r.Name})
	}
	span.SetAttributes(attribute.Int("profiles", len(profiles)))
	return profiles, nil
}

// CreateDevice installs the system image when needed and creates a Samsung-like
// or Pixel-like AVD.
func (m *Manager) CreateDevice(opts CreateOptions) (info AVDInfo, err error) {
	ctx, span := m.startSpan(
		"avdmanager.CreateDevice",
		attribute.String("kind", opts.Kind),
		attribute.String("avd_name", opts.Name),
	)
	defer func() { endSpan(span, err) }()

	kind, err := avd.ParseDeviceKind(opts.Kind)
	if err != nil {
		return AVDInfo{}, err
	}
	res, err := avd.CreateDevice(m.envFor(ctx), kind, opts.Name)
	if err != nil {
		return AVDInfo{}, err
	}
	return AVDInfo{Name: res.Name, Profile: res.Profile, Package: res.Package}, nil
}

// StartEmulator boots an AVD in the background. The caller owns the returned process.
func (m *Manager) StartEmulator(opts StartOptions) (cmd *exec.Cmd, err error) {
	ctx, span := m.startSpan(
		"avdmanager.StartEmulator",
		attribute.String("avd_name", opts.Name),
		attribute.Bool("headless", opts.Headless),
	)
	defer func() { endSpan(span, err) }()
	return avd.StartEmulator(m.envFor(ctx), opts.Name, opts.Headless)
}

// WaitForBoot waits for an emulator to fully boot Android.
func (m *Manager) WaitForBoot(serial string, timeout time.Duration) (err error) {
	ctx, span := m.startSpan(
		"avdmanager.WaitForBoot",
		attribute.String("serial", serial),
		attribute.String("timeout", timeout.String()),
	)
	defer func() { endSpan(span, err) }()
	return avd.WaitForBoot(m.envFor(ctx), serial, timeout, nil)
}

// ConnectedDevices lists the devices adb reports. No attached device is not an
// error here; the result is simply empty.
func (m *Manager) ConnectedDevices() (devices []Device, err error) {
	ctx, span := m.startSpan("avdmanager.ConnectedDevices")
	defer func() { endSpan(span, err) }()

	found, err := avd.ListConnected(m.envFor(ctx))
	if err != nil && !errors.Is(err, avd.ErrNoDevices) {
		return nil, err
	}
	for _, d := range found {
		devices = append(devices, Device{Serial: d.Serial, State: d.State})
	}
	return devices, nil
}

// Dump copies a device's system partition into the output directory.
func (m *Manager) Dump(opts DumpOptions) (info DumpInfo, err error) {
	ctx, span := m.startSpan(
		"avdmanager.Dump",
		attribute.String("serial", opts.Serial),
		attribute.String("method", opts.Method),
	)
	defer func() { endSpan(span, err) }()

	method, err := avd.ParseDumpMethod(opts.Method)
	if err != nil {
		return DumpInfo{}, err
	}
	res, err := avd.Dump(m.envFor(ctx), opts.Serial, method)
	if err != nil {
		return DumpInfo{}, err
	}
	return DumpInfo{
		Serial:    res.Serial,
		Method:    string(res.Method),
		LocalPath: res.LocalPath,
		SizeBytes: res.SizeBytes,
		BLAKE2b:   res.BLAKE2b,
	}, nil
}

// InstallAPK installs (or reinstalls) an APK on the default adb device.
func (m *Manager) InstallAPK(path string) (err error) {
	ctx, span := m.startSpan("avdmanager.InstallAPK", attribute.String("apk", path))
	defer func() { endSpan(span, err) }()
	return avd.InstallAPK(m.envFor(ctx), path)
}
