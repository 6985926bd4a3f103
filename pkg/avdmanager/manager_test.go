// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avdmanager

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
)

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

func TestNewWithEnvUsesExplicitBinaries(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	dir := t.TempDir()
	adb := writeStub(t, dir, "adb", "exit 0\n")

	m := NewWithEnv(Environment{ADBBin: adb})
	if got := m.Tools()["adb"]; got != adb {
		t.Fatalf("expected adb %q, got %q", adb, got)
	}
	missing := strings.Join(m.MissingTools(), ",")
	if missing != "sdkmanager,avdmanager,emulator" {
		t.Fatalf("unexpected missing tools %q", missing)
	}
}

func TestConnectedDevicesEmptyIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	adb := writeStub(t, dir, "adb", "echo 'List of devices attached'\necho\n")

	m := NewWithEnv(Environment{ADBBin: adb, Context: context.Background()})
	devices, err := m.ConnectedDevices()
	if err != nil {
		t.Fatalf("connected devices: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("expected no devices, got %v", devices)
	}
}

func TestConnectedDevices(t *testing.T) {
	dir := t.TempDir()
	adb := writeStub(t, dir, "adb", "printf 'List of devices attached\\nemulator-5554\\tdevice\\nR58M\\tunauthorized\\n'\n")

	var out bytes.Buffer
	m := NewWithEnv(Environment{ADBBin: adb, Out: &out})
	devices, err := m.ConnectedDevices()
	if err != nil {
		t.Fatalf("connected devices: %v", err)
	}
	if len(devices) != 2 || devices[0].Serial != "emulator-5554" || devices[1].State != "unauthorized" {
		t.Fatalf("unexpected devices %+v", devices)
	}
	if !strings.Contains(out.String(), "+ "+adb+" devices") {
		t.Fatalf("expected echoed command, got %q", out.String())
	}
}

func TestDeviceProfiles(t *testing.T) {
	dir := t.TempDir()
	avdmanager := writeStub(t, dir, "avdmanager", `cat <<'OUT'
id: 23 or "pixel_5"
    Name: Pixel 5
id: 41 or "samsung_galaxy_s10"
    Name: Galaxy S10
OUT
`)

	m := NewWithEnv(Environment{AvdManagerBin: avdmanager})
	profiles, err := m.DeviceProfiles()
	if err != nil {
		t.Fatalf("device profiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %+v", profiles)
	}
	if profiles[0].ID != "23" || profiles[0].Alias != "pixel_5" || profiles[0].Name != "Pixel 5" {
		t.Fatalf("unexpected first profile %+v", profiles[0])
	}
}

func TestInvalidInputsAreInvalidArgument(t *testing.T) {
	m := NewWithEnv(Environment{ADBBin: "adb"})

	if _, err := m.Dump(DumpOptions{Serial: "emulator-5554", Method: "3"}); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument for dump method, got %v", err)
	}
	if err := m.InstallAPK(filepath.Join(t.TempDir(), "missing.apk")); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument for missing apk, got %v", err)
	}
	if _, err := m.CreateDevice(CreateOptions{Kind: "nokia"}); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument for kind, got %v", err)
	}
}

func TestStartEmulatorWithoutBinaryIsNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	m := NewWithEnv(Environment{})
	if _, err := m.StartEmulator(StartOptions{Name: "Pixel_Device_AVD"}); !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
