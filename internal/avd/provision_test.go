// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// avdmanagerStub logs every invocation to logPath and prints catalog for `list device`.
func avdmanagerStub(t *testing.T, dir, logPath, catalog string, createExit int) string {
	t.Helper()
	body := fmt.Sprintf(`echo "$@" >> '%s'
case "$1" in
  list) printf '%%s' '%s' ;;
  create) echo "creating"; echo "create said no" >&2; exit %d ;;
esac
exit 0
`, logPath, catalog, createExit)
	return writeStub(t, dir, "avdmanager", body)
}

func TestCreatePixelDevicePassesSelectedProfile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "avdmanager.log")
	avdmanager := avdmanagerStub(t, dir, logPath, "id: 23\nname: \"pixel_5\"\n", 0)
	sdkmanager := writeStub(t, dir, "sdkmanager", "exit 0\n")
	env, out := newTestEnv(t, ToolPaths{ToolAvdManager: avdmanager, ToolSdkManager: sdkmanager})

	res, err := CreateDevice(env, KindPixel, "")
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	if res.Profile != "23" || res.Name != "Pixel_Device_AVD" {
		t.Fatalf("unexpected result %+v", res)
	}

	calls := readLog(t, logPath)
	if len(calls) != 2 {
		t.Fatalf("expected list + create calls, got %v", calls)
	}
	want := "create avd --name Pixel_Device_AVD --package system-images;android-31;google_apis;x86_64 --force --device 23"
	if calls[1] != want {
		t.Fatalf("create args\n got: %s\nwant: %s", calls[1], want)
	}
	if !strings.Contains(out.String(), "Ensuring system image package is installed: system-images;android-31;google_apis;x86_64") {
		t.Fatalf("expected sdkmanager step in output, got %q", out.String())
	}
}

func TestCreateSamsungDeviceWithoutMatchOmitsDevice(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "avdmanager.log")
	avdmanager := avdmanagerStub(t, dir, logPath, "id: tv\nname: Android TV\n", 0)
	env, out := newTestEnv(t, ToolPaths{ToolAvdManager: avdmanager})

	res, err := CreateDevice(env, KindSamsung, "")
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	if res.Profile != "" {
		t.Fatalf("expected no profile, got %q", res.Profile)
	}
	calls := readLog(t, logPath)
	last := calls[len(calls)-1]
	if strings.Contains(last, "--device") {
		t.Fatalf("expected no --device argument, got %s", last)
	}
	if !strings.Contains(last, "--name Samsung_Device_AVD") {
		t.Fatalf("expected default Samsung name, got %s", last)
	}
	if !strings.Contains(out.String(), "sdkmanager not found") {
		t.Fatalf("expected missing sdkmanager to be reported, got %q", out.String())
	}
}

func TestCreateDeviceSurvivesSdkmanagerAndCatalogFailures(t *testing.T) {
	dir := t.TempDir()
	avdmanager := writeStub(t, dir, "avdmanager", "case \"$1\" in list) exit 1 ;; esac\nexit 0\n")
	sdkmanager := writeStub(t, dir, "sdkmanager", "exit 4\n")
	env, out := newTestEnv(t, ToolPaths{ToolAvdManager: avdmanager, ToolSdkManager: sdkmanager})

	res, err := CreateDevice(env, KindPixel, "custom")
	if err != nil {
		t.Fatalf("expected creation to proceed, got %v", err)
	}
	if res.Name != "custom" || res.Profile != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, msg := range []string{"continuing without a device profile", "sdkmanager failed", "AVD 'custom' created."} {
		if !strings.Contains(out.String(), msg) {
			t.Fatalf("expected %q in output, got %q", msg, out.String())
		}
	}
}

func TestCreateAVDFailureCarriesOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "avdmanager.log")
	avdmanager := avdmanagerStub(t, dir, logPath, "", 1)
	env, _ := newTestEnv(t, ToolPaths{ToolAvdManager: avdmanager})

	_, err := CreateAVD(env, "broken", "")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if !strings.Contains(string(cmdErr.Stdout), "creating") || !strings.Contains(string(cmdErr.Stderr), "create said no") {
		t.Fatalf("expected captured output, got %q / %q", cmdErr.Stdout, cmdErr.Stderr)
	}
}

func TestCreateAVDMissingTool(t *testing.T) {
	env, _ := newTestEnv(t, nil)
	if _, err := CreateAVD(env, "x", ""); !IsToolNotFound(err) {
		t.Fatalf("expected tool not found, got %v", err)
	}
}

func TestSystemImagePackage(t *testing.T) {
	if got := SystemImagePackage("34", "google_apis_playstore", "arm64-v8a"); got != "system-images;android-34;google_apis_playstore;arm64-v8a" {
		t.Fatalf("unexpected package %s", got)
	}
	if got := (Env{}).SystemImagePackage(); got != "system-images;android-31;google_apis;x86_64" {
		t.Fatalf("unexpected default package %s", got)
	}
}
