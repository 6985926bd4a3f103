// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// AVDResult describes an AVD that avdmanager created.
type AVDResult struct {
	Name    string `json:"name"`
	Profile string `json:"profile,omitempty"` // empty: avdmanager's default profile
	Package string `json:"package"`
}

func SystemImagePackage(api, tag, abi string) string {
	return fmt.Sprintf("system-images;android-%s;%s;%s", api, tag, abi)
}

// EnsureSystemImage asks sdkmanager to install the Env's system image. The
// console stays attached so sdkmanager can prompt for licence acceptance.
func EnsureSystemImage(env Env) error {
	ctx, span := startSpan(env, "avd.EnsureSystemImage")
	defer span.End()
	env.Context = ctx
	sdkmanager, err := env.Tools.Require(ToolSdkManager)
	if err != nil {
		fmt.Fprintln(env.out(), "sdkmanager not found; cannot install system images automatically.")
		recordSpanError(span, err)
		return err
	}
	pkg := env.SystemImagePackage()
	span.SetAttributes(attribute.String("package", pkg))
	fmt.Fprintf(env.out(), "Ensuring system image package is installed: %s\n", pkg)
	if _, err := run(env, []string{sdkmanager, pkg}, RunOptions{Check: true}); err != nil {
		fmt.Fprintln(env.out(), "sdkmanager failed. You may need to run the command manually with correct SDK tools installed.")
		recordSpanError(span, err)
		return fmt.Errorf("ensure system image %s: %w", pkg, err)
	}
	return nil
}

// CreateAVDArgs is the avdmanager argument vector for creating name with an optional profile.
func CreateAVDArgs(avdmanager, name, pkg, profile string) []string {
	args := []string{avdmanager, "create", "avd", "--name", name, "--package", pkg, "--force"}
	if profile != "" {
		args = append(args, "--device", profile)
	}
	return args
}

// CreateAVD runs `avdmanager create avd`, overwriting any AVD with the same name.
func CreateAVD(env Env, name, profile string) (AVDResult, error) {
	ctx, span := startSpan(
		env,
		"avd.CreateAVD",
		attribute.String("name", name),
		attribute.String("profile", profile),
	)
	defer span.End()
	env.Context = ctx
	if name == "" {
		err := errors.New("empty AVD name")
		recordSpanError(span, err)
		return AVDResult{}, err
	}
	avdmanager, err := env.Tools.Require(ToolAvdManager)
	if err != nil {
		recordSpanError(span, err)
		return AVDResult{}, fmt.Errorf("%w: install Android command-line tools and ensure avdmanager is on PATH", err)
	}
	pkg := env.SystemImagePackage()
	label := profile
	if label == "" {
		label = "default"
	}
	fmt.Fprintf(env.out(), "Creating AVD '%s' (device profile: %s)\n", name, label)

	// avdmanager asks whether to create a custom hardware profile.
	opts := RunOptions{Check: true, Capture: true, Stdin: strings.NewReader("no\n")}
	if _, err := run(env, CreateAVDArgs(avdmanager, name, pkg, profile), opts); err != nil {
		recordSpanError(span, err)
		return AVDResult{}, fmt.Errorf("create AVD %s: %w", name, err)
	}
	fmt.Fprintf(env.out(), "AVD '%s' created.\n", name)
	logEvent(env, "avd created", "name", name, "profile", profile, "package", pkg)
	return AVDResult{Name: name, Profile: profile, Package: pkg}, nil
}

// CreateDevice picks a hardware profile for kind from the catalog, makes sure
// the system image is installed and creates the AVD. Catalog and sdkmanager
// failures are reported but do not stop creation.
func CreateDevice(env Env, kind DeviceKind, name string) (AVDResult, error) {
	ctx, span := startSpan(env, "avd.CreateDevice", attribute.String("kind", string(kind)))
	defer span.End()
	env.Context = ctx
	if name == "" {
		name = kind.DefaultAVDName()
	}

	devices, err := ListDeviceCatalog(env)
	if err != nil {
		fmt.Fprintf(env.out(), "Warning: %v; continuing without a device profile.\n", err)
		logWarn(env, "device catalog unavailable", "kind", string(kind), "error", err.Error())
	}
	profile := SelectProfile(kind, devices)
	span.SetAttributes(attribute.String("profile", profile))

	if err := EnsureSystemImage(env); err != nil {
		logWarn(env, "system image not ensured", "error", err.Error())
	}

	res, err := CreateAVD(env, name, profile)
	if err != nil {
		recordSpanError(span, err)
		return AVDResult{}, err
	}
	return res, nil
}
