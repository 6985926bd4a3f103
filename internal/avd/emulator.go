// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// EmulatorArgs is the argument vector for booting name.
func EmulatorArgs(emulator, name string, headless bool) []string {
	args := []string{emulator, "-avd", name}
	if headless {
		args = append(args, "-no-window")
	}
	return args
}

// StartEmulator launches the emulator in the background. The caller owns the
// returned process; nothing here waits on it or stops it.
func StartEmulator(env Env, name string, headless bool) (*exec.Cmd, error) {
	ctx, span := startSpan(
		env,
		"avd.StartEmulator",
		attribute.String("name", name),
		attribute.Bool("headless", headless),
	)
	defer span.End()
	if name == "" {
		err := errors.New("empty AVD name")
		recordSpanError(span, err)
		return nil, err
	}
	emulator, err := env.Tools.Require(ToolEmulator)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	argv := EmulatorArgs(emulator, name, headless)
	fmt.Fprintln(env.out(), "Starting emulator:", strings.Join(argv, " "))
	cmd, err := env.runner().Start(ctx, argv)
	if err != nil {
		recordSpanError(span, err)
		logWarn(env, "emulator start failed", "name", name, "error", err.Error())
		return nil, fmt.Errorf("emulator start: %w", err)
	}
	if cmd != nil && cmd.Process != nil {
		span.SetAttributes(attribute.Int("pid", cmd.Process.Pid))
		logEvent(env, "emulator started", "name", name, "pid", cmd.Process.Pid)
	}
	return cmd, nil
}

// GuessEmulatorSerial returns the first emulator adb lists in the device state.
func GuessEmulatorSerial(env Env) (string, error) {
	devices, err := ListConnected(env)
	if err != nil && !errors.Is(err, ErrNoDevices) {
		return "", err
	}
	for _, d := range devices {
		if strings.HasPrefix(d.Serial, "emulator-") && d.State == "device" {
			return d.Serial, nil
		}
	}
	return "", errors.New("no emulator device found")
}

// WaitForBoot polls sys.boot_completed until it reads 1 or timeout passes.
// onStatus, if set, is told "waiting_adb", "checking_boot" and "boot_complete".
func WaitForBoot(env Env, serial string, timeout time.Duration, onStatus func(status string, elapsed time.Duration)) error {
	ctx, span := startSpan(
		env,
		"avd.WaitForBoot",
		attribute.String("serial", serial),
		attribute.String("timeout", timeout.String()),
	)
	defer span.End()
	env.Context = ctx
	adb, err := env.Tools.Require(ToolADB)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	start := time.Now()
	report := func(status string) {
		if onStatus != nil {
			onStatus(status, time.Since(start))
		}
	}

	report("waiting_adb")
	waitCtx, cancel := context.WithTimeout(spanContext(env), timeout)
	_, _ = env.runner().Run(waitCtx, []string{adb, "-s", serial, "wait-for-device"}, RunOptions{Capture: true})
	cancel()

	deadline := start.Add(timeout)
	lastError := ""
	for time.Now().Before(deadline) {
		report("checking_boot")
		res, err := env.runner().Run(
			spanContext(env),
			[]string{adb, "-s", serial, "shell", "getprop", "sys.boot_completed"},
			RunOptions{Capture: true},
		)
		if strings.TrimSpace(string(res.Stdout)) == "1" {
			span.SetAttributes(attribute.Bool("boot_completed", true))
			report("boot_complete")
			return nil
		}
		if err != nil {
			lastError = err.Error()
		} else if msg := strings.TrimSpace(string(res.Stderr)); msg != "" {
			lastError = msg
		}
		time.Sleep(time.Second)
	}

	errMsg := fmt.Sprintf("boot timeout after %s (adb could not confirm boot completion)", timeout)
	if lastError != "" {
		errMsg += fmt.Sprintf("\nLast ADB error: %s", lastError)
	}
	logWarn(env, "wait for boot timeout", "serial", serial, "timeout", timeout.String(), "adb_error", lastError)
	err = errors.New(errMsg)
	recordSpanError(span, err)
	return err
}
