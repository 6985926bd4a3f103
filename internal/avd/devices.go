// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// ConnectedDevice is one row of `adb devices`.
type ConnectedDevice struct {
	Serial string `json:"serial"`
	State  string `json:"state"`
}

// ParseADBDevices skips the "List of devices attached" header and keeps every
// row with at least a serial and a state.
func ParseADBDevices(text string) []ConnectedDevice {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) <= 1 {
		return nil
	}
	var out []ConnectedDevice
	for _, line := range lines[1:] {
		f := strings.Fields(line)
		if len(f) < 2 {
			continue
		}
		out = append(out, ConnectedDevice{Serial: f[0], State: f[1]})
	}
	return out
}

// ListConnected queries adb for attached devices. It returns ErrNoDevices
// when adb answers with an empty list.
func ListConnected(env Env) ([]ConnectedDevice, error) {
	ctx, span := startSpan(env, "avd.ListConnected")
	defer span.End()
	env.Context = ctx
	adb, err := env.Tools.Require(ToolADB)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	res, err := run(env, []string{adb, "devices"}, RunOptions{Check: true, Capture: true})
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("adb devices failed: %w", err)
	}
	devices := ParseADBDevices(string(res.Stdout))
	span.SetAttributes(attribute.Int("devices", len(devices)))
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	return devices, nil
}

// ChooseDevice lists devices and asks for a 1-based index; an empty answer picks the first.
func ChooseDevice(env Env, devices []ConnectedDevice, prompter Prompter) (string, error) {
	if len(devices) == 0 {
		return "", ErrNoDevices
	}
	fmt.Fprintln(env.out(), "Connected devices/emulators:")
	for i, d := range devices {
		fmt.Fprintf(env.out(), "%d) %s (%s)\n", i+1, d.Serial, d.State)
	}
	choice, err := prompter.Prompt("Pick device number (default 1): ")
	if err != nil {
		return "", err
	}
	if choice == "" {
		choice = "1"
	}
	n, err := strconv.Atoi(choice)
	if err != nil {
		return "", &InputError{Input: choice, Reason: "not a number"}
	}
	if n < 1 || n > len(devices) {
		return "", &InputError{Input: choice, Reason: fmt.Sprintf("pick 1..%d", len(devices))}
	}
	return devices[n-1].Serial, nil
}
