// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
)

// ShizukuInstructions is printed after every setup attempt. Starting the
// server depends on root availability, so it is left to the user.
const ShizukuInstructions = `You can start the Shizuku server on a rooted device with a command like:
  adb shell su -c 'sh /data/local/tmp/shizuku_start.sh'  # if you have the script on device
Or on emulator you can run the server binary and then grant permissions via the app UI.
For non-rooted devices, Shizuku supports ADB mode using 'adb shell sh /data/local/tmp/start.sh' but it requires manual steps.
Refer to Shizuku docs: https://shizuku.rikka.app/
`

// InstallAPK reinstalls path on the default adb device.
func InstallAPK(env Env, path string) error {
	ctx, span := startSpan(env, "avd.InstallAPK", attribute.String("apk", path))
	defer span.End()
	env.Context = ctx
	adb, err := env.Tools.Require(ToolADB)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	if _, err := os.Stat(path); err != nil {
		err = &InputError{Input: path, Reason: "APK path does not exist"}
		recordSpanError(span, err)
		return err
	}
	if _, err := run(env, []string{adb, "install", "-r", path}, RunOptions{Check: true}); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to install APK via adb: %w", err)
	}
	fmt.Fprintln(env.out(), "APK installed (or reinstalled).")
	logEvent(env, "apk installed", "apk", path)
	return nil
}

// SetupShizuku optionally installs a Shizuku APK and always prints the manual
// steps for starting its server. Prompt and install errors are returned after
// the instructions are shown.
func SetupShizuku(env Env, prompter Prompter) error {
	if _, err := env.Tools.Require(ToolADB); err != nil {
		return err
	}
	fmt.Fprintln(env.out(), "Shizuku setup helper.")
	apk, err := prompter.Prompt("Path to Shizuku APK to install (leave empty to skip install): ")
	if err != nil {
		PrintShizukuInstructions(env.out())
		return err
	}
	var installErr error
	if apk != "" {
		installErr = InstallAPK(env, apk)
	}
	PrintShizukuInstructions(env.out())
	return installErr
}

func PrintShizukuInstructions(w io.Writer) {
	fmt.Fprint(w, ShizukuInstructions)
}
