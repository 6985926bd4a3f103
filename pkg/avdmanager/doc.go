// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

/*
Package avdmanager provides a Go library for provisioning Android Virtual Devices,
dumping a device's system partition and installing APKs.

# Overview

It is the non-interactive counterpart of the avdhelper menu. Every operation
shells out to the Android SDK tools (sdkmanager, avdmanager, emulator, adb),
echoes the command line it runs, and opens an OpenTelemetry span tagged with the
manager's correlation ID.

# Quick Start

	import "github.com/forkbombeu/avdhelper/pkg/avdmanager"

	func main() {
		mgr := avdmanager.New()

		// Install the system image (if needed) and create a Pixel-like AVD
		info, _ := mgr.CreateDevice(avdmanager.CreateOptions{Kind: "pixel"})

		// Boot it headless and wait for Android
		mgr.StartEmulator(avdmanager.StartOptions{Name: info.Name, Headless: true})
		mgr.WaitForBoot("emulator-5554", 3*time.Minute)

		// Pull /system off the emulator
		mgr.Dump(avdmanager.DumpOptions{Serial: "emulator-5554", Method: "tree"})
	}

# Device profiles

CreateDevice picks a hardware profile from `avdmanager list device`. Samsung
devices prefer any profile whose name mentions Samsung or Galaxy and fall back to
a few well-known Pixel and Nexus profiles. Pixel devices take the first profile
mentioning Pixel. When nothing matches, avdmanager's default profile is used.

# Dump methods

"block" copies the system block device with dd and needs root on the device. The
resulting image gets a BLAKE2b-256 checksum. "tree" pulls the mounted /system
directory and works on most emulators without root.

# Environment Configuration

By default, the manager auto-detects paths from environment variables:
- ANDROID_SDK_ROOT (falling back to ANDROID_HOME)
- AVDHELPER_API_LEVEL, AVDHELPER_IMAGE_TAG, AVDHELPER_ABI
- AVDHELPER_OUTPUT_DIR
- AVDHELPER_CORRELATION_ID

Use NewWithEnv() to override with custom paths.

# Errors

Errors carry the github.com/containerd/errdefs classes: a missing tool is
errdefs.IsNotFound, bad input is errdefs.IsInvalidArgument, a failed dump is
errdefs.IsFailedPrecondition and an unreadable profile catalog is
errdefs.IsUnavailable.

# Thread Safety

Manager instances are not thread-safe. Create separate instances for concurrent use,
or synchronize access with a mutex.

# License

AGPL-3.0-only

Copyright (C) 2025 Forkbomb B.V.
*/
package avdmanager
