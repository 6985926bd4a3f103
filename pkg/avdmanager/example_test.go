// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avdmanager_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/containerd/errdefs"
	"github.com/forkbombeu/avdhelper/pkg/avdmanager"
)

func Example_basicUsage() {
	// Create a new manager with auto-detected environment
	mgr := avdmanager.New()

	if missing := mgr.MissingTools(); len(missing) > 0 {
		log.Fatalf("missing SDK tools: %v", missing)
	}

	// Create a Pixel-like AVD
	info, err := mgr.CreateDevice(avdmanager.CreateOptions{Kind: "pixel"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Created %s (profile %q, image %s)\n", info.Name, info.Profile, info.Package)

	// Boot it headless
	cmd, err := mgr.StartEmulator(avdmanager.StartOptions{Name: info.Name, Headless: true})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Emulator pid %d\n", cmd.Process.Pid)

	if err := mgr.WaitForBoot("emulator-5554", 3*time.Minute); err != nil {
		log.Fatal(err)
	}
}

func Example_dumpAllDevices() {
	mgr := avdmanager.NewWithEnv(avdmanager.Environment{
		SDKRoot:   "/opt/android-sdk",
		OutputDir: "/tmp/dumps",
	})

	devices, err := mgr.ConnectedDevices()
	if err != nil {
		log.Fatal(err)
	}
	for _, d := range devices {
		if d.State != "device" {
			continue
		}
		res, err := mgr.Dump(avdmanager.DumpOptions{Serial: d.Serial, Method: "block"})
		if errdefs.IsFailedPrecondition(err) {
			// Unrooted: fall back to pulling /system.
			res, err = mgr.Dump(avdmanager.DumpOptions{Serial: d.Serial, Method: "tree"})
		}
		if err != nil {
			log.Printf("%s: %v", d.Serial, err)
			continue
		}
		fmt.Printf("%s -> %s (%d bytes)\n", d.Serial, res.LocalPath, res.SizeBytes)
	}
}

func Example_withTracing() {
	ctx := context.Background()
	mgr := avdmanager.NewWithContextAndCorrelationID(ctx, "build-1234")

	profiles, err := mgr.DeviceProfiles()
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range profiles {
		fmt.Println(p.ID, p.Name)
	}
}
