// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	core "github.com/forkbombeu/avdhelper/internal/avd"
	"github.com/forkbombeu/avdhelper/internal/menu"
)

func main() {
	core.ConfigureLogging(os.Stderr, core.ParseLogLevel(os.Getenv("AVDHELPER_LOG_LEVEL")))

	shutdown, err := core.SetupTracing(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "tracing disabled:", err)
	}
	flush := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}

	// Ctrl-C anywhere, including mid-prompt, is a clean exit.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\nInterrupted. Exiting.")
		flush()
		os.Exit(0)
	}()

	err = newRootCmd().Execute()
	flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	env := core.Detect()
	var api, tag, abi, outDir string

	root := &cobra.Command{
		Use:           "avdhelper",
		Short:         "Provision Android emulators, dump system images and set up Shizuku",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if api != "" {
				env.APILevel = api
			}
			if tag != "" {
				env.Tag = tag
			}
			if abi != "" {
				env.ABI = abi
			}
			if outDir != "" {
				env.OutputDir = outDir
			}
			env.Out = cmd.OutOrStdout()
			env.Context = cmd.Context()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			prompter := core.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			return menu.New(env, prompter, cmd.OutOrStdout()).Run()
		},
	}
	root.PersistentFlags().StringVar(&api, "api", "", "API level for system images (default $AVDHELPER_API_LEVEL or 31)")
	root.PersistentFlags().StringVar(&tag, "tag", "", "system image tag (default $AVDHELPER_IMAGE_TAG or google_apis)")
	root.PersistentFlags().StringVar(&abi, "abi", "", "system image ABI (default $AVDHELPER_ABI or x86_64)")
	root.PersistentFlags().StringVar(&outDir, "out", "", "directory for system dumps (default $AVDHELPER_OUTPUT_DIR or .)")

	// tools
	root.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "Show resolved Android SDK tool paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, t := range core.Tools {
				p, ok := env.Tools.Path(t)
				if !ok {
					p = "(not found)"
				}
				fmt.Fprintf(w, "%-11s %s\n", t, p)
			}
			return nil
		},
	})

	// profiles
	var profilesJSON bool
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List hardware profiles from avdmanager",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := core.ListDeviceCatalog(jsonEnv(env, cmd, profilesJSON))
			if err != nil {
				return err
			}
			if profilesJSON {
				return writeJSON(cmd.OutOrStdout(), devices)
			}
			for _, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %-32s %s\n", d.ID, d.Alias, d.Name)
			}
			return nil
		},
	}
	profilesCmd.Flags().BoolVar(&profilesJSON, "json", false, "output JSON")
	root.AddCommand(profilesCmd)

	// devices
	var devicesJSON bool
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List devices and emulators attached to adb",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := core.ListConnected(jsonEnv(env, cmd, devicesJSON))
			if err != nil && !errors.Is(err, core.ErrNoDevices) {
				return err
			}
			if devicesJSON {
				if devices == nil {
					devices = []core.ConnectedDevice{}
				}
				return writeJSON(cmd.OutOrStdout(), devices)
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no devices)")
			}
			for _, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", d.Serial, d.State)
			}
			return nil
		},
	}
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "output JSON")
	root.AddCommand(devicesCmd)

	// create
	var createName string
	createCmd := &cobra.Command{
		Use:       "create samsung|pixel",
		Short:     "Create a Samsung-like or Pixel-like AVD (installs the system image first)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(core.KindSamsung), string(core.KindPixel)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseDeviceKind(args[0])
			if err != nil {
				return err
			}
			res, err := core.CreateDevice(env, kind, createName)
			if err != nil {
				return err
			}
			profile := res.Profile
			if profile == "" {
				profile = "default"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (profile %s, package %s)\n", res.Name, profile, res.Package)
			return nil
		},
	}
	createCmd.Flags().StringVar(&createName, "name", "", "AVD name (default Samsung_Device_AVD / Pixel_Device_AVD)")
	root.AddCommand(createCmd)

	// run
	var runName string
	var runHeadless bool
	var runWait time.Duration
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start an emulator in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runName == "" {
				return errors.New("--name is required")
			}
			proc, err := core.StartEmulator(env, runName, runHeadless)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s (pid %d)\n", runName, proc.Process.Pid)
			if runWait <= 0 {
				return nil
			}
			serial, err := waitForSerial(env, runWait)
			if err != nil {
				return err
			}
			err = core.WaitForBoot(env, serial, runWait, func(status string, elapsed time.Duration) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", serial, status, elapsed.Round(time.Second))
			})
			if err != nil {
				return err
			}
			// Leave the emulator running after we exit.
			return proc.Process.Release()
		},
	}
	runCmd.Flags().StringVar(&runName, "name", "", "AVD name to run")
	runCmd.Flags().BoolVar(&runHeadless, "no-window", false, "run headless")
	runCmd.Flags().DurationVar(&runWait, "wait", 0, "wait up to this long for boot completion (0 = do not wait)")
	root.AddCommand(runCmd)

	// dump
	var dumpSerial, dumpMethod string
	var dumpJSON bool
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump a device's system partition (block dd needs root; tree pulls /system)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dumpEnv := jsonEnv(env, cmd, dumpJSON)
			if dumpSerial == "" {
				prompter := core.NewLinePrompter(cmd.InOrStdin(), dumpEnv.Out)
				res, err := core.DumpSystem(dumpEnv, prompter)
				if err != nil {
					return err
				}
				return printDump(cmd.OutOrStdout(), res, dumpJSON)
			}
			method, err := core.ParseDumpMethod(dumpMethod)
			if err != nil {
				return err
			}
			res, err := core.Dump(dumpEnv, dumpSerial, method)
			if err != nil {
				return err
			}
			return printDump(cmd.OutOrStdout(), res, dumpJSON)
		},
	}
	dumpCmd.Flags().StringVar(&dumpSerial, "serial", "", "device serial (prompts when omitted)")
	dumpCmd.Flags().StringVar(&dumpMethod, "method", "block", "block or tree")
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "output JSON")
	root.AddCommand(dumpCmd)

	// shizuku
	var apk string
	shizukuCmd := &cobra.Command{
		Use:   "shizuku",
		Short: "Install the Shizuku APK and print server start instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if apk != "" {
				err = core.InstallAPK(env, apk)
			}
			core.PrintShizukuInstructions(cmd.OutOrStdout())
			return err
		},
	}
	shizukuCmd.Flags().StringVar(&apk, "apk", "", "path to the Shizuku APK (skip install when empty)")
	root.AddCommand(shizukuCmd)

	return root
}

// waitForSerial polls adb until an emulator shows up in the device state.
func waitForSerial(env core.Env, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		serial, err := core.GuessEmulatorSerial(env)
		if err == nil {
			return serial, nil
		}
		if core.IsToolNotFound(err) || time.Now().After(deadline) {
			return "", err
		}
		time.Sleep(2 * time.Second)
	}
}

// jsonEnv keeps stdout for the JSON document: echoed commands, progress and
// prompts go to stderr instead.
func jsonEnv(env core.Env, cmd *cobra.Command, asJSON bool) core.Env {
	if asJSON {
		env.Out = cmd.ErrOrStderr()
	}
	return env
}

func printDump(w io.Writer, res core.DumpResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Dumped %s (%s) to %s\n", res.Serial, res.Method, res.LocalPath)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
