// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	units "github.com/docker/go-units"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/blake2b"
)

// DumpMethod selects how the system partition is copied off the device.
type DumpMethod string

const (
	// DumpBlock copies the raw block device with dd; needs root.
	DumpBlock DumpMethod = "block"
	// DumpTree pulls the mounted /system tree file by file.
	DumpTree DumpMethod = "tree"
)

func ParseDumpMethod(s string) (DumpMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", string(DumpBlock):
		return DumpBlock, nil
	case "2", string(DumpTree):
		return DumpTree, nil
	}
	return "", &InputError{Input: s, Reason: "choose 1 or 2"}
}

const (
	remoteSystemImage = "/sdcard/system.img"
	remoteSystemMount = "/system"

	hintBlockFailed = "Failed to dd/pull system image: likely unrooted device, try method 2 (pull /system)."
	hintTreeFailed  = "Recursive pull failed: try a rooted device or emulator to perform a full dump."
)

// ddCommand copies the system partition to remote, trying the by-name link
// first and the platform glob second.
func ddCommand(remote string) string {
	return fmt.Sprintf(
		"su -c 'dd if=/dev/block/by-name/system of=%[1]s bs=4096 || dd if=/dev/block/platform/*/by-name/system of=%[1]s bs=4096'",
		remote,
	)
}

type DumpResult struct {
	Serial    string     `json:"serial"`
	Method    DumpMethod `json:"method"`
	LocalPath string     `json:"local_path"`
	SizeBytes int64      `json:"size_bytes"`
	BLAKE2b   string     `json:"blake2b_256,omitempty"`
}

// localDumpName turns a serial such as 192.168.1.5:5555 into a usable file name.
func localDumpName(serial, suffix string) string {
	safe := strings.NewReplacer(":", "_", "/", "_", `\`, "_").Replace(serial)
	return safe + suffix
}

// Dump runs method against serial, writing into env.OutputDir.
func Dump(env Env, serial string, method DumpMethod) (DumpResult, error) {
	switch method {
	case DumpBlock:
		return DumpBlockImage(env, serial)
	case DumpTree:
		return DumpSystemTree(env, serial)
	}
	return DumpResult{}, &InputError{Input: string(method), Reason: "unknown dump method"}
}

// DumpBlockImage dd's the system partition to device storage, pulls it and
// removes the device copy. A failed pull leaves the device copy behind.
func DumpBlockImage(env Env, serial string) (DumpResult, error) {
	ctx, span := startSpan(env, "avd.DumpBlockImage", attribute.String("serial", serial))
	defer span.End()
	env.Context = ctx
	adb, err := env.Tools.Require(ToolADB)
	if err != nil {
		recordSpanError(span, err)
		return DumpResult{}, err
	}
	fail := func(err error) (DumpResult, error) {
		err = &DumpError{Method: DumpBlock, Hint: hintBlockFailed, Err: err}
		recordSpanError(span, err)
		return DumpResult{}, err
	}

	fmt.Fprintln(env.out(), "Attempting dd on device (this will likely fail on unrooted devices).")
	if _, err := run(env, []string{adb, "-s", serial, "shell", ddCommand(remoteSystemImage)}, RunOptions{Check: true}); err != nil {
		return fail(err)
	}
	local := filepath.Join(env.OutputDir, localDumpName(serial, "_system.img"))
	if _, err := run(env, []string{adb, "-s", serial, "pull", remoteSystemImage, local}, RunOptions{Check: true}); err != nil {
		return fail(err)
	}
	fmt.Fprintf(env.out(), "Pulled image to %s\n", local)
	fmt.Fprintf(env.out(), "Cleaning remote image %s\n", remoteSystemImage)
	if _, err := run(env, []string{adb, "-s", serial, "shell", "rm " + remoteSystemImage}, RunOptions{Check: true}); err != nil {
		return fail(err)
	}

	size, sum, err := hashFile(local)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(env.out(), "Image size %s, blake2b-256 %s\n", units.HumanSize(float64(size)), sum)
	span.SetAttributes(attribute.Int64("size_bytes", size))
	logEvent(env, "system image dumped", "serial", serial, "path", local, "size_bytes", size, "blake2b_256", sum)
	return DumpResult{Serial: serial, Method: DumpBlock, LocalPath: local, SizeBytes: size, BLAKE2b: sum}, nil
}

// DumpSystemTree pulls /system recursively into <serial>_system.
func DumpSystemTree(env Env, serial string) (DumpResult, error) {
	ctx, span := startSpan(env, "avd.DumpSystemTree", attribute.String("serial", serial))
	defer span.End()
	env.Context = ctx
	adb, err := env.Tools.Require(ToolADB)
	if err != nil {
		recordSpanError(span, err)
		return DumpResult{}, err
	}
	local := filepath.Join(env.OutputDir, localDumpName(serial, "_system"))
	fmt.Fprintf(env.out(), "Attempting to pull %s -> %s (may be restricted on modern devices).\n", remoteSystemMount, local)
	if _, err := run(env, []string{adb, "-s", serial, "pull", remoteSystemMount, local}, RunOptions{Check: true}); err != nil {
		err = &DumpError{Method: DumpTree, Hint: hintTreeFailed, Err: err}
		recordSpanError(span, err)
		return DumpResult{}, err
	}
	size := dirSize(local)
	fmt.Fprintf(env.out(), "%s pulled to local directory: %s (%s)\n", remoteSystemMount, local, units.HumanSize(float64(size)))
	span.SetAttributes(attribute.Int64("size_bytes", size))
	logEvent(env, "system tree dumped", "serial", serial, "path", local, "size_bytes", size)
	return DumpResult{Serial: serial, Method: DumpTree, LocalPath: local, SizeBytes: size}, nil
}

func hashFile(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("hash %s: %w", path, err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// dirSize is best effort: unreadable entries count as zero.
func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// DumpSystem is the interactive flow: choose a device, choose a method, dump.
// With no devices attached it returns ErrNoDevices before asking for a method.
func DumpSystem(env Env, prompter Prompter) (DumpResult, error) {
	ctx, span := startSpan(env, "avd.DumpSystem")
	defer span.End()
	env.Context = ctx
	devices, err := ListConnected(env)
	if err != nil {
		recordSpanError(span, err)
		return DumpResult{}, err
	}
	serial, err := ChooseDevice(env, devices, prompter)
	if err != nil {
		recordSpanError(span, err)
		return DumpResult{}, err
	}
	span.SetAttributes(attribute.String("serial", serial))

	out := env.out()
	fmt.Fprintln(out, "NOTE: Creating a system image typically requires root on the target device or running an emulator.")
	fmt.Fprintln(out, "Options:")
	fmt.Fprintln(out, "1) Attempt a block-level dd (requires root).")
	fmt.Fprintln(out, "2) Try a recursive pull of /system (may be limited by permissions).")
	answer, err := prompter.Prompt("Choose method (1 or 2) [1]: ")
	if err != nil {
		recordSpanError(span, err)
		return DumpResult{}, err
	}
	method, err := ParseDumpMethod(answer)
	if err != nil {
		recordSpanError(span, err)
		return DumpResult{}, err
	}
	return Dump(env, serial, method)
}
