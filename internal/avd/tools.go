// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"os"
	"os/exec"
	"path/filepath"
)

const (
	ToolSdkManager = "sdkmanager"
	ToolAvdManager = "avdmanager"
	ToolEmulator   = "emulator"
	ToolADB        = "adb"
)

// Tools lists the SDK binaries in the order they are reported.
var Tools = []string{ToolSdkManager, ToolAvdManager, ToolEmulator, ToolADB}

// ToolPaths maps a tool name to its resolved path. Missing tools have no entry.
type ToolPaths map[string]string

// Path returns the resolved path for tool, if any.
func (p ToolPaths) Path(tool string) (string, bool) {
	path, ok := p[tool]
	return path, ok && path != ""
}

// Require is Path with a ToolNotFoundError for absent tools.
func (p ToolPaths) Require(tool string) (string, error) {
	if path, ok := p.Path(tool); ok {
		return path, nil
	}
	return "", &ToolNotFoundError{Tool: tool}
}

// Missing returns the tools that could not be resolved.
func (p ToolPaths) Missing() []string {
	var missing []string
	for _, t := range Tools {
		if _, ok := p.Path(t); !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// sdkSubpaths are probed under the SDK root, in order.
func sdkSubpaths(sdkRoot, tool string) []string {
	return []string{
		filepath.Join(sdkRoot, "tools", "bin", tool),
		filepath.Join(sdkRoot, "cmdline-tools", "latest", "bin", tool),
		filepath.Join(sdkRoot, "cmdline-tools", "bin", tool),
		filepath.Join(sdkRoot, "platform-tools", tool),
		filepath.Join(sdkRoot, "emulator", tool),
	}
}

// LocateTool resolves tool on PATH first, then under the conventional SDK
// subdirectories of sdkRoot. It returns "" when nothing exists.
func LocateTool(tool, sdkRoot string) string {
	if p, err := exec.LookPath(tool); err == nil {
		return p
	}
	if sdkRoot == "" {
		return ""
	}
	for _, p := range sdkSubpaths(sdkRoot, tool) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func LocateTools(sdkRoot string) ToolPaths {
	paths := make(ToolPaths, len(Tools))
	for _, t := range Tools {
		if p := LocateTool(t, sdkRoot); p != "" {
			paths[t] = p
		}
	}
	return paths
}
