// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

// Package menu is the interactive front end: a numbered read-eval loop over
// the operations in internal/avd.
package menu

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	core "github.com/forkbombeu/avdhelper/internal/avd"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	warnColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed, color.Bold)
)

// Menu dispatches choices read from Prompter to the avd operations.
type Menu struct {
	Env      core.Env
	Prompter core.Prompter
	Out      io.Writer
}

func New(env core.Env, prompter core.Prompter, out io.Writer) *Menu {
	return &Menu{Env: env, Prompter: prompter, Out: out}
}

// WarnMissingTools prints which SDK tools could not be found. The menu still
// runs; the affected operations report the missing tool themselves.
func WarnMissingTools(w io.Writer, tools core.ToolPaths) {
	missing := tools.Missing()
	if len(missing) == 0 {
		return
	}
	warnColor.Fprintln(w, "Warning: Some Android SDK tools were not found:", strings.Join(missing, ", "))
	warnColor.Fprintln(w, "Make sure ANDROID_SDK_ROOT or ANDROID_HOME is set and sdk commandline tools are installed.")
}

func (m *Menu) printOptions() {
	fmt.Fprintln(m.Out)
	headerColor.Fprintln(m.Out, "Main Menu")
	fmt.Fprintln(m.Out, "1) Create Samsung device")
	fmt.Fprintln(m.Out, "2) Create a Pixel Device")
	fmt.Fprintln(m.Out, "3) Create System Image dump")
	fmt.Fprintln(m.Out, "4) Setup Shizuku")
	fmt.Fprintln(m.Out, "5) Start an emulator")
	fmt.Fprintln(m.Out, "q) Quit")
}

// Run loops until the user quits or input ends. Operation errors are printed
// and never end the loop.
func (m *Menu) Run() error {
	WarnMissingTools(m.Out, m.Env.Tools)
	fmt.Fprintln(m.Out, "Simple Android AVD + Dump helper")
	for {
		m.printOptions()
		choice, err := m.Prompter.Prompt("Choose an option: ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(m.Out, "\nExiting.")
			return nil
		}
		if err != nil {
			return err
		}
		if quit := m.Dispatch(choice); quit {
			fmt.Fprintln(m.Out, "Exiting.")
			return nil
		}
	}
}

// Dispatch runs one menu choice and reports whether it was a quit command.
func (m *Menu) Dispatch(choice string) bool {
	var err error
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "q", "quit", "exit":
		return true
	case "1":
		err = m.createDevice(core.KindSamsung)
	case "2":
		err = m.createDevice(core.KindPixel)
	case "3":
		_, err = core.DumpSystem(m.Env, m.Prompter)
	case "4":
		err = core.SetupShizuku(m.Env, m.Prompter)
	case "5":
		err = m.startEmulator()
	default:
		fmt.Fprintln(m.Out, "Unknown choice.")
	}
	if err != nil {
		m.report(err)
	}
	return false
}

func (m *Menu) report(err error) {
	switch {
	case core.IsToolNotFound(err):
		warnColor.Fprintln(m.Out, err)
	default:
		errorColor.Fprintln(m.Out, "Error:", err)
	}
}

func (m *Menu) createDevice(kind core.DeviceKind) error {
	if _, err := core.CreateDevice(m.Env, kind, ""); err != nil {
		return err
	}
	if kind == core.KindSamsung {
		fmt.Fprintln(m.Out, "You can start the emulator with option to run headless or with window.")
	} else {
		fmt.Fprintln(m.Out, "Pixel-like AVD created.")
	}
	return nil
}

func (m *Menu) startEmulator() error {
	name, err := m.Prompter.Prompt(fmt.Sprintf("AVD name [%s]: ", core.KindPixel.DefaultAVDName()))
	if err != nil {
		return err
	}
	if name == "" {
		name = core.KindPixel.DefaultAVDName()
	}
	answer, err := m.Prompter.Prompt("Run headless? (y/N): ")
	if err != nil {
		return err
	}
	headless := strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
	cmd, err := core.StartEmulator(m.Env, name, headless)
	if err != nil {
		return err
	}
	if cmd != nil && cmd.Process != nil {
		fmt.Fprintf(m.Out, "Emulator running in the background (pid %d).\n", cmd.Process.Pid)
	}
	return nil
}
