// ABOUTME: Registers the agent in the current user's Windows startup list.
// ABOUTME: Writes the executable path under HKCU\...\CurrentVersion\Run.

//go:build windows

package autostart

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows/registry"
)

const (
	runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`
	valueName  = "ort"
)

// Enable registers the current executable to start with the user session.
// It is idempotent: re-running overwrites the same value.
func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening run key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue(valueName, exe); err != nil {
		return fmt.Errorf("writing run value: %w", err)
	}
	return nil
}

// Disable removes the startup registration. A missing value is not an error.
func Disable() error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening run key: %w", err)
	}
	defer key.Close()

	if err := key.DeleteValue(valueName); err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("deleting run value: %w", err)
	}
	return nil
}
