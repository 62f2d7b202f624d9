// ABOUTME: Windows process attributes for launching probes without a console window.

//go:build windows

package probe

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// hiddenWindowAttr keeps the spawned tool detached from any visible console.
// The agent runs on user desktops; a flashing cmd window per probe is not
// acceptable.
func hiddenWindowAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
