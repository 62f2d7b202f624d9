// ABOUTME: Non-Windows stub: startup registration is a Windows-only feature.

//go:build !windows

package autostart

// Enable is a no-op outside Windows.
func Enable() error { return nil }

// Disable is a no-op outside Windows.
func Disable() error { return nil }
