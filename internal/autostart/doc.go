// Package autostart manages the agent's OS-level startup registration.
//
// On Windows the agent writes its executable path to the per-user Run key so
// it survives reboots on subscriber machines. Other platforms get no-op
// stubs; deployment there is expected to use the init system.
package autostart
