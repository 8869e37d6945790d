//go:build !linux

package main

// notifyReady is a no-op outside Linux; systemd readiness notification
// has no equivalent on other platforms.
func notifyReady() error { return nil }
