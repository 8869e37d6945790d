//go:build linux

package main

import "github.com/coreos/go-systemd/v22/daemon"

// notifyReady tells an enclosing systemd unit (Type=notify) the runtime
// has finished its first config load and is serving. A no-op outside a
// systemd-supervised deployment: SdNotify returns false, nil when
// NOTIFY_SOCKET isn't set.
func notifyReady() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	return err
}
