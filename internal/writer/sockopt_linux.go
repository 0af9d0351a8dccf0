//go:build linux

package writer

import (
	"net"

	"golang.org/x/sys/unix"
)

// Linux batches small writes with TCP_CORK.
const corkSupported = true

func setCork(tc *net.TCPConn, enable bool) error {
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	v := 0
	if enable {
		v = 1
	}
	if ctrlErr := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_CORK, v)
	}); ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
