//go:build darwin || freebsd

package writer

import (
	"net"

	"golang.org/x/sys/unix"
)

// Darwin and FreeBSD spell the cork option TCP_NOPUSH.
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
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NOPUSH, v)
	}); ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
