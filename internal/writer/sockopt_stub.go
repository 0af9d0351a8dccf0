//go:build !linux && !darwin && !freebsd

package writer

import (
	"errors"
	"net"
)

// No cork equivalent on this platform; SetTCPCork becomes a no-op.
const corkSupported = false

func setCork(*net.TCPConn, bool) error {
	return errors.ErrUnsupported
}
