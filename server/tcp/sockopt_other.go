//go:build !unix

package tcp

import "syscall"

// reusePortControl is a no-op on non-unix platforms.
func reusePortControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
