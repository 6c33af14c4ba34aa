// Package ports implements the best-effort ephemeral-port picker used
// by the Port Allocator when the caller doesn't specify an explicit
// port. It is a thin wrapper over net.Listen — no third-party
// dependency fits a one-line OS syscall better than the standard
// library here (see the design ledger).
package ports

import "net"

// Pick opens a TCP listener on port 0, reads back the port the OS
// assigned, and closes it immediately. The caller must record it
// promptly: nothing prevents another program from claiming the same
// number before the Registry commits the reservation.
func Pick() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}
