//go:build !linux
// +build !linux

package net2

import (
	"net"
	"syscall"
	"time"
)

// Only linux supports TCP_USER_TIMEOUT; elsewhere this is a no-op.
func SetTCPUserTimeout(tcpConn *net.TCPConn, timeout time.Duration) error {
	return nil
}

func ControlWithTCPUserTimeout(
	rawConn syscall.RawConn,
	timeout time.Duration) error {

	return nil
}
