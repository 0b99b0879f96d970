package net2

import (
	"net"
	"strconv"

	"github.com/dropbox/gomemcache/errors"
)

// Returns "host:port", bracketing ipv6 hosts.
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Splits "host:port" into its parts.  The port must be a number in
// (0, 65535].
func SplitHostPort(hostPort string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return "", 0, errors.Wrapf(err, "Invalid address %q", hostPort)
	}
	if host == "" {
		return "", 0, errors.Newf("Missing host in address %q", hostPort)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, errors.Newf("Invalid port in address %q", hostPort)
	}
	return host, port, nil
}

// Like SplitHostPort, but a missing port is replaced by defaultPort.
func SplitHostPortWithDefault(
	hostPort string,
	defaultPort int) (string, int, error) {

	if _, _, err := net.SplitHostPort(hostPort); err != nil {
		return SplitHostPort(JoinHostPort(hostPort, defaultPort))
	}
	return SplitHostPort(hostPort)
}
