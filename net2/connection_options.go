package net2

import (
	"net"
	"time"
)

const defaultDialTimeout = 1 * time.Second

type ConnectionOptions struct {
	// Dial specifies the dial function for creating network connections.
	// If Dial is nil, net.DialTimeout is used with DialTimeout.
	Dial func(network string, address string) (net.Conn, error)

	// The timeout for establishing a connection.  Zero means one second.
	DialTimeout time.Duration

	// This specifies the timeout for any Read() operation.
	ReadTimeout time.Duration

	// This specifies the timeout for any Write() operation.
	WriteTimeout time.Duration

	// When positive, TCP_USER_TIMEOUT is set on dialed tcp sockets (linux
	// only), bounding how long unacknowledged writes may linger.
	TCPUserTimeout time.Duration

	// This specifies the now time function.  When the function is non-nil,
	// deadlines are computed from it instead of time.Now.
	NowFunc func() time.Time
}

func (o ConnectionOptions) getCurrentTime() time.Time {
	if o.NowFunc == nil {
		return time.Now()
	}
	return o.NowFunc()
}

func (o ConnectionOptions) dialTimeout() time.Duration {
	if o.DialTimeout <= 0 {
		return defaultDialTimeout
	}
	return o.DialTimeout
}
