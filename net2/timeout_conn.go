package net2

import (
	"net"
	"time"

	"github.com/dropbox/gomemcache/errors"
)

// Dial's arguments.
type NetworkAddress struct {
	Network string
	Address string
}

// A net.Conn which sets a fresh deadline before every Read / Write, with
// respect to the timeouts specified in ConnectionOptions.  NOTE:
// SetDeadline, SetReadDeadline and SetWriteDeadline are disabled.
type TimeoutConn struct {
	addr    NetworkAddress
	conn    net.Conn
	options ConnectionOptions
}

// This dials (network, address) and wraps the resulting connection in a
// TimeoutConn.
func Dial(
	network string,
	address string,
	options ConnectionOptions) (*TimeoutConn, error) {

	var conn net.Conn
	var err error
	if options.Dial == nil {
		conn, err = net.DialTimeout(network, address, options.dialTimeout())
	} else {
		conn, err = options.Dial(network, address)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Dial error (%s, %s)", network, address)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok && options.TCPUserTimeout > 0 {
		if err := SetTCPUserTimeout(tcpConn, options.TCPUserTimeout); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return NewTimeoutConn(network, address, conn, options), nil
}

// This wraps an already established connection.
func NewTimeoutConn(
	network string,
	address string,
	conn net.Conn,
	options ConnectionOptions) *TimeoutConn {

	return &TimeoutConn{
		addr: NetworkAddress{
			Network: network,
			Address: address,
		},
		conn:    conn,
		options: options,
	}
}

// This returns the original (network, address) entry used for creating
// the connection.
func (c *TimeoutConn) Key() NetworkAddress {
	return c.addr
}

// This returns the underlying net.Conn implementation.
func (c *TimeoutConn) RawConn() net.Conn {
	return c.conn
}

// See net.Conn for documentation
func (c *TimeoutConn) Read(b []byte) (n int, err error) {
	if c.options.ReadTimeout > 0 {
		deadline := c.options.getCurrentTime().Add(c.options.ReadTimeout)
		_ = c.conn.SetReadDeadline(deadline)
	}
	n, err = c.conn.Read(b)
	if err != nil {
		err = errors.Wrap(err, "Read error")
	}
	return
}

// See net.Conn for documentation
func (c *TimeoutConn) Write(b []byte) (n int, err error) {
	if c.options.WriteTimeout > 0 {
		deadline := c.options.getCurrentTime().Add(c.options.WriteTimeout)
		_ = c.conn.SetWriteDeadline(deadline)
	}
	n, err = c.conn.Write(b)
	if err != nil {
		err = errors.Wrap(err, "Write error")
	}
	return
}

// See net.Conn for documentation
func (c *TimeoutConn) Close() error {
	return c.conn.Close()
}

// See net.Conn for documentation
func (c *TimeoutConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// See net.Conn for documentation
func (c *TimeoutConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline is disabled (The deadline is set by us, with respect to the
// read/write timeouts specified in ConnectionOptions).
func (c *TimeoutConn) SetDeadline(t time.Time) error {
	return errors.New("Cannot set deadline for timeout connection")
}

// SetReadDeadline is disabled (The deadline is set by us with respect to the
// read timeout specified in ConnectionOptions).
func (c *TimeoutConn) SetReadDeadline(t time.Time) error {
	return errors.New("Cannot set read deadline for timeout connection")
}

// SetWriteDeadline is disabled (The deadline is set by us with respect to
// the write timeout specified in ConnectionOptions).
func (c *TimeoutConn) SetWriteDeadline(t time.Time) error {
	return errors.New("Cannot set write deadline for timeout connection")
}
