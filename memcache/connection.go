package memcache

import (
	"sync"

	"github.com/dropbox/gomemcache/errors"
	"github.com/dropbox/gomemcache/net2"
)

// A memcache server endpoint.
type ServerAddress struct {
	Host string
	Port int
}

// Returns "host:port".
func (a ServerAddress) String() string {
	return net2.JoinHostPort(a.Host, a.Port)
}

// Parses "host:port".
func ParseServerAddress(hostPort string) (ServerAddress, error) {
	host, port, err := net2.SplitHostPort(hostPort)
	if err != nil {
		return ServerAddress{}, err
	}
	return ServerAddress{Host: host, Port: port}, nil
}

// A Connection owns the socket to a single memcache server, and speaks the
// ascii protocol over it.  The socket is dialed on Open, or lazily by the
// first request.  Transport and protocol errors invalidate the connection;
// every later request fails with InvalidStateError until Reopen is called.
// Connections never reconnect on their own.
type Connection struct {
	shard   int
	address ServerAddress
	options net2.ConnectionOptions

	mutex   sync.Mutex
	conn    *net2.TimeoutConn // guarded by mutex
	client  *RawAsciiClient   // guarded by mutex
	dialErr error             // guarded by mutex
	closed  bool              // guarded by mutex
}

// This creates a Connection to the given server.  No I/O is performed.
func NewConnection(
	shard int,
	address ServerAddress,
	options net2.ConnectionOptions) *Connection {

	return &Connection{
		shard:   shard,
		address: address,
		options: options,
	}
}

// This returns the server's address.
func (c *Connection) Address() ServerAddress {
	return c.address
}

// This dials the server, unless the connection is already open and valid.
// Opening a closed connection is allowed; opening an invalidated one drops
// the old socket and dials again, like Reopen.
func (c *Connection) Open() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closed = false
	if c.client != nil && c.client.IsValidState() {
		return nil
	}
	_ = c.closeLocked()
	return c.dialLocked()
}

// This closes the socket.  Requests fail with InvalidStateError until the
// connection is opened again.
func (c *Connection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closed = true
	return c.closeLocked()
}

// This closes the socket (if any) and dials the server again, resetting an
// invalidated connection.
func (c *Connection) Reopen() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_ = c.closeLocked()
	c.closed = false
	return c.dialLocked()
}

func (c *Connection) closeLocked() error {
	c.client = nil
	c.dialErr = nil
	if c.conn == nil {
		return nil
	}

	conn := c.conn
	c.conn = nil
	if err := conn.Close(); err != nil {
		return errors.Wrapf(err, "Failed to close connection to %s", c.address)
	}
	return nil
}

func (c *Connection) dialLocked() error {
	conn, err := net2.Dial("tcp", c.address.String(), c.options)
	if err != nil {
		c.dialErr = newTransportError(
			err,
			"Failed to connect to "+c.address.String())
		return c.dialErr
	}

	c.dialErr = nil
	c.conn = conn
	c.client = NewRawAsciiClient(c.shard, conn)
	return nil
}

// Returns the protocol client, dialing on first use.  A failed dial is
// reported once as a TransportError; later requests get InvalidStateError.
func (c *Connection) getClient() (*RawAsciiClient, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil, newInvalidStateError(
			errors.Newf("Connection to %s is closed", c.address))
	}
	if c.dialErr != nil {
		return nil, newInvalidStateError(c.dialErr)
	}
	if c.client == nil {
		if err := c.dialLocked(); err != nil {
			return nil, err
		}
	}
	return c.client, nil
}

func (c *Connection) ShardId() int {
	return c.shard
}

// This returns false if the connection was invalidated, failed to dial, or
// was closed.  A connection which was never opened is valid.
func (c *Connection) IsValidState() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed || c.dialErr != nil {
		return false
	}
	if c.client == nil {
		return true
	}
	return c.client.IsValidState()
}

// See Client interface for documentation.
func (c *Connection) Get(key string) GetResponse {
	if err := validateKey(key); err != nil {
		return NewGetErrorResponse(key, err)
	}

	client, err := c.getClient()
	if err != nil {
		return NewGetErrorResponse(key, err)
	}
	return client.Get(key)
}

// See Client interface for documentation.
func (c *Connection) GetMulti(keys []string) MultiGetResponse {
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return NewMultiGetErrorResponse(err)
		}
	}

	client, err := c.getClient()
	if err != nil {
		return NewMultiGetErrorResponse(err)
	}
	return client.GetMulti(keys)
}

func (c *Connection) mutate(
	mutateFunc func(*RawAsciiClient, *Item) MutateResponse,
	item *Item) MutateResponse {

	key := ""
	if item != nil {
		key = item.Key
	}

	// Validation errors take precedence over connection state.
	if _, _, err := encodeItem(item); err != nil {
		return NewMutateErrorResponse(key, err)
	}

	client, err := c.getClient()
	if err != nil {
		return NewMutateErrorResponse(key, err)
	}
	return mutateFunc(client, item)
}

// See Client interface for documentation.
func (c *Connection) Set(item *Item) MutateResponse {
	return c.mutate((*RawAsciiClient).Set, item)
}

// See Client interface for documentation.
func (c *Connection) Add(item *Item) MutateResponse {
	return c.mutate((*RawAsciiClient).Add, item)
}

// See Client interface for documentation.
func (c *Connection) Replace(item *Item) MutateResponse {
	return c.mutate((*RawAsciiClient).Replace, item)
}

// See Client interface for documentation.
func (c *Connection) Delete(key string) MutateResponse {
	if err := validateKey(key); err != nil {
		return NewMutateErrorResponse(key, err)
	}

	client, err := c.getClient()
	if err != nil {
		return NewMutateErrorResponse(key, err)
	}
	return client.Delete(key)
}

// See Client interface for documentation.
func (c *Connection) Increment(key string, delta uint64) CountResponse {
	if err := validateKey(key); err != nil {
		return NewCountErrorResponse(key, err)
	}

	client, err := c.getClient()
	if err != nil {
		return NewCountErrorResponse(key, err)
	}
	return client.Increment(key, delta)
}

// See Client interface for documentation.
func (c *Connection) Decrement(key string, delta uint64) CountResponse {
	if err := validateKey(key); err != nil {
		return NewCountErrorResponse(key, err)
	}

	client, err := c.getClient()
	if err != nil {
		return NewCountErrorResponse(key, err)
	}
	return client.Decrement(key, delta)
}

// See Client interface for documentation.
func (c *Connection) Flush(expiration uint32) Response {
	client, err := c.getClient()
	if err != nil {
		return NewErrorResponse(err)
	}
	return client.Flush(expiration)
}

// See Client interface for documentation.
func (c *Connection) Stat() StatResponse {
	client, err := c.getClient()
	if err != nil {
		return NewStatErrorResponse(err, map[int](map[string]string){})
	}
	return client.Stat()
}

// See Client interface for documentation.
func (c *Connection) Version() VersionResponse {
	client, err := c.getClient()
	if err != nil {
		return NewVersionErrorResponse(err, map[int]string{})
	}
	return client.Version()
}
