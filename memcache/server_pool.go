package memcache

import (
	"fmt"

	"github.com/dropbox/gomemcache/dlog"
	"github.com/dropbox/gomemcache/errors"
)

var poolLog = dlog.New("memcache")

// Logger returns the logger used by pools built with NewServerPool.
func Logger() *dlog.Logger {
	return poolLog
}

// Used for returning shard mapping results from ServerPool's
// GetShardsForKeys calls.
type ShardMapping struct {
	Connection ClientShard
	Keys       []string
}

// An ordered, fixed set of server connections, one per configured server.
// The set of servers never changes after construction, so no locking is
// needed to route keys.
type ServerPool struct {
	getShardId  ShardFunc
	connections []ClientShard
	addresses   []ServerAddress

	logError func(err error)
	logInfo  func(v ...interface{})
}

// This creates a ServerPool with a Connection per configured server.  When
// config.EagerConnect is set, every server is dialed; dial failures are
// logged, and surface as errors on first use of the affected shard.
func NewServerPool(config Config) (*ServerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	connections := make([]ClientShard, len(config.Servers))
	for i, server := range config.Servers {
		connections[i] = NewConnection(i, server, config.Options)
	}

	pool := NewServerPoolWithConnections(
		config.Servers,
		connections,
		config.shardFunc(),
		func(err error) { poolLog.Errorf("%s", errors.GetMessage(err)) },
		func(v ...interface{}) { poolLog.Infof("%s", fmt.Sprint(v...)) })

	if config.EagerConnect {
		for i, conn := range connections {
			if err := conn.(*Connection).Open(); err != nil {
				pool.logError(errors.Wrapf(
					err,
					"Memcache shard %d (%s) unavailable",
					i,
					config.Servers[i]))
			}
		}
	}

	pool.logInfo("Memcache pool initialized with ", len(connections), " shard(s)")
	return pool, nil
}

// This creates a ServerPool over existing shard clients.  connections[i]
// serves shard i, and its ShardId() must be i.
func NewServerPoolWithConnections(
	addresses []ServerAddress,
	connections []ClientShard,
	shardFunc ShardFunc,
	logError func(err error),
	logInfo func(v ...interface{})) *ServerPool {

	if shardFunc == nil {
		shardFunc = ModuloShardFunc
	}
	if logError == nil {
		logError = func(err error) {}
	}
	if logInfo == nil {
		logInfo = func(v ...interface{}) {}
	}

	return &ServerPool{
		getShardId:  shardFunc,
		connections: connections,
		addresses:   addresses,
		logError:    logError,
		logInfo:     logInfo,
	}
}

// This returns the number of shards.
func (p *ServerPool) NumShards() int {
	return len(p.connections)
}

// This returns the server address of a shard.
func (p *ServerPool) Address(shardId int) ServerAddress {
	if shardId < 0 || shardId >= len(p.addresses) {
		return ServerAddress{}
	}
	return p.addresses[shardId]
}

// This returns the shard id and the connection for a single key.  If the key
// does not belong to any shard, this returns (-1, nil).
func (p *ServerPool) GetShard(key string) (shardId int, conn ClientShard) {
	shardId = p.getShardId(key, len(p.connections))
	if shardId < 0 || shardId >= len(p.connections) {
		return -1, nil
	}
	return shardId, p.connections[shardId]
}

// This returns a (shard id -> (connection, list of keys)) mapping for the
// requested keys.  Keys that do not belong to any shard are mapped to shard
// id -1 with a nil connection.  Every key appears in exactly one mapping.
func (p *ServerPool) GetShardsForKeys(keys []string) map[int]*ShardMapping {
	results := make(map[int]*ShardMapping)

	for _, key := range keys {
		shardId, conn := p.GetShard(key)

		entry, inMap := results[shardId]
		if !inMap {
			entry = &ShardMapping{
				Connection: conn,
				Keys:       make([]string, 0, 1),
			}
			results[shardId] = entry
		}
		entry.Keys = append(entry.Keys, key)
	}

	return results
}

// This returns a (shard id -> connection) mapping for all shards.
func (p *ServerPool) GetAllShards() map[int]ClientShard {
	results := make(map[int]ClientShard, len(p.connections))
	for i, conn := range p.connections {
		results[i] = conn
	}
	return results
}

// This reopens every invalidated Connection in the pool.  Failures are
// logged and combined into the returned error.
func (p *ServerPool) ReopenInvalid() error {
	shardErrs := make(map[int]error)
	for i, shard := range p.connections {
		conn, ok := shard.(*Connection)
		if !ok || conn.IsValidState() {
			continue
		}

		p.logInfo("Reopening memcache shard ", i, " (", p.Address(i), ")")
		if err := conn.Reopen(); err != nil {
			p.logError(err)
			shardErrs[i] = err
		}
	}
	return newShardError(shardErrs)
}

// This closes every Connection in the pool.
func (p *ServerPool) Close() error {
	shardErrs := make(map[int]error)
	for i, shard := range p.connections {
		if conn, ok := shard.(*Connection); ok {
			if err := conn.Close(); err != nil {
				shardErrs[i] = err
			}
		}
	}
	return newShardError(shardErrs)
}
