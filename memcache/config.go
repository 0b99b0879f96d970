package memcache

import (
	"github.com/dropbox/gomemcache/errors"
	"github.com/dropbox/gomemcache/net2"
)

// Everything needed to build a ShardedClient.
type Config struct {
	// The ordered server list.  A server's position is its shard id, so
	// reordering the list remaps keys.
	Servers []ServerAddress

	// Transport options applied to every connection.
	Options net2.ConnectionOptions

	// Defaults to ModuloShardFunc.
	ShardFunc ShardFunc

	// Dial every server up front instead of on first use.
	EagerConnect bool
}

// Checks the server list.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return errors.New("No memcache servers configured")
	}

	seen := make(map[ServerAddress]int, len(c.Servers))
	for i, server := range c.Servers {
		if server.Host == "" {
			return errors.Newf("Server %d: missing host", i)
		}
		if server.Port <= 0 || server.Port > 65535 {
			return errors.Newf("Server %d: invalid port %d", i, server.Port)
		}
		if prev, ok := seen[server]; ok {
			return errors.Newf(
				"Server %d: %s duplicates server %d",
				i,
				server,
				prev)
		}
		seen[server] = i
	}

	if c.Options.ReadTimeout < 0 || c.Options.WriteTimeout < 0 ||
		c.Options.DialTimeout < 0 {
		return errors.New("Timeouts cannot be negative")
	}

	return nil
}

func (c *Config) shardFunc() ShardFunc {
	if c.ShardFunc == nil {
		return ModuloShardFunc
	}
	return c.ShardFunc
}
