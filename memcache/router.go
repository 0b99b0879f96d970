package memcache

import (
	"github.com/cespare/xxhash/v2"
	jump "github.com/dgryski/go-jump"
)

// Maps a key to a shard id in [0, numShards).  A ShardFunc must be a pure
// function of its arguments, so that a stored key is always looked up on
// the server which stored it.  It returns -1 when the key does not map to
// any shard.
type ShardFunc func(key string, numShards int) (shard int)

// The default ShardFunc: xxhash of the key, modulo the number of shards.
func ModuloShardFunc(key string, numShards int) int {
	if numShards <= 0 {
		return -1
	}
	return int(xxhash.Sum64String(key) % uint64(numShards))
}

// A ShardFunc using jump consistent hashing over the key's xxhash.  Growing
// the pool from n to n+1 shards only remaps about 1/(n+1) of the keys.
func JumpShardFunc(key string, numShards int) int {
	if numShards <= 0 {
		return -1
	}
	return int(jump.Hash(xxhash.Sum64String(key), numShards))
}
