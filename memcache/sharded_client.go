package memcache

import (
	"time"

	"github.com/dropbox/gomemcache/errors"
	"github.com/dropbox/gomemcache/stats"
)

// A sharded memcache client implementation where sharding management is
// handled by the provided ServerPool.  Single key requests are delegated to
// the owning shard's connection.  GetMulti fans out to every shard involved
// concurrently and fails as a whole if any shard fails.
type ShardedClient struct {
	pool *ServerPool

	getOk         map[int]stats.CounterStat
	getErr        map[int]stats.CounterStat
	invalidations map[int]stats.CounterStat

	getMultiLatency stats.SummaryStat
	getMultiShards  stats.SummaryStat
	inflight        stats.GaugeStat
}

// This creates a new ShardedClient.  When statsFactory is nil, no stats are
// reported.
func NewShardedClient(
	pool *ServerPool,
	statsFactory stats.StatsFactory) *ShardedClient {

	if statsFactory == nil {
		statsFactory = stats.NoOpStatsFactory
	}

	c := &ShardedClient{
		pool:          pool,
		getOk:         make(map[int]stats.CounterStat),
		getErr:        make(map[int]stats.CounterStat),
		invalidations: make(map[int]stats.CounterStat),
		getMultiLatency: statsFactory.NewSummary(
			"memcache_getmulti_duration_seconds",
			nil),
		getMultiShards: statsFactory.NewSummary(
			"memcache_getmulti_shards",
			nil),
		inflight: statsFactory.NewGauge("memcache_requests_inflight", nil),
	}

	for shard := 0; shard < pool.NumShards(); shard++ {
		tags := map[string]string{"addr": pool.Address(shard).String()}
		c.getOk[shard] = statsFactory.NewCounter("memcache_get_ok_total", tags)
		c.getErr[shard] = statsFactory.NewCounter("memcache_get_error_total", tags)
		c.invalidations[shard] = statsFactory.NewCounter(
			"memcache_connection_invalidations_total",
			tags)
	}

	return c
}

// This creates a ServerPool from config and a ShardedClient over it.
func NewShardedClientFromConfig(
	config Config,
	statsFactory stats.StatsFactory) (*ShardedClient, error) {

	pool, err := NewServerPool(config)
	if err != nil {
		return nil, err
	}
	return NewShardedClient(pool, statsFactory), nil
}

// This returns the client's server pool.
func (c *ShardedClient) Pool() *ServerPool {
	return c.pool
}

// This closes every connection of the pool.
func (c *ShardedClient) Close() error {
	return c.pool.Close()
}

func (c *ShardedClient) unmappedError(key string) error {
	return errors.Newf("Key '%s' does not map to any memcache shard", key)
}

// Records the outcome of a request on shard.
func (c *ShardedClient) record(shard int, isGet bool, err error) {
	if isGet {
		if err == nil {
			c.getOk[shard].Inc()
		} else {
			c.getErr[shard].Inc()
		}
	}

	if err != nil && isFatal(err) {
		c.invalidations[shard].Inc()
		c.pool.logError(errors.Wrapf(
			err,
			"Memcache shard %d (%s) invalidated",
			shard,
			c.pool.Address(shard)))
	}
}

// See Client interface for documentation.
func (c *ShardedClient) Get(key string) GetResponse {
	if err := validateKey(key); err != nil {
		return NewGetErrorResponse(key, err)
	}

	shard, conn := c.pool.GetShard(key)
	if conn == nil {
		return NewGetErrorResponse(key, c.unmappedError(key))
	}

	c.inflight.Inc()
	defer c.inflight.Dec()

	result := conn.Get(key)
	c.record(shard, true, result.Error())
	return result
}

type shardGetResult struct {
	shard    int
	response MultiGetResponse
}

func (c *ShardedClient) getMultiHelper(
	shard int,
	conn ClientShard,
	keys []string,
	resultsChannel chan shardGetResult) {

	response := conn.GetMulti(keys)
	c.record(shard, true, response.Error())
	resultsChannel <- shardGetResult{shard: shard, response: response}
}

// See Client interface for documentation.  Keys are grouped by shard, and
// each shard involved is queried concurrently with a single request.  If any
// shard fails, the call fails with a ShardError and no values are returned.
func (c *ShardedClient) GetMulti(keys []string) MultiGetResponse {
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return NewMultiGetErrorResponse(err)
		}
	}

	shardMapping := c.pool.GetShardsForKeys(keys)
	if mapping, ok := shardMapping[-1]; ok {
		return NewMultiGetErrorResponse(c.unmappedError(mapping.Keys[0]))
	}

	start := time.Now()
	c.inflight.Inc()
	defer func() {
		c.inflight.Dec()
		c.getMultiLatency.Observe(time.Since(start).Seconds())
		c.getMultiShards.Observe(float64(len(shardMapping)))
	}()

	resultsChannel := make(chan shardGetResult, len(shardMapping))
	for shard, mapping := range shardMapping {
		go c.getMultiHelper(shard, mapping.Connection, mapping.Keys, resultsChannel)
	}

	values := make(map[string]interface{}, len(keys))
	shardErrs := make(map[int]error)
	for i := 0; i < len(shardMapping); i++ {
		result := <-resultsChannel
		if err := result.response.Error(); err != nil {
			shardErrs[result.shard] = err
			continue
		}
		for key, value := range result.response.Values() {
			values[key] = value
		}
	}

	if len(shardErrs) > 0 {
		return NewMultiGetErrorResponse(newShardError(shardErrs))
	}
	return NewMultiGetResponse(values)
}

func (c *ShardedClient) mutate(
	mutateFunc func(Client, *Item) MutateResponse,
	item *Item) MutateResponse {

	if item == nil {
		return NewMutateErrorResponse(
			"",
			newValidationError("Invalid item: cannot be nil"))
	}

	if err := validateKey(item.Key); err != nil {
		return NewMutateErrorResponse(item.Key, err)
	}

	shard, conn := c.pool.GetShard(item.Key)
	if conn == nil {
		return NewMutateErrorResponse(item.Key, c.unmappedError(item.Key))
	}

	c.inflight.Inc()
	defer c.inflight.Dec()

	result := mutateFunc(conn, item)
	c.record(shard, false, result.Error())
	return result
}

// A helper used to specify a set mutation operation on a shard client.
func setMutator(shardClient Client, shardItem *Item) MutateResponse {
	return shardClient.Set(shardItem)
}

// See Client interface for documentation.
func (c *ShardedClient) Set(item *Item) MutateResponse {
	return c.mutate(setMutator, item)
}

// A helper used to specify a add mutation operation on a shard client.
func addMutator(shardClient Client, shardItem *Item) MutateResponse {
	return shardClient.Add(shardItem)
}

// See Client interface for documentation.
func (c *ShardedClient) Add(item *Item) MutateResponse {
	return c.mutate(addMutator, item)
}

// A helper used to specify a replace mutation operation on a shard client.
func replaceMutator(shardClient Client, shardItem *Item) MutateResponse {
	return shardClient.Replace(shardItem)
}

// See Client interface for documentation.
func (c *ShardedClient) Replace(item *Item) MutateResponse {
	return c.mutate(replaceMutator, item)
}

// See Client interface for documentation.
func (c *ShardedClient) Delete(key string) MutateResponse {
	if err := validateKey(key); err != nil {
		return NewMutateErrorResponse(key, err)
	}

	shard, conn := c.pool.GetShard(key)
	if conn == nil {
		return NewMutateErrorResponse(key, c.unmappedError(key))
	}

	c.inflight.Inc()
	defer c.inflight.Dec()

	result := conn.Delete(key)
	c.record(shard, false, result.Error())
	return result
}

func (c *ShardedClient) count(
	countFunc func(Client, string, uint64) CountResponse,
	key string,
	delta uint64) CountResponse {

	if err := validateKey(key); err != nil {
		return NewCountErrorResponse(key, err)
	}

	shard, conn := c.pool.GetShard(key)
	if conn == nil {
		return NewCountErrorResponse(key, c.unmappedError(key))
	}

	c.inflight.Inc()
	defer c.inflight.Dec()

	result := countFunc(conn, key, delta)
	c.record(shard, false, result.Error())
	return result
}

// See Client interface for documentation.
func (c *ShardedClient) Increment(key string, delta uint64) CountResponse {
	return c.count(Client.Increment, key, delta)
}

// See Client interface for documentation.
func (c *ShardedClient) Decrement(key string, delta uint64) CountResponse {
	return c.count(Client.Decrement, key, delta)
}

// See Client interface for documentation.  Every shard is flushed, even if
// some fail.
func (c *ShardedClient) Flush(expiration uint32) Response {
	shardErrs := make(map[int]error)
	for shard, conn := range c.pool.GetAllShards() {
		response := conn.Flush(expiration)
		if err := response.Error(); err != nil {
			c.record(shard, false, err)
			shardErrs[shard] = err
		}
	}

	if len(shardErrs) > 0 {
		return NewErrorResponse(newShardError(shardErrs))
	}
	return NewResponse()
}

// See Client interface for documentation.  Entries of the shards which
// answered are returned even if other shards fail.
func (c *ShardedClient) Stat() StatResponse {
	statEntries := make(map[int](map[string]string))
	shardErrs := make(map[int]error)
	for shard, conn := range c.pool.GetAllShards() {
		response := conn.Stat()
		if err := response.Error(); err != nil {
			c.record(shard, false, err)
			shardErrs[shard] = err
			continue
		}

		for shardId, entries := range response.Entries() {
			statEntries[shardId] = entries
		}
	}

	if len(shardErrs) > 0 {
		return NewStatErrorResponse(newShardError(shardErrs), statEntries)
	}
	return NewStatResponse(statEntries)
}

// See Client interface for documentation.  Versions of the shards which
// answered are returned even if other shards fail.
func (c *ShardedClient) Version() VersionResponse {
	versions := make(map[int]string)
	shardErrs := make(map[int]error)
	for shard, conn := range c.pool.GetAllShards() {
		response := conn.Version()
		if err := response.Error(); err != nil {
			c.record(shard, false, err)
			shardErrs[shard] = err
			continue
		}

		for shardId, version := range response.Versions() {
			versions[shardId] = version
		}
	}

	if len(shardErrs) > 0 {
		return NewVersionErrorResponse(newShardError(shardErrs), versions)
	}
	return NewVersionResponse(versions)
}
