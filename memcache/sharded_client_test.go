package memcache

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"time"

	. "gopkg.in/check.v1"

	"github.com/dropbox/gomemcache/errors"
	. "github.com/dropbox/gomemcache/gocheck2"
	"github.com/dropbox/gomemcache/stats"
)

// An in-memory shard which records the keys it was asked for.
type fakeShard struct {
	*MockClient

	id int

	mutex     sync.Mutex
	requested [][]string
	err       error

	// When set, GetMulti waits until every shard sharing the barrier has
	// entered GetMulti.
	barrier *sync.WaitGroup
}

func newFakeShard(id int) *fakeShard {
	return &fakeShard{
		MockClient: NewMockClient(),
		id:         id,
	}
}

func (f *fakeShard) ShardId() int {
	return f.id
}

func (f *fakeShard) IsValidState() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.err == nil
}

func (f *fakeShard) GetMulti(keys []string) MultiGetResponse {
	f.mutex.Lock()
	f.requested = append(f.requested, keys)
	err := f.err
	barrier := f.barrier
	f.mutex.Unlock()

	if barrier != nil {
		barrier.Done()
		released := make(chan struct{})
		go func() {
			barrier.Wait()
			close(released)
		}()
		select {
		case <-released:
		case <-time.After(5 * time.Second):
			return NewMultiGetErrorResponse(
				errors.Newf("shard %d: other shards were never queried", f.id))
		}
	}

	if err != nil {
		return NewMultiGetErrorResponse(err)
	}
	return f.MockClient.GetMulti(keys)
}

func (f *fakeShard) Get(key string) GetResponse {
	f.mutex.Lock()
	err := f.err
	f.mutex.Unlock()

	if err != nil {
		return NewGetErrorResponse(key, err)
	}
	return f.MockClient.Get(key)
}

func (f *fakeShard) Version() VersionResponse {
	f.mutex.Lock()
	err := f.err
	f.mutex.Unlock()

	if err != nil {
		return NewVersionErrorResponse(err, map[int]string{})
	}
	return NewVersionResponse(map[int]string{f.id: "fake"})
}

// Keys starting with a digit belong to that shard; keys starting with 'x'
// belong to no shard.
func digitShardFunc(key string, numShards int) int {
	if key[0] == 'x' {
		return -1
	}
	return int(key[0]-'0') % numShards
}

type ShardedClientSuite struct {
	shards  []*fakeShard
	metrics *stats.VictoriaMetricsStatsFactory
	client  *ShardedClient
}

var _ = Suite(&ShardedClientSuite{})

func (s *ShardedClientSuite) SetUpTest(c *C) {
	s.shards = nil
	addresses := make([]ServerAddress, 4)
	connections := make([]ClientShard, 4)
	for i := 0; i < 4; i++ {
		shard := newFakeShard(i)
		s.shards = append(s.shards, shard)
		connections[i] = shard
		addresses[i] = ServerAddress{
			Host: "host" + string(rune('0'+i)),
			Port: 11211,
		}
	}

	pool := NewServerPoolWithConnections(
		addresses,
		connections,
		digitShardFunc,
		nil,
		nil)
	s.metrics = stats.NewVictoriaMetricsStatsFactory(nil)
	s.client = NewShardedClient(pool, s.metrics)
}

func (s *ShardedClientSuite) TestRouting(c *C) {
	resp := s.client.Set(&Item{Key: "2key", Value: "value"})
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Status(), Equals, Stored)

	for i, shard := range s.shards {
		c.Assert(shard.MockClient.Get("2key").Found(), Equals, i == 2)
	}

	gresp := s.client.Get("2key")
	c.Assert(gresp.Error(), IsNil)
	c.Assert(gresp.Value(), Equals, "value")

	c.Assert(s.client.Add(&Item{Key: "2key", Value: "x"}).Status(), Equals, NotStored)
	c.Assert(s.client.Replace(&Item{Key: "3key", Value: "x"}).Status(), Equals, NotStored)
	c.Assert(s.client.Delete("2key").Status(), Equals, Deleted)
	c.Assert(s.client.Delete("2key").Status(), Equals, NotFound)
}

func (s *ShardedClientSuite) TestCounters(c *C) {
	s.client.Set(&Item{Key: "1count", Value: uint64(10)})

	resp := s.client.Increment("1count", 5)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Count(), Equals, uint64(15))

	resp = s.client.Decrement("1count", 20)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Count(), Equals, uint64(0))

	c.Assert(s.client.Increment("0absent", 1).Found(), IsFalse)
}

func (s *ShardedClientSuite) TestGetMultiMerge(c *C) {
	s.client.Set(&Item{Key: "0a", Value: "a"})
	s.client.Set(&Item{Key: "1b", Value: int64(2)})
	s.client.Set(&Item{Key: "1c", Value: "c"})

	resp := s.client.GetMulti([]string{"0a", "1b", "1c", "3d"})

	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Values(), DeepEquals, map[string]interface{}{
		"0a": "a",
		"1b": int64(2),
		"1c": "c",
	})

	// Every shard is only asked for the keys it owns, in one request.
	c.Assert(s.shards[0].requested, DeepEquals, [][]string{{"0a"}})
	c.Assert(s.shards[1].requested, DeepEquals, [][]string{{"1b", "1c"}})
	c.Assert(s.shards[2].requested, IsNil)
	c.Assert(s.shards[3].requested, DeepEquals, [][]string{{"3d"}})
}

func (s *ShardedClientSuite) TestGetMultiQueriesShardsConcurrently(c *C) {
	s.client.Set(&Item{Key: "0a", Value: "a"})
	s.client.Set(&Item{Key: "1b", Value: "b"})
	s.client.Set(&Item{Key: "3c", Value: "c"})

	// Each shard blocks until all three are inside GetMulti, which only
	// happens when they are queried at the same time.
	barrier := &sync.WaitGroup{}
	barrier.Add(3)
	for _, id := range []int{0, 1, 3} {
		s.shards[id].barrier = barrier
	}

	resp := s.client.GetMulti([]string{"0a", "1b", "3c"})

	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Values(), DeepEquals, map[string]interface{}{
		"0a": "a",
		"1b": "b",
		"3c": "c",
	})
}

func (s *ShardedClientSuite) TestGetMultiShardFailure(c *C) {
	s.client.Set(&Item{Key: "0a", Value: "a"})
	s.client.Set(&Item{Key: "1b", Value: "b"})

	transportErr := newTransportError(errors.New("connection reset"), "Read error")
	s.shards[1].err = transportErr
	s.shards[3].err = newProtocolError("Unexpected reply: %q", "BOGUS")

	resp := s.client.GetMulti([]string{"0a", "1b", "3c"})

	c.Assert(resp.Values(), IsNil)

	var shardErr *ShardError
	c.Assert(resp.Error(), ErrorAs, &shardErr)
	c.Assert(shardErr.ShardIds, DeepEquals, []int{1, 3})
	c.Assert(shardErr.Errors(), HasLen, 2)
	c.Assert(shardErr.Errors()[0], Equals, transportErr)

	var asTransportErr *TransportError
	c.Assert(resp.Error(), ErrorAs, &asTransportErr)
	var asProtocolErr *ProtocolError
	c.Assert(resp.Error(), ErrorAs, &asProtocolErr)

	// Only the failing shards show up as invalidated.
	buf := &bytes.Buffer{}
	s.metrics.WritePrometheus(buf)
	c.Assert(
		strings.Contains(
			buf.String(),
			`memcache_connection_invalidations_total{addr="host1:11211"} 1`),
		IsTrue)
	c.Assert(
		strings.Contains(
			buf.String(),
			`memcache_connection_invalidations_total{addr="host0:11211"} 0`),
		IsTrue)
}

func (s *ShardedClientSuite) TestInvalidationCountedOnce(c *C) {
	addresses := []ServerAddress{{Host: "h", Port: 1}}
	// Nothing to read: the first request fails with io.EOF.
	raw := NewRawAsciiClient(0, newMockReadWriter())
	pool := NewServerPoolWithConnections(
		addresses,
		[]ClientShard{raw},
		ModuloShardFunc,
		nil,
		nil)
	client := NewShardedClient(pool, s.metrics)

	var transportErr *TransportError
	c.Assert(client.Get("a").Error(), ErrorAs, &transportErr)

	for i := 0; i < 2; i++ {
		var stateErr *InvalidStateError
		c.Assert(client.Get("a").Error(), ErrorAs, &stateErr)
	}
	c.Assert(raw.IsValidState(), IsFalse)

	buf := &bytes.Buffer{}
	s.metrics.WritePrometheus(buf)
	c.Assert(
		strings.Contains(
			buf.String(),
			`memcache_connection_invalidations_total{addr="h:1"} 1`),
		IsTrue)
	c.Assert(
		strings.Contains(
			buf.String(),
			`memcache_get_error_total{addr="h:1"} 3`),
		IsTrue)
}

func (s *ShardedClientSuite) TestGetMultiValidation(c *C) {
	resp := s.client.GetMulti([]string{"0a", "bad key"})

	var validationErr *ValidationError
	c.Assert(resp.Error(), ErrorAs, &validationErr)
	for _, shard := range s.shards {
		c.Assert(shard.requested, IsNil)
	}
}

func (s *ShardedClientSuite) TestGetMultiEmpty(c *C) {
	resp := s.client.GetMulti(nil)

	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Values(), HasLen, 0)
}

func (s *ShardedClientSuite) TestUnmappedKey(c *C) {
	c.Assert(s.client.Get("xkey").Error(), NotNil)
	c.Assert(s.client.Set(&Item{Key: "xkey", Value: "v"}).Error(), NotNil)
	c.Assert(s.client.Delete("xkey").Error(), NotNil)
	c.Assert(s.client.GetMulti([]string{"0a", "xkey"}).Error(), NotNil)
	c.Assert(s.shards[0].requested, IsNil)
}

func (s *ShardedClientSuite) TestGetStats(c *C) {
	s.client.Get("0a")
	s.client.Get("0b")
	s.shards[2].err = newTransportError(errors.New("boom"), "Read error")
	s.client.Get("2a")

	buf := &bytes.Buffer{}
	s.metrics.WritePrometheus(buf)
	out := buf.String()

	c.Assert(
		strings.Contains(out, `memcache_get_ok_total{addr="host0:11211"} 2`),
		IsTrue)
	c.Assert(
		strings.Contains(out, `memcache_get_error_total{addr="host2:11211"} 1`),
		IsTrue)
}

func (s *ShardedClientSuite) TestVersion(c *C) {
	resp := s.client.Version()
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Versions(), HasLen, 4)

	s.shards[0].err = newTransportError(errors.New("boom"), "Write error")

	resp = s.client.Version()
	var shardErr *ShardError
	c.Assert(resp.Error(), ErrorAs, &shardErr)
	c.Assert(shardErr.ShardIds, DeepEquals, []int{0})
	c.Assert(resp.Versions(), HasLen, 3)
}

func (s *ShardedClientSuite) TestFlushAndStat(c *C) {
	s.client.Set(&Item{Key: "0a", Value: "a"})
	s.client.Set(&Item{Key: "3a", Value: "a"})

	c.Assert(s.client.Flush(0).Error(), IsNil)
	c.Assert(s.client.Get("0a").Found(), IsFalse)

	resp := s.client.Stat()
	c.Assert(resp.Error(), IsNil)

	// The fake shards all report as shard 0.
	ids := []int{}
	for id := range resp.Entries() {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	c.Assert(ids, DeepEquals, []int{0})
}
