package memcache

import (
	"strconv"

	. "gopkg.in/check.v1"

	. "github.com/dropbox/gomemcache/gocheck2"
)

type RouterSuite struct {
}

var _ = Suite(&RouterSuite{})

func (s *RouterSuite) TestStable(c *C) {
	for _, shardFunc := range []ShardFunc{ModuloShardFunc, JumpShardFunc} {
		for i := 0; i < 1000; i++ {
			key := "key" + strconv.Itoa(i)
			shard := shardFunc(key, 4)
			c.Assert(shard >= 0 && shard < 4, IsTrue)
			for j := 0; j < 3; j++ {
				c.Assert(shardFunc(key, 4), Equals, shard)
			}
		}
	}
}

func (s *RouterSuite) TestNoShards(c *C) {
	c.Assert(ModuloShardFunc("key", 0), Equals, -1)
	c.Assert(JumpShardFunc("key", 0), Equals, -1)
	c.Assert(ModuloShardFunc("key", -1), Equals, -1)
	c.Assert(ModuloShardFunc("key", 1), Equals, 0)
	c.Assert(JumpShardFunc("key", 1), Equals, 0)
}

func (s *RouterSuite) TestSpread(c *C) {
	for _, shardFunc := range []ShardFunc{ModuloShardFunc, JumpShardFunc} {
		counts := make([]int, 4)
		for i := 0; i < 4000; i++ {
			counts[shardFunc("key"+strconv.Itoa(i), 4)]++
		}
		for _, count := range counts {
			c.Assert(count > 800 && count < 1200, IsTrue, Commentf("%v", counts))
		}
	}
}

func (s *RouterSuite) TestJumpMinimalRemap(c *C) {
	for i := 0; i < 1000; i++ {
		key := "key" + strconv.Itoa(i)
		before := JumpShardFunc(key, 4)
		after := JumpShardFunc(key, 5)
		// Keys only ever move to the new shard.
		c.Assert(after == before || after == 4, IsTrue)
	}
}
