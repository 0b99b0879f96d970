package memcache

import (
	. "gopkg.in/check.v1"

	. "github.com/dropbox/gomemcache/gocheck2"
)

type MockClientSuite struct {
	client *MockClient
}

var _ = Suite(&MockClientSuite{})

func (s *MockClientSuite) SetUpTest(c *C) {
	s.client = NewMockClient()
}

func (s *MockClientSuite) TestAddSimple(c *C) {
	item := createTestItem()

	resp := s.client.Add(item)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Key(), Equals, item.Key)
	c.Assert(resp.Status(), Equals, Stored)

	gresp := s.client.Get(item.Key)
	c.Assert(gresp.Error(), IsNil)
	c.Assert(gresp.Found(), IsTrue)
	c.Assert(gresp.Value(), Equals, item.Value)
	c.Assert(gresp.Tag(), Equals, TagString)
}

func (s *MockClientSuite) TestAddExists(c *C) {
	item := createTestItem()

	resp := s.client.Add(item)
	c.Assert(resp.Status(), Equals, Stored)

	resp = s.client.Add(&Item{Key: item.Key, Value: "other"})
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Status(), Equals, NotStored)

	gresp := s.client.Get(item.Key)
	c.Assert(gresp.Value(), Equals, item.Value)
}

func (s *MockClientSuite) TestReplace(c *C) {
	resp := s.client.Replace(&Item{Key: "key", Value: "v1"})
	c.Assert(resp.Status(), Equals, NotStored)
	c.Assert(s.client.Get("key").Found(), IsFalse)

	c.Assert(s.client.Set(&Item{Key: "key", Value: "v1"}).Status(), Equals, Stored)

	resp = s.client.Replace(&Item{Key: "key", Value: "v2"})
	c.Assert(resp.Status(), Equals, Stored)
	c.Assert(s.client.Get("key").Value(), Equals, "v2")
}

func (s *MockClientSuite) TestDelete(c *C) {
	c.Assert(s.client.Delete("key").Status(), Equals, NotFound)

	s.client.Set(&Item{Key: "key", Value: ""})
	c.Assert(s.client.Get("key").Found(), IsTrue)

	c.Assert(s.client.Delete("key").Status(), Equals, Deleted)
	c.Assert(s.client.Get("key").Found(), IsFalse)
}

func (s *MockClientSuite) TestGetMulti(c *C) {
	s.client.Set(&Item{Key: "a", Value: int64(1)})
	s.client.Set(&Item{Key: "b", Value: []byte("two")})

	resp := s.client.GetMulti([]string{"a", "b", "c", "a"})
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Values(), DeepEquals, map[string]interface{}{
		"a": int64(1),
		"b": []byte("two"),
	})
}

func (s *MockClientSuite) TestInvalidInput(c *C) {
	var validationErr *ValidationError

	c.Assert(s.client.Set(nil).Error(), ErrorAs, &validationErr)
	c.Assert(
		s.client.Set(&Item{Key: "bad key", Value: "v"}).Error(),
		ErrorAs,
		&validationErr)
	c.Assert(
		s.client.Set(&Item{Key: "key", Value: make(chan int)}).Error(),
		ErrorAs,
		&validationErr)
	c.Assert(
		s.client.GetMulti([]string{"ok", ""}).Error(),
		ErrorAs,
		&validationErr)
}

func (s *MockClientSuite) TestIncSimple(c *C) {
	resp := s.client.Increment("test", 5)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Found(), IsFalse)

	s.client.Set(&Item{Key: "test", Value: uint64(10)})

	resp = s.client.Increment("test", 5)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Key(), Equals, "test")
	c.Assert(resp.Found(), IsTrue)
	c.Assert(resp.Count(), Equals, uint64(15))

	c.Assert(s.client.Get("test").Value(), Equals, uint64(15))
}

func (s *MockClientSuite) TestDecSimple(c *C) {
	s.client.Set(&Item{Key: "test2", Value: uint64(10)})

	resp := s.client.Decrement("test2", 5)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Count(), Equals, uint64(5))

	// Decrementing never goes below zero.
	resp = s.client.Decrement("test2", 50)
	c.Assert(resp.Error(), IsNil)
	c.Assert(resp.Count(), Equals, uint64(0))
}

func (s *MockClientSuite) TestIncNonNumeric(c *C) {
	s.client.Set(&Item{Key: "text", Value: "abc"})

	resp := s.client.Increment("text", 1)
	c.Assert(resp.Error(), NotNil)
	c.Assert(resp.Found(), IsFalse)
}

func (s *MockClientSuite) TestFlush(c *C) {
	s.client.Set(createTestItem())
	c.Assert(s.client.Flush(0).Error(), IsNil)
	c.Assert(s.client.Get(createTestItem().Key).Found(), IsFalse)
	c.Assert(s.client.Stat().Entries()[0]["curr_items"], Equals, "0")
	c.Assert(s.client.Version().Versions(), HasKey, 0)
}
