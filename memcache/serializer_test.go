package memcache

import (
	"math"

	"github.com/gogo/protobuf/proto"
	"github.com/gogo/protobuf/types"
	. "gopkg.in/check.v1"

	. "github.com/dropbox/gomemcache/gocheck2"
)

type SerializerSuite struct {
}

var _ = Suite(&SerializerSuite{})

type testRecord struct {
	Name  string
	Count int
	Tags  []string
}

type unregisteredRecord struct {
	Name string
}

func init() {
	RegisterType(testRecord{})
}

func (s *SerializerSuite) roundTrip(c *C, value interface{}, expectedTag Tag) {
	tag, payload, err := Encode(value)
	c.Assert(err, IsNil)
	c.Assert(tag, Equals, expectedTag, Commentf("value %#v", value))

	decoded, err := Decode(tag, payload)
	c.Assert(err, IsNil)
	c.Assert(decoded, DeepEquals, value)
}

func (s *SerializerSuite) TestRoundTrip(c *C) {
	s.roundTrip(c, "plain ascii", TagString)
	s.roundTrip(c, "", TagString)
	s.roundTrip(c, string([]byte{0xff, 0xfe, 'a'}), TagString)
	s.roundTrip(c, "héllo wörld", TagUnicode)
	s.roundTrip(c, "日本語", TagUnicode)
	s.roundTrip(c, []byte("raw\r\nbytes"), TagBytes)
	s.roundTrip(c, []byte{}, TagBytes)
	s.roundTrip(c, int64(0), TagInt64)
	s.roundTrip(c, int64(math.MinInt64), TagInt64)
	s.roundTrip(c, int64(math.MaxInt64), TagInt64)
	s.roundTrip(c, uint64(math.MaxUint64), TagUint64)
	s.roundTrip(c, 0.1, TagFloat64)
	s.roundTrip(c, -1e300, TagFloat64)
	s.roundTrip(c, math.Inf(1), TagFloat64)
	s.roundTrip(c, true, TagBool)
	s.roundTrip(c, false, TagBool)
	s.roundTrip(c, 12345, TagGob)
	s.roundTrip(c, int32(-7), TagGob)
	s.roundTrip(
		c,
		map[interface{}]interface{}{"piet": "blaat", 10: 20},
		TagGob)
	s.roundTrip(
		c,
		map[string]interface{}{"a": "b", "c": 1.5},
		TagGob)
	s.roundTrip(c, []interface{}{"x", 2, true}, TagGob)
	s.roundTrip(
		c,
		testRecord{Name: "name", Count: 3, Tags: []string{"a", "b"}},
		TagGob)
}

func (s *SerializerSuite) TestProtoRoundTrip(c *C) {
	msg := &types.StringValue{Value: "proto value"}

	tag, payload, err := Encode(msg)
	c.Assert(err, IsNil)
	c.Assert(tag, Equals, TagProto)

	decoded, err := Decode(tag, payload)
	c.Assert(err, IsNil)

	decodedMsg, ok := decoded.(*types.StringValue)
	c.Assert(ok, IsTrue)
	c.Assert(proto.Equal(decodedMsg, msg), IsTrue)
}

func (s *SerializerSuite) TestUnsupportedValues(c *C) {
	var validationErr *ValidationError
	var nilBytes []byte
	var nilMsg *types.StringValue

	for _, value := range []interface{}{
		nil,
		nilBytes,
		nilMsg,
		make(chan int),
		func() {},
		unregisteredRecord{Name: "x"},
	} {
		_, _, err := Encode(value)
		c.Assert(err, ErrorAs, &validationErr, Commentf("value %#v", value))
	}
}

func (s *SerializerSuite) TestCorruptPayloads(c *C) {
	var serializationErr *SerializationError

	cases := []struct {
		tag  Tag
		data string
	}{
		{TagUnicode, "\xff\xfe"},
		{TagInt64, "abc"},
		{TagUint64, "-1"},
		{TagFloat64, "1.2.3"},
		{TagBool, "2"},
		{TagGob, "not gob"},
		{TagProto, "\xff\xff\xff"},
		{numTags, "x"},
		{Tag(200), "x"},
	}

	for _, tc := range cases {
		_, err := Decode(tc.tag, []byte(tc.data))
		c.Assert(err, ErrorAs, &serializationErr, Commentf("tag %s", tc.tag))
	}
}

func (s *SerializerSuite) TestCounterPadding(c *C) {
	// decr may leave trailing spaces when the value shrinks.
	value, err := Decode(TagUint64, []byte("9 "))
	c.Assert(err, IsNil)
	c.Assert(value, Equals, uint64(9))
}

func (s *SerializerSuite) TestFlags(c *C) {
	tag, err := tagFromFlags(flagsFromTag(TagGob))
	c.Assert(err, IsNil)
	c.Assert(tag, Equals, TagGob)

	var serializationErr *SerializationError
	_, err = tagFromFlags(0x100)
	c.Assert(err, ErrorAs, &serializationErr)
	_, err = tagFromFlags(0x80000001)
	c.Assert(err, ErrorAs, &serializationErr)
}

func (s *SerializerSuite) TestTagNames(c *C) {
	c.Assert(TagString.String(), Equals, "string")
	c.Assert(TagProto.String(), Equals, "proto")
	c.Assert(Tag(42).String(), Equals, "tag(42)")
}
