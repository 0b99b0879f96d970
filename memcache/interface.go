package memcache

// An item to be stored in a memcache server.
type Item struct {
	// The item's key (the key can be up to 250 bytes maximum).
	Key string

	// The item's value.  It is serialized into a tagged payload, see Encode.
	Value interface{}

	// Expiration is the cache expiration time, in seconds: either a relative
	// time from now (up to 1 month), or an absolute Unix epoch time.
	// Zero means the Item has no expiration time.
	Expiration uint32
}

// A generic response to a memcache request.
type Response interface {
	// This returns nil when no error is encountered.  Logical outcomes
	// (NotStored, NotFound, absent entries) are not errors.
	Error() error
}

// Response returned by Get requests.
type GetResponse interface {
	Response

	// This returns the requested key.
	Key() string

	// This returns true if the entry exists.  An empty value is still found.
	Found() bool

	// This returns the decoded entry.  The value is nil when the entry is not
	// found.
	Value() interface{}

	// This returns the serializer tag the entry was stored with.  The value
	// is only valid when the entry is found.
	Tag() Tag
}

// Response returned by GetMulti requests.
type MultiGetResponse interface {
	Response

	// This returns a mapping from every found key to its decoded entry.
	// Absent keys are omitted.  This is nil whenever Error() is non-nil.
	Values() map[string]interface{}
}

// Response returned by Set/Add/Replace/Delete requests.
type MutateResponse interface {
	Response

	// This returns the input key.
	Key() string

	// This returns the command's outcome, or NoResult on error.
	Status() ResultKind
}

// Response returned by Increment/Decrement requests.
type CountResponse interface {
	Response

	// This returns the input key.
	Key() string

	// This returns false if the counter does not exist.
	Found() bool

	// This returns the resulting count value.  On error or absence, this
	// returns zero.
	Count() uint64
}

// Response returned by Version request.
type VersionResponse interface {
	Response

	// This returns the memcache version entries.  The mapping is stored as:
	//      shard id -> version string
	// (If the client is unsharded, the mapping has a single entry).
	Versions() map[int]string
}

// Response returned by Stat request.
type StatResponse interface {
	Response

	// This returns the retrieved stat entries.  The mapping is stored as:
	//      shard id -> stats key -> stats value
	// (If the client is unsharded, the mapping has a single entry).
	Entries() map[int](map[string]string)
}

type Client interface {
	// This retrieves a single entry from memcache.
	Get(key string) GetResponse

	// Batch version of the Get method.  All keys are requested with a single
	// pipelined command per server.
	GetMulti(keys []string) MultiGetResponse

	// This unconditionally stores a single entry into memcache.
	Set(item *Item) MutateResponse

	// This adds a single entry into memcache.  Note: Add returns NotStored if
	// the item already exists in memcache.
	Add(item *Item) MutateResponse

	// This replaces a single entry in memcache.  Note: Replace returns
	// NotStored if the item does not exist in memcache.
	Replace(item *Item) MutateResponse

	// This deletes a single entry from memcache.
	Delete(key string) MutateResponse

	// This increments the key's counter by delta.  The counter must have been
	// stored as a uint64.  Incrementing the counter may cause it to wrap.
	Increment(key string, delta uint64) CountResponse

	// This decrements the key's counter by delta.  Decrementing a counter
	// will never result in a "negative value"; the counter is set to 0.
	Decrement(key string, delta uint64) CountResponse

	// This invalidates all existing cache items after expiration number of
	// seconds.
	Flush(expiration uint32) Response

	// This requests the server's default statistics.
	Stat() StatResponse

	// This returns the server's version string.
	Version() VersionResponse
}

// A memcache client which communicates with a specific memcache shard.
type ClientShard interface {
	Client

	// This returns the memcache server's shard id.
	ShardId() int

	// This returns true if the client is in a valid state.  If the client is
	// in invalid state, every call fails with InvalidStateError until the
	// underlying channel is replaced (see Connection.Reopen).
	IsValidState() bool
}
