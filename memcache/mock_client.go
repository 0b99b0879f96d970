package memcache

import (
	"strconv"
	"sync"
)

type mockEntry struct {
	tag        Tag
	payload    []byte
	expiration uint32
}

// An in-memory Client for application unit tests.  Values go through the
// same serializer as the real client, so a value read back has exactly the
// type a server round trip would produce.  Expiration is recorded but never
// enforced.
type MockClient struct {
	data  map[string]*mockEntry
	mutex sync.Mutex
}

func NewMockClient() *MockClient {
	return &MockClient{data: make(map[string]*mockEntry)}
}

func (c *MockClient) getHelper(key string) (Tag, interface{}, bool, error) {
	entry, ok := c.data[key]
	if !ok {
		return 0, nil, false, nil
	}

	value, err := Decode(entry.tag, entry.payload)
	if err != nil {
		return 0, nil, false, err
	}
	return entry.tag, value, true, nil
}

// See Client interface for documentation.
func (c *MockClient) Get(key string) GetResponse {
	if err := validateKey(key); err != nil {
		return NewGetErrorResponse(key, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	tag, value, found, err := c.getHelper(key)
	if err != nil {
		return NewGetErrorResponse(key, err)
	}
	if !found {
		return NewGetNotFoundResponse(key)
	}
	return NewGetResponse(key, tag, value)
}

// See Client interface for documentation.
func (c *MockClient) GetMulti(keys []string) MultiGetResponse {
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return NewMultiGetErrorResponse(err)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	values := make(map[string]interface{})
	for _, key := range keys {
		_, value, found, err := c.getHelper(key)
		if err != nil {
			return NewMultiGetErrorResponse(err)
		}
		if found {
			values[key] = value
		}
	}
	return NewMultiGetResponse(values)
}

// Stores item when shouldStore approves of the key's current presence.
func (c *MockClient) storeHelper(
	item *Item,
	shouldStore func(exists bool) bool) MutateResponse {

	key := ""
	if item != nil {
		key = item.Key
	}

	tag, payload, err := encodeItem(item)
	if err != nil {
		return NewMutateErrorResponse(key, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, exists := c.data[key]
	if !shouldStore(exists) {
		return NewMutateResponse(key, NotStored)
	}

	c.data[key] = &mockEntry{
		tag:        tag,
		payload:    payload,
		expiration: item.Expiration,
	}
	return NewMutateResponse(key, Stored)
}

// See Client interface for documentation.
func (c *MockClient) Set(item *Item) MutateResponse {
	return c.storeHelper(item, func(bool) bool { return true })
}

// See Client interface for documentation.
func (c *MockClient) Add(item *Item) MutateResponse {
	return c.storeHelper(item, func(exists bool) bool { return !exists })
}

// See Client interface for documentation.
func (c *MockClient) Replace(item *Item) MutateResponse {
	return c.storeHelper(item, func(exists bool) bool { return exists })
}

// See Client interface for documentation.
func (c *MockClient) Delete(key string) MutateResponse {
	if err := validateKey(key); err != nil {
		return NewMutateErrorResponse(key, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, ok := c.data[key]; !ok {
		return NewMutateResponse(key, NotFound)
	}
	delete(c.data, key)
	return NewMutateResponse(key, Deleted)
}

func (c *MockClient) incDecHelper(
	key string,
	delta uint64,
	increment bool) CountResponse {

	if err := validateKey(key); err != nil {
		return NewCountErrorResponse(key, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return NewCountNotFoundResponse(key)
	}

	count, err := strconv.ParseUint(string(entry.payload), 10, 64)
	if err != nil {
		return NewCountErrorResponse(
			key,
			newProtocolError(
				"Client error: cannot increment or decrement non-numeric value"))
	}

	if increment {
		count += delta
	} else if delta > count {
		count = 0
	} else {
		count -= delta
	}

	entry.payload = strconv.AppendUint(nil, count, 10)
	return NewCountResponse(key, count)
}

// See Client interface for documentation.
func (c *MockClient) Increment(key string, delta uint64) CountResponse {
	return c.incDecHelper(key, delta, true)
}

// See Client interface for documentation.
func (c *MockClient) Decrement(key string, delta uint64) CountResponse {
	return c.incDecHelper(key, delta, false)
}

// See Client interface for documentation.  The expiration is ignored; all
// entries are dropped immediately.
func (c *MockClient) Flush(expiration uint32) Response {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*mockEntry)
	return NewResponse()
}

// See Client interface for documentation.
func (c *MockClient) Stat() StatResponse {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return NewStatResponse(map[int](map[string]string){
		0: {"curr_items": strconv.Itoa(len(c.data))},
	})
}

// See Client interface for documentation.
func (c *MockClient) Version() VersionResponse {
	return NewVersionResponse(map[int]string{0: "MockMemcachedServer"})
}
