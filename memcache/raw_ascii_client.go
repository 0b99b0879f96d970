package memcache

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"
)

// An unsharded memcache client implementation which operates on a pre-existing
// io channel (The user must explicitly setup and close down the channel),
// using the ascii memcache protocol.  Note that the client assumes nothing
// else is sending or receiving on the network channel.  All client
// operations are serialized (Use multiple channels / clients if parallelism
// is needed).
//
// Once a transport or protocol error occurs, the channel is considered out
// of sync and every subsequent call fails with InvalidStateError.
type RawAsciiClient struct {
	shard   int
	channel io.ReadWriter

	mutex      sync.Mutex
	validState bool
	stateErr   error
	writer     *bufio.Writer
	reader     *bufio.Reader
}

// This creates a new memcache RawAsciiClient.
func NewRawAsciiClient(shard int, channel io.ReadWriter) *RawAsciiClient {
	return &RawAsciiClient{
		shard:      shard,
		channel:    channel,
		validState: true,
		writer:     bufio.NewWriter(channel),
		reader:     bufio.NewReaderSize(channel, readBufferSize),
	}
}

func isValidKeyChar(char byte) bool {
	return (0x21 <= char && char <= 0x7e) || (0x80 <= char && char <= 0xff)
}

func validateKey(key string) error {
	if len(key) == 0 {
		return newValidationError("Invalid key: cannot be empty")
	}

	if len(key) > maxKeyLength {
		return newValidationError(
			"Invalid key: length %d longer than max length %d",
			len(key),
			maxKeyLength)
	}

	for _, char := range []byte(key) {
		if !isValidKeyChar(char) {
			return newValidationError("Invalid key: %q", key)
		}
	}

	return nil
}

// Validates and serializes an item for the storage commands.
func encodeItem(item *Item) (Tag, []byte, error) {
	if item == nil {
		return 0, nil, newValidationError("Invalid item: cannot be nil")
	}

	if err := validateKey(item.Key); err != nil {
		return 0, nil, err
	}

	tag, payload, err := Encode(item.Value)
	if err != nil {
		return 0, nil, err
	}

	if len(payload) > maxValueLength {
		return 0, nil, newValidationError(
			"Invalid value: length %d longer than max length %d",
			len(payload),
			maxValueLength)
	}

	return tag, payload, nil
}

// Must be called with the mutex held.  This returns the error to report if
// the channel is no longer usable.
func (c *RawAsciiClient) checkState() error {
	if !c.validState {
		return newInvalidStateError(c.stateErr)
	}
	return nil
}

// Records err; fatal errors invalidate the channel.  Returns err unchanged.
func (c *RawAsciiClient) track(err error) error {
	if err != nil && c.validState && isFatal(err) {
		c.validState = false
		c.stateErr = err
	}
	return err
}

func (c *RawAsciiClient) checkEmptyBuffers() error {
	if c.writer.Buffered() != 0 {
		return c.track(newProtocolError("writer buffer not fully flushed"))
	}
	if c.reader.Buffered() != 0 {
		return c.track(newProtocolError("reader buffer not fully drained"))
	}

	return nil
}

// Sends a request via send, then reads a single reply line.  Must be called
// with the mutex held.
func (c *RawAsciiClient) roundTrip(send func(w *bufio.Writer) error) (
	string,
	error) {

	if err := c.checkState(); err != nil {
		return "", err
	}

	if err := send(c.writer); err != nil {
		return "", c.track(err)
	}

	line, err := readLine(c.reader)
	if err != nil {
		return "", c.track(err)
	}

	return line, nil
}

func (c *RawAsciiClient) ShardId() int {
	return c.shard
}

func (c *RawAsciiClient) IsValidState() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.validState
}

// See Client interface for documentation.
func (c *RawAsciiClient) Get(key string) GetResponse {
	entries, err := c.getEntries([]string{key})
	if err != nil {
		return NewGetErrorResponse(key, err)
	}

	if entry, ok := entries[key]; ok {
		return NewGetResponse(key, entry.tag, entry.value)
	}
	return NewGetNotFoundResponse(key)
}

// See Client interface for documentation.
func (c *RawAsciiClient) GetMulti(keys []string) MultiGetResponse {
	entries, err := c.getEntries(keys)
	if err != nil {
		return NewMultiGetErrorResponse(err)
	}

	values := make(map[string]interface{}, len(entries))
	for key, entry := range entries {
		values[key] = entry.value
	}
	return NewMultiGetResponse(values)
}

type getEntry struct {
	tag   Tag
	value interface{}
}

// Issues a single "get k1 k2 ..." and reads values until END.  Duplicate
// keys are requested once.  A value which cannot be decoded fails the whole
// call, after the reply has been fully consumed.
func (c *RawAsciiClient) getEntries(keys []string) (map[string]getEntry, error) {
	neededKeys := make([]string, 0, len(keys))
	requested := make(map[string]bool, len(keys))
	for _, key := range keys {
		if requested[key] {
			continue
		}

		if err := validateKey(key); err != nil {
			return nil, err
		}

		requested[key] = true
		neededKeys = append(neededKeys, key)
	}

	entries := make(map[string]getEntry, len(neededKeys))
	if len(neededKeys) == 0 {
		return entries, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	line, err := c.roundTrip(func(w *bufio.Writer) error {
		return writeRetrievalCommand(w, neededKeys)
	})
	if err != nil {
		return nil, err
	}

	var decodeErr error
	for line != replyEnd {
		header, err := parseValueHeader(line)
		if err != nil {
			return nil, c.track(err)
		}

		if !requested[header.key] {
			return nil, c.track(
				newProtocolError("Unexpected key in reply: %q", line))
		}
		if _, ok := entries[header.key]; ok {
			return nil, c.track(
				newProtocolError("Duplicate key in reply: %q", line))
		}

		data, err := readValueBody(c.reader, header.size)
		if err != nil {
			return nil, c.track(err)
		}

		tag, value, err := decodeItem(header.flags, data)
		if err != nil {
			if decodeErr == nil {
				decodeErr = newSerializationError(
					err,
					"Cannot decode value of key %s",
					header.key)
			}
		} else {
			entries[header.key] = getEntry{tag: tag, value: value}
		}

		line, err = readLine(c.reader)
		if err != nil {
			return nil, c.track(err)
		}
	}

	if err := c.checkEmptyBuffers(); err != nil {
		return nil, err
	}

	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

func (c *RawAsciiClient) storeRequest(cmd string, item *Item) MutateResponse {
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

	line, err := c.roundTrip(func(w *bufio.Writer) error {
		return writeStorageCommand(
			w,
			cmd,
			item.Key,
			flagsFromTag(tag),
			item.Expiration,
			payload)
	})
	if err != nil {
		return NewMutateErrorResponse(key, err)
	}

	result, err := parseStorageReply(line)
	if err != nil {
		return NewMutateErrorResponse(key, c.track(err))
	}

	if err := c.checkEmptyBuffers(); err != nil {
		return NewMutateErrorResponse(key, err)
	}

	return NewMutateResponse(key, result)
}

// See Client interface for documentation.
func (c *RawAsciiClient) Set(item *Item) MutateResponse {
	return c.storeRequest(cmdSet, item)
}

// See Client interface for documentation.
func (c *RawAsciiClient) Add(item *Item) MutateResponse {
	return c.storeRequest(cmdAdd, item)
}

// See Client interface for documentation.
func (c *RawAsciiClient) Replace(item *Item) MutateResponse {
	return c.storeRequest(cmdReplace, item)
}

// See Client interface for documentation.
func (c *RawAsciiClient) Delete(key string) MutateResponse {
	if err := validateKey(key); err != nil {
		return NewMutateErrorResponse(key, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	line, err := c.roundTrip(func(w *bufio.Writer) error {
		return writeDeleteCommand(w, key)
	})
	if err != nil {
		return NewMutateErrorResponse(key, err)
	}

	result, err := parseDeleteReply(line)
	if err != nil {
		return NewMutateErrorResponse(key, c.track(err))
	}

	if err := c.checkEmptyBuffers(); err != nil {
		return NewMutateErrorResponse(key, err)
	}

	return NewMutateResponse(key, result)
}

func (c *RawAsciiClient) countRequest(
	cmd string,
	key string,
	delta uint64) CountResponse {

	if err := validateKey(key); err != nil {
		return NewCountErrorResponse(key, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	line, err := c.roundTrip(func(w *bufio.Writer) error {
		return writeArithmeticCommand(w, cmd, key, delta)
	})
	if err != nil {
		return NewCountErrorResponse(key, err)
	}

	count, found, err := parseArithmeticReply(line)
	if err != nil {
		return NewCountErrorResponse(key, c.track(err))
	}

	if err := c.checkEmptyBuffers(); err != nil {
		return NewCountErrorResponse(key, err)
	}

	if !found {
		return NewCountNotFoundResponse(key)
	}
	return NewCountResponse(key, count)
}

// See Client interface for documentation.
func (c *RawAsciiClient) Increment(key string, delta uint64) CountResponse {
	return c.countRequest(cmdIncr, key, delta)
}

// See Client interface for documentation.
func (c *RawAsciiClient) Decrement(key string, delta uint64) CountResponse {
	return c.countRequest(cmdDecr, key, delta)
}

// See Client interface for documentation.
func (c *RawAsciiClient) Flush(expiration uint32) Response {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	line, err := c.roundTrip(func(w *bufio.Writer) error {
		return writeSimpleCommand(
			w,
			"flush_all",
			strconv.FormatUint(uint64(expiration), 10))
	})
	if err != nil {
		return NewErrorResponse(err)
	}

	if line != replyOk {
		return NewErrorResponse(c.track(unexpectedReply(line)))
	}

	if err := c.checkEmptyBuffers(); err != nil {
		return NewErrorResponse(err)
	}

	return NewResponse()
}

// See Client interface for documentation.
func (c *RawAsciiClient) Stat() StatResponse {
	shardEntries := make(map[int](map[string]string))
	entries := make(map[string]string)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	line, err := c.roundTrip(func(w *bufio.Writer) error {
		return writeSimpleCommand(w, "stats")
	})
	if err != nil {
		return NewStatErrorResponse(err, shardEntries)
	}

	for line != replyEnd {
		// line is of the form: STAT <key> <value>
		slice := strings.SplitN(line, " ", 3)
		if len(slice) != 3 || slice[0] != replyStat {
			return NewStatErrorResponse(
				c.track(unexpectedReply(line)),
				shardEntries)
		}

		entries[slice[1]] = slice[2]

		line, err = readLine(c.reader)
		if err != nil {
			return NewStatErrorResponse(c.track(err), shardEntries)
		}
	}

	if err := c.checkEmptyBuffers(); err != nil {
		return NewStatErrorResponse(err, shardEntries)
	}

	shardEntries[c.ShardId()] = entries
	return NewStatResponse(shardEntries)
}

// See Client interface for documentation.
func (c *RawAsciiClient) Version() VersionResponse {
	versions := make(map[int]string, 1)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	line, err := c.roundTrip(func(w *bufio.Writer) error {
		return writeSimpleCommand(w, "version")
	})
	if err != nil {
		return NewVersionErrorResponse(err, versions)
	}

	if !strings.HasPrefix(line, replyVersion+" ") {
		return NewVersionErrorResponse(
			c.track(unexpectedReply(line)),
			versions)
	}

	if err := c.checkEmptyBuffers(); err != nil {
		return NewVersionErrorResponse(err, versions)
	}

	versions[c.ShardId()] = line[len(replyVersion)+1:]
	return NewVersionResponse(versions)
}
