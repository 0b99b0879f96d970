package memcache

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/dropbox/gomemcache/errors"
)

// Returned when a key, item or value is rejected before any I/O happens.
type ValidationError struct {
	errors.DropboxError
}

func (e *ValidationError) Unwrap() error { return e.DropboxError }

func newValidationError(format string, args ...interface{}) error {
	return &ValidationError{errors.Newf(format, args...)}
}

// Returned when the server's reply cannot be parsed, or when the server
// answers ERROR / CLIENT_ERROR.  The connection is no longer usable.
type ProtocolError struct {
	errors.DropboxError
}

func (e *ProtocolError) Unwrap() error { return e.DropboxError }

func newProtocolError(format string, args ...interface{}) error {
	return &ProtocolError{errors.Newf(format, args...)}
}

// Returned on a SERVER_ERROR reply.  The reply stream is still in sync, so
// the connection remains usable.
type ServerError struct {
	errors.DropboxError

	// The message following SERVER_ERROR.
	Message string
}

func (e *ServerError) Unwrap() error { return e.DropboxError }

func newServerError(msg string) error {
	return &ServerError{
		DropboxError: errors.Newf("Server error: %s", msg),
		Message:      msg,
	}
}

// Returned on dial / read / write failures.  The connection is no longer
// usable.
type TransportError struct {
	errors.DropboxError
}

func (e *TransportError) Unwrap() error { return e.DropboxError }

func newTransportError(err error, msg string) error {
	return &TransportError{errors.Wrap(err, msg)}
}

// Returned by every call on a connection which was invalidated by an
// earlier error (or closed), until the connection is reopened.  The error
// that tripped the state is the only one worth reporting, so this carries
// it as its cause when known.
type InvalidStateError struct {
	errors.DropboxError
}

func (e *InvalidStateError) Unwrap() error { return e.DropboxError }

func newInvalidStateError(cause error) error {
	if cause == nil {
		return &InvalidStateError{
			errors.New("Skipping due to previous error"),
		}
	}
	return &InvalidStateError{
		errors.Wrap(cause, "Skipping due to previous error"),
	}
}

// Returned when a stored payload cannot be decoded into a value.  The reply
// stream is intact, so the connection remains usable.
type SerializationError struct {
	errors.DropboxError
}

func (e *SerializationError) Unwrap() error { return e.DropboxError }

func newSerializationError(err error, format string, args ...interface{}) error {
	if err == nil {
		return &SerializationError{errors.Newf(format, args...)}
	}
	return &SerializationError{errors.Wrapf(err, format, args...)}
}

// Returned by sharded calls when one or more shards failed.  The per shard
// errors are combined, and can be inspected with Errors().
type ShardError struct {
	errors.DropboxError

	// Sorted ids of the failing shards.
	ShardIds []int
}

func (e *ShardError) Unwrap() error { return e.DropboxError }

// This returns the individual shard errors, in ShardIds order.
func (e *ShardError) Errors() []error {
	return multierr.Errors(e.GetInner())
}

func newShardError(shardErrs map[int]error) error {
	if len(shardErrs) == 0 {
		return nil
	}

	ids := make([]int, 0, len(shardErrs))
	for id := range shardErrs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var combined error
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		combined = multierr.Append(combined, shardErrs[id])
		names = append(names, strconv.Itoa(id))
	}

	return &ShardError{
		DropboxError: errors.Wrapf(
			combined,
			"Request failed on memcache shard(s) %s",
			strings.Join(names, ", ")),
		ShardIds: ids,
	}
}

// Errors after which the connection must be reopened.
func isFatal(err error) bool {
	// An InvalidStateError wraps the error which invalidated the connection
	// earlier; it does not invalidate anything itself.
	var stateErr *InvalidStateError
	if errors.As(err, &stateErr) {
		return false
	}

	var protocolErr *ProtocolError
	var transportErr *TransportError
	return errors.As(err, &protocolErr) || errors.As(err, &transportErr)
}
