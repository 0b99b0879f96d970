package memcache

const (
	// Keys longer than this are rejected before reaching the wire.
	maxKeyLength = 250

	// memcached's default item size limit.
	maxValueLength = 1024 * 1024

	// Longest reply line the reader buffers; a longer line is a protocol
	// error.
	readBufferSize = 4096
)

//
// Result kinds
//

// The outcome of a mutating command.  Logical outcomes are not errors.
type ResultKind int

const (
	// Set on responses which carry an error.
	NoResult ResultKind = iota
	Stored
	NotStored
	Deleted
	NotFound
)

func (r ResultKind) String() string {
	switch r {
	case Stored:
		return "Stored"
	case NotStored:
		return "NotStored"
	case Deleted:
		return "Deleted"
	case NotFound:
		return "NotFound"
	default:
		return "NoResult"
	}
}

//
// Protocol commands & reply tokens
//

const (
	cmdSet     = "set"
	cmdAdd     = "add"
	cmdReplace = "replace"
	cmdIncr    = "incr"
	cmdDecr    = "decr"

	replyStored      = "STORED"
	replyNotStored   = "NOT_STORED"
	replyExists      = "EXISTS"
	replyNotFound    = "NOT_FOUND"
	replyDeleted     = "DELETED"
	replyEnd         = "END"
	replyOk          = "OK"
	replyValue       = "VALUE"
	replyStat        = "STAT"
	replyVersion     = "VERSION"
	replyError       = "ERROR"
	replyClientError = "CLIENT_ERROR"
	replyServerError = "SERVER_ERROR"
)
