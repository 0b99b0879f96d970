package memcache

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

var crlf = []byte("\r\n")

// Header of a single entry in a retrieval reply.
type valueHeader struct {
	key   string
	flags uint32
	size  int
}

func writeStrings(w *bufio.Writer, strs ...string) error {
	for _, str := range strs {
		if _, err := w.WriteString(str); err != nil {
			return newTransportError(err, "Write error")
		}
	}
	return nil
}

func flush(w *bufio.Writer) error {
	if err := w.Flush(); err != nil {
		return newTransportError(err, "Write error")
	}
	return nil
}

// <cmd> <key> <flags> <exptime> <bytes>\r\n<payload>\r\n
func writeStorageCommand(
	w *bufio.Writer,
	cmd string,
	key string,
	flags uint32,
	expiration uint32,
	payload []byte) error {

	err := writeStrings(
		w,
		cmd, " ",
		key, " ",
		strconv.FormatUint(uint64(flags), 10), " ",
		strconv.FormatUint(uint64(expiration), 10), " ",
		strconv.Itoa(len(payload)),
		"\r\n")
	if err != nil {
		return err
	}

	if _, err = w.Write(payload); err != nil {
		return newTransportError(err, "Write error")
	}

	if err = writeStrings(w, "\r\n"); err != nil {
		return err
	}
	return flush(w)
}

// get <k1> <k2> ...\r\n
func writeRetrievalCommand(w *bufio.Writer, keys []string) error {
	if err := writeStrings(w, "get"); err != nil {
		return err
	}
	for _, key := range keys {
		if err := writeStrings(w, " ", key); err != nil {
			return err
		}
	}
	if err := writeStrings(w, "\r\n"); err != nil {
		return err
	}
	return flush(w)
}

// delete <key>\r\n
func writeDeleteCommand(w *bufio.Writer, key string) error {
	if err := writeStrings(w, "delete ", key, "\r\n"); err != nil {
		return err
	}
	return flush(w)
}

// incr|decr <key> <delta>\r\n
func writeArithmeticCommand(
	w *bufio.Writer,
	cmd string,
	key string,
	delta uint64) error {

	err := writeStrings(
		w,
		cmd, " ",
		key, " ",
		strconv.FormatUint(delta, 10),
		"\r\n")
	if err != nil {
		return err
	}
	return flush(w)
}

// Writes a command which takes no key, e.g. "flush_all 0" or "version".
func writeSimpleCommand(w *bufio.Writer, args ...string) error {
	if err := writeStrings(w, strings.Join(args, " "), "\r\n"); err != nil {
		return err
	}
	return flush(w)
}

// Reads one CRLF terminated line, without the terminator.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return "", newProtocolError(
			"Reply line longer than %d bytes",
			r.Size())
	}
	if err != nil {
		return "", newTransportError(err, "Read error")
	}
	if !bytes.HasSuffix(line, crlf) {
		return "", newProtocolError("Reply line not terminated by CRLF: %q", line)
	}
	return string(line[:len(line)-2]), nil
}

// Reads exactly size payload bytes followed by CRLF.
func readValueBody(r *bufio.Reader, size int) ([]byte, error) {
	result := make([]byte, size+2)
	if _, err := io.ReadFull(r, result); err != nil {
		return nil, newTransportError(err, "Read error")
	}
	if result[size] != '\r' || result[size+1] != '\n' {
		return nil, newProtocolError("Corrupted stream: bad data block terminator")
	}
	return result[:size], nil
}

// Parses VALUE <key> <flags> <bytes> [<cas unique>]
func parseValueHeader(line string) (valueHeader, error) {
	slice := strings.Split(line, " ")
	if (len(slice) != 4 && len(slice) != 5) || slice[0] != replyValue {
		return valueHeader{}, unexpectedReply(line)
	}

	flags, err := strconv.ParseUint(slice[2], 10, 32)
	if err != nil {
		return valueHeader{}, newProtocolError("Invalid flags in %q", line)
	}

	size, err := strconv.ParseUint(slice[3], 10, 31)
	if err != nil {
		return valueHeader{}, newProtocolError("Invalid length in %q", line)
	}

	if len(slice) == 5 {
		if _, err := strconv.ParseUint(slice[4], 10, 64); err != nil {
			return valueHeader{}, newProtocolError("Invalid cas in %q", line)
		}
	}

	return valueHeader{
		key:   slice[1],
		flags: uint32(flags),
		size:  int(size),
	}, nil
}

// Maps a reply line that is not among the command's expected tokens to an
// error.  SERVER_ERROR leaves the stream in sync; everything else does not.
func unexpectedReply(line string) error {
	switch {
	case line == replyError:
		return newProtocolError("Server rejected command: ERROR")
	case strings.HasPrefix(line, replyClientError+" "):
		return newProtocolError(
			"Client error: %s",
			line[len(replyClientError)+1:])
	case strings.HasPrefix(line, replyServerError+" "):
		return newServerError(line[len(replyServerError)+1:])
	default:
		return newProtocolError("Unexpected reply: %q", line)
	}
}

// Parses a storage command's reply.
func parseStorageReply(line string) (ResultKind, error) {
	switch line {
	case replyStored:
		return Stored, nil
	case replyNotStored, replyExists, replyNotFound:
		// EXISTS / NOT_FOUND are only sent for cas, but both mean the item
		// was not stored.
		return NotStored, nil
	default:
		return NoResult, unexpectedReply(line)
	}
}

// Parses a delete command's reply.
func parseDeleteReply(line string) (ResultKind, error) {
	switch line {
	case replyDeleted:
		return Deleted, nil
	case replyNotFound:
		return NotFound, nil
	default:
		return NoResult, unexpectedReply(line)
	}
}

// Parses an incr / decr reply.  found is false on NOT_FOUND.
func parseArithmeticReply(line string) (count uint64, found bool, err error) {
	if line == replyNotFound {
		return 0, false, nil
	}
	if len(line) > 0 && line[0] >= '0' && line[0] <= '9' {
		count, err = strconv.ParseUint(strings.TrimRight(line, " "), 10, 64)
		if err != nil {
			return 0, false, newProtocolError("Invalid counter value %q", line)
		}
		return count, true, nil
	}
	return 0, false, unexpectedReply(line)
}
