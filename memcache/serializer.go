package memcache

import (
	"bytes"
	"encoding/gob"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/gogo/protobuf/proto"
	"github.com/gogo/protobuf/types"

	"github.com/dropbox/gomemcache/errors"
)

// Identifies how a stored payload is decoded back into a value.  The tag
// travels in the low 8 bits of the item's flags.  Tags are never reused or
// renumbered; new tags are only appended.
type Tag uint8

const (
	// Plain string (ascii, or bytes that are not valid utf-8), stored as-is.
	TagString Tag = iota
	// Non-ascii utf-8 text, validated on decode.
	TagUnicode
	// []byte, stored as-is.
	TagBytes
	// int64, decimal ascii.
	TagInt64
	// uint64, decimal ascii.  These values can be used with incr / decr.
	TagUint64
	// float64, shortest 'g' format.
	TagFloat64
	// bool, "0" or "1".
	TagBool
	// Any other gob encodable value (maps, slices, registered structs ...).
	TagGob
	// gogo protobuf messages, wrapped in a types.Any envelope.
	TagProto

	numTags
)

const tagMask = 0xff

var tagNames = [...]string{
	"string",
	"unicode",
	"bytes",
	"int64",
	"uint64",
	"float64",
	"bool",
	"gob",
	"proto",
}

func (t Tag) String() string {
	if t < numTags {
		return tagNames[t]
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

func init() {
	// Containers commonly used for structured values.  Basic types are
	// registered by encoding/gob itself.
	RegisterType(map[interface{}]interface{}{})
	RegisterType(map[string]interface{}{})
	RegisterType([]interface{}{})
}

// Registers a concrete type with the gob serializer, so that values of that
// type (or containers holding them) can be stored.  Must be called in every
// process reading or writing such values, under the same type name.
func RegisterType(value interface{}) {
	gob.Register(value)
}

// Converts a value into its tagged payload.  Unsupported values fail with a
// ValidationError.
func Encode(value interface{}) (Tag, []byte, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil, newValidationError("Invalid value: cannot be nil")
	case string:
		if isASCII(v) || !utf8.ValidString(v) {
			return TagString, []byte(v), nil
		}
		return TagUnicode, []byte(v), nil
	case []byte:
		if v == nil {
			return 0, nil, newValidationError("Invalid value: cannot be nil")
		}
		return TagBytes, v, nil
	case int64:
		return TagInt64, strconv.AppendInt(nil, v, 10), nil
	case uint64:
		return TagUint64, strconv.AppendUint(nil, v, 10), nil
	case float64:
		return TagFloat64, strconv.AppendFloat(nil, v, 'g', -1, 64), nil
	case bool:
		if v {
			return TagBool, []byte("1"), nil
		}
		return TagBool, []byte("0"), nil
	case proto.Message:
		return encodeProto(v)
	default:
		return encodeGob(value)
	}
}

// Converts a tagged payload back into a value.  Unknown tags and corrupt
// payloads fail with a SerializationError.
func Decode(tag Tag, data []byte) (interface{}, error) {
	switch tag {
	case TagString:
		return string(data), nil
	case TagUnicode:
		if !utf8.Valid(data) {
			return nil, newSerializationError(nil, "Invalid utf-8 payload")
		}
		return string(data), nil
	case TagBytes:
		return data, nil
	case TagInt64:
		v, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil, newSerializationError(err, "Invalid int64 payload")
		}
		return v, nil
	case TagUint64:
		// incr / decr may leave trailing spaces behind.
		v, err := strconv.ParseUint(string(bytes.TrimRight(data, " ")), 10, 64)
		if err != nil {
			return nil, newSerializationError(err, "Invalid uint64 payload")
		}
		return v, nil
	case TagFloat64:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil, newSerializationError(err, "Invalid float64 payload")
		}
		return v, nil
	case TagBool:
		switch string(data) {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, newSerializationError(nil, "Invalid bool payload %q", data)
	case TagGob:
		return decodeGob(data)
	case TagProto:
		return decodeProto(data)
	default:
		return nil, newSerializationError(nil, "Unknown serializer tag %d", tag)
	}
}

// Only the low 8 bits of flags carry the tag.  Items with any other bit set
// were written by a foreign client.
func tagFromFlags(flags uint32) (Tag, error) {
	if flags&^tagMask != 0 {
		return 0, newSerializationError(
			nil,
			"Item flags 0x%x were not written by this client",
			flags)
	}
	return Tag(flags), nil
}

func flagsFromTag(tag Tag) uint32 {
	return uint32(tag)
}

// Decodes a retrieved item's payload, given its flags.
func decodeItem(flags uint32, data []byte) (Tag, interface{}, error) {
	tag, err := tagFromFlags(flags)
	if err != nil {
		return 0, nil, err
	}
	value, err := Decode(tag, data)
	if err != nil {
		return 0, nil, err
	}
	return tag, value, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func encodeGob(value interface{}) (Tag, []byte, error) {
	switch reflect.TypeOf(value).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return 0, nil, newValidationError(
			"Invalid value: cannot serialize %T",
			value)
	}

	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(&value); err != nil {
		return 0, nil, &ValidationError{
			errors.Wrapf(err, "Invalid value: cannot serialize %T", value),
		}
	}
	return TagGob, buf.Bytes(), nil
}

func decodeGob(data []byte) (interface{}, error) {
	var value interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return nil, newSerializationError(err, "Invalid gob payload")
	}
	return value, nil
}

func encodeProto(msg proto.Message) (Tag, []byte, error) {
	if reflect.ValueOf(msg).IsNil() {
		return 0, nil, newValidationError("Invalid value: cannot be nil")
	}

	envelope, err := types.MarshalAny(msg)
	if err != nil {
		return 0, nil, &ValidationError{
			errors.Wrapf(err, "Invalid value: cannot serialize %T", msg),
		}
	}

	data, err := proto.Marshal(envelope)
	if err != nil {
		return 0, nil, &ValidationError{
			errors.Wrapf(err, "Invalid value: cannot serialize %T", msg),
		}
	}
	return TagProto, data, nil
}

func decodeProto(data []byte) (interface{}, error) {
	envelope := &types.Any{}
	if err := proto.Unmarshal(data, envelope); err != nil {
		return nil, newSerializationError(err, "Invalid proto payload")
	}

	var msg types.DynamicAny
	if err := types.UnmarshalAny(envelope, &msg); err != nil {
		return nil, newSerializationError(
			err,
			"Cannot decode proto payload of type %s",
			envelope.TypeUrl)
	}
	return msg.Message, nil
}
