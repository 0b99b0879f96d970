// Extensions to the go-check unittest framework.
//
// NOTE: see https://github.com/go-check/check/pull/6 for reasons why these
// checkers live here.
package gocheck2

import (
	"reflect"

	. "gopkg.in/check.v1"

	"github.com/dropbox/gomemcache/errors"
)

// -----------------------------------------------------------------------
// IsTrue / IsFalse checker.

type isBoolValueChecker struct {
	*CheckerInfo
	expected bool
}

func (checker *isBoolValueChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	errMsg string) {

	obtained, ok := params[0].(bool)
	if !ok {
		return false, "Argument to " + checker.Name + " must be bool"
	}

	return obtained == checker.expected, ""
}

// The IsTrue checker verifies that the obtained value is true.
//
// For example:
//
//	c.Assert(value, IsTrue)
var IsTrue Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"obtained"}},
	true,
}

// The IsFalse checker verifies that the obtained value is false.
//
// For example:
//
//	c.Assert(value, IsFalse)
var IsFalse Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"obtained"}},
	false,
}

// -----------------------------------------------------------------------
// HasKey checker.

type hasKeyChecker struct {
	*CheckerInfo
}

func (checker *hasKeyChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	errMsg string) {

	m := reflect.ValueOf(params[0])
	if m.Kind() != reflect.Map {
		return false, "First argument to HasKey must be a map"
	}

	key := reflect.ValueOf(params[1])
	if !key.IsValid() || !key.Type().AssignableTo(m.Type().Key()) {
		return false, "Second argument must be assignable to the map key type"
	}

	return m.MapIndex(key).IsValid(), ""
}

// The HasKey checker verifies that the obtained map contains the given key.
//
// For example:
//
//	c.Assert(responses, HasKey, "test1")
var HasKey Checker = &hasKeyChecker{
	&CheckerInfo{Name: "HasKey", Params: []string{"obtained", "key"}},
}

// -----------------------------------------------------------------------
// ErrorAs checker.

type errorAsChecker struct {
	*CheckerInfo
}

func (checker *errorAsChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	errMsg string) {

	if params[0] == nil {
		return false, ""
	}
	err, ok := params[0].(error)
	if !ok {
		return false, "First argument to ErrorAs must be an error"
	}

	target := reflect.ValueOf(params[1])
	if target.Kind() != reflect.Ptr || target.IsNil() {
		return false, "Second argument to ErrorAs must be a non-nil pointer"
	}

	return errors.As(err, params[1]), ""
}

// The ErrorAs checker verifies that the obtained error, or one of the errors
// it wraps, can be assigned to the target pointer.
//
// For example:
//
//	var protocolErr *memcache.ProtocolError
//	c.Assert(resp.Error(), ErrorAs, &protocolErr)
var ErrorAs Checker = &errorAsChecker{
	&CheckerInfo{Name: "ErrorAs", Params: []string{"obtained", "target"}},
}
