package ssv

import (
	"fmt"
	"reflect"

	"github.com/juju/errors"
)

// Reported as field name for positional values.
const UnknownField = "<unknown>"

var ErrMissingField = errors.New("missing field")

type UnsupportedTypeError struct {
	Type string
}

func (self *UnsupportedTypeError) Error() string {
	return "unsupported type: " + self.Type
}

// Token stream exhausted before field got its value.
type ExpectedValueError struct {
	Field string
}

func (self *ExpectedValueError) Error() string {
	return "expected value for field: " + self.Field
}

type ExpectedCharError struct {
	Field string
}

func (self *ExpectedCharError) Error() string {
	return "expected single character value for field: " + self.Field
}

type ExpectedFloatError struct {
	Field string
	Err   error
}

func (self *ExpectedFloatError) Error() string {
	return fmt.Sprintf("expected float value for field %s: %v", self.Field, self.Err)
}
func (self *ExpectedFloatError) Unwrap() error { return self.Err }

type ExpectedIntegerError struct {
	Field string
	Err   error
}

func (self *ExpectedIntegerError) Error() string {
	return fmt.Sprintf("expected integer value for field %s: %v", self.Field, self.Err)
}
func (self *ExpectedIntegerError) Unwrap() error { return self.Err }

type DuplicateFieldError struct {
	Field string
}

func (self *DuplicateFieldError) Error() string {
	return "duplicate field: " + self.Field
}

// Argument to Unmarshal/Decode is not a non-nil pointer.
type InvalidUnmarshalError struct {
	Type reflect.Type
}

func (self *InvalidUnmarshalError) Error() string {
	if self.Type == nil {
		return "ssv: Unmarshal(nil)"
	}
	if self.Type.Kind() != reflect.Ptr {
		return "ssv: Unmarshal(non-pointer " + self.Type.String() + ")"
	}
	return "ssv: Unmarshal(nil " + self.Type.String() + ")"
}
