package ssv

import (
	"fmt"
	"strconv"
)

type Kind uint8

const (
	KindInvalid Kind = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Char
	String
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	Int8:        "i8",
	Int16:       "i16",
	Int32:       "i32",
	Int64:       "i64",
	Uint8:       "u8",
	Uint16:      "u16",
	Uint32:      "u32",
	Uint64:      "u64",
	Float32:     "f32",
	Float64:     "f64",
	Char:        "char",
	String:      "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) IsSigned() bool   { return k >= Int8 && k <= Int64 }
func (k Kind) IsUnsigned() bool { return k >= Uint8 && k <= Uint64 }
func (k Kind) IsFloat() bool    { return k == Float32 || k == Float64 }

func (k Kind) bitSize() int {
	switch k {
	case Int8, Uint8:
		return 8
	case Int16, Uint16:
		return 16
	case Int32, Uint32, Float32:
		return 32
	}
	return 64
}

func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if k != int(KindInvalid) && name == s {
			return Kind(k), nil
		}
	}
	return KindInvalid, &UnsupportedTypeError{Type: s}
}

// Field is one named entry of a runtime schema.
type Field struct {
	Name string
	Kind Kind
}

// Value is a scalar tagged by Kind. Only the member matching Kind is meaningful:
// Int for signed, Uint for unsigned, Float for floats, Char, Str for strings.
type Value struct {
	Kind  Kind
	Int   int64
	Uint  uint64
	Float float64
	Char  rune
	Str   string
}

func (v Value) String() string {
	switch {
	case v.Kind.IsSigned():
		return strconv.FormatInt(v.Int, 10)
	case v.Kind.IsUnsigned():
		return strconv.FormatUint(v.Uint, 10)
	case v.Kind == Float32:
		return strconv.FormatFloat(v.Float, 'g', -1, 32)
	case v.Kind == Float64:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case v.Kind == Char:
		return string(v.Char)
	case v.Kind == String:
		return v.Str
	}
	return ""
}
