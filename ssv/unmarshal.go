package ssv

import (
	"reflect"
	"strings"
)

const tagName = "ssv"

// Unmarshal decodes s into value pointed to by v.
//
// Struct fields are read in declaration order, named by `ssv:"name"` tag or Go field name.
// Tag `ssv:"-"` skips field, option `char` reads int32 field as single character.
// Arrays are fixed length tuples, slices take all remaining tokens.
// Tokens left after v is filled are ignored.
func Unmarshal(s string, v interface{}) error {
	return NewDecoder(s).Decode(v)
}

func (self *Decoder) Decode(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &InvalidUnmarshalError{Type: reflect.TypeOf(v)}
	}
	if err := checkType(rv.Type().Elem(), false, map[reflect.Type]bool{}); err != nil {
		return err
	}
	return self.decodeValue(rv.Elem(), false)
}

type fieldInfo struct {
	index int
	name  string
	char  bool
}

func structFields(t reflect.Type) ([]fieldInfo, error) {
	fs := make([]fieldInfo, 0, t.NumField())
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		fi := fieldInfo{index: i, name: sf.Name}
		if tag, ok := sf.Tag.Lookup(tagName); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				fi.name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "char" {
					fi.char = true
				}
			}
		}
		fs = append(fs, fi)
		names = append(names, fi.name)
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}
	return fs, nil
}

// checkType rejects shapes with no whitespace token representation.
// Every accepted shape reads at least one token while input is left,
// so sequences of it always make progress.
func checkType(t reflect.Type, char bool, visiting map[reflect.Type]bool) error {
	reads, err := typeReads(t, char, visiting)
	if err == nil && !reads {
		err = &UnsupportedTypeError{Type: "unit"}
	}
	return err
}

// typeReads reports whether t consumes a token when input is left.
// Type already on the visiting path adds nothing, so recursive struct
// must read a scalar of its own.
func typeReads(t reflect.Type, char bool, visiting map[reflect.Type]bool) (bool, error) {
	if char && t.Kind() != reflect.Int32 {
		return false, &UnsupportedTypeError{Type: "char option on " + t.String()}
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true, nil
	case reflect.Bool:
		return false, &UnsupportedTypeError{Type: "bool"}
	case reflect.Interface:
		return false, &UnsupportedTypeError{Type: "any"}
	case reflect.Ptr:
		return false, &UnsupportedTypeError{Type: "option"}
	case reflect.Map:
		return false, &UnsupportedTypeError{Type: "map"}
	case reflect.Array:
		if t.Len() == 0 {
			return false, &UnsupportedTypeError{Type: "unit"}
		}
		return typeReads(t.Elem(), false, visiting)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return false, &UnsupportedTypeError{Type: "bytes"}
		}
		return typeReads(t.Elem(), false, visiting)
	case reflect.Struct:
		if visiting[t] {
			return false, nil
		}
		visiting[t] = true
		defer delete(visiting, t)
		fs, err := structFields(t)
		if err != nil {
			return false, err
		}
		reads := false
		for _, f := range fs {
			r, err := typeReads(t.Field(f.index).Type, f.char, visiting)
			if err != nil {
				return false, err
			}
			reads = reads || r
		}
		if !reads {
			return false, &UnsupportedTypeError{Type: "unit"}
		}
		return true, nil
	}
	return false, &UnsupportedTypeError{Type: t.Kind().String()}
}

func scalarKind(v reflect.Value, char bool) Kind {
	if char {
		return Char
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v.Type().Bits() {
		case 8:
			return Int8
		case 16:
			return Int16
		case 32:
			return Int32
		}
		return Int64
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch v.Type().Bits() {
		case 8:
			return Uint8
		case 16:
			return Uint16
		case 32:
			return Uint32
		}
		return Uint64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.String:
		return String
	}
	return KindInvalid
}

func (self *Decoder) decodeValue(v reflect.Value, char bool) error {
	switch v.Kind() {
	case reflect.Struct:
		fs, err := structFields(v.Type())
		if err != nil {
			return err
		}
		names := make([]string, len(fs))
		for i, f := range fs {
			names[i] = f.name
		}
		st := self.EnterStruct(names)
		defer st.End()
		for i := 0; st.Next(); i++ {
			if err := self.decodeValue(v.Field(fs[i].index), fs[i].char); err != nil {
				return err
			}
		}
		return nil

	case reflect.Array:
		seq := self.EnterSequence()
		defer seq.End()
		for i := 0; i < v.Len(); i++ {
			if err := self.decodeValue(v.Index(i), false); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice:
		seq := self.EnterSequence()
		defer seq.End()
		items := reflect.MakeSlice(v.Type(), 0, 0)
		for seq.More() {
			pos := self.pos
			item := reflect.New(v.Type().Elem()).Elem()
			if err := self.decodeValue(item, false); err != nil {
				return err
			}
			if self.pos == pos {
				return &UnsupportedTypeError{Type: "unit"}
			}
			items = reflect.Append(items, item)
		}
		v.Set(items)
		return nil
	}

	kind := scalarKind(v, char)
	if kind == KindInvalid {
		return &UnsupportedTypeError{Type: v.Type().String()}
	}
	x, err := self.NextScalar(kind)
	if err != nil {
		return err
	}
	switch {
	case kind.IsSigned():
		v.SetInt(x.Int)
	case kind.IsUnsigned():
		v.SetUint(x.Uint)
	case kind.IsFloat():
		v.SetFloat(x.Float)
	case kind == Char:
		v.SetInt(int64(x.Char))
	case kind == String:
		v.SetString(x.Str)
	}
	return nil
}
