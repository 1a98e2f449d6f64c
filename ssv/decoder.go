// Package ssv decodes whitespace separated values into typed fields.
//
// Decoder is the low level requester: caller asks for one scalar at a time,
// optionally inside struct or sequence context which drives field names in errors.
// Unmarshal walks Go values with reflection on top of Decoder.
package ssv

import (
	"strconv"
	"unicode/utf8"
)

// Decoder is single use cursor over input tokens. It only moves forward.
type Decoder struct {
	s     string
	pos   int
	field string
	named bool
}

func NewDecoder(s string) *Decoder {
	return &Decoder{s: s}
}

// ASCII whitespace: space, tab, LF, FF, CR.
func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

func (self *Decoder) skipSpace() {
	for self.pos < len(self.s) && isSpace(self.s[self.pos]) {
		self.pos++
	}
}

// More reports whether any token is left.
func (self *Decoder) More() bool {
	self.skipSpace()
	return self.pos < len(self.s)
}

// Field returns name bound by struct context.
func (self *Decoder) Field() (string, error) {
	if !self.named {
		return "", ErrMissingField
	}
	return self.field, nil
}

func (self *Decoder) fieldName() string {
	if !self.named {
		return UnknownField
	}
	return self.field
}

// Token consumes next raw token.
func (self *Decoder) Token() (string, error) {
	if !self.More() {
		return "", &ExpectedValueError{Field: self.fieldName()}
	}
	start := self.pos
	for self.pos < len(self.s) && !isSpace(self.s[self.pos]) {
		self.pos++
	}
	return self.s[start:self.pos], nil
}

// Skip consumes one token without type checks. Missing token is not an error.
func (self *Decoder) Skip() bool {
	_, err := self.Token()
	return err == nil
}

func (self *Decoder) NextScalar(kind Kind) (Value, error) {
	v := Value{Kind: kind}
	switch {
	case kind.IsSigned(), kind.IsUnsigned(), kind.IsFloat(), kind == Char, kind == String:
	default:
		return v, &UnsupportedTypeError{Type: kind.String()}
	}
	tok, err := self.Token()
	if err != nil {
		return v, err
	}
	switch {
	case kind.IsSigned():
		v.Int, err = strconv.ParseInt(tok, 10, kind.bitSize())
		if err != nil {
			return v, &ExpectedIntegerError{Field: self.fieldName(), Err: err}
		}
	case kind.IsUnsigned():
		v.Uint, err = strconv.ParseUint(tok, 10, kind.bitSize())
		if err != nil {
			return v, &ExpectedIntegerError{Field: self.fieldName(), Err: err}
		}
	case kind.IsFloat():
		v.Float, err = strconv.ParseFloat(tok, kind.bitSize())
		if err != nil {
			return v, &ExpectedFloatError{Field: self.fieldName(), Err: err}
		}
	case kind == Char:
		r, size := utf8.DecodeRuneInString(tok)
		if size != len(tok) || r == utf8.RuneError {
			return v, &ExpectedCharError{Field: self.fieldName()}
		}
		v.Char = r
	case kind == String:
		v.Str = tok
	}
	return v, nil
}

// DecodeFields reads runtime schema in order.
func (self *Decoder) DecodeFields(fields []Field) ([]Value, error) {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}
	result := make([]Value, 0, len(fields))
	st := self.EnterStruct(names)
	defer st.End()
	for i := 0; st.Next(); i++ {
		v, err := self.NextScalar(fields[i].Kind)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func checkNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return &DuplicateFieldError{Field: name}
		}
		seen[name] = struct{}{}
	}
	return nil
}

type context struct {
	field string
	named bool
}

func (self *Decoder) save() context { return context{self.field, self.named} }
func (self *Decoder) restore(c context) {
	self.field, self.named = c.field, c.named
}

// StructCursor binds struct field names one by one.
type StructCursor struct {
	d     *Decoder
	names []string
	i     int
	outer context
}

func (self *Decoder) EnterStruct(names []string) *StructCursor {
	return &StructCursor{d: self, names: names, outer: self.save()}
}

// Next binds next field name, false after last field.
func (self *StructCursor) Next() bool {
	if self.i >= len(self.names) {
		return false
	}
	self.d.field = self.names[self.i]
	self.d.named = true
	self.i++
	return true
}

// Field returns currently bound name or ErrMissingField before first Next.
func (self *StructCursor) Field() (string, error) {
	if self.i == 0 {
		return "", ErrMissingField
	}
	return self.d.Field()
}

// End restores name context of enclosing scope.
func (self *StructCursor) End() { self.d.restore(self.outer) }

// SeqCursor reads positional values. No name context inside.
type SeqCursor struct {
	d     *Decoder
	outer context
}

func (self *Decoder) EnterSequence() *SeqCursor {
	c := &SeqCursor{d: self, outer: self.save()}
	self.field, self.named = "", false
	return c
}

func (self *SeqCursor) More() bool { return self.d.More() }
func (self *SeqCursor) End()       { self.d.restore(self.outer) }
