package engine

import (
	"strconv"
	"strings"
)

// FieldType is one of the five field kinds a DBF schema may declare.
type FieldType byte

const (
	Char    FieldType = 'C'
	Numeric FieldType = 'N'
	Date    FieldType = 'D'
	Logical FieldType = 'L'
	Memo    FieldType = 'M'
)

func (t FieldType) valid() bool {
	switch t {
	case Char, Numeric, Date, Logical, Memo:
		return true
	}
	return false
}

// FieldDef describes one column of a DBF schema: its wire name, type,
// storage width, decimal count for NUMERIC, and its byte offset inside
// a record row (1-based — offset 0 is always the delete marker).
type FieldDef struct {
	Name     string
	Type     FieldType
	Length   int
	Decimals int
	Offset   int
}

const (
	maxFieldNameLen = 10
	maxFields       = 128
	dateFieldLen    = 8
	logicalFieldLen = 1
	memoFieldLen    = 10
)

// normalizeField upper-cases the name and fixes the length/decimals of
// fixed-width types, rejecting anything outside the per-type bounds of
// the field descriptor contract.
func normalizeField(name string, typ FieldType, length, decimals int) (FieldDef, *Error) {
	name = strings.ToUpper(strings.TrimRight(name, " "))
	if name == "" || len(name) > maxFieldNameLen {
		return FieldDef{}, newError(KindInvalidField, "field name %q out of bounds", name)
	}
	if !typ.valid() {
		return FieldDef{}, newError(KindInvalidField, "unknown field type %q", string(typ))
	}
	switch typ {
	case Char:
		if length < 1 || length > 254 {
			return FieldDef{}, newError(KindInvalidField, "CHAR length %d out of range", length)
		}
		decimals = 0
	case Numeric:
		if length < 1 || length > 20 {
			return FieldDef{}, newError(KindInvalidField, "NUMERIC length %d out of range", length)
		}
		if decimals < 0 || decimals >= length {
			return FieldDef{}, newError(KindInvalidField, "NUMERIC decimals %d out of range", decimals)
		}
	case Date:
		length, decimals = dateFieldLen, 0
	case Logical:
		length, decimals = logicalFieldLen, 0
	case Memo:
		length, decimals = memoFieldLen, 0
	}
	return FieldDef{Name: name, Type: typ, Length: length, Decimals: decimals}, nil
}

// fieldBytes slices the field's window out of a record buffer.
func fieldBytes(rec []byte, f FieldDef) []byte {
	return rec[f.Offset : f.Offset+f.Length]
}

// GetString returns a CHAR field's raw bytes as a string: the full
// field width, trailing pad spaces included. No trimming is done.
func GetString(rec []byte, f FieldDef) string {
	return string(fieldBytes(rec, f))
}

// PutString writes s into a CHAR field, truncating or space-padding to
// the field's exact length.
func PutString(rec []byte, f FieldDef, s string) *Error {
	if f.Type != Char {
		return newError(KindTypeMismatch, "%s is not CHAR", f.Name)
	}
	b := fieldBytes(rec, f)
	n := copy(b, s)
	for i := n; i < len(b); i++ {
		b[i] = ' '
	}
	return nil
}

// GetDouble parses a NUMERIC field's ASCII decimal text.
func GetDouble(rec []byte, f FieldDef) (float64, *Error) {
	if f.Type != Numeric {
		return 0, newError(KindTypeMismatch, "%s is not NUMERIC", f.Name)
	}
	text := strings.TrimSpace(string(fieldBytes(rec, f)))
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, newError(KindTypeMismatch, "%s: invalid numeric %q", f.Name, text)
	}
	return v, nil
}

// PutDouble formats x with the field's stored decimal count into
// exactly Length bytes, right-justified and space-padded on the left.
// A value that does not fit fills the field with asterisks, the
// deterministic overflow convention dBASE uses for numeric fields.
func PutDouble(rec []byte, f FieldDef, x float64) *Error {
	if f.Type != Numeric {
		return newError(KindTypeMismatch, "%s is not NUMERIC", f.Name)
	}
	text := strconv.FormatFloat(x, 'f', f.Decimals, 64)
	b := fieldBytes(rec, f)
	if len(text) > len(b) {
		for i := range b {
			b[i] = '*'
		}
		return nil
	}
	for i := range b {
		b[i] = ' '
	}
	copy(b[len(b)-len(text):], text)
	return nil
}

// emptyDate is eight spaces, the canonical "no date" value.
const emptyDate = "        "

// GetDate returns the field's 8-byte YYYYMMDD text verbatim.
func GetDate(rec []byte, f FieldDef) (string, *Error) {
	if f.Type != Date {
		return "", newError(KindTypeMismatch, "%s is not DATE", f.Name)
	}
	return string(fieldBytes(rec, f)), nil
}

// PutDate writes an 8-byte YYYYMMDD string, or blanks the field when
// given the empty date.
func PutDate(rec []byte, f FieldDef, yyyymmdd string) *Error {
	if f.Type != Date {
		return newError(KindTypeMismatch, "%s is not DATE", f.Name)
	}
	if yyyymmdd == "" {
		yyyymmdd = emptyDate
	}
	if len(yyyymmdd) != dateFieldLen {
		return newError(KindInvalidField, "%s: date value must be %d bytes", f.Name, dateFieldLen)
	}
	copy(fieldBytes(rec, f), yyyymmdd)
	return nil
}

// GetLogical interprets the field's single byte; only T/Y are true.
func GetLogical(rec []byte, f FieldDef) (bool, *Error) {
	if f.Type != Logical {
		return false, newError(KindTypeMismatch, "%s is not LOGICAL", f.Name)
	}
	b := fieldBytes(rec, f)[0]
	return b == 'T' || b == 't' || b == 'Y' || b == 'y', nil
}

// PutLogical writes 'T' or 'F' into a LOGICAL field.
func PutLogical(rec []byte, f FieldDef, v bool) *Error {
	if f.Type != Logical {
		return newError(KindTypeMismatch, "%s is not LOGICAL", f.Name)
	}
	if v {
		fieldBytes(rec, f)[0] = 'T'
	} else {
		fieldBytes(rec, f)[0] = 'F'
	}
	return nil
}

// blankField resets a field to its type's blank representation, used
// when initializing a freshly appended record.
func blankField(rec []byte, f FieldDef) {
	b := fieldBytes(rec, f)
	switch f.Type {
	case Logical:
		b[0] = '?'
	case Date:
		copy(b, emptyDate)
	default:
		for i := range b {
			b[i] = ' '
		}
	}
}
