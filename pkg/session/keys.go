package session

import (
	"strconv"
	"strings"

	"github.com/mkfoss/xbase3/pkg/engine"
	"github.com/mkfoss/xbase3/pkg/lang"
)

// inferKeyType/Length maps an expression's runtime value onto one of
// the XDX comparator types and a fixed byte width: NUMERIC gets a
// 20-byte text window, DATE the fixed 8-byte YYYYMMDD form, and
// everything else (string result) a CHAR window clamped to [1,240].
func inferKeyTypeLength(v lang.Value) (byte, int) {
	switch v.Kind {
	case lang.VNumber:
		return engine.KeyNumeric, 20
	case lang.VDate:
		return engine.KeyDate, 8
	default:
		n := len(v.ToString())
		if n < 1 {
			n = 1
		}
		if n > 240 {
			n = 240
		}
		return engine.KeyChar, n
	}
}

// encodeKey renders v into exactly length bytes of the given
// comparator type, the same text encoding compareKeys expects: NUMERIC
// right-justified decimal text, DATE verbatim 8-byte YYYYMMDD, CHAR
// truncated/space-padded and case-folded unless exact is set
// (SET EXACT OFF is the default dBASE SEEK behavior).
func encodeKey(keyType byte, length int, v lang.Value, exact bool) []byte {
	switch keyType {
	case engine.KeyNumeric:
		text := strconv.FormatFloat(v.ToNumber(), 'f', -1, 64)
		b := make([]byte, length)
		for i := range b {
			b[i] = ' '
		}
		if len(text) > length {
			text = text[len(text)-length:]
		}
		copy(b[length-len(text):], text)
		return b
	case engine.KeyDate:
		b := []byte(v.ToDate())
		if len(b) > length {
			b = b[:length]
		}
		for len(b) < length {
			b = append(b, ' ')
		}
		return b
	default:
		text := foldExact(exact, v.ToString())
		b := make([]byte, length)
		for i := range b {
			b[i] = ' '
		}
		copy(b, text)
		return b
	}
}

// foldExact upper-cases s when exact is false, the default SEEK/FIND
// comparison mode.
func foldExact(exact bool, s string) string {
	if exact {
		return s
	}
	return strings.ToUpper(s)
}
