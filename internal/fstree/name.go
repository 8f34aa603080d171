package fstree

import (
	"golang.org/x/text/encoding/unicode"
)

// NormalizeName strips the first two bytes of the stored name and nothing
// more. This is deliberately not real Unicode normalization: name
// comparisons throughout (Lookup, directory iteration identity checks)
// operate on the raw remaining bytes, and changing that would silently
// change which names compare equal on existing images. Callers wanting a
// human-readable rendering use DecodeDisplayName instead.
func NormalizeName(raw []byte) []byte {
	if len(raw) <= 2 {
		return nil
	}
	return raw[2:]
}

// DecodeDisplayName best-effort transcodes a stored name for presentation
// only (CLI `ls` output, FUSE `readdir` entries). It is never fed back into
// NormalizeName, the comparator, or any lookup path — those all operate on
// raw stored bytes so the documented comparison bug stays exactly as
// specified regardless of how a name is displayed.
func DecodeDisplayName(raw []byte) string {
	// A UTF-16LE name ends in a two-byte NUL terminator; trimming at the
	// first zero byte would cut an ASCII-range UTF-16 name after one
	// character, so the UTF-16 attempt runs on the untrimmed bytes.
	if n := len(raw); n >= 4 && n%2 == 0 && raw[n-2] == 0 && raw[n-1] == 0 {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		if out, err := decoder.Bytes(raw[:n-2]); err == nil && isPrintableUTF8(out) {
			return string(out)
		}
	}
	return string(trimNUL(raw))
}

func trimNUL(raw []byte) []byte {
	for i, b := range raw {
		if b == 0 {
			return raw[:i]
		}
	}
	return raw
}

func isPrintableUTF8(b []byte) bool {
	for _, r := range string(b) {
		if r == 0xFFFD {
			return false
		}
	}
	return true
}
