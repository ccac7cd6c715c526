// Package sourcemap writes and reads Source Map v3 files that map generated
// GLSL lines back to lines of the shader document.
//
// The maps are line granular: every generated line has at most one segment,
// at column 0, pointing at column 0 of its source line.
// See https://sourcemaps.info/spec.html
package sourcemap

import "strings"

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Values [128]int8

func init() {
	for i := range base64Values {
		base64Values[i] = -1
	}
	for i := 0; i < len(base64Alphabet); i++ {
		base64Values[base64Alphabet[i]] = int8(i)
	}
}

const (
	vlqShift    = 5
	vlqMask     = 1<<vlqShift - 1
	vlqContinue = 1 << vlqShift
)

// EncodeVLQ encodes a signed integer as a base64 VLQ.
func EncodeVLQ(value int) string {
	var sb strings.Builder
	writeVLQ(&sb, value)
	return sb.String()
}

func writeVLQ(sb *strings.Builder, value int) {
	// The sign lives in the lowest bit.
	v := uint32(value) << 1
	if value < 0 {
		v = uint32(-value)<<1 | 1
	}
	for {
		digit := v & vlqMask
		v >>= vlqShift
		if v != 0 {
			digit |= vlqContinue
		}
		sb.WriteByte(base64Alphabet[digit])
		if v == 0 {
			return
		}
	}
}

// DecodeVLQ decodes one VLQ from the start of input and returns the value
// and the number of bytes consumed. It returns (0, 0) for empty, invalid or
// truncated input.
func DecodeVLQ(input string) (int, int) {
	var v uint32
	var shift uint
	for i := 0; i < len(input); i++ {
		c := input[i]
		if c >= 128 || base64Values[c] < 0 {
			return 0, 0
		}
		digit := uint32(base64Values[c])
		v |= (digit & vlqMask) << shift
		shift += vlqShift
		if digit&vlqContinue == 0 {
			if v&1 != 0 {
				return -int(v >> 1), i + 1
			}
			return int(v >> 1), i + 1
		}
	}
	return 0, 0
}
