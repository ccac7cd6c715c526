package sourcemap

import (
	"fmt"
	"testing"
)

func TestEncodeVLQ(t *testing.T) {
	tests := []struct {
		value    int
		expected string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{-15, "f"},
		{16, "gB"},
		{-16, "hB"},
		{31, "+B"},
		{-31, "/B"},
		{100, "oG"},
		{-100, "pG"},
		{1000, "w+B"},
		{-1000, "x+B"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("value_%d", tt.value), func(t *testing.T) {
			if got := EncodeVLQ(tt.value); got != tt.expected {
				t.Errorf("EncodeVLQ(%d) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}

func TestDecodeVLQRoundTrip(t *testing.T) {
	for _, v := range []int{0, 1, -1, 17, -42, 511, 1 << 20, -(1 << 20)} {
		encoded := EncodeVLQ(v)
		got, consumed := DecodeVLQ(encoded + "AAAA")
		if got != v || consumed != len(encoded) {
			t.Errorf("DecodeVLQ(%q) = (%d, %d), want (%d, %d)", encoded, got, consumed, v, len(encoded))
		}
	}
}

func TestDecodeVLQInvalid(t *testing.T) {
	for _, input := range []string{"", "!", "g", "gg", "é"} {
		if v, n := DecodeVLQ(input); v != 0 || n != 0 {
			t.Errorf("DecodeVLQ(%q) = (%d, %d), want (0, 0)", input, v, n)
		}
	}
}
