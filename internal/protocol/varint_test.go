package protocol

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeVarInt(t *testing.T) {
	tests := []struct {
		name         string
		input        []byte
		want         uint32
		wantConsumed int
		wantErr      error
	}{
		{
			name:         "zero",
			input:        []byte{0x00},
			want:         0,
			wantConsumed: 1,
		},
		{
			name:         "single byte max",
			input:        []byte{0x7F},
			want:         127,
			wantConsumed: 1,
		},
		{
			name:         "two bytes",
			input:        []byte{0x80, 0x01},
			want:         128,
			wantConsumed: 2,
		},
		{
			name:         "full 32 bits",
			input:        []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F},
			want:         math.MaxUint32,
			wantConsumed: 5,
		},
		{
			name:         "trailing bytes ignored",
			input:        []byte{0x05, 0xAA, 0xBB},
			want:         5,
			wantConsumed: 1,
		},
		{
			name:    "empty buffer is incomplete",
			input:   nil,
			wantErr: ErrIncompleteVarInt,
		},
		{
			name:    "unterminated prefix is incomplete",
			input:   []byte{0x80, 0x80},
			wantErr: ErrIncompleteVarInt,
		},
		{
			name:    "five continuation bytes is invalid",
			input:   []byte{0x80, 0x80, 0x80, 0x80, 0x80},
			wantErr: ErrInvalidVarInt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, consumed, err := DecodeVarInt(tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeVarInt() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("DecodeVarInt() returned an unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeVarInt() value = %d, want %d", got, tt.want)
			}
			if consumed != tt.wantConsumed {
				t.Errorf("DecodeVarInt() consumed = %d, want %d", consumed, tt.wantConsumed)
			}
		})
	}
}

func TestEncodeVarInt(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		want  []byte
	}{
		{name: "zero", value: 0, want: []byte{0x00}},
		{name: "one byte boundary", value: 127, want: []byte{0x7F}},
		{name: "two byte boundary", value: 128, want: []byte{0x80, 0x01}},
		{name: "25565", value: 25565, want: []byte{0xDD, 0xC7, 0x01}},
		{name: "max uint32", value: math.MaxUint32, want: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeVarInt(nil, tt.value)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("EncodeVarInt() did not match expected; diff:\n%s", diff)
			}
			if size := VarIntSize(tt.value); size != len(tt.want) {
				t.Errorf("VarIntSize() = %d, want %d", size, len(tt.want))
			}
		})
	}
}

// Round trip decode(encode(v)) across the 7-bit group boundaries and a spread
// of arbitrary values, checking the five byte bound holds everywhere.
func TestVarIntRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, 268435455, 268435456, math.MaxInt32, math.MaxUint32}
	for v := uint32(1); v < math.MaxUint32/7; v *= 7 {
		values = append(values, v)
	}

	for _, v := range values {
		encoded := EncodeVarInt(nil, v)
		if len(encoded) > 5 {
			t.Fatalf("EncodeVarInt(%d) produced %d bytes, want <= 5", v, len(encoded))
		}

		decoded, consumed, err := DecodeVarInt(encoded)
		if err != nil {
			t.Fatalf("DecodeVarInt(EncodeVarInt(%d)) returned an unexpected error: %v", v, err)
		}
		if decoded != v {
			t.Errorf("round trip of %d produced %d", v, decoded)
		}
		if consumed != len(encoded) {
			t.Errorf("round trip of %d consumed %d of %d bytes", v, consumed, len(encoded))
		}
	}
}
