package helpers

import (
	"testing"
)

func TestBytesEqual(t *testing.T) {
	tests := []struct {
		name string
		a    []byte
		b    []byte
		want bool
	}{
		{"equal", []byte{1, 2, 3}, []byte{1, 2, 3}, true},
		{"not equal", []byte{1, 2, 3}, []byte{1, 2, 4}, false},
		{"different length", []byte{1, 2}, []byte{1, 2, 3}, false},
		{"empty equal", []byte{}, []byte{}, true},
		{"nil equal", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BytesEqual(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("BytesEqual = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHexRoundtrip(t *testing.T) {
	tests := [][]byte{
		{},
		{0x00},
		{0xde, 0xad, 0xbe, 0xef},
		make([]byte, 20),
	}

	for _, b := range tests {
		s := BytesToHex(b)
		got, err := HexToBytes(s)
		if err != nil {
			t.Fatalf("HexToBytes(%s): %v", s, err)
		}
		if !BytesEqual(got, b) {
			t.Errorf("roundtrip mismatch: %x -> %s -> %x", b, s, got)
		}
	}
}

func TestHexToBytesStripsPrefix(t *testing.T) {
	got, err := HexToBytes("0xdeadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !BytesEqual(got, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("got %x", got)
	}

	got, err = HexToBytes("deadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !BytesEqual(got, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("got %x", got)
	}
}
