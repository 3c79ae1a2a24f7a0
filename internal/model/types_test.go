package model

import "testing"

func TestParseDigestRoundTripsWithString(t *testing.T) {
	d := Digest{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}

	parsed, err := ParseDigest(d.String())
	if err != nil {
		t.Fatalf("ParseDigest(%s): %v", d.String(), err)
	}
	if !parsed.Equal(d) {
		t.Errorf("round-trip mismatch: got %v, want %v", parsed, d)
	}
}

func TestParseDigestAcceptsUnprefixedHex(t *testing.T) {
	d := Digest{0xde, 0xad, 0xbe, 0xef}
	hex := d.String()[2:] // strip the 0x ParseDigest must also accept without it

	parsed, err := ParseDigest(hex)
	if err != nil {
		t.Fatalf("ParseDigest(%s): %v", hex, err)
	}
	if !parsed.Equal(d) {
		t.Errorf("got %v, want %v", parsed, d)
	}
}

func TestParseDigestRejectsWrongLength(t *testing.T) {
	if _, err := ParseDigest("deadbeef"); err == nil {
		t.Error("expected an error for a hex string shorter than 20 bytes")
	}
}

func TestDigestEqual(t *testing.T) {
	a := Digest{1, 2, 3}
	b := Digest{1, 2, 3}
	c := Digest{1, 2, 4}

	if !a.Equal(b) {
		t.Error("expected equal digests to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected differing digests to compare unequal")
	}
}
