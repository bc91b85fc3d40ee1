package desfire

import "testing"

func TestBuildAPDUAllFourCases(t *testing.T) {
	cases := []struct {
		name   string
		data   []byte
		withLe bool
		le     byte
		want   string
	}{
		{"case1", nil, false, 0, "90600000"},
		{"case2", nil, true, 0x00, "9060000000"},
		{"case3", []byte{0x01, 0x02}, false, 0, "90600000020102"},
		{"case4", []byte{0x01, 0x02}, true, 0x00, "9060000002010200"},
	}
	for _, c := range cases {
		got := BuildAPDU(0x60, c.data, c.withLe, c.le)
		want := mustHex(c.want)
		if !bytesEqual(got, want) {
			t.Fatalf("%s: got % X want % X", c.name, got, want)
		}
	}
}

func TestBuildAPDUCase2WithZeroLeIsFiveBytesEndingZero(t *testing.T) {
	apdu := BuildAPDU(0x60, nil, true, 0x00)
	if len(apdu) != 5 {
		t.Fatalf("expected 5-byte APDU, got %d bytes", len(apdu))
	}
	if apdu[4] != 0x00 {
		t.Fatalf("expected last byte 0x00, got 0x%02X", apdu[4])
	}
}

func TestParseResponseRoundTrip(t *testing.T) {
	raw := mustHex("0102039000")
	parsed, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !bytesEqual(parsed.Data, mustHex("010203")) {
		t.Fatalf("unexpected data % X", parsed.Data)
	}
	if parsed.SW() != 0x9000 {
		t.Fatalf("unexpected SW %04X", parsed.SW())
	}
}

func TestParseResponseTooShortIsError(t *testing.T) {
	if _, err := ParseResponse([]byte{0x90}); err == nil {
		t.Fatalf("expected error for 1-byte response")
	}
}
