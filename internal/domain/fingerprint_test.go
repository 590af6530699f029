package domain

import "testing"

func TestHammingDistance(t *testing.T) {
	testCases := []struct {
		name string
		a    uint64
		b    uint64
		want int
	}{
		{name: "identical", a: 0xdeadbeefdeadbeef, b: 0xdeadbeefdeadbeef, want: 0},
		{name: "one bit", a: 0x0, b: 0x1, want: 1},
		{name: "three bits", a: 0x0, b: 0b111, want: 3},
		{name: "all bits", a: 0x0, b: ^uint64(0), want: 64},
		{name: "symmetric", a: 0b1010, b: 0b0101, want: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HammingDistance(tc.a, tc.b); got != tc.want {
				t.Errorf("HammingDistance(%x, %x) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
			if got := HammingDistance(tc.b, tc.a); got != tc.want {
				t.Errorf("HammingDistance(%x, %x) = %d, want %d", tc.b, tc.a, got, tc.want)
			}
		})
	}
}

// TestPHashRoundTrip verifies that the persisted hex form decodes back to the
// same 64-bit hash, including leading zeros
func TestPHashRoundTrip(t *testing.T) {
	for _, h := range []uint64{0, 1, 0x00000000000000ff, 0xdeadbeefdeadbeef, ^uint64(0)} {
		fp := Fingerprint{PHash: h}
		s := fp.PHashString()
		if len(s) != 16 {
			t.Errorf("PHashString(%x) has length %d, want 16", h, len(s))
		}
		got, err := ParsePHash(s)
		if err != nil {
			t.Fatalf("ParsePHash(%q) returned error: %v", s, err)
		}
		if got != h {
			t.Errorf("ParsePHash(PHashString(%x)) = %x", h, got)
		}
	}
}

func TestParsePHashInvalid(t *testing.T) {
	if _, err := ParsePHash("not-hex"); err == nil {
		t.Error("ParsePHash(not-hex) should return an error")
	}
	if _, err := ParsePHash(""); err == nil {
		t.Error("ParsePHash of empty string should return an error")
	}
}
