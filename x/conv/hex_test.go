package conv

import "testing"

func TestU8Hex(t *testing.T) {
	var b2 [2]byte
	for in, want := range map[byte]string{0x0F: "0F", 0xA0: "A0", 0xFF: "FF", 0: "00"} {
		if got := string(U8Hex(b2[:], in)); got != want {
			t.Fatalf("U8Hex(%#x) = %q, want %q", in, got, want)
		}
	}
	if got := U8Hex(b2[:1], 0xFF); len(got) != 0 {
		t.Fatal("U8Hex should refuse short buffers")
	}
}
