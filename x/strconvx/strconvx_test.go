package strconvx

import (
	"math"
	"testing"
)

func TestItoa(t *testing.T) {
	for v, want := range map[int]string{0: "0", 1: "1", -1: "-1", 443: "443", -99999: "-99999"} {
		if got := Itoa(v); got != want {
			t.Fatalf("Itoa(%d) = %q, want %q", v, got, want)
		}
	}
	if got := FormatUint(255, 16); got != "ff" {
		t.Fatalf("FormatUint(255,16) = %q", got)
	}
	if got := FormatInt(-15, 10); got != "-15" {
		t.Fatalf("FormatInt(-15,10) = %q, want -15", got)
	}
}

func TestFormatFloatTwoDecimals(t *testing.T) {
	type C struct {
		in      float64
		prec    int
		bitSize int
		want    string
	}
	for _, c := range []C{
		{0, 0, 64, "0"},
		{12.3, 1, 64, "12.3"},
		{12.375, 2, 64, "12.38"},
		{-1.25, 2, 64, "-1.25"},
		{float64(float32(23.45)), 2, 32, "23.45"},
		{float64(float32(56.10)), 2, 32, "56.10"},
		{0.999, 2, 64, "1.00"},
		{-7.5, 2, 64, "-7.50"},
	} {
		got := FormatFloat(c.in, 'f', c.prec, c.bitSize)
		if got != c.want {
			t.Fatalf("FormatFloat(%v,'f',%d) = %q, want %q", c.in, c.prec, got, c.want)
		}
		v, err := ParseFloat(got, 64)
		if err != nil {
			t.Fatalf("ParseFloat(%q) error: %v", got, err)
		}
		if FormatFloat(v, 'f', c.prec, 64) != c.want {
			t.Fatalf("round-trip mismatch for %q", c.want)
		}
	}

	if _, err := ParseFloat("12.3.4", 64); err == nil {
		t.Fatalf("ParseFloat invalid expected error")
	}
}

func TestNonFinite(t *testing.T) {
	if got := FormatFloat(math.NaN(), 'f', 2, 64); got != "NaN" {
		t.Fatalf("FormatFloat(NaN) = %q", got)
	}
	if got := FormatFloat(math.Inf(-1), 'f', 2, 64); got != "-Inf" {
		t.Fatalf("FormatFloat(-Inf) = %q", got)
	}
	if v, err := ParseFloat("nan", 64); err != nil || !math.IsNaN(v) {
		t.Fatalf("ParseFloat(nan) = %v, %v", v, err)
	}
	if v, err := ParseFloat("-inf", 64); err != nil || !math.IsInf(v, -1) {
		t.Fatalf("ParseFloat(-inf) = %v, %v", v, err)
	}
	for _, bad := range []string{"", "-", ".", "1e"} {
		if _, err := ParseFloat(bad, 64); err == nil {
			t.Fatalf("ParseFloat(%q) accepted", bad)
		}
	}
}
