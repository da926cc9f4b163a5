//go:build rp2040 || rp2350

package strconvx

import "math"

// Same signatures as strconv without pulling it into the image. Floats are
// decimal-only ('f'); other verbs fall back to it. Rounding is half-up on
// the binary value, which is enough for the sensor's two decimals.

const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

type syntaxError struct{ s string }

func (e syntaxError) Error() string { return "strconvx: parsing " + e.s + ": invalid syntax" }

func Itoa(i int) string { return FormatInt(int64(i), 10) }

func FormatInt(i int64, base int) string {
	var buf [65]byte
	if i < 0 {
		b := appendUint(buf[:1], uint64(-i), base)
		b[0] = '-'
		return string(b)
	}
	return string(appendUint(buf[:0], uint64(i), base))
}

func FormatUint(u uint64, base int) string {
	var buf [64]byte
	return string(appendUint(buf[:0], u, base))
}

func appendUint(dst []byte, u uint64, base int) []byte {
	if base < 2 || base > len(digits) {
		base = 10
	}
	var tmp [64]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = digits[u%uint64(base)]
		u /= uint64(base)
		if u == 0 {
			break
		}
	}
	return append(dst, tmp[i:]...)
}

func FormatFloat(f float64, _ byte, prec, _ int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	if prec < 0 {
		prec = 6
	}
	var buf [48]byte
	b := buf[:0]
	if f < 0 {
		b = append(b, '-')
		f = -f
	}
	scale := math.Pow10(prec)
	whole, frac := math.Modf(f)
	n := uint64(whole)
	fr := uint64(frac*scale + 0.5)
	if fr >= uint64(scale) {
		fr -= uint64(scale)
		n++
	}
	b = appendUint(b, n, 10)
	if prec == 0 {
		return string(b)
	}
	b = append(b, '.')
	mark := len(b)
	b = appendUint(b, fr, 10)
	if pad := prec - (len(b) - mark); pad > 0 {
		b = append(b, make([]byte, pad)...)
		copy(b[mark+pad:], b[mark:len(b)-pad])
		for i := mark; i < mark+pad; i++ {
			b[i] = '0'
		}
	}
	return string(b)
}

// ParseFloat accepts [+-]digits[.digits] plus nan and [+-]inf in any case.
func ParseFloat(s string, _ int) (float64, error) {
	body, neg := s, false
	if len(body) > 0 && (body[0] == '+' || body[0] == '-') {
		neg = body[0] == '-'
		body = body[1:]
	}
	switch lower(body) {
	case "nan":
		return math.NaN(), nil
	case "inf", "infinity":
		if neg {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	}

	var v float64
	seen := false
	i := 0
	for ; i < len(body) && isDigit(body[i]); i++ {
		v = v*10 + float64(body[i]-'0')
		seen = true
	}
	if i < len(body) && body[i] == '.' {
		i++
		for scale := 0.1; i < len(body) && isDigit(body[i]); i++ {
			v += float64(body[i]-'0') * scale
			scale /= 10
			seen = true
		}
	}
	if !seen || i != len(body) {
		return 0, syntaxError{s}
	}
	if neg {
		v = -v
	}
	return v, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func lower(s string) string {
	if len(s) > 8 {
		return ""
	}
	var b [8]byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b[:len(s)])
}
