//go:build rp2040 || rp2350

package fmtx

import (
	"io"

	"sensornode-go/x/strconvx"
)

// Supported verbs: %s %q %d %x %t %v %f %% with an optional precision.

func Sprintf(format string, a ...any) string {
	var b builder
	b.format(format, a)
	return string(b.buf)
}

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	var b builder
	b.format(format, a)
	return w.Write(b.buf)
}

type builder struct{ buf []byte }

func (b *builder) str(s string) { b.buf = append(b.buf, s...) }

func (b *builder) format(format string, args []any) {
	ai := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.buf = append(b.buf, c)
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			b.buf = append(b.buf, '%')
			continue
		}
		prec := -1
		if i < len(format) && format[i] == '.' {
			prec = 0
			for i++; i < len(format) && '0' <= format[i] && format[i] <= '9'; i++ {
				prec = prec*10 + int(format[i]-'0')
			}
		}
		if i >= len(format) || ai >= len(args) {
			return
		}
		b.verb(format[i], prec, args[ai])
		ai++
	}
}

func (b *builder) verb(v byte, prec int, arg any) {
	switch v {
	case 's', 'v':
		b.value(arg, prec)
	case 'q':
		b.quote(arg)
	case 'd':
		if i, ok := toInt(arg); ok {
			b.str(strconvx.FormatInt(i, 10))
			return
		}
		b.str("%!d")
	case 'x':
		if i, ok := toInt(arg); ok {
			b.str(strconvx.FormatUint(uint64(i), 16))
			return
		}
		b.str("%!x")
	case 't':
		if t, ok := arg.(bool); ok && t {
			b.str("true")
		} else {
			b.str("false")
		}
	case 'f':
		if prec < 0 {
			prec = 6
		}
		switch f := arg.(type) {
		case float32:
			b.str(strconvx.FormatFloat(float64(f), 'f', prec, 32))
		case float64:
			b.str(strconvx.FormatFloat(f, 'f', prec, 64))
		default:
			b.str("%!f")
		}
	default:
		b.buf = append(b.buf, '%', v)
	}
}

func (b *builder) value(arg any, prec int) {
	switch x := arg.(type) {
	case string:
		if prec >= 0 && prec < len(x) {
			x = x[:prec]
		}
		b.str(x)
	case []byte:
		b.buf = append(b.buf, x...)
	case error:
		b.str(x.Error())
	case interface{ String() string }:
		b.str(x.String())
	case bool:
		b.verb('t', -1, x)
	case float32, float64:
		b.verb('f', prec, x)
	default:
		if i, ok := toInt(arg); ok {
			b.str(strconvx.FormatInt(i, 10))
			return
		}
		b.str("<?>")
	}
}

func (b *builder) quote(arg any) {
	s, _ := arg.(string)
	b.buf = append(b.buf, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '"':
			b.buf = append(b.buf, '\\', c)
		case '\n':
			b.str(`\n`)
		case '\r':
			b.str(`\r`)
		default:
			b.buf = append(b.buf, c)
		}
	}
	b.buf = append(b.buf, '"')
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	}
	return 0, false
}
