// Package conv holds allocation-free formatting helpers for firmware paths.
package conv

const hexd = "0123456789ABCDEF"

// U8Hex writes 2-digit uppercase hex into the first two bytes of buf.
func U8Hex(buf []byte, b byte) []byte {
	if len(buf) < 2 {
		return buf[:0]
	}
	buf[0] = hexd[b>>4]
	buf[1] = hexd[b&0xF]
	return buf[:2]
}
