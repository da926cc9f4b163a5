//go:build !(rp2040 || rp2350)

// Package fmtx is the formatting subset firmware code may use. Host builds
// defer to fmt; rp2 builds use a small formatter to keep fmt out of flash.
package fmtx

import (
	"fmt"
	"io"
)

func Sprintf(format string, a ...any) string { return fmt.Sprintf(format, a...) }

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	return fmt.Fprintf(w, format, a...)
}
