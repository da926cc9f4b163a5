package uplink

import (
	"math"

	"sensornode-go/types"
	"sensornode-go/x/strconvx"
)

const inputPath = "/input/post.json"

// Payload renders the collector's JSON-like fragment: {<id>.T:<t>,<id>.H:<h>}.
// Keys are unquoted; the collector accepts this form.
func Payload(id types.Identity, r types.Reading) string {
	b := make([]byte, 0, 2*len(id)+24)
	b = append(b, '{')
	b = append(b, id...)
	b = append(b, ".T:"...)
	b = append(b, formatValue(r.Temperature)...)
	b = append(b, ',')
	b = append(b, id...)
	b = append(b, ".H:"...)
	b = append(b, formatValue(r.Humidity)...)
	b = append(b, '}')
	return string(b)
}

// BuildRequest returns the complete HTTP/1.1 request for one reading.
func BuildRequest(node int, cfg types.DeviceConfig, id types.Identity, r types.Reading) []byte {
	b := make([]byte, 0, 160)
	b = append(b, "GET "...)
	b = append(b, inputPath...)
	b = append(b, "?node="...)
	b = append(b, strconvx.Itoa(node)...)
	b = append(b, "&apikey="...)
	b = append(b, cfg.AccessKey...)
	b = append(b, "&json="...)
	b = append(b, Payload(id, r)...)
	b = append(b, " HTTP/1.1\r\n"...)
	b = append(b, "Host: "...)
	b = append(b, cfg.Host...)
	b = append(b, "\r\nConnection: close\r\n\r\n"...)
	return b
}

// formatValue prints two decimals; a failed sensor read travels as "nan".
func formatValue(v float32) string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconvx.FormatFloat(f, 'f', 2, 32)
}
