// Package console is a line-oriented provisioning portal for a serial port.
//
//	ssid=<name>      pass=<passphrase>
//	host=<collector> apikey=<key>
//	show             save
package console

import (
	"context"
	"io"
	"strings"

	"sensornode-go/errcode"
	"sensornode-go/services/provision"
	"sensornode-go/x/fmtx"
)

// Receiver is a context-aware byte source. *uartx.UART satisfies it.
type Receiver interface {
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
}

type Portal struct {
	in  Receiver
	out io.Writer
}

func New(in Receiver, out io.Writer) *Portal {
	return &Portal{in: in, out: out}
}

// Collect edits seed line by line until "save" with a valid form, or ctx ends.
func (p *Portal) Collect(ctx context.Context, seed provision.Form) (provision.Form, error) {
	f := seed
	p.say("config portal: ssid= pass= host= apikey= show save")
	p.show(f)
	var line []byte
	buf := make([]byte, 64)
	for {
		n, err := p.in.RecvSomeContext(ctx, buf)
		if err != nil {
			return seed, err
		}
		for _, b := range buf[:n] {
			if b != '\n' && b != '\r' {
				line = append(line, b)
				continue
			}
			if len(line) == 0 {
				continue
			}
			done, err := p.apply(&f, strings.TrimSpace(string(line)))
			line = line[:0]
			if err != nil {
				p.say("error: %s", err.Error())
				continue
			}
			if done {
				p.say("saved")
				return f, nil
			}
		}
	}
}

func (p *Portal) apply(f *provision.Form, line string) (bool, error) {
	switch line {
	case "save":
		return true, f.Validate()
	case "show":
		p.show(*f)
		return false, nil
	}
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return false, errcode.InvalidParams
	}
	next := *f
	switch strings.TrimSpace(key) {
	case "ssid":
		next.SSID = val
	case "pass":
		next.Passphrase = val
	case "host":
		next.Host = val
	case "apikey":
		next.AccessKey = val
	default:
		return false, errcode.InvalidParams
	}
	if err := next.Validate(); err != nil {
		return false, err
	}
	*f = next
	return false, nil
}

func (p *Portal) show(f provision.Form) {
	masked := ""
	if f.Passphrase != "" {
		masked = "********"
	}
	p.say("ssid=%s pass=%s host=%s apikey=%s", f.SSID, masked, f.Host, f.AccessKey)
}

func (p *Portal) say(format string, a ...any) {
	if p.out != nil {
		fmtx.Fprintf(p.out, format+"\r\n", a...)
	}
}

// ReaderReceiver adapts a blocking io.Reader (stdin, a pipe) to Receiver.
// The pump goroutine lives as long as the reader.
type ReaderReceiver struct {
	ch      chan chunk
	pending []byte
}

type chunk struct {
	b   []byte
	err error
}

func FromReader(r io.Reader) *ReaderReceiver {
	rr := &ReaderReceiver{ch: make(chan chunk, 4)}
	go func() {
		for {
			b := make([]byte, 64)
			n, err := r.Read(b)
			rr.ch <- chunk{b: b[:n], err: err}
			if err != nil {
				close(rr.ch)
				return
			}
		}
	}()
	return rr
}

func (rr *ReaderReceiver) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	if len(rr.pending) > 0 {
		n := copy(buf, rr.pending)
		rr.pending = rr.pending[n:]
		return n, nil
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case c, ok := <-rr.ch:
		if !ok {
			return 0, io.EOF
		}
		n := copy(buf, c.b)
		rr.pending = c.b[n:]
		if n == 0 && c.err != nil {
			return 0, c.err
		}
		return n, nil
	}
}
