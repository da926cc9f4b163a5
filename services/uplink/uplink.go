// Package uplink delivers one reading to the collector and interprets the reply.
//
// Success is deliberately lenient: any response line that starts with "ok",
// header lines included, marks the exchange successful. Status codes and
// bodies are not otherwise parsed.
package uplink

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"time"

	"sensornode-go/errcode"
	"sensornode-go/types"
	"sensornode-go/x/logx"
	"sensornode-go/x/strconvx"
)

// Dialer opens the transport. *net.Dialer satisfies it on host and on
// netdev-backed TinyGo targets.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Config struct {
	Port               int
	TLS                bool
	InsecureSkipVerify bool
	Node               int
	DialTimeout        time.Duration
	// ReadTimeout bounds the write and the whole response read.
	ReadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Port:        443,
		TLS:         true,
		Node:        1,
		DialTimeout: 15 * time.Second,
		ReadTimeout: 10 * time.Second,
	}
}

type Transmitter struct {
	dialer Dialer
	cfg    Config
	log    *slog.Logger
}

func New(d Dialer, cfg Config, log *slog.Logger) *Transmitter {
	def := DefaultConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.Node <= 0 {
		cfg.Node = def.Node
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if d == nil {
		d = &net.Dialer{Timeout: cfg.DialTimeout}
	}
	return &Transmitter{dialer: d, cfg: cfg, log: logx.Module(log, "uplink")}
}

// Connect opens the transport to host. Any failure, including a TLS
// handshake failure, is ConnectFailed.
func (t *Transmitter) Connect(ctx context.Context, host string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconvx.Itoa(t.cfg.Port))
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.log.Warn("connect failed", "addr", addr, "err", err)
		return nil, errcode.Wrap(errcode.ConnectFailed, "uplink.dial", err)
	}
	if !t.cfg.TLS {
		return conn, nil
	}
	tc := tls.Client(conn, &tls.Config{ServerName: host, InsecureSkipVerify: t.cfg.InsecureSkipVerify})
	if err := tc.HandshakeContext(ctx); err != nil {
		conn.Close()
		t.log.Warn("tls handshake failed", "addr", addr, "err", err)
		return nil, errcode.Wrap(errcode.ConnectFailed, "uplink.tls", err)
	}
	return tc, nil
}

// Exchange sends the request on conn and scans the reply. It closes conn.
// A missing ok line is ServerRejected; write and read errors count as missing.
func (t *Transmitter) Exchange(conn net.Conn, cfg types.DeviceConfig, id types.Identity, r types.Reading) error {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(t.cfg.ReadTimeout))

	req := BuildRequest(t.cfg.Node, cfg, id, r)
	if _, err := conn.Write(req); err != nil {
		t.log.Warn("request write failed", "err", err)
		return errcode.Wrap(errcode.ServerRejected, "uplink.write", err)
	}
	ok, err := ScanAck(conn)
	if ok {
		t.log.Info("collector acknowledged")
		return nil
	}
	return errcode.Wrap(errcode.ServerRejected, "uplink.read", err)
}

// Send is Connect followed by Exchange, mapped to a cycle outcome.
func (t *Transmitter) Send(ctx context.Context, cfg types.DeviceConfig, id types.Identity, r types.Reading) (types.Outcome, error) {
	conn, err := t.Connect(ctx, cfg.Host)
	if err != nil {
		return types.ConnectionFailed, err
	}
	if err := t.Exchange(conn, cfg, id, r); err != nil {
		return types.ServerRejected, err
	}
	return types.Success, nil
}

// ScanAck reads lines until one starts with "ok" or the stream ends. Only
// the head of an overlong line is checked; the rest is skipped.
func ScanAck(rd io.Reader) (bool, error) {
	br := bufio.NewReaderSize(rd, 256)
	head := true
	for {
		frag, err := br.ReadSlice('\n')
		if head && bytes.HasPrefix(frag, ack) {
			return true, nil
		}
		switch err {
		case nil:
			head = true
		case bufio.ErrBufferFull:
			head = false
		case io.EOF:
			return false, nil
		default:
			return false, err
		}
	}
}

var ack = []byte("ok")
