package errcode

import "errors"

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }
func (c Code) Code() Code    { return c }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"

	// Cycle outcomes that leave the device.
	ConnectFailed           Code = "connect_failed"
	ServerRejected          Code = "server_rejected"
	ProvisioningUnavailable Code = "provisioning_unavailable"

	// Storage.
	FieldTooLong Code = "field_too_long"
	BlankRecord  Code = "blank_record"
	ShortWrite   Code = "short_write"
	ShortRead    Code = "short_read"

	Error Code = "error" // generic fallback
)

// E is used when we want to keep an operation name and a cause next to the code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches op and cause to c. A nil cause still yields a non-nil error.
func Wrap(c Code, op string, err error) error {
	return &E{C: c, Op: op, Err: err}
}

type coder interface{ Code() Code }

// Of extracts the outermost code in err's chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}
