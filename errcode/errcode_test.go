package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"ok":                       OK,
		"timeout":                  Timeout,
		"connect_failed":           ConnectFailed,
		"server_rejected":          ServerRejected,
		"provisioning_unavailable": ProvisioningUnavailable,
		"field_too_long":           FieldTooLong,
		"blank_record":             BlankRecord,
		"short_write":              ShortWrite,
		"short_read":               ShortRead,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("Of(nil) should be OK")
	}
	if Of(Timeout) != Timeout {
		t.Fatal("Of(Code) should return the code")
	}
	cause := errors.New("refused")
	err := Wrap(ConnectFailed, "uplink.dial", cause)
	if Of(err) != ConnectFailed {
		t.Fatalf("Of(wrapped) = %q", Of(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should unwrap to its cause")
	}
	if got, want := err.Error(), "uplink.dial: connect_failed: refused"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if Of(errors.New("x")) != Error {
		t.Fatal("plain errors should map to Error")
	}
}

func TestOfSeesThroughWrapping(t *testing.T) {
	inner := Wrap(BlankRecord, "store.load", nil)
	if got := Of(fmt.Errorf("boot: %w", inner)); got != BlankRecord {
		t.Fatalf("Of(fmt-wrapped E) = %q, want blank_record", got)
	}
	if got := Of(fmt.Errorf("dial: %w", Timeout)); got != Timeout {
		t.Fatalf("Of(fmt-wrapped Code) = %q, want timeout", got)
	}
	outer := Wrap(ServerRejected, "uplink.read", Timeout)
	if got := Of(outer); got != ServerRejected {
		t.Fatalf("Of(nested) = %q, want the outer code", got)
	}
}
