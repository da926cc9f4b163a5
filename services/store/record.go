// Package store keeps the node's fixed-size records in non-volatile memory.
//
// Layout (offsets from the start of the data region):
//
//	0    device config  {host[40], accessKey[33]}  (100 bytes reserved)
//	128  link creds     {ssid[33], passphrase[65]} (owned by provisioning)
//
// Every field is NUL-terminated inside its slot. Writes are not protected
// against power loss.
package store

import (
	"bytes"

	"sensornode-go/errcode"
	"sensornode-go/types"
)

const (
	ConfigOffset   = 0
	ConfigReserved = 100

	hostField = types.HostCap + 1
	keyField  = types.AccessKeyCap + 1

	// ConfigSize is the on-media size of the device config record.
	ConfigSize = hostField + keyField
)

const (
	LinkOffset = 128

	SSIDCap       = 32
	PassphraseCap = 64

	ssidField = SSIDCap + 1
	passField = PassphraseCap + 1

	LinkSize = ssidField + passField
)

// LinkCredentials is the stored network identity used by auto-connect.
type LinkCredentials struct {
	SSID       string
	Passphrase string
}

// EncodeConfig lays cfg out as a fixed record. Over-long fields are refused, not truncated.
func EncodeConfig(cfg types.DeviceConfig) ([ConfigSize]byte, error) {
	var rec [ConfigSize]byte
	if err := cfg.Validate(); err != nil {
		return rec, err
	}
	copy(rec[:hostField], cfg.Host)
	copy(rec[hostField:], cfg.AccessKey)
	return rec, nil
}

// DecodeConfig parses a record. A slot without a terminator (erased or
// never-written media) yields BlankRecord and an empty config.
func DecodeConfig(rec []byte) (types.DeviceConfig, error) {
	if len(rec) < ConfigSize {
		return types.DeviceConfig{}, errcode.InvalidParams
	}
	host, ok1 := field(rec[:hostField])
	key, ok2 := field(rec[hostField:ConfigSize])
	if !ok1 || !ok2 {
		return types.DeviceConfig{}, errcode.BlankRecord
	}
	return types.DeviceConfig{Host: host, AccessKey: key}, nil
}

func EncodeLink(c LinkCredentials) ([LinkSize]byte, error) {
	var rec [LinkSize]byte
	if len(c.SSID) > SSIDCap {
		return rec, &errcode.E{C: errcode.FieldTooLong, Op: "link", Msg: "ssid"}
	}
	if len(c.Passphrase) > PassphraseCap {
		return rec, &errcode.E{C: errcode.FieldTooLong, Op: "link", Msg: "passphrase"}
	}
	copy(rec[:ssidField], c.SSID)
	copy(rec[ssidField:], c.Passphrase)
	return rec, nil
}

func DecodeLink(rec []byte) (LinkCredentials, error) {
	if len(rec) < LinkSize {
		return LinkCredentials{}, errcode.InvalidParams
	}
	ssid, ok1 := field(rec[:ssidField])
	pass, ok2 := field(rec[ssidField:LinkSize])
	if !ok1 || !ok2 {
		return LinkCredentials{}, errcode.BlankRecord
	}
	return LinkCredentials{SSID: ssid, Passphrase: pass}, nil
}

// field returns the bytes before the first NUL in slot.
func field(slot []byte) (string, bool) {
	i := bytes.IndexByte(slot, 0)
	if i < 0 {
		return "", false
	}
	return string(slot[:i]), true
}
