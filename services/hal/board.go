package hal

import (
	"io"
	"time"

	"sensornode-go/services/provision"
	"sensornode-go/services/store"
	"sensornode-go/services/uplink"

	"tinygo.org/x/drivers"
)

// Power is the terminal control of the board.
type Power interface {
	DeepSleep(d time.Duration)
	Reset()
}

// Board is everything the node needs from one piece of hardware.
type Board struct {
	Profile Profile
	Light   *StatusLight
	Button  *Button
	I2C     drivers.I2C
	Flash   store.Device
	Link    provision.Linker
	Dialer  uplink.Dialer
	Portal  provision.Portal
	Power   Power
	// Log receives the diagnostic text log; io.Discard when disabled.
	Log io.Writer
}

// UplinkConfig derives the transmitter settings from the profile.
func (p Profile) UplinkConfig() uplink.Config {
	c := uplink.DefaultConfig()
	c.Port = p.Port
	c.TLS = p.TLS
	c.InsecureSkipVerify = p.Insecure
	c.Node = p.Node
	return c
}
