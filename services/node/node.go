// Package node assembles the cycle from a board.
package node

import (
	"log/slog"
	"time"

	"sensornode-go/bus"
	"sensornode-go/drivers/aht20"
	"sensornode-go/services/cycle"
	"sensornode-go/services/hal"
	"sensornode-go/services/measure"
	"sensornode-go/services/provision"
	"sensornode-go/services/signal"
	"sensornode-go/services/store"
	"sensornode-go/services/uplink"
	"sensornode-go/types"
	"sensornode-go/x/timex"
)

type Options struct {
	Clock timex.Clock
	Bus   *bus.Connection
	Log   *slog.Logger
}

// Assemble wires every stage to b and returns the cycle ready to Boot.
func Assemble(b *hal.Board, o Options) *cycle.Controller {
	p := b.Profile.Normalize()
	clock := o.Clock
	if clock == nil {
		clock = timex.Real{}
	}

	st := store.New(b.Flash, o.Log)
	link := provision.NewLinkProvisioner(b.Link, st, b.Portal, time.Duration(p.JoinTimeout), o.Log)
	gate := provision.NewGate(b.Button, link, clock, provision.GateConfig{
		ButtonWindow:       time.Duration(p.ButtonWindow),
		AutoConnectTimeout: time.Duration(p.AutoConnectTimeout),
	}, o.Log)

	return cycle.New(cycle.Deps{
		Sensor: measure.New(measure.NewAHT20(b.I2C, aht20.Config{}), o.Log),
		Store:  st,
		Gate:   gate,
		Signal: signal.New(b.Light, clock, o.Log),
		Uplink: uplink.New(b.Dialer, p.UplinkConfig(), o.Log),
		Identity: func() (types.Identity, error) {
			mac, err := link.HardwareAddr()
			if err != nil {
				return "", err
			}
			return types.IdentityFromMAC(mac)
		},
		Power: b.Power,
		Clock: clock,
		Bus:   o.Bus,
		Log:   o.Log,
	}, cycle.Config{
		SleepInterval:    time.Duration(p.SleepInterval),
		DiagnosticPeriod: time.Duration(p.DiagnosticPeriod),
	})
}
