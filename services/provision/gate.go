// Package provision decides, once per boot, whether the node enters
// interactive configuration or proceeds with what it has stored.
package provision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sensornode-go/types"
	"sensornode-go/x/logx"
	"sensornode-go/x/timex"
)

// Button is the configuration-request input.
type Button interface {
	Pressed() bool
}

// Provisioner is the network-provisioning collaborator.
type Provisioner interface {
	// Portal runs interactive configuration until the operator submits or ctx ends.
	Portal(ctx context.Context, seed types.DeviceConfig) (Outcome, error)
	// AutoConnect joins the stored network, falling back to the portal until ctx ends.
	AutoConnect(ctx context.Context, seed types.DeviceConfig) (Outcome, error)
}

// Outcome is what a Provisioner reports back.
type Outcome struct {
	Config    types.DeviceConfig
	Submitted bool // the operator saved the form
	Connected bool // network association confirmed
}

type Status uint8

const (
	Unchanged Status = iota
	Updated
)

func (s Status) String() string {
	if s == Updated {
		return "updated"
	}
	return "unchanged"
}

// Result is the gate's decision. The caller persists Config when Status is Updated.
type Result struct {
	Status    Status
	Config    types.DeviceConfig
	Connected bool
	// TimedOut is set when auto-connect hit its deadline; the cycle carries on.
	TimedOut bool
	// Portal is set when the button forced interactive mode.
	Portal bool
}

type GateConfig struct {
	ButtonWindow       time.Duration
	ButtonPoll         time.Duration
	AutoConnectTimeout time.Duration
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		ButtonWindow:       time.Second,
		ButtonPoll:         10 * time.Millisecond,
		AutoConnectTimeout: 5 * time.Minute,
	}
}

type Gate struct {
	btn   Button
	prov  Provisioner
	clock timex.Clock
	cfg   GateConfig
	log   *slog.Logger
}

func NewGate(btn Button, prov Provisioner, clock timex.Clock, cfg GateConfig, log *slog.Logger) *Gate {
	def := DefaultGateConfig()
	if cfg.ButtonWindow <= 0 {
		cfg.ButtonWindow = def.ButtonWindow
	}
	if cfg.ButtonPoll <= 0 {
		cfg.ButtonPoll = def.ButtonPoll
	}
	if cfg.AutoConnectTimeout <= 0 {
		cfg.AutoConnectTimeout = def.AutoConnectTimeout
	}
	if clock == nil {
		clock = timex.Real{}
	}
	return &Gate{btn: btn, prov: prov, clock: clock, cfg: cfg, log: logx.Module(log, "provision")}
}

// Resolve samples the button and then runs either the untimed portal or the
// bounded auto-connect. An auto-connect timeout is not an error.
func (g *Gate) Resolve(ctx context.Context, current types.DeviceConfig) (Result, error) {
	if g.requested(ctx) {
		g.log.Info("configuration requested, portal open without timeout")
		out, err := g.prov.Portal(ctx, current)
		if err != nil {
			return Result{Config: current, Portal: true}, err
		}
		res := g.result(current, out)
		res.Portal = true
		return res, nil
	}

	actx, cancel := context.WithTimeout(ctx, g.cfg.AutoConnectTimeout)
	defer cancel()
	out, err := g.prov.AutoConnect(actx, current)
	if err != nil {
		if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			g.log.Warn("auto-connect timed out, continuing without connectivity", "after", g.cfg.AutoConnectTimeout)
			res := g.result(current, out)
			res.Connected = false
			res.TimedOut = true
			return res, nil
		}
		return Result{Config: current}, err
	}
	return g.result(current, out), nil
}

// requested polls the button for the sampling window; any asserted sample counts.
func (g *Gate) requested(ctx context.Context) bool {
	start := g.clock.Now()
	for {
		if g.btn.Pressed() {
			return true
		}
		if timex.Deadline(g.clock, start, g.cfg.ButtonWindow) {
			return false
		}
		if g.clock.Sleep(ctx, g.cfg.ButtonPoll) != nil {
			return false
		}
	}
}

func (g *Gate) result(current types.DeviceConfig, out Outcome) Result {
	res := Result{Status: Unchanged, Config: current, Connected: out.Connected}
	if !out.Submitted || out.Config == current {
		return res
	}
	if err := out.Config.Validate(); err != nil {
		g.log.Warn("submitted configuration rejected", "err", err)
		return res
	}
	res.Status = Updated
	res.Config = out.Config
	return res
}
