// Package cycle runs one boot of the node: measure, provision, connect,
// transmit, then either deep sleep or a diagnostic period followed by a reset.
//
// There is no loop across boots. Every path ends in a power action and the
// next cycle starts from a cold boot with only the stored configuration.
package cycle

import (
	"context"
	"log/slog"
	"net"
	"time"

	"sensornode-go/bus"
	"sensornode-go/errcode"
	"sensornode-go/services/provision"
	"sensornode-go/services/signal"
	"sensornode-go/types"
	"sensornode-go/x/logx"
	"sensornode-go/x/mathx"
	"sensornode-go/x/timex"
)

var (
	TopicState  = bus.Topic{"node", "state"}
	TopicReport = bus.Topic{"node", "report"}
)

// stateFallback has no transitions; reaching it runs the rapid-blink pattern.
const stateFallback types.State = 0xFF

// ---- Collaborators ----

type Acquirer interface {
	Acquire() types.Reading
}

type ConfigStore interface {
	Load() (types.DeviceConfig, error)
	Save(types.DeviceConfig) error
}

type Gate interface {
	Resolve(ctx context.Context, current types.DeviceConfig) (provision.Result, error)
}

// Uplink opens the transport and runs one exchange. Exchange owns conn and
// closes it.
type Uplink interface {
	Connect(ctx context.Context, host string) (net.Conn, error)
	Exchange(conn net.Conn, cfg types.DeviceConfig, id types.Identity, r types.Reading) error
}

type Signal interface {
	On()
	Off()
	Run(ctx context.Context, p signal.Pattern, d time.Duration) int
	RunFallback(ctx context.Context)
}

// Power is the board's terminal control. Neither call is expected to return
// on hardware.
type Power interface {
	DeepSleep(d time.Duration)
	Reset()
}

type Deps struct {
	Sensor   Acquirer
	Store    ConfigStore
	Gate     Gate
	Signal   Signal
	Uplink   Uplink
	Identity func() (types.Identity, error)
	Power    Power
	Clock    timex.Clock
	Bus      *bus.Connection // optional
	Log      *slog.Logger
}

type Config struct {
	SleepInterval    time.Duration
	DiagnosticPeriod time.Duration
	RebootSettle     time.Duration
	SleepSettle      time.Duration
}

func DefaultConfig() Config {
	return Config{
		SleepInterval:    5 * time.Minute,
		DiagnosticPeriod: 5 * time.Minute,
		RebootSettle:     time.Second,
		SleepSettle:      100 * time.Millisecond,
	}
}

// normalize fills zero values and keeps timings in ranges the hardware can honour.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.SleepInterval <= 0 {
		c.SleepInterval = d.SleepInterval
	}
	if c.DiagnosticPeriod <= 0 {
		c.DiagnosticPeriod = d.DiagnosticPeriod
	}
	if c.RebootSettle <= 0 {
		c.RebootSettle = d.RebootSettle
	}
	if c.SleepSettle <= 0 {
		c.SleepSettle = d.SleepSettle
	}
	c.SleepInterval = mathx.Clamp(c.SleepInterval, time.Second, 24*time.Hour)
	c.DiagnosticPeriod = mathx.Clamp(c.DiagnosticPeriod, time.Second, time.Hour)
	c.RebootSettle = mathx.Clamp(c.RebootSettle, time.Millisecond, 10*time.Second)
	c.SleepSettle = mathx.Clamp(c.SleepSettle, time.Millisecond, 10*time.Second)
	return c
}

// ---- Controller ----

type Controller struct {
	d   Deps
	cfg Config
	log *slog.Logger

	dev    types.DeviceConfig
	conn   net.Conn
	report types.Report
}

func New(d Deps, cfg Config) *Controller {
	if d.Clock == nil {
		d.Clock = timex.Real{}
	}
	return &Controller{d: d, cfg: cfg.normalize(), log: logx.Module(d.Log, "cycle")}
}

// Boot runs the cycle and hands its terminal action to Power.
func (c *Controller) Boot(ctx context.Context) types.Report {
	rep := c.Run(ctx)
	Apply(c.d.Power, rep.Action)
	return rep
}

// Apply performs a terminal action.
func Apply(p Power, a types.Action) {
	if p == nil {
		return
	}
	switch a.Kind {
	case types.ActionSleep:
		p.DeepSleep(a.After)
	default:
		p.Reset()
	}
}

// Run drives the state machine from Boot until it reaches Sleep or
// FailReboot and returns the report. It does not touch Power.
func (c *Controller) Run(ctx context.Context) types.Report {
	c.report = types.Report{}
	s := types.StateBoot
	for {
		c.enter(s)
		next, done := c.step(ctx, s)
		if done {
			break
		}
		s = next
	}
	c.log.Info("cycle done", "outcome", c.report.Outcome.String(), "action", c.report.Action.Kind.String(), "after", c.report.Action.After)
	c.publish(TopicReport, c.report)
	return c.report
}

func (c *Controller) enter(s types.State) {
	c.report.States = append(c.report.States, s)
	c.log.Debug("state", "state", s.String())
	c.publish(TopicState, s.String())
}

func (c *Controller) step(ctx context.Context, s types.State) (types.State, bool) {
	switch s {
	case types.StateBoot:
		return c.boot(), false
	case types.StateProvision:
		return c.provision(ctx), false
	case types.StateConnect:
		return c.connect(ctx), false
	case types.StateTransmit:
		return c.transmit(), false
	case types.StateDiagnose:
		return c.diagnose(ctx), false
	case types.StateSleep:
		c.d.Signal.Off()
		_ = c.d.Clock.Sleep(ctx, c.cfg.SleepSettle)
		c.report.Action = types.Action{Kind: types.ActionSleep, After: c.cfg.SleepInterval}
		return s, true
	case types.StateFailReboot:
		_ = c.d.Clock.Sleep(ctx, c.cfg.RebootSettle)
		c.report.Action = types.Action{Kind: types.ActionReset}
		return s, true
	default:
		c.log.Error("no transition", "state", uint8(s))
		c.d.Signal.RunFallback(ctx)
		c.report.Action = types.Action{Kind: types.ActionReset}
		return s, true
	}
}

func (c *Controller) boot() types.State {
	c.d.Signal.On()
	c.report.Reading = c.d.Sensor.Acquire()

	id, err := c.d.Identity()
	if err != nil {
		c.log.Warn("identity unavailable", "err", err)
		id = "000000000000"
	}
	c.report.Identity = id

	dev, err := c.d.Store.Load()
	switch {
	case err == nil:
	case errcode.Of(err) == errcode.BlankRecord:
		c.log.Info("no stored configuration")
	default:
		c.log.Warn("configuration load failed", "err", err)
	}
	c.dev = dev
	return types.StateProvision
}

func (c *Controller) provision(ctx context.Context) types.State {
	res, err := c.d.Gate.Resolve(ctx, c.dev)
	if err != nil {
		c.log.Error("provisioning failed", "err", err)
		return stateFallback
	}
	if res.Status == provision.Updated {
		if err := c.d.Store.Save(res.Config); err != nil {
			c.log.Error("saving configuration failed", "err", err)
		} else {
			c.report.Updated = true
		}
		c.dev = res.Config
	}
	c.report.Connected = res.Connected
	if res.TimedOut {
		c.report.Outcome = types.ProvisioningTimeout
	}
	if res.Connected {
		c.d.Signal.Off()
	}
	return types.StateConnect
}

func (c *Controller) connect(ctx context.Context) types.State {
	conn, err := c.d.Uplink.Connect(ctx, c.dev.Host)
	if err != nil {
		c.log.Warn("collector unreachable", "host", c.dev.Host, "err", err)
		c.report.Outcome = types.ConnectionFailed
		return types.StateDiagnose
	}
	c.d.Signal.Off()
	c.conn = conn
	return types.StateTransmit
}

func (c *Controller) transmit() types.State {
	err := c.d.Uplink.Exchange(c.conn, c.dev, c.report.Identity, c.report.Reading)
	c.conn = nil
	if err != nil {
		c.log.Warn("collector did not acknowledge", "err", err)
		c.report.Outcome = types.ServerRejected
		return types.StateDiagnose
	}
	c.report.Outcome = types.Success
	return types.StateSleep
}

func (c *Controller) diagnose(ctx context.Context) types.State {
	p, ok := signal.PatternFor(c.report.Outcome)
	if !ok {
		return stateFallback
	}
	reps := c.d.Signal.Run(ctx, p, c.cfg.DiagnosticPeriod)
	c.log.Info("diagnostic period over", "pattern", p.Name, "repeats", reps)
	return types.StateFailReboot
}

func (c *Controller) publish(t bus.Topic, payload any) {
	if c.d.Bus == nil {
		return
	}
	c.d.Bus.Publish(c.d.Bus.NewMessage(t, payload, true))
}
