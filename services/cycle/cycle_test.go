package cycle

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"sensornode-go/bus"
	"sensornode-go/errcode"
	"sensornode-go/services/provision"
	"sensornode-go/services/signal"
	"sensornode-go/services/store"
	"sensornode-go/types"
	"sensornode-go/x/timex"
)

type light struct {
	on   bool
	ons  int
	sets int
}

func (l *light) Set(on bool) {
	l.sets++
	if on && !l.on {
		l.ons++
	}
	l.on = on
}

type fixedSensor types.Reading

func (f fixedSensor) Acquire() types.Reading { return types.Reading(f) }

type gate struct {
	res   provision.Result
	err   error
	calls int
	seen  types.DeviceConfig
}

func (g *gate) Resolve(_ context.Context, cur types.DeviceConfig) (provision.Result, error) {
	g.calls++
	g.seen = cur
	if g.res.Status == provision.Unchanged {
		g.res.Config = cur
	}
	return g.res, g.err
}

type uplink struct {
	dialErr     error
	exchangeErr error
	exchanged   bool
	host        string
	closes      int
}

type countingConn struct {
	net.Conn
	closes *int
}

func (c countingConn) Close() error {
	*c.closes++
	return c.Conn.Close()
}

func (u *uplink) Connect(_ context.Context, host string) (net.Conn, error) {
	u.host = host
	if u.dialErr != nil {
		return nil, u.dialErr
	}
	a, b := net.Pipe()
	b.Close()
	return countingConn{Conn: a, closes: &u.closes}, nil
}

func (u *uplink) Exchange(conn net.Conn, _ types.DeviceConfig, _ types.Identity, _ types.Reading) error {
	defer conn.Close()
	u.exchanged = true
	return u.exchangeErr
}

type power struct {
	slept  time.Duration
	resets int
}

func (p *power) DeepSleep(d time.Duration) { p.slept = d }
func (p *power) Reset()                    { p.resets++ }

type rig struct {
	clk   *timex.Fake
	light *light
	store *store.Store
	gate  *gate
	up    *uplink
	power *power
	ctl   *Controller
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		clk:   timex.NewFake(time.Unix(1000, 0)),
		light: &light{},
		store: store.New(store.NewMemDevice(4096, 4096), nil),
		gate:  &gate{res: provision.Result{Connected: true}},
		up:    &uplink{},
		power: &power{},
	}
	if err := r.store.Save(types.DeviceConfig{Host: "emon.local", AccessKey: "key1"}); err != nil {
		t.Fatal(err)
	}
	return r
}

func (r *rig) build(b *bus.Connection) *Controller {
	r.ctl = New(Deps{
		Sensor:   fixedSensor{Temperature: 23.45, Humidity: 56.10},
		Store:    r.store,
		Gate:     r.gate,
		Signal:   signal.New(r.light, r.clk, nil),
		Uplink:   r.up,
		Identity: func() (types.Identity, error) { return "AABBCCDDEEFF", nil },
		Power:    r.power,
		Clock:    r.clk,
		Bus:      b,
	}, Config{})
	return r.ctl
}

func statesEqual(got []types.State, want ...types.State) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSuccessPathSleeps(t *testing.T) {
	r := newRig(t)
	rep := r.build(nil).Boot(context.Background())

	if rep.Outcome != types.Success {
		t.Fatalf("outcome = %v", rep.Outcome)
	}
	if !statesEqual(rep.States, types.StateBoot, types.StateProvision, types.StateConnect, types.StateTransmit, types.StateSleep) {
		t.Fatalf("states = %v", rep.States)
	}
	if r.power.slept != 5*time.Minute || r.power.resets != 0 {
		t.Fatalf("power = %+v", r.power)
	}
	if r.up.host != "emon.local" || rep.Identity != "AABBCCDDEEFF" {
		t.Fatalf("host=%q id=%q", r.up.host, rep.Identity)
	}
	if r.light.on || r.light.ons != 1 {
		t.Fatalf("light on=%v ons=%d, want held once then off", r.light.on, r.light.ons)
	}
	if r.clk.Slept() != 100*time.Millisecond {
		t.Fatalf("settle = %v", r.clk.Slept())
	}
}

func TestConnectionClosedOnlyByExchange(t *testing.T) {
	for _, exErr := range []error{nil, errcode.ServerRejected} {
		r := newRig(t)
		r.up.exchangeErr = exErr
		r.build(nil).Run(context.Background())
		if !r.up.exchanged || r.up.closes != 1 {
			t.Fatalf("exchange err %v: exchanged=%v closes=%d, want one close", exErr, r.up.exchanged, r.up.closes)
		}
	}
}

func failurePath(t *testing.T, r *rig, want types.Outcome, p signal.Pattern) {
	t.Helper()
	start := r.clk.Now()
	rep := r.build(nil).Boot(context.Background())
	elapsed := r.clk.Now().Sub(start)

	if rep.Outcome != want {
		t.Fatalf("outcome = %v, want %v", rep.Outcome, want)
	}
	if r.power.resets != 1 || r.power.slept != 0 {
		t.Fatalf("power = %+v", r.power)
	}
	period := 5 * time.Minute
	if elapsed < period || elapsed > period+p.Period()+time.Second {
		t.Fatalf("reset after %v, want within 5m plus one %v period", elapsed, p.Period())
	}
	reps := int((period + p.Period() - 1) / p.Period())
	if blinks := r.light.ons - 1; blinks != reps*p.Blinks {
		t.Fatalf("blinks = %d, want %d", blinks, reps*p.Blinks)
	}
	if r.light.on {
		t.Fatal("light left on before reset")
	}
}

func TestConnectionFailedBlinksOnceAndResets(t *testing.T) {
	r := newRig(t)
	r.up.dialErr = errcode.Wrap(errcode.ConnectFailed, "uplink.dial", errors.New("refused"))
	failurePath(t, r, types.ConnectionFailed, signal.ConnectFailed)
	if r.up.exchanged {
		t.Fatal("transmitted without a connection")
	}
}

func TestServerRejectedBlinksTwiceAndResets(t *testing.T) {
	r := newRig(t)
	r.up.exchangeErr = errcode.ServerRejected
	failurePath(t, r, types.ServerRejected, signal.ServerRejected)
	if !statesEqual(r.ctl.report.States, types.StateBoot, types.StateProvision, types.StateConnect, types.StateTransmit, types.StateDiagnose, types.StateFailReboot) {
		t.Fatalf("states = %v", r.ctl.report.States)
	}
}

func TestUpdatedConfigIsPersistedBeforeConnect(t *testing.T) {
	r := newRig(t)
	next := types.DeviceConfig{Host: "collector.example", AccessKey: "k2"}
	r.gate.res = provision.Result{Status: provision.Updated, Config: next, Connected: true}

	rep := r.build(nil).Run(context.Background())
	if !rep.Updated || r.up.host != "collector.example" {
		t.Fatalf("updated=%v host=%q", rep.Updated, r.up.host)
	}
	got, err := r.store.Load()
	if err != nil || got != next {
		t.Fatalf("stored = %+v, %v", got, err)
	}
}

func TestProvisioningTimeoutContinuesToConnect(t *testing.T) {
	r := newRig(t)
	r.gate.res = provision.Result{TimedOut: true}
	rep := r.build(nil).Run(context.Background())
	if rep.Outcome != types.Success || rep.Connected {
		t.Fatalf("report = %+v", rep)
	}
	for _, s := range rep.States {
		if s == types.StateFailReboot {
			t.Fatal("timeout led to FailReboot")
		}
	}
}

func TestProvisioningTimeoutThenDialFailure(t *testing.T) {
	r := newRig(t)
	r.gate.res = provision.Result{TimedOut: true}
	r.up.dialErr = errcode.ConnectFailed
	rep := r.build(nil).Run(context.Background())
	if rep.Outcome != types.ConnectionFailed || rep.Action.Kind != types.ActionReset {
		t.Fatalf("report = %+v", rep)
	}
}

func TestBlankStoreStillRuns(t *testing.T) {
	r := newRig(t)
	r.store = store.New(store.NewMemDevice(4096, 4096), nil)
	r.build(nil).Run(context.Background())
	if r.gate.calls != 1 || r.gate.seen != (types.DeviceConfig{}) {
		t.Fatalf("gate saw %+v after %d calls", r.gate.seen, r.gate.calls)
	}
}

func TestGateErrorRunsFallback(t *testing.T) {
	r := newRig(t)
	r.gate.err = errors.New("portal gone")
	ctx, cancel := context.WithCancel(context.Background())
	r.clk.Step = time.Millisecond
	go func() {
		for r.clk.Slept() < time.Minute {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()
	rep := r.build(nil).Run(ctx)
	if rep.Action.Kind != types.ActionReset {
		t.Fatalf("action = %v", rep.Action.Kind)
	}
	if last := rep.States[len(rep.States)-1]; last != stateFallback {
		t.Fatalf("last state = %v", last)
	}
}

func TestUnknownStateRunsFallback(t *testing.T) {
	r := newRig(t)
	c := r.build(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, done := c.step(ctx, types.State(42)); !done {
		t.Fatal("unknown state did not terminate")
	}
	if c.report.Action.Kind != types.ActionReset {
		t.Fatalf("action = %v", c.report.Action.Kind)
	}
}

func TestPublishesStateAndReport(t *testing.T) {
	b := bus.NewBus(16)
	r := newRig(t)
	r.build(b.NewConnection("cycle")).Run(context.Background())

	sub := b.NewConnection("test").Subscribe(bus.Topic{"node", "+"})
	got := map[string]any{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-sub.Channel():
			got[m.Topic.String()] = m.Payload
		case <-time.After(100 * time.Millisecond):
			t.Fatal("retained message missing")
		}
	}
	if got["node/state"] != "sleep" {
		t.Fatalf("node/state = %v", got["node/state"])
	}
	rep, ok := got["node/report"].(types.Report)
	if !ok || rep.Outcome != types.Success {
		t.Fatalf("node/report = %v", got["node/report"])
	}
}

func TestConfigNormalize(t *testing.T) {
	c := Config{SleepInterval: time.Millisecond, DiagnosticPeriod: 48 * time.Hour}.normalize()
	if c.SleepInterval != time.Second || c.DiagnosticPeriod != time.Hour {
		t.Fatalf("normalize = %+v", c)
	}
	if c.RebootSettle != time.Second || c.SleepSettle != 100*time.Millisecond {
		t.Fatalf("defaults = %+v", c)
	}
}
