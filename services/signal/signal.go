// Package signal drives the single status light.
//
// The light is held on from boot until connectivity is confirmed. Blink
// patterns are only used on terminal failure paths and every pattern loop is
// bounded by elapsed wall-clock time, not by a count of blinks.
package signal

import (
	"context"
	"log/slog"
	"time"

	"sensornode-go/types"
	"sensornode-go/x/logx"
	"sensornode-go/x/timex"
)

// Light is one digital output.
type Light interface {
	Set(on bool)
}

// Pattern is N short blinks followed by a pause.
type Pattern struct {
	Name   string
	Blinks int
	On     time.Duration
	Off    time.Duration
	Pause  time.Duration
}

// Period is the length of one repetition.
func (p Pattern) Period() time.Duration {
	return time.Duration(p.Blinks)*(p.On+p.Off) + p.Pause
}

var (
	ConnectFailed  = Pattern{Name: "connect_failed", Blinks: 1, On: 150 * time.Millisecond, Off: 150 * time.Millisecond, Pause: time.Second}
	ServerRejected = Pattern{Name: "server_rejected", Blinks: 2, On: 150 * time.Millisecond, Off: 150 * time.Millisecond, Pause: time.Second}
	Fallback       = Pattern{Name: "fallback", Blinks: 1, On: 100 * time.Millisecond, Off: 100 * time.Millisecond}
)

// PatternFor maps a failure outcome to its pattern. Success and
// ProvisioningTimeout have no blink pattern.
func PatternFor(o types.Outcome) (Pattern, bool) {
	switch o {
	case types.ConnectionFailed:
		return ConnectFailed, true
	case types.ServerRejected:
		return ServerRejected, true
	default:
		return Pattern{}, false
	}
}

type Controller struct {
	light Light
	clock timex.Clock
	log   *slog.Logger
}

func New(l Light, c timex.Clock, log *slog.Logger) *Controller {
	if c == nil {
		c = timex.Real{}
	}
	return &Controller{light: l, clock: c, log: logx.Module(log, "signal")}
}

func (c *Controller) On()  { c.light.Set(true) }
func (c *Controller) Off() { c.light.Set(false) }

// Run repeats p until d has elapsed or ctx ends, leaving the light off.
// It returns the number of completed repetitions.
func (c *Controller) Run(ctx context.Context, p Pattern, d time.Duration) int {
	c.log.Info("pattern start", "pattern", p.Name, "for", d)
	start := c.clock.Now()
	reps := 0
	defer c.Off()
	for !timex.Deadline(c.clock, start, d) {
		if !c.once(ctx, p) {
			return reps
		}
		reps++
	}
	return reps
}

// RunFallback blinks rapidly until ctx ends. Reaching it means the cycle
// got into a state it has no transition for.
func (c *Controller) RunFallback(ctx context.Context) {
	c.log.Error("fallback pattern: unreachable state")
	defer c.Off()
	for c.once(ctx, Fallback) {
	}
}

func (c *Controller) once(ctx context.Context, p Pattern) bool {
	for i := 0; i < p.Blinks; i++ {
		c.light.Set(true)
		if c.clock.Sleep(ctx, p.On) != nil {
			return false
		}
		c.light.Set(false)
		if c.clock.Sleep(ctx, p.Off) != nil {
			return false
		}
	}
	if p.Pause > 0 && c.clock.Sleep(ctx, p.Pause) != nil {
		return false
	}
	return true
}
