// Package hal maps the node's hardware onto the interfaces the cycle uses:
// one status light, one configuration button, the sensor bus, flash, the
// radio and the power controller.
package hal

import "sync"

// Pin is a configured GPIO. machine.Pin satisfies it.
type Pin interface {
	Set(high bool)
	Get() bool
}

// StatusLight drives an LED, honouring active-low wiring.
type StatusLight struct {
	pin       Pin
	activeLow bool
}

func NewStatusLight(p Pin, activeLow bool) *StatusLight {
	return &StatusLight{pin: p, activeLow: activeLow}
}

func (l *StatusLight) Set(on bool) { l.pin.Set(on != l.activeLow) }

// On reports the logical state read back from the pin.
func (l *StatusLight) On() bool { return l.pin.Get() != l.activeLow }

// Button reads the configuration-request input. A pulled-up switch to
// ground is active-low.
type Button struct {
	pin       Pin
	activeLow bool
}

func NewButton(p Pin, activeLow bool) *Button {
	return &Button{pin: p, activeLow: activeLow}
}

func (b *Button) Pressed() bool { return b.pin.Get() != b.activeLow }

// FakePin is an in-memory GPIO for the host board and tests.
type FakePin struct {
	mu     sync.Mutex
	level  bool
	Writes int
}

func NewFakePin(level bool) *FakePin { return &FakePin{level: level} }

func (p *FakePin) Set(high bool) {
	p.mu.Lock()
	p.level = high
	p.Writes++
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}
