//go:build !(rp2040 || rp2350)

package hal

import (
	"io"
	"net"
	"sync"
	"time"

	"sensornode-go/drivers/aht20"
	"sensornode-go/services/provision"
	"sensornode-go/services/provision/console"
	"sensornode-go/services/provision/webform"
	"sensornode-go/services/store"
	"sensornode-go/x/logx"
)

// SimOptions describe the simulated surroundings of a host board.
type SimOptions struct {
	// FlashPath backs the NVS with a file; empty keeps it in memory.
	FlashPath string
	Celsius   float32
	Humidity  float32
	// ButtonHeld asserts the configuration button for this boot.
	ButtonHeld bool
	// Networks the simulated radio can join, SSID to passphrase.
	Networks map[string]string
	MAC      net.HardwareAddr
	// Console, if set, replaces the web portal with the line console.
	Console io.Reader
	Out     io.Writer
	Log     io.Writer
}

// Sim is a host board and the handles a simulator needs to steer it.
type Sim struct {
	*Board
	Sensor     *aht20.Sim
	ButtonPin  *FakePin
	LightPin   *FakePin
	SimLink    *provision.SimLink
	SimPower   *SimPower
	FlashClose func() error
}

func OpenSim(p Profile, o SimOptions) (*Sim, error) {
	p = p.Normalize()

	var flash store.Device
	closer := func() error { return nil }
	if o.FlashPath != "" {
		f, err := store.OpenFile(o.FlashPath, 4096)
		if err != nil {
			return nil, err
		}
		flash, closer = f, f.Close
	} else {
		flash = store.NewMemDevice(4096, 4096)
	}

	mac := o.MAC
	if len(mac) == 0 {
		mac = net.HardwareAddr{0x02, 0x53, 0x4e, 0x00, 0x00, 0x01}
	}
	link := &provision.SimLink{MAC: mac, Networks: o.Networks}

	lightPin := NewFakePin(p.LightActiveLow)
	btnPin := NewFakePin(o.ButtonHeld != p.ButtonActiveLow)
	sensor := aht20.NewSim(o.Celsius, o.Humidity)

	logw := o.Log
	if logw == nil {
		logw = io.Discard
	}

	var portal provision.Portal
	if o.Console != nil {
		portal = console.New(console.FromReader(o.Console), o.Out)
	} else {
		portal = webform.New(p.PortalAddr, logx.New(logw, p.LogLevel))
	}

	pw := &SimPower{}
	return &Sim{
		Board: &Board{
			Profile: p,
			Light:   NewStatusLight(lightPin, p.LightActiveLow),
			Button:  NewButton(btnPin, p.ButtonActiveLow),
			I2C:     sensor,
			Flash:   flash,
			Link:    link,
			Dialer:  &net.Dialer{},
			Portal:  portal,
			Power:   pw,
			Log:     logw,
		},
		Sensor:     sensor,
		ButtonPin:  btnPin,
		LightPin:   lightPin,
		SimLink:    link,
		SimPower:   pw,
		FlashClose: closer,
	}, nil
}

// SimPower records the terminal action instead of performing it.
type SimPower struct {
	mu     sync.Mutex
	sleeps []time.Duration
	resets int
}

func (p *SimPower) DeepSleep(d time.Duration) {
	p.mu.Lock()
	p.sleeps = append(p.sleeps, d)
	p.mu.Unlock()
}

func (p *SimPower) Reset() {
	p.mu.Lock()
	p.resets++
	p.mu.Unlock()
}

// Counts returns how many deep sleeps and resets were requested.
func (p *SimPower) Counts() (sleeps, resets int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sleeps), p.resets
}

// LastSleep returns the most recent deep-sleep duration.
func (p *SimPower) LastSleep() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sleeps) == 0 {
		return 0
	}
	return p.sleeps[len(p.sleeps)-1]
}
