//go:build rp2040 || rp2350

package hal

import (
	"device/arm"
	"io"
	"machine"
	"net"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/netlink/probe"

	"sensornode-go/services/provision/console"
)

// Open configures the board's peripherals from p. The radio is found with
// netlink/probe, which also registers it as the net package's device.
func Open(p Profile) (*Board, error) {
	p = p.Normalize()

	light := machine.Pin(p.LightPin)
	light.Configure(machine.PinConfig{Mode: machine.PinOutput})
	btn := machine.Pin(p.ButtonPin)
	mode := machine.PinInputPulldown
	if p.ButtonActiveLow {
		mode = machine.PinInputPullup
	}
	btn.Configure(machine.PinConfig{Mode: mode})

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: p.I2CHz,
		SDA:       machine.Pin(p.I2CSDA),
		SCL:       machine.Pin(p.I2CSCL),
	}); err != nil {
		return nil, err
	}

	b := &Board{
		Profile: p,
		Light:   NewStatusLight(light, p.LightActiveLow),
		Button:  NewButton(btn, p.ButtonActiveLow),
		I2C:     i2c,
		Flash:   machine.Flash,
		Dialer:  &net.Dialer{},
		Power:   rp2Power{},
		Log:     io.Discard,
	}

	if u := logPort(p.LogUART); u != nil {
		if err := u.Configure(uartx.UARTConfig{
			BaudRate: p.LogBaud,
			TX:       machine.Pin(p.LogTX),
			RX:       machine.Pin(p.LogRX),
		}); err != nil {
			return nil, err
		}
		b.Log = u
		b.Portal = console.New(u, u)
	}

	link, _ := probe.Probe()
	b.Link = link
	return b, nil
}

func logPort(n int) *uartx.UART {
	switch n {
	case 0:
		return uartx.UART0
	case 1:
		return uartx.UART1
	}
	return nil
}

// rp2Power has no timer-only dormant mode to wake from, so deep sleep is a
// plain sleep followed by the same reset that ends every cycle.
type rp2Power struct{}

func (rp2Power) DeepSleep(d time.Duration) {
	time.Sleep(d)
	Reset()
}

func (rp2Power) Reset() { Reset() }

// Reset restarts the chip; execution resumes at the firmware entry point.
func Reset() { arm.SystemReset() }
