// Package aht20 drives the AHT20 temperature and humidity sensor over a
// tinygo I2C bus.
//
// A measurement has two phases: Trigger starts a conversion and Collect
// fetches the frame, returning ErrNotReady while the sensor is busy. Read
// runs both with a bounded wait and is what most callers want.
//
// The bus Tx must issue a repeated start between the write and read halves.
package aht20

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Address is the fixed I2C address of the sensor.
const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08

	// Both channels are 20-bit fractions of full scale.
	fullScale = 1 << 20
	frameLen  = 7
)

var (
	ErrTimeout  = errors.New("aht20: timeout")
	ErrNotReady = errors.New("aht20: not ready")
	ErrCRC      = errors.New("aht20: crc mismatch")
)

// Config holds optional settings; zero fields take the datasheet timings.
type Config struct {
	Address uint16
	// Conversion is the wait between Trigger and the first Collect in Read.
	Conversion time.Duration
	// Poll is the retry interval while the sensor reports busy.
	Poll time.Duration
	// Timeout bounds the busy polling after Conversion.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Address == 0 {
		c.Address = Address
	}
	if c.Conversion <= 0 {
		c.Conversion = 80 * time.Millisecond
	}
	if c.Poll <= 0 {
		c.Poll = 15 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 250 * time.Millisecond
	}
	return c
}

// Device is one sensor on a bus. The bus must already be configured.
type Device struct {
	bus   drivers.I2C
	cfg   Config
	ready bool
	frame [frameLen]byte
}

// New binds a sensor without touching the bus; the first Read initialises it.
func New(bus drivers.I2C, cfg Config) *Device {
	return &Device{bus: bus, cfg: cfg.withDefaults()}
}

// Init sends the calibration command unless the status byte already shows
// a calibrated sensor.
func (d *Device) Init() error {
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusCalibrated == 0 {
		if err := d.bus.Tx(d.cfg.Address, []byte{cmdInitialize, 0x08, 0x00}, nil); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
	d.ready = true
	return nil
}

// Reset soft-resets the sensor. It needs about 20 ms before the next command.
func (d *Device) Reset() error {
	d.ready = false
	return d.bus.Tx(d.cfg.Address, []byte{cmdSoftReset}, nil)
}

func (d *Device) Status() (byte, error) {
	var st [1]byte
	if err := d.bus.Tx(d.cfg.Address, []byte{cmdStatus}, st[:]); err != nil {
		return 0, err
	}
	return st[0], nil
}

// Trigger starts a conversion and returns immediately.
func (d *Device) Trigger() error {
	if !d.ready {
		if err := d.Init(); err != nil {
			return err
		}
	}
	return d.bus.Tx(d.cfg.Address, []byte{cmdTrigger, 0x33, 0x00}, nil)
}

// Collect reads one frame into out. A busy or uncalibrated status gives
// ErrNotReady; a frame whose CRC does not match gives ErrCRC.
func (d *Device) Collect(out *Sample) error {
	f := d.frame[:]
	if err := d.bus.Tx(d.cfg.Address, nil, f); err != nil {
		return err
	}
	if f[0]&statusCalibrated == 0 || f[0]&statusBusy != 0 {
		return ErrNotReady
	}
	if crc8(f[:6]) != f[6] {
		return ErrCRC
	}
	out.RawHumidity = uint32(f[1])<<12 | uint32(f[2])<<4 | uint32(f[3])>>4
	out.RawTemp = uint32(f[3]&0x0F)<<16 | uint32(f[4])<<8 | uint32(f[5])
	return nil
}

// Read triggers, waits the conversion time, then polls Collect until the
// frame arrives or Timeout passes.
func (d *Device) Read(out *Sample) error {
	if err := d.Trigger(); err != nil {
		return err
	}
	time.Sleep(d.cfg.Conversion)
	deadline := time.Now().Add(d.cfg.Timeout)
	for {
		err := d.Collect(out)
		if err != ErrNotReady {
			return err
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(d.cfg.Poll)
	}
}

// Sample is one raw frame.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

func (s Sample) Celsius() float32 {
	return float32(s.RawTemp)*200/fullScale - 50
}

func (s Sample) RelHumidity() float32 {
	return float32(s.RawHumidity) * 100 / fullScale
}

// crc8 is the sensor's checksum: polynomial 0x31, initial value 0xFF.
func crc8(b []byte) byte {
	c := byte(0xFF)
	for _, v := range b {
		c ^= v
		for i := 0; i < 8; i++ {
			if c&0x80 != 0 {
				c = c<<1 ^ 0x31
			} else {
				c <<= 1
			}
		}
	}
	return c
}
