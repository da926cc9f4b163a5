package aht20

import (
	"errors"
	"sync"
)

// Sim emulates an AHT20 behind the drivers.I2C interface. It answers the
// status, initialise, trigger and read transactions with a fixed reading.
type Sim struct {
	mu sync.Mutex

	Addr uint16
	// BusyPolls is how many reads after a trigger report busy.
	BusyPolls int
	// Fail makes every transaction return an error (sensor unplugged).
	Fail bool
	// BadCRC corrupts the checksum byte of every frame.
	BadCRC bool

	calibrated bool
	pending    int
	rawH, rawT uint32
	Triggers   int
}

var errNoAck = errors.New("aht20 sim: no ack")

// NewSim returns a calibrated simulator reporting celsius and rh.
func NewSim(celsius, rh float32) *Sim {
	s := &Sim{Addr: Address, calibrated: true}
	s.Set(celsius, rh)
	return s
}

// Set changes the reading returned by subsequent measurements.
func (s *Sim) Set(celsius, rh float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawH = uint32(rh / 100 * fullScale)
	s.rawT = uint32((celsius + 50) / 200 * fullScale)
	if s.rawH > 0xFFFFF {
		s.rawH = 0xFFFFF
	}
	if s.rawT > 0xFFFFF {
		s.rawT = 0xFFFFF
	}
}

// Tx implements drivers.I2C.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail || addr != s.Addr {
		return errNoAck
	}
	if len(w) > 0 {
		switch w[0] {
		case cmdInitialize:
			s.calibrated = true
		case cmdSoftReset:
			s.calibrated = false
		case cmdTrigger:
			s.Triggers++
			s.pending = s.BusyPolls
		}
	}
	if len(r) == 0 {
		return nil
	}
	st := byte(0)
	if s.calibrated {
		st |= statusCalibrated
	}
	if s.pending > 0 {
		st |= statusBusy
		s.pending--
	}
	r[0] = st
	if len(r) >= 6 {
		r[1] = byte(s.rawH >> 12)
		r[2] = byte(s.rawH >> 4)
		r[3] = byte(s.rawH<<4) | byte(s.rawT>>16)&0x0F
		r[4] = byte(s.rawT >> 8)
		r[5] = byte(s.rawT)
	}
	if len(r) >= frameLen {
		r[6] = crc8(r[:6])
		if s.BadCRC {
			r[6] ^= 0xFF
		}
	}
	return nil
}
