package store

import (
	"log/slog"

	"sensornode-go/errcode"
	"sensornode-go/types"
	"sensornode-go/x/logx"
)

// Device is byte-addressable non-volatile memory. machine.Flash satisfies it.
type Device interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

// Eraser is implemented by parts that must be erased (to 0xFF) before writing.
type Eraser interface {
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

// Store reads and writes the fixed records on a Device.
type Store struct {
	dev Device
	log *slog.Logger
}

func New(dev Device, log *slog.Logger) *Store {
	return &Store{dev: dev, log: logx.Module(log, "store")}
}

// Load reads the device config. Blank media returns an empty config and BlankRecord.
func (s *Store) Load() (types.DeviceConfig, error) {
	var rec [ConfigSize]byte
	if err := s.read(rec[:], ConfigOffset); err != nil {
		return types.DeviceConfig{}, err
	}
	return DecodeConfig(rec[:])
}

// Save overwrites the device config record.
func (s *Store) Save(cfg types.DeviceConfig) error {
	rec, err := EncodeConfig(cfg)
	if err != nil {
		return err
	}
	if err := s.write(rec[:], ConfigOffset); err != nil {
		return err
	}
	s.log.Info("config saved", "host", cfg.Host)
	return nil
}

func (s *Store) LoadLink() (LinkCredentials, error) {
	var rec [LinkSize]byte
	if err := s.read(rec[:], LinkOffset); err != nil {
		return LinkCredentials{}, err
	}
	return DecodeLink(rec[:])
}

func (s *Store) SaveLink(c LinkCredentials) error {
	rec, err := EncodeLink(c)
	if err != nil {
		return err
	}
	if err := s.write(rec[:], LinkOffset); err != nil {
		return err
	}
	s.log.Info("link credentials saved", "ssid", c.SSID)
	return nil
}

func (s *Store) read(p []byte, off int64) error {
	n, err := s.dev.ReadAt(p, off)
	if err != nil {
		return errcode.Wrap(errcode.Error, "store.read", err)
	}
	if n != len(p) {
		return errcode.Wrap(errcode.ShortRead, "store.read", nil)
	}
	return nil
}

// write patches p into the device. On erasable parts the whole containing
// block is read, patched, erased and written back so neighbouring records survive.
func (s *Store) write(p []byte, off int64) error {
	er, ok := s.dev.(Eraser)
	if !ok {
		return s.writeRaw(p, off)
	}
	bs := er.EraseBlockSize()
	if bs <= 0 {
		return s.writeRaw(p, off)
	}
	start := (off / bs) * bs
	if off+int64(len(p)) > start+bs {
		return errcode.Wrap(errcode.InvalidParams, "store.write", nil)
	}
	block := make([]byte, bs)
	if err := s.read(block, start); err != nil {
		return err
	}
	copy(block[off-start:], p)
	if err := er.EraseBlocks(start/bs, 1); err != nil {
		return errcode.Wrap(errcode.Error, "store.erase", err)
	}
	return s.writeRaw(block, start)
}

func (s *Store) writeRaw(p []byte, off int64) error {
	n, err := s.dev.WriteAt(p, off)
	if err != nil {
		return errcode.Wrap(errcode.Error, "store.write", err)
	}
	if n != len(p) {
		return errcode.Wrap(errcode.ShortWrite, "store.write", nil)
	}
	return nil
}
