package store

import (
	"path/filepath"
	"strings"
	"testing"

	"sensornode-go/errcode"
	"sensornode-go/types"
)

// powerCycle copies the raw media into a fresh device and store.
func powerCycle(m *MemDevice) *Store {
	fresh := NewMemDevice(len(m.buf), m.blockSize)
	fresh.Restore(m.Snapshot())
	return New(fresh, nil)
}

func TestConfigRoundTripAllLengths(t *testing.T) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789.-_"
	for hl := 0; hl <= types.HostCap; hl++ {
		for _, kl := range []int{0, 1, 16, types.AccessKeyCap - 1, types.AccessKeyCap} {
			cfg := types.DeviceConfig{
				Host:      strings.Repeat(string(alphabet[hl%len(alphabet)]), hl),
				AccessKey: strings.Repeat("k", kl),
			}
			dev := NewMemDevice(4096, 4096)
			if err := New(dev, nil).Save(cfg); err != nil {
				t.Fatalf("Save(%d,%d): %v", hl, kl, err)
			}
			got, err := powerCycle(dev).Load()
			if err != nil {
				t.Fatalf("Load(%d,%d): %v", hl, kl, err)
			}
			if got != cfg {
				t.Fatalf("round trip mismatch: got %+v want %+v", got, cfg)
			}
		}
	}
}

func TestLoadBlankMedia(t *testing.T) {
	s := New(NewMemDevice(4096, 4096), nil)
	cfg, err := s.Load()
	if errcode.Of(err) != errcode.BlankRecord {
		t.Fatalf("Load on erased media: err = %v, want blank_record", err)
	}
	if cfg != (types.DeviceConfig{}) {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestSaveRefusesOverlongFields(t *testing.T) {
	dev := NewMemDevice(4096, 4096)
	s := New(dev, nil)
	err := s.Save(types.DeviceConfig{Host: strings.Repeat("x", types.HostCap+1)})
	if errcode.Of(err) != errcode.FieldTooLong {
		t.Fatalf("err = %v, want field_too_long", err)
	}
	if dev.Erases != 0 {
		t.Fatal("refused save must not touch the media")
	}
}

func TestRecordLayout(t *testing.T) {
	if ConfigSize != 73 || ConfigSize > ConfigReserved {
		t.Fatalf("ConfigSize = %d, want 73 within %d", ConfigSize, ConfigReserved)
	}
	rec, err := EncodeConfig(types.DeviceConfig{Host: "emon.local", AccessKey: "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if string(rec[:10]) != "emon.local" || rec[10] != 0 {
		t.Fatalf("host slot malformed: %q", rec[:11])
	}
	if string(rec[40:43]) != "abc" || rec[43] != 0 {
		t.Fatalf("key slot should start at offset 40: %q", rec[40:44])
	}
}

func TestConfigSaveKeepsLinkRecord(t *testing.T) {
	dev := NewMemDevice(8192, 4096)
	s := New(dev, nil)
	link := LinkCredentials{SSID: "shed", Passphrase: "correct horse"}
	if err := s.SaveLink(link); err != nil {
		t.Fatalf("SaveLink: %v", err)
	}
	if err := s.Save(types.DeviceConfig{Host: "h", AccessKey: "k"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s2 := powerCycle(dev)
	got, err := s2.LoadLink()
	if err != nil || got != link {
		t.Fatalf("LoadLink = %+v, %v; want %+v", got, err, link)
	}
	if dev.Erases != 2 {
		t.Fatalf("erases = %d, want 2", dev.Erases)
	}
}

func TestNonErasableDevice(t *testing.T) {
	dev := NewMemDevice(256, 0)
	s := New(dev, nil)
	cfg := types.DeviceConfig{Host: "collector.example", AccessKey: "0123456789abcdef0123456789abcdef"}
	if err := s.Save(cfg); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Load(); err != nil || got != cfg {
		t.Fatalf("Load = %+v, %v", got, err)
	}
	if dev.Erases != 0 {
		t.Fatal("non-erasable device should be written in place")
	}
}

func TestFileDeviceSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.bin")
	d, err := OpenFile(path, 8192)
	if err != nil {
		t.Fatal(err)
	}
	cfg := types.DeviceConfig{Host: "emoncms.org", AccessKey: "key"}
	if err := New(d, nil).Save(cfg); err != nil {
		t.Fatal(err)
	}
	d.Close()

	d, err = OpenFile(path, 8192)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	got, err := New(d, nil).Load()
	if err != nil || got != cfg {
		t.Fatalf("after reopen: %+v, %v", got, err)
	}
}

// truncatingDevice returns one byte less than asked, with no error.
type truncatingDevice struct{ *MemDevice }

func (d truncatingDevice) ReadAt(p []byte, off int64) (int, error) {
	n, err := d.MemDevice.ReadAt(p, off)
	if n > 0 {
		n--
	}
	return n, err
}

func TestShortReadIsReported(t *testing.T) {
	s := New(truncatingDevice{NewMemDevice(4096, 0)}, nil)
	if _, err := s.Load(); errcode.Of(err) != errcode.ShortRead {
		t.Fatalf("Load err = %v, want short_read", err)
	}
	if _, err := s.LoadLink(); errcode.Of(err) != errcode.ShortRead {
		t.Fatalf("LoadLink err = %v, want short_read", err)
	}
}
