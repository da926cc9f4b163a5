package hal

import (
	"time"

	"sensornode-go/x/mathx"
	"sensornode-go/x/strx"
)

// Duration is a time.Duration that reads "5m" style text from profile files.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

// Profile is the build-time wiring and timing of one board.
type Profile struct {
	Name string `toml:"name"`

	LightPin        int  `toml:"light_pin"`
	LightActiveLow  bool `toml:"light_active_low"`
	ButtonPin       int  `toml:"button_pin"`
	ButtonActiveLow bool `toml:"button_active_low"`

	I2CSDA int    `toml:"i2c_sda"`
	I2CSCL int    `toml:"i2c_scl"`
	I2CHz  uint32 `toml:"i2c_hz"`

	// LogUART selects the diagnostic log port: 0, 1, or -1 for none.
	LogUART  int    `toml:"log_uart"`
	LogTX    int    `toml:"log_tx"`
	LogRX    int    `toml:"log_rx"`
	LogBaud  uint32 `toml:"log_baud"`
	LogLevel string `toml:"log_level"`

	Port     int  `toml:"port"`
	TLS      bool `toml:"tls"`
	Insecure bool `toml:"insecure_skip_verify"`
	Node     int  `toml:"node"`

	ButtonWindow       Duration `toml:"button_window"`
	AutoConnectTimeout Duration `toml:"auto_connect_timeout"`
	JoinTimeout        Duration `toml:"join_timeout"`
	SleepInterval      Duration `toml:"sleep_interval"`
	DiagnosticPeriod   Duration `toml:"diagnostic_period"`

	// PortalAddr is where the host web portal listens.
	PortalAddr string `toml:"portal_addr"`
}

// DefaultProfile is a Raspberry Pi Pico class board: LED on GP15, button to
// ground on GP14, AHT20 on I2C0 (GP4/GP5), log on UART0 (GP0/GP1).
func DefaultProfile() Profile {
	return Profile{
		Name:               "rp2-default",
		LightPin:           15,
		ButtonPin:          14,
		ButtonActiveLow:    true,
		I2CSDA:             4,
		I2CSCL:             5,
		I2CHz:              400_000,
		LogUART:            0,
		LogTX:              0,
		LogRX:              1,
		LogBaud:            115200,
		LogLevel:           "info",
		Port:               443,
		TLS:                true,
		Node:               1,
		ButtonWindow:       Duration(time.Second),
		AutoConnectTimeout: Duration(5 * time.Minute),
		JoinTimeout:        Duration(30 * time.Second),
		SleepInterval:      Duration(5 * time.Minute),
		DiagnosticPeriod:   Duration(5 * time.Minute),
		PortalAddr:         "127.0.0.1:8080",
	}
}

// Normalize fills unset fields from the defaults and clamps the rest.
func (p Profile) Normalize() Profile {
	d := DefaultProfile()
	p.Name = strx.Coalesce(p.Name, d.Name)
	if p.I2CHz == 0 {
		p.I2CHz = d.I2CHz
	}
	p.I2CHz = mathx.Clamp(p.I2CHz, 10_000, 1_000_000)
	if p.LogBaud == 0 {
		p.LogBaud = d.LogBaud
	}
	p.LogLevel = strx.Coalesce(p.LogLevel, d.LogLevel)
	p.LogUART = mathx.Clamp(p.LogUART, -1, 1)
	if p.Port <= 0 {
		p.Port = d.Port
	}
	p.Port = mathx.Clamp(p.Port, 1, 65535)
	if p.Node <= 0 {
		p.Node = d.Node
	}
	if p.ButtonWindow <= 0 {
		p.ButtonWindow = d.ButtonWindow
	}
	if p.AutoConnectTimeout <= 0 {
		p.AutoConnectTimeout = d.AutoConnectTimeout
	}
	if p.JoinTimeout <= 0 {
		p.JoinTimeout = d.JoinTimeout
	}
	if p.SleepInterval <= 0 {
		p.SleepInterval = d.SleepInterval
	}
	if p.DiagnosticPeriod <= 0 {
		p.DiagnosticPeriod = d.DiagnosticPeriod
	}
	p.PortalAddr = strx.Coalesce(p.PortalAddr, d.PortalAddr)
	return p
}
