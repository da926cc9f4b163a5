// Package measure takes the single reading a boot cycle reports.
package measure

import (
	"log/slog"
	"math"

	"sensornode-go/drivers/aht20"
	"sensornode-go/types"
	"sensornode-go/x/logx"

	"tinygo.org/x/drivers"
)

// Sensor returns one temperature/humidity sample.
type Sensor interface {
	Read() (types.Reading, error)
}

// Stage runs the sensor exactly once per boot. There is no retry and no
// plausibility check; a failed read is forwarded as NaN values.
type Stage struct {
	sensor Sensor
	log    *slog.Logger
}

func New(s Sensor, log *slog.Logger) *Stage {
	return &Stage{sensor: s, log: logx.Module(log, "measure")}
}

func (st *Stage) Acquire() types.Reading {
	r, err := st.sensor.Read()
	if err != nil {
		st.log.Warn("sensor read failed", "err", err)
		nan := float32(math.NaN())
		return types.Reading{Temperature: nan, Humidity: nan}
	}
	st.log.Info("reading", "temperature", r.Temperature, "humidity", r.Humidity)
	return r
}

// AHT20 reads an AHT20 over any tinygo I2C bus.
type AHT20 struct {
	dev *aht20.Device
}

// NewAHT20 binds the sensor on bus; it is initialised on the first Read.
// cfg may be zero for datasheet timings.
func NewAHT20(bus drivers.I2C, cfg aht20.Config) *AHT20 {
	return &AHT20{dev: aht20.New(bus, cfg)}
}

func (a *AHT20) Read() (types.Reading, error) {
	var s aht20.Sample
	if err := a.dev.Read(&s); err != nil {
		return types.Reading{}, err
	}
	return types.Reading{Temperature: s.Celsius(), Humidity: s.RelHumidity()}, nil
}
