//go:build rp2040 || rp2350

// Command sensornode is the firmware: one measurement, one upload, then
// deep sleep or a diagnostic period and a reset.
package main

import (
	"context"
	"time"

	"sensornode-go/services/hal"
	"sensornode-go/services/node"
	"sensornode-go/x/logx"
)

func main() {
	// Let the log UART settle before the first line.
	time.Sleep(100 * time.Millisecond)

	b, err := hal.Open(hal.DefaultProfile())
	if err != nil {
		println("board init failed:", err.Error())
		time.Sleep(time.Second)
		hal.Reset()
	}

	log := logx.New(b.Log, b.Profile.LogLevel)
	log.Info("boot", "board", b.Profile.Name)

	node.Assemble(b, node.Options{Log: log}).Boot(context.Background())

	// Boot ends in DeepSleep or Reset; neither returns on hardware.
	for {
		time.Sleep(time.Hour)
	}
}
