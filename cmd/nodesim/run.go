package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sensornode-go/bus"
	"sensornode-go/errcode"
	"sensornode-go/services/hal"
	"sensornode-go/services/monitor"
	"sensornode-go/services/node"
	"sensornode-go/services/store"
	"sensornode-go/types"
	"sensornode-go/x/logx"
	"sensornode-go/x/timex"
)

type runOptions struct {
	Config string

	Boots    int     `toml:"run.boots" env:"RUN_BOOTS"`
	Profile  string  `toml:"run.profile" env:"RUN_PROFILE"`
	Flash    string  `toml:"run.flash" env:"RUN_FLASH"`
	Scale    float64 `toml:"run.sleep_scale" env:"RUN_SLEEP_SCALE"`
	Button   bool    `toml:"run.button" env:"RUN_BUTTON"`
	Console  bool    `toml:"run.console" env:"RUN_CONSOLE"`
	Celsius  float64 `toml:"sensor.celsius" env:"SENSOR_CELSIUS"`
	Humidity float64 `toml:"sensor.humidity" env:"SENSOR_HUMIDITY"`
	Ssid     string  `toml:"network.ssid" env:"NETWORK_SSID"`
	Pass     string  `toml:"network.pass" env:"NETWORK_PASS"`
	Host     string  `toml:"collector.host" env:"COLLECTOR_HOST"`
	Apikey   string  `toml:"collector.apikey" env:"COLLECTOR_APIKEY"`
	Port     int     `toml:"collector.port" env:"COLLECTOR_PORT"`
	Plain    bool    `toml:"collector.plain" env:"COLLECTOR_PLAIN"`
	LogLevel string  `toml:"logging.level" env:"LOGGING_LEVEL"`
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the simulated node repeatedly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(o, cmd); err != nil {
				return err
			}
			return runSim(cmd.Context(), o, cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.Config, "config", "c", "nodesim.toml", "configuration file")
	f.IntVar(&o.Boots, "boots", 3, "number of boots to simulate (0 runs until interrupted)")
	f.StringVar(&o.Profile, "profile", "", "board profile TOML")
	f.StringVar(&o.Flash, "flash", "nodesim-flash.bin", "file backing the simulated flash")
	f.Float64Var(&o.Scale, "scale", 0.01, "fraction of the deep-sleep interval to wait between boots")
	f.BoolVar(&o.Button, "button", false, "hold the configuration button on the first boot")
	f.BoolVar(&o.Console, "console", false, "use the serial console portal on stdin instead of the web form")
	f.Float64Var(&o.Celsius, "celsius", 22.5, "simulated temperature")
	f.Float64Var(&o.Humidity, "humidity", 45, "simulated relative humidity")
	f.StringVar(&o.Ssid, "ssid", "sim", "network the simulated radio can join")
	f.StringVar(&o.Pass, "pass", "simpass", "passphrase of that network")
	f.StringVar(&o.Host, "host", "", "collector host to store if the flash is blank")
	f.StringVar(&o.Apikey, "apikey", "", "access key to store if the flash is blank")
	f.IntVar(&o.Port, "port", 0, "collector port (profile default when 0)")
	f.BoolVar(&o.Plain, "plain", false, "send over plain TCP instead of TLS")
	f.StringVar(&o.LogLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

func runSim(ctx context.Context, o *runOptions, out io.Writer, in io.Reader) error {
	log := logx.New(os.Stderr, o.LogLevel)

	prof, err := hal.LoadProfile(o.Profile)
	if err != nil {
		return err
	}
	if o.Port > 0 {
		prof.Port = o.Port
	}
	if o.Plain {
		prof.TLS = false
	}

	b := bus.NewBus(16)
	mon := monitor.New(log)
	mon.Start(ctx, b.NewConnection("monitor"))
	conn := b.NewConnection("node")

	booted := 0
	for i := 0; o.Boots == 0 || i < o.Boots; i++ {
		opts := hal.SimOptions{
			FlashPath:  o.Flash,
			Celsius:    float32(o.Celsius),
			Humidity:   float32(o.Humidity),
			ButtonHeld: o.Button && i == 0,
			Networks:   map[string]string{o.Ssid: o.Pass},
			Out:        out,
			Log:        os.Stderr,
		}
		if o.Console && i == 0 {
			opts.Console = in
		}
		sim, err := hal.OpenSim(prof, opts)
		if err != nil {
			return err
		}
		if i == 0 {
			seed(sim.Flash, o, log)
		}

		log.Info("boot", "n", i+1)
		rep := node.Assemble(sim.Board, node.Options{Bus: conn, Log: log}).Boot(ctx)
		sim.FlashClose()
		booted++

		fmt.Fprintf(out, "boot %d: %s (%s)\n", i+1, rep.Outcome, describe(rep.Action))
		if ctx.Err() != nil {
			break
		}
		wait := time.Duration(float64(rep.Action.After) * o.Scale)
		if err := (timex.Real{}).Sleep(ctx, wait); err != nil {
			break
		}
	}

	// The monitor sees reports through the bus; give it a moment to catch up.
	deadline := time.Now().Add(200 * time.Millisecond)
	for mon.Summary().Boots < booted && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s := mon.Summary()
	fmt.Fprintf(out, "%d boots:", s.Boots)
	for k, n := range s.ByOutcome {
		fmt.Fprintf(out, " %s=%d", k, n)
	}
	fmt.Fprintln(out)
	return nil
}

// seed writes the collector and network settings into blank flash, the way
// a first provisioning session would.
func seed(dev store.Device, o *runOptions, log *slog.Logger) {
	st := store.New(dev, log)
	if _, err := st.Load(); errcode.Of(err) == errcode.BlankRecord && o.Host != "" {
		if err := st.Save(types.DeviceConfig{Host: o.Host, AccessKey: o.Apikey}); err != nil {
			log.Warn("seeding configuration failed", "err", err)
		}
	}
	if _, err := st.LoadLink(); errcode.Of(err) == errcode.BlankRecord && o.Ssid != "" {
		if err := st.SaveLink(store.LinkCredentials{SSID: o.Ssid, Passphrase: o.Pass}); err != nil {
			log.Warn("seeding network failed", "err", err)
		}
	}
}

func describe(a types.Action) string {
	if a.Kind == types.ActionSleep {
		return "deep sleep " + a.After.String()
	}
	return "reset"
}
