package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sensornode-go/services/collector"
	"sensornode-go/x/logx"
)

type collectorOptions struct {
	Config string

	Listen   string `toml:"collector.listen" env:"COLLECTOR_LISTEN"`
	Apikey   string `toml:"collector.apikey" env:"COLLECTOR_APIKEY"`
	LogLevel string `toml:"logging.level" env:"LOGGING_LEVEL"`
}

func newCollectorCmd() *cobra.Command {
	o := &collectorOptions{}
	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Serve an emoncms-compatible input endpoint with Prometheus metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(o, cmd); err != nil {
				return err
			}
			return serveCollector(cmd.Context(), o, nil)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.Config, "config", "c", "nodesim.toml", "configuration file")
	f.StringVar(&o.Listen, "listen", "127.0.0.1:8081", "listen address")
	f.StringVar(&o.Apikey, "apikey", "", "accepted access key (empty accepts any)")
	f.StringVar(&o.LogLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

// serveCollector runs until ctx ends. ready, if set, receives the bound address.
func serveCollector(ctx context.Context, o *collectorOptions, ready chan<- net.Addr) error {
	log := logx.New(os.Stderr, o.LogLevel)
	c := collector.New(o.Apikey, log)

	ln, err := net.Listen("tcp", o.Listen)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: c.Router(), ReadHeaderTimeout: 10 * time.Second}
	log.Info("collector listening", "addr", ln.Addr().String())
	if ready != nil {
		ready <- ln.Addr()
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
