package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodesim.toml")
	doc := `
[run]
boots = 7
flash = "from-file.bin"
sleep_scale = 0.5

[sensor]
celsius = 30.0

[collector]
host = "file.example"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NODESIM_COLLECTOR_HOST", "env.example")
	t.Setenv("NODESIM_RUN_BOOTS", "9")

	cmd := newRunCmd()
	o := &runOptions{}
	// Parsing marks --boots as set on the command line.
	if err := cmd.Flags().Parse([]string{"--config", path, "--boots", "2"}); err != nil {
		t.Fatal(err)
	}
	o.Config = path
	o.Boots, _ = cmd.Flags().GetInt("boots")
	if err := loadConfig(o, cmd); err != nil {
		t.Fatal(err)
	}
	if o.Boots != 2 {
		t.Fatalf("flag lost: boots=%d", o.Boots)
	}
	if o.Host != "env.example" {
		t.Fatalf("env lost: host=%q", o.Host)
	}
	if o.Flash != "from-file.bin" || o.Scale != 0.5 || o.Celsius != 30 {
		t.Fatalf("file values lost: %+v", o)
	}
}

func TestFlagName(t *testing.T) {
	for in, want := range map[string]string{"LogLevel": "log-level", "Boots": "boots", "Apikey": "apikey"} {
		if got := flagName(in); got != want {
			t.Errorf("flagName(%s) = %s", in, got)
		}
	}
}

func TestRunAgainstCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- serveCollector(ctx, &collectorOptions{Listen: "127.0.0.1:0", Apikey: "simkey", LogLevel: "error"}, ready)
	}()
	addr := (<-ready).(*net.TCPAddr)

	var out bytes.Buffer
	err := runSim(ctx, &runOptions{
		Boots:    1,
		Flash:    filepath.Join(t.TempDir(), "flash.bin"),
		Celsius:  20,
		Humidity: 50,
		Ssid:     "sim",
		Pass:     "simpass",
		Host:     "127.0.0.1",
		Apikey:   "simkey",
		Port:     addr.Port,
		Plain:    true,
		LogLevel: "error",
	}, &out, strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "boot 1: success (deep sleep 5m0s)") {
		t.Fatalf("output:\n%s", out.String())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("collector: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("collector did not stop")
	}
}
