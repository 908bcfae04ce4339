package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	urfave "github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/session"
)

func TestParseServerURL(t *testing.T) {
	tests := []struct {
		raw  string
		host string
		port int
		ok   bool
	}{
		{"http://127.0.0.1:4723", "127.0.0.1", 4723, true},
		{"http://appium.internal:4750", "appium.internal", 4750, true},
		{"http://localhost", "localhost", session.DefaultPort, true},
		{"://", "", 0, false},
		{"http://:4723", "", 0, false},
	}

	for _, tt := range tests {
		host, port, err := parseServerURL(tt.raw)
		if tt.ok {
			if err != nil {
				t.Errorf("parseServerURL(%q): %v", tt.raw, err)
				continue
			}
			if host != tt.host || port != tt.port {
				t.Errorf("parseServerURL(%q) = %s:%d, want %s:%d", tt.raw, host, port, tt.host, tt.port)
			}
		} else if err == nil {
			t.Errorf("parseServerURL(%q) should fail", tt.raw)
		}
	}
}

func testContext(t *testing.T, args map[string]string) *urfave.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range GlobalFlags {
		if err := f.Apply(set); err != nil {
			t.Fatal(err)
		}
	}
	for k, v := range args {
		if err := set.Set(k, v); err != nil {
			t.Fatal(err)
		}
	}
	return urfave.NewContext(urfave.NewApp(), set, nil)
}

func TestLoadConfig_AppiumURLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "appium_server:\n  host: 10.0.0.5\n  port: 4750\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(testContext(t, map[string]string{
		"config":     path,
		"appium-url": "http://localhost:9100",
	}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 9100 {
		t.Errorf("override not applied: %+v", cfg.Server)
	}
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := loadConfig(testContext(t, nil))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != session.DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestCommands_Registered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range []*urfave.Command{doctorCommand, serverCommand, inspectCommand, generateCommand} {
		if cmd.Action == nil {
			t.Errorf("command %s has no action", cmd.Name)
		}
		names[cmd.Name] = true
	}
	for _, want := range []string{"doctor", "server", "inspect", "generate"} {
		if !names[want] {
			t.Errorf("command %s missing", want)
		}
	}
}
