// Package cli provides the command-line interface for appium-harness.
package cli

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/logger"
	"github.com/devicelab-dev/appium-harness/pkg/session"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "Platform to target (android, ios, harmony)",
		Value:   "android",
		EnvVars: []string{"HARNESS_PLATFORM"},
	},
	&cli.StringFlag{
		Name:    "device",
		Usage:   "Configured device name to use instead of the default",
		EnvVars: []string{"HARNESS_DEVICE"},
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config.yaml (default: config.yaml in the working directory)",
		EnvVars: []string{"HARNESS_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "appium-url",
		Usage:   "Appium server URL, overriding the configured endpoint",
		EnvVars: []string{"APPIUM_URL"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Echo log output to stderr",
		EnvVars: []string{"HARNESS_VERBOSE"},
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Log file path",
		Value: "appium-harness.log",
	},
}

// Execute runs the CLI.
func Execute() {
	// A .env next to the config keeps device serials and app IDs out of
	// the shell profile. Absence is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "appium-harness",
		Usage:   "Environment doctor, UI inspection, and test synthesis for mobile apps",
		Version: Version,
		Description: `appium-harness verifies the local automation toolchain, manages the
Appium server and device session, inspects the app UI, and synthesizes
test cases and flow files from what it finds.

Examples:
  appium-harness doctor --parallel
  appium-harness server
  appium-harness inspect --explore
  appium-harness -p ios generate --app-id com.example.app`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if err := logger.Init(c.String("log-file")); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			logger.SetVerbose(c.Bool("verbose"))
			return nil
		},
		After: func(c *cli.Context) error {
			logger.Close()
			return nil
		},
		Commands: []*cli.Command{
			doctorCommand,
			serverCommand,
			inspectCommand,
			generateCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the session config honoring the global flags.
func loadConfig(c *cli.Context) (*session.Config, error) {
	var cfg *session.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = session.Load(path)
	} else {
		cfg, err = session.LoadFromDir(".")
	}
	if err != nil {
		return nil, err
	}

	if raw := c.String("appium-url"); raw != "" {
		host, port, err := parseServerURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --appium-url: %w", err)
		}
		cfg.Server.Host = host
		cfg.Server.Port = port
	}
	return cfg, nil
}

// parseServerURL extracts host and port from an Appium server URL. A URL
// without an explicit port means the default Appium port.
func parseServerURL(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, err
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("no host in %q", raw)
	}
	port := session.DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, err
		}
	}
	return u.Hostname(), port, nil
}
