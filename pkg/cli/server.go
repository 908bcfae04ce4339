package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/appium-harness/pkg/cmdrunner"
	"github.com/devicelab-dev/appium-harness/pkg/server"
)

var serverCommand = &cli.Command{
	Name:  "server",
	Usage: "Run the Appium server in the foreground",
	Description: `Starts the configured Appium server and keeps it running until
interrupted. When a healthy server is already answering on the endpoint,
nothing is started and the command returns immediately.`,
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "startup-timeout",
			Usage: "How long to wait for the server to answer health probes",
			Value: server.DefaultStartupTimeout,
		},
	},
	Action: runServer,
}

func runServer(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctl := server.New(cfg.Server.Host, cfg.Server.Port, cmdrunner.New())
	ctl.StartupTimeout = c.Duration("startup-timeout")

	if err := ctl.Start(); err != nil {
		return err
	}
	if !ctl.Spawned() {
		fmt.Printf("Appium server already running at %s\n", ctl.URL())
		return nil
	}

	fmt.Printf("Appium server running at %s (interrupt to stop)\n", ctl.URL())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ctl.Stop()
	fmt.Println("Appium server stopped")
	return nil
}
