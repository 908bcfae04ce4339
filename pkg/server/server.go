// Package server manages the local Appium server process: detection of an
// externally managed GUI server, port occupancy checks, health polling, and
// spawning/terminating a command-line server bound to loopback.
package server

import (
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/cmdrunner"
	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// Startup policy.
const (
	DefaultStartupTimeout = 10 * time.Second
	DefaultPollInterval   = 1 * time.Second
	healthProbeTimeout    = 1 * time.Second
)

// Process names a GUI-hosted Appium server may run under.
var desktopProcessNames = []string{"Appium Desktop", "appium-desktop", "Appium"}

// commandRunner is the slice of cmdrunner.Runner the controller needs.
type commandRunner interface {
	Run(name string, args ...string) (cmdrunner.Result, error)
}

// Controller owns the lifecycle of one Appium server endpoint. Before
// spawning it checks who, if anyone, already owns the port: an external
// Appium server is reused, a foreign listener is an error.
type Controller struct {
	Host string
	Port int

	StartupTimeout time.Duration
	PollInterval   time.Duration

	runner commandRunner
	client *http.Client
	cmd    *exec.Cmd

	// startCommand is swappable in tests.
	startCommand func() *exec.Cmd
}

// New creates a Controller for the given endpoint.
func New(host string, port int, runner commandRunner) *Controller {
	c := &Controller{
		Host:           host,
		Port:           port,
		StartupTimeout: DefaultStartupTimeout,
		PollInterval:   DefaultPollInterval,
		runner:         runner,
		client:         &http.Client{Timeout: healthProbeTimeout},
	}
	c.startCommand = c.defaultStartCommand
	return c
}

// URL returns the base server URL.
func (c *Controller) URL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// DetectDesktop reports whether a GUI-hosted Appium server process is
// running, using OS-specific process-list inspection.
func (c *Controller) DetectDesktop() bool {
	var res cmdrunner.Result
	var err error

	if runtime.GOOS == "windows" {
		res, err = c.runner.Run("tasklist")
	} else {
		res, err = c.runner.Run("ps", "-A")
	}
	if err != nil {
		logger.Warn("process list inspection failed: %v", err)
		// Fall back to asking the server directly.
		return c.Healthy()
	}

	for _, name := range desktopProcessNames {
		if strings.Contains(res.Output, name) {
			return true
		}
	}
	return false
}

// Healthy reports whether the server answers its status endpoint.
// A 404 still means the server is up with a different status path, so both
// 200 and 404 count as healthy.
func (c *Controller) Healthy() bool {
	code, err := c.probe("/status")
	if err != nil {
		return false
	}
	if code == http.StatusNotFound {
		// Older servers mount status under /wd/hub.
		if hubCode, err := c.probe("/wd/hub/status"); err == nil {
			code = hubCode
		}
	}
	return code == http.StatusOK || code == http.StatusNotFound
}

func (c *Controller) probe(path string) (int, error) {
	resp, err := c.client.Get(c.URL() + path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// PortInUse reports whether something is already bound to the target port.
func (c *Controller) PortInUse() bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", c.Host, c.Port))
	if err != nil {
		return true
	}
	ln.Close()
	return false
}

// Start brings up a healthy server, in order:
//  1. an externally managed GUI server that answers health checks wins;
//  2. a port occupied by anything else is a hard failure (never spawn a
//     duplicate server against a busy port);
//  3. otherwise spawn a local server on loopback and poll health at a
//     fixed interval until the startup timeout.
//
// Every failure path terminates the spawned process so no orphan survives.
func (c *Controller) Start() error {
	if c.DetectDesktop() {
		logger.Info("detected externally managed Appium server")
		if c.Healthy() {
			return nil
		}
		return core.ErrServerUnreachable.WithMessage(
			"Appium desktop process found but %s does not answer health checks", c.URL())
	}

	if c.PortInUse() {
		return core.ErrPortOccupied.WithMessage(
			"port %d is occupied but no Appium server was detected", c.Port)
	}

	cmd := c.startCommand()
	cmd.Stdout = logger.GetWriter()
	cmd.Stderr = logger.GetWriter()

	logger.Info("starting Appium server on %s", c.URL())
	if err := cmd.Start(); err != nil {
		return core.ErrServerUnreachable.WithCause(err)
	}
	c.cmd = cmd

	deadline := time.Now().Add(c.StartupTimeout)
	for time.Now().Before(deadline) {
		if c.Healthy() {
			logger.Info("Appium server is healthy")
			return nil
		}
		time.Sleep(c.PollInterval)
	}

	c.Stop()
	return core.ErrServerStartTimeout.WithMessage(
		"Appium server did not answer within %s", c.StartupTimeout)
}

// defaultStartCommand builds the loopback-only server command. Binding a
// wildcard address would expose the automation server to the network.
func (c *Controller) defaultStartCommand() *exec.Cmd {
	return exec.Command("appium",
		"--address", "127.0.0.1",
		"--port", fmt.Sprintf("%d", c.Port),
		"--relaxed-security",
	)
}

// Spawned reports whether this controller owns a running server process.
func (c *Controller) Spawned() bool {
	return c.cmd != nil
}

// Stop terminates the locally spawned server process, if any. Safe to call
// repeatedly and when nothing was spawned.
func (c *Controller) Stop() {
	if c.cmd == nil {
		return
	}
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
		c.cmd.Wait()
	}
	c.cmd = nil
}
