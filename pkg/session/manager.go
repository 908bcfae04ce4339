package session

import (
	"strings"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/cmdrunner"
	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/driver"
	"github.com/devicelab-dev/appium-harness/pkg/driver/appium"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
	"github.com/devicelab-dev/appium-harness/pkg/server"
)

// commandRunner is the slice of cmdrunner.Runner the manager needs.
type commandRunner interface {
	Run(name string, args ...string) (cmdrunner.Result, error)
}

// serverControl is the slice of server.Controller the manager needs.
type serverControl interface {
	URL() string
	Healthy() bool
	Start() error
	Stop()
	Spawned() bool
}

// Manager owns the server lifecycle and at most one driver session.
type Manager struct {
	cfg *Config

	srv    serverControl
	runner commandRunner

	// open is swappable in tests.
	open func(serverURL string, caps map[string]interface{}) (driver.Session, error)

	session driver.Session
}

// NewManager creates a Manager for the configured server endpoint.
func NewManager(cfg *Config) *Manager {
	runner := cmdrunner.New()
	return &Manager{
		cfg:    cfg,
		srv:    server.New(cfg.Server.Host, cfg.Server.Port, runner),
		runner: runner,
		open: func(serverURL string, caps map[string]interface{}) (driver.Session, error) {
			return appium.Open(serverURL, caps)
		},
	}
}

// ServerURL returns the configured server base URL.
func (m *Manager) ServerURL() string {
	return m.srv.URL()
}

// StartServer brings the Appium server up, reusing an external one when
// present.
func (m *Manager) StartServer() error {
	return m.srv.Start()
}

// Session returns the open session, or nil.
func (m *Manager) Session() driver.Session {
	return m.session
}

// CreateSession resolves capabilities, verifies the preconditions, and
// opens the driver session. The manager holds at most one session;
// calling CreateSession while one is open returns the existing session.
func (m *Manager) CreateSession(platform, deviceOverride string) (driver.Session, error) {
	if m.session != nil {
		return m.session, nil
	}

	caps, err := m.cfg.ResolveCapabilities(platform, deviceOverride)
	if err != nil {
		return nil, err
	}

	if !m.srv.Healthy() {
		return nil, core.ErrServerUnreachable.WithMessage(
			"no Appium server answering at %s", m.srv.URL())
	}

	if strings.EqualFold(platform, "android") {
		udid, _ := caps["udid"].(string)
		if !m.deviceConnected(udid) {
			return nil, core.ErrDeviceNotConnected.WithMessage(
				"no Android device visible to adb")
		}
	}

	sess, err := m.open(m.srv.URL(), caps)
	if err != nil {
		return nil, err
	}

	wait := time.Duration(m.cfg.TestInfo.ImplicitWait) * time.Second
	if err := sess.SetImplicitWait(wait); err != nil {
		logger.Warn("failed to set implicit wait: %v", err)
	}

	m.session = sess
	logger.Info("session created for platform %s", platform)
	return sess, nil
}

// deviceConnected reports whether adb sees a ready device. With a udid it
// must be that exact serial; otherwise any connected device qualifies.
func (m *Manager) deviceConnected(udid string) bool {
	res, err := m.runner.Run("adb", "devices")
	if err != nil || res.ExitCode != 0 {
		return false
	}
	for _, line := range strings.Split(res.Output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 || parts[1] != "device" {
			continue
		}
		if udid == "" || parts[0] == udid {
			return true
		}
	}
	return false
}

// Stop quits the session and tears down a server this manager spawned.
// Both steps are best-effort and Stop can be called repeatedly.
func (m *Manager) Stop() {
	if m.session != nil {
		if err := m.session.Quit(); err != nil {
			logger.Warn("failed to quit session: %v", err)
		}
		m.session = nil
	}
	if m.srv.Spawned() {
		m.srv.Stop()
	}
}
