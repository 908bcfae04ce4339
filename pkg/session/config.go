// Package session loads the harness configuration and manages the Appium
// server plus the single driver session built from it.
package session

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// ServerConfig is the Appium server endpoint.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TestInfo holds session-wide test settings.
type TestInfo struct {
	ImplicitWait  int `yaml:"implicit_wait"`  // seconds
	DefaultDevice int `yaml:"default_device"` // index into the platform's device list
}

// DeviceProfile is one configured device. Beyond the required identity
// fields the profile is open: unknown YAML keys land in Extra and are
// forwarded into the session capabilities verbatim.
type DeviceProfile struct {
	DeviceName      string
	PlatformVersion string
	Extra           map[string]interface{}
}

// UnmarshalYAML splits the mapping into the typed identity fields and the
// open Extra remainder.
func (p *DeviceProfile) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if v, ok := raw["deviceName"].(string); ok {
		p.DeviceName = v
		delete(raw, "deviceName")
	}
	switch v := raw["platformVersion"].(type) {
	case string:
		p.PlatformVersion = v
	case int:
		p.PlatformVersion = fmt.Sprintf("%d", v)
	case float64:
		p.PlatformVersion = fmt.Sprintf("%g", v)
	}
	delete(raw, "platformVersion")

	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

// Config is the harness configuration (config.yaml).
type Config struct {
	Server   ServerConfig               `yaml:"appium_server"`
	Devices  map[string][]DeviceProfile `yaml:"devices"`
	TestInfo TestInfo                   `yaml:"test_info"`

	// HarmonyAutomation selects the automation backend used for the
	// harmony platform. Defaults to UiAutomator2.
	HarmonyAutomation string `yaml:"harmony_automation"`
}

// Default server endpoint and test settings.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 4723
	DefaultImplicitWait = 10
)

func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Host: DefaultHost, Port: DefaultPort},
		TestInfo: TestInfo{ImplicitWait: DefaultImplicitWait},
	}
}

// Load loads configuration from a file, filling unset server and test
// settings with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, core.ErrMissingConfigKey.WithMessage("cannot read config %s", path).WithCause(err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrMissingConfigKey.WithMessage("cannot parse config %s", path).WithCause(err)
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.TestInfo.ImplicitWait == 0 {
		cfg.TestInfo.ImplicitWait = DefaultImplicitWait
	}
	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory,
// falling back to pure defaults when neither exists.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return defaults(), nil
}
