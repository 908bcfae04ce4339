package session

import (
	"strings"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// platformNames maps the harness platform key to the W3C platformName
// capability value.
var platformNames = map[string]string{
	"android": "Android",
	"ios":     "iOS",
	"harmony": "HarmonyOS",
}

// ResolveCapabilities builds the session capabilities for a platform.
// overrideName selects a configured device by exact name; empty picks the
// configured default index. The profile always wins over the base values,
// and the merged set must name a device and a platform version.
func (c *Config) ResolveCapabilities(platform, overrideName string) (map[string]interface{}, error) {
	platform = strings.ToLower(platform)
	profiles := c.Devices[platform]
	if len(profiles) == 0 {
		return nil, core.ErrDeviceNotConfigured.WithMessage(
			"no devices configured for platform %q", platform)
	}

	var profile DeviceProfile
	if overrideName != "" {
		found := false
		for _, p := range profiles {
			if p.DeviceName == overrideName {
				profile = p
				found = true
				break
			}
		}
		if !found {
			return nil, core.ErrDeviceNotConfigured.WithMessage(
				"device %q not found for platform %q", overrideName, platform)
		}
	} else {
		idx := c.TestInfo.DefaultDevice
		if idx < 0 || idx >= len(profiles) {
			return nil, core.ErrDeviceNotConfigured.WithMessage(
				"default device index %d out of range: platform %q has %d device(s)",
				idx, platform, len(profiles))
		}
		profile = profiles[idx]
	}

	caps := c.baseCapabilities(platform)
	if profile.DeviceName != "" {
		caps["deviceName"] = profile.DeviceName
	}
	if profile.PlatformVersion != "" {
		caps["platformVersion"] = profile.PlatformVersion
	}
	for k, v := range profile.Extra {
		caps[k] = v
	}

	var missing []string
	for _, key := range []string{"deviceName", "platformVersion"} {
		if v, ok := caps[key].(string); !ok || v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, core.ErrMissingCapability.WithMessage(
			"missing required capabilities: %s", strings.Join(missing, ", "))
	}

	return caps, nil
}

func (c *Config) baseCapabilities(platform string) map[string]interface{} {
	automation := "UiAutomator2"
	switch platform {
	case "ios":
		automation = "XCUITest"
	case "harmony":
		if c.HarmonyAutomation != "" {
			automation = c.HarmonyAutomation
		}
	}

	name, ok := platformNames[platform]
	if !ok {
		name = platform
	}

	return map[string]interface{}{
		"platformName":         name,
		"automationName":       automation,
		"noReset":              true,
		"autoGrantPermissions": true,
		"newCommandTimeout":    120,
	}
}
