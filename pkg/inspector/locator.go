package inspector

import (
	"fmt"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/driver"
)

// LocatorFor suggests the most stable locator for an element, in
// preference order: accessibility id, resource id, text xpath, class
// name. Returns ok=false for an element with nothing to anchor on.
func LocatorFor(e core.ElementRecord) (strategy, value string, ok bool) {
	switch {
	case e.ContentDesc != "":
		return driver.ByAccessibilityID, e.ContentDesc, true
	case e.ResourceID != "":
		return driver.ByID, e.ResourceID, true
	case e.Text != "":
		return driver.ByXPath, fmt.Sprintf(`//*[@text=%q]`, e.Text), true
	case e.Class != "":
		return driver.ByClassName, e.Class, true
	}
	return "", "", false
}

// ElementMap indexes a snapshot by element name for lookup by callers
// composing test steps. The first element with a given name wins.
func ElementMap(elements []core.ElementRecord) map[string]core.ElementRecord {
	out := make(map[string]core.ElementRecord, len(elements))
	for _, e := range elements {
		name := e.Name()
		if name == "" {
			continue
		}
		if _, exists := out[name]; !exists {
			out[name] = e
		}
	}
	return out
}
