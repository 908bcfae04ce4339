// Package inspector examines live UI pages: it snapshots the hierarchy,
// classifies elements by heuristic rules, and walks one level of clickable
// candidates to map the screens around the current one.
package inspector

import (
	"strings"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// classifyRules is the ordered keyword table. First match wins, so the
// more specific keywords come first: an EditText contains "text" but must
// classify as input, not text.
var classifyRules = []struct {
	keyword  string
	elemType core.ElementType
}{
	{"edit", core.TypeInput},
	{"button", core.TypeButton},
	{"image", core.TypeImage},
	{"text", core.TypeText},
	{"list", core.TypeList},
	{"video", core.TypeVideo},
	{"audio", core.TypeAudio},
	{"switch", core.TypeSwitch},
}

// Classify infers the element type from its class name.
func Classify(className string) core.ElementType {
	lower := strings.ToLower(className)
	for _, rule := range classifyRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.elemType
		}
	}
	return core.TypeUnknown
}
