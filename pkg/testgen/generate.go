// Package testgen synthesizes test cases from inspected pages: one case
// per interactive element, with step narratives templated by element type,
// plus rendered flow files for well-known screen kinds.
package testgen

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// SampleInput is the text typed into input fields by generated cases.
const SampleInput = "test input"

// Generate produces one test case per element. The output depends only on
// the input: same elements in, same cases out. An empty element list
// yields the smoke fallback set so a generation run never produces
// nothing.
func Generate(elements []core.ElementRecord) []core.TestCase {
	if len(elements) == 0 {
		return smokeFallback()
	}

	cases := make([]core.TestCase, 0, len(elements))
	for i, e := range elements {
		cases = append(cases, buildCase(i, e))
	}
	return cases
}

func buildCase(index int, e core.ElementRecord) core.TestCase {
	name := caseName(index, e)
	target := e.Name()

	switch e.InferredType {
	case core.TypeButton:
		return core.TestCase{
			Name: name,
			Steps: []string{
				fmt.Sprintf("locate %q", target),
				fmt.Sprintf("click %q", target),
			},
			Expected: []string{
				"click is accepted without error",
				"resulting screen renders",
			},
		}
	case core.TypeInput:
		return core.TestCase{
			Name: name,
			Steps: []string{
				fmt.Sprintf("locate %q", target),
				fmt.Sprintf("type %q into %q", SampleInput, target),
			},
			Expected: []string{
				fmt.Sprintf("field contains %q", SampleInput),
			},
		}
	case core.TypeSwitch:
		return core.TestCase{
			Name: name,
			Steps: []string{
				fmt.Sprintf("locate %q", target),
				fmt.Sprintf("toggle %q", target),
			},
			Expected: []string{
				"switch state is inverted",
			},
		}
	default:
		return core.TestCase{
			Name: name,
			Steps: []string{
				fmt.Sprintf("locate %q", target),
				fmt.Sprintf("inspect %q", target),
			},
			Expected: []string{
				"element is present and enabled",
			},
		}
	}
}

// caseName builds a deterministic, filesystem-safe case name. The index
// keeps names unique when two elements share an identifier.
func caseName(index int, e core.ElementRecord) string {
	kind := string(e.InferredType)
	if kind == "" {
		kind = string(core.TypeUnknown)
	}
	return fmt.Sprintf("test_%02d_%s_%s", index+1, kind, sanitize(e.Name()))
}

func sanitize(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// smokeFallback is the fixed case set for a page where inspection found
// nothing interactive.
func smokeFallback() []core.TestCase {
	return []core.TestCase{
		{
			Name:     "test_smoke_app_launches",
			Steps:    []string{"launch the app", "wait for the first screen"},
			Expected: []string{"a page source is served"},
		},
		{
			Name:     "test_smoke_back_is_safe",
			Steps:    []string{"press back on the first screen"},
			Expected: []string{"the app does not crash"},
		},
	}
}
