package inspector

import (
	"strings"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/driver"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
)

// DefaultMaxDepth caps how many clickable candidates one exploration run
// follows. Exploration is deliberately shallow: each candidate is clicked
// from the root screen and backed out of, never recursed into.
const DefaultMaxDepth = 5

// defaultSettle is the pause after a navigation before the UI is queried.
const defaultSettle = 500 * time.Millisecond

// interactiveClassKeywords is the widget allowlist backing the second
// discovery criterion: some platforms under-report "clickable" on custom
// views, so class identity qualifies an element too.
var interactiveClassKeywords = []string{
	"button", "edit", "text", "view", "image", "checkbox", "radio",
}

// Inspector inspects the UI reachable through one driver session.
type Inspector struct {
	session driver.Session

	// settle is swappable in tests to avoid real sleeps.
	settle func()
}

// New creates an Inspector over the session.
func New(session driver.Session) *Inspector {
	return &Inspector{
		session: session,
		settle:  func() { time.Sleep(defaultSettle) },
	}
}

// AnalyzeCurrentPage snapshots the current screen: activity identifier
// plus the classified element inventory. This is the one inspection entry
// point that propagates errors; the exploration helpers degrade instead.
func (i *Inspector) AnalyzeCurrentPage() (core.PageFeature, error) {
	source, err := i.session.PageSource()
	if err != nil {
		return core.PageFeature{}, core.ErrNoPageSource.WithCause(err)
	}
	elements, err := ParsePageSource(source)
	if err != nil {
		return core.PageFeature{}, err
	}

	activity, err := i.session.CurrentActivity()
	if err != nil {
		activity = "unknown"
	}

	return core.PageFeature{
		Activity:    activity,
		Description: "screen " + activity,
		Elements:    elements,
	}, nil
}

// DiscoverInteractive filters a snapshot down to the elements worth
// interacting with: marked clickable and enabled, or matching the widget
// class allowlist. The union is deduplicated, order preserved.
func DiscoverInteractive(elements []core.ElementRecord) []core.ElementRecord {
	var out []core.ElementRecord
	seen := map[string]bool{}

	for _, e := range elements {
		if !(e.Clickable && e.Enabled) && !matchesAllowlist(e.Class) {
			continue
		}
		key := e.Class + "|" + e.ResourceID + "|" + e.ContentDesc + "|" + e.Text
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

func matchesAllowlist(className string) bool {
	lower := strings.ToLower(className)
	for _, kw := range interactiveClassKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExplorePages maps the screens one click away from the current one. For
// up to maxDepth clickable candidates on the root screen it clicks,
// settles, and when the foreground activity changed snapshots the new
// screen before backing out. A failing candidate aborts only its own
// branch. maxDepth <= 0 selects DefaultMaxDepth.
func (i *Inspector) ExplorePages(maxDepth int) (core.FeatureMap, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	root, err := i.AnalyzeCurrentPage()
	if err != nil {
		return nil, err
	}

	features := core.FeatureMap{root.Activity: root}

	var candidates []core.ElementRecord
	for _, e := range root.Elements {
		if e.Clickable && e.Enabled {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) > maxDepth {
		candidates = candidates[:maxDepth]
	}

	for _, candidate := range candidates {
		i.exploreCandidate(candidate, root.Activity, features)
	}
	return features, nil
}

// exploreCandidate follows one click. Every failure is local: log, give
// up on this branch, leave the session on the root screen.
func (i *Inspector) exploreCandidate(candidate core.ElementRecord, rootActivity string, features core.FeatureMap) {
	strategy, value, ok := LocatorFor(candidate)
	if !ok {
		return
	}
	elem, err := i.session.FindElement(strategy, value)
	if err != nil {
		logger.Debug("explore: cannot relocate %q: %v", candidate.Name(), err)
		return
	}
	if err := elem.Click(); err != nil {
		logger.Debug("explore: click on %q failed: %v", candidate.Name(), err)
		return
	}
	i.settle()

	activity, err := i.session.CurrentActivity()
	if err != nil || activity == rootActivity {
		return
	}

	if _, known := features[activity]; !known {
		if page, err := i.AnalyzeCurrentPage(); err == nil {
			features[activity] = page
		} else {
			logger.Debug("explore: snapshot of %s failed: %v", activity, err)
		}
	}

	if err := i.session.Back(); err != nil {
		logger.Warn("explore: back from %s failed: %v", activity, err)
	}
	i.settle()
}
