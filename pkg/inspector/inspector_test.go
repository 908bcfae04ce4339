package inspector

import (
	"errors"
	"fmt"
	"testing"

	"github.com/devicelab-dev/appium-harness/pkg/core"
	"github.com/devicelab-dev/appium-harness/pkg/driver/mock"
)

func noSettle(i *Inspector) *Inspector {
	i.settle = func() {}
	return i
}

// Fixture from the discovery contract: 3 clickable-only, 3 allowlist-only,
// 2 both, 2 neither.
func discoveryFixture() []core.ElementRecord {
	return []core.ElementRecord{
		{Class: "com.app.CustomCell", ResourceID: "c1", Clickable: true, Enabled: true},
		{Class: "com.app.CustomCell", ResourceID: "c2", Clickable: true, Enabled: true},
		{Class: "com.app.CustomCell", ResourceID: "c3", Clickable: true, Enabled: true},
		{Class: "android.widget.TextView", ResourceID: "a1"},
		{Class: "android.widget.ImageView", ResourceID: "a2"},
		{Class: "android.widget.CheckBox", ResourceID: "a3"},
		{Class: "android.widget.Button", ResourceID: "b1", Clickable: true, Enabled: true},
		{Class: "android.widget.EditText", ResourceID: "b2", Clickable: true, Enabled: true},
		{Class: "com.app.Decoration", ResourceID: "n1"},
		{Class: "com.app.Spacer", ResourceID: "n2"},
	}
}

func TestDiscoverInteractive_UnionOfCriteria(t *testing.T) {
	got := DiscoverInteractive(discoveryFixture())
	if len(got) != 8 {
		t.Fatalf("expected exactly 8 interactive elements, got %d", len(got))
	}
	// Document order is preserved.
	if got[0].ResourceID != "c1" || got[7].ResourceID != "b2" {
		t.Errorf("order not preserved: first=%s last=%s", got[0].ResourceID, got[7].ResourceID)
	}
}

func TestDiscoverInteractive_Dedupes(t *testing.T) {
	e := core.ElementRecord{Class: "android.widget.Button", Text: "OK", Clickable: true, Enabled: true}
	got := DiscoverInteractive([]core.ElementRecord{e, e, e})
	if len(got) != 1 {
		t.Errorf("expected 1 element after dedupe, got %d", len(got))
	}
}

func TestDiscoverInteractive_ClickableButDisabled(t *testing.T) {
	e := core.ElementRecord{Class: "com.app.Cell", Clickable: true, Enabled: false}
	if got := DiscoverInteractive([]core.ElementRecord{e}); len(got) != 0 {
		t.Errorf("disabled non-widget element must not qualify, got %d", len(got))
	}
}

func homeScreens() map[string]*mock.Screen {
	return map[string]*mock.Screen{
		"home": {
			Activity: ".HomeActivity",
			Elements: []mock.Element{
				{ID: "nav_settings", Class: "android.widget.Button", Text: "Settings",
					Clickable: true, Enabled: true, Target: "settings"},
				{ID: "nav_profile", Class: "android.widget.Button", Text: "Profile",
					Clickable: true, Enabled: true, Target: "profile"},
				{ID: "banner", Class: "android.widget.TextView", Text: "Welcome", Enabled: true},
			},
		},
		"settings": {
			Activity: ".SettingsActivity",
			Elements: []mock.Element{
				{ID: "advanced", Class: "android.widget.Button", Text: "Advanced",
					Clickable: true, Enabled: true, Target: "advanced"},
			},
		},
		"profile": {
			Activity: ".ProfileActivity",
			Elements: []mock.Element{
				{ID: "avatar", Class: "android.widget.ImageView", Enabled: true},
			},
		},
		"advanced": {
			Activity: ".AdvancedActivity",
		},
	}
}

func TestAnalyzeCurrentPage(t *testing.T) {
	session := mock.NewSession("home", homeScreens())
	page, err := noSettle(New(session)).AnalyzeCurrentPage()
	if err != nil {
		t.Fatalf("AnalyzeCurrentPage: %v", err)
	}
	if page.Activity != ".HomeActivity" {
		t.Errorf("activity = %q", page.Activity)
	}
	if len(page.Elements) != 3 {
		t.Errorf("expected 3 elements, got %d", len(page.Elements))
	}
	if page.Elements[0].InferredType != core.TypeButton {
		t.Errorf("element type = %v", page.Elements[0].InferredType)
	}
}

func TestAnalyzeCurrentPage_SourceError(t *testing.T) {
	session := mock.NewSession("home", homeScreens())
	session.SourceErr = fmt.Errorf("socket hung up")

	_, err := noSettle(New(session)).AnalyzeCurrentPage()
	var herr *core.HarnessError
	if !errors.As(err, &herr) || herr.Code != "no_page_source" {
		t.Fatalf("expected no_page_source, got %v", err)
	}
}

func TestExplorePages_MapsNeighborScreens(t *testing.T) {
	session := mock.NewSession("home", homeScreens())
	features, err := noSettle(New(session)).ExplorePages(0)
	if err != nil {
		t.Fatalf("ExplorePages: %v", err)
	}

	for _, want := range []string{".HomeActivity", ".SettingsActivity", ".ProfileActivity"} {
		if _, ok := features[want]; !ok {
			t.Errorf("feature map lacks %s (have %d screens)", want, len(features))
		}
	}
	if session.CurrentScreen() != "home" {
		t.Errorf("exploration must end back on the root screen, on %q", session.CurrentScreen())
	}
}

// Exploration is single-level: screens behind a discovered screen stay
// unmapped even though they are reachable.
func TestExplorePages_DoesNotRecurse(t *testing.T) {
	session := mock.NewSession("home", homeScreens())
	features, err := noSettle(New(session)).ExplorePages(0)
	if err != nil {
		t.Fatalf("ExplorePages: %v", err)
	}
	if _, ok := features[".AdvancedActivity"]; ok {
		t.Error("depth-2 screen must not be explored")
	}
}

func TestExplorePages_CandidateCap(t *testing.T) {
	screens := map[string]*mock.Screen{"home": {Activity: ".HomeActivity"}}
	for n := 0; n < 8; n++ {
		id := fmt.Sprintf("btn%d", n)
		target := fmt.Sprintf("screen%d", n)
		screens["home"].Elements = append(screens["home"].Elements, mock.Element{
			ID: id, Class: "android.widget.Button", Clickable: true, Enabled: true, Target: target,
		})
		screens[target] = &mock.Screen{Activity: fmt.Sprintf(".Activity%d", n)}
	}

	session := mock.NewSession("home", screens)
	features, err := noSettle(New(session)).ExplorePages(0)
	if err != nil {
		t.Fatalf("ExplorePages: %v", err)
	}
	// Root plus at most DefaultMaxDepth discovered screens.
	if len(features) != DefaultMaxDepth+1 {
		t.Errorf("explored %d screens, want %d", len(features)-1, DefaultMaxDepth)
	}
	if len(session.Clicks) != DefaultMaxDepth {
		t.Errorf("clicked %d candidates, want %d", len(session.Clicks), DefaultMaxDepth)
	}
}

func TestExplorePages_StaleCandidateIsIsolated(t *testing.T) {
	screens := homeScreens()
	screens["home"].Elements[0].Stale = true // Settings click now fails

	session := mock.NewSession("home", screens)
	features, err := noSettle(New(session)).ExplorePages(0)
	if err != nil {
		t.Fatalf("ExplorePages: %v", err)
	}
	if _, ok := features[".SettingsActivity"]; ok {
		t.Error("failed candidate must not contribute a screen")
	}
	if _, ok := features[".ProfileActivity"]; !ok {
		t.Error("later candidates must still be explored")
	}
}

func TestExplorePages_ClickWithoutNavigation(t *testing.T) {
	screens := map[string]*mock.Screen{
		"home": {
			Activity: ".HomeActivity",
			Elements: []mock.Element{
				{ID: "toggle", Class: "android.widget.Switch", Clickable: true, Enabled: true},
			},
		},
	}
	session := mock.NewSession("home", screens)
	features, err := noSettle(New(session)).ExplorePages(0)
	if err != nil {
		t.Fatalf("ExplorePages: %v", err)
	}
	if len(features) != 1 {
		t.Errorf("expected only the root screen, got %d", len(features))
	}
}

func TestLocatorFor_PreferenceOrder(t *testing.T) {
	tests := []struct {
		elem     core.ElementRecord
		strategy string
		value    string
	}{
		{core.ElementRecord{ContentDesc: "submit", ResourceID: "id/x", Text: "Go", Class: "B"}, "accessibility id", "submit"},
		{core.ElementRecord{ResourceID: "id/x", Text: "Go", Class: "B"}, "id", "id/x"},
		{core.ElementRecord{Text: "Go", Class: "B"}, "xpath", `//*[@text="Go"]`},
		{core.ElementRecord{Class: "B"}, "class name", "B"},
	}
	for _, tt := range tests {
		strategy, value, ok := LocatorFor(tt.elem)
		if !ok || strategy != tt.strategy || value != tt.value {
			t.Errorf("LocatorFor(%+v) = %q %q %t, want %q %q", tt.elem, strategy, value, ok, tt.strategy, tt.value)
		}
	}

	if _, _, ok := LocatorFor(core.ElementRecord{}); ok {
		t.Error("anchorless element must not produce a locator")
	}
}

func TestElementMap_FirstNameWins(t *testing.T) {
	m := ElementMap([]core.ElementRecord{
		{Class: "android.widget.Button", Text: "OK", ResourceID: "first"},
		{Class: "android.widget.Button", Text: "OK", ResourceID: "second"},
		{Class: "android.widget.TextView", Text: "Hello"},
	})
	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m))
	}
	if m["OK"].ResourceID != "first" {
		t.Errorf("first element must win: %+v", m["OK"])
	}
}
