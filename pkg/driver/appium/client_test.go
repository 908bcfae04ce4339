package appium

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// fakeAppium is a minimal W3C endpoint recording requests.
type fakeAppium struct {
	mu       sync.Mutex
	requests []string                          // "METHOD path"
	handlers map[string]map[string]interface{} // "METHOD path" -> response body
	lastBody map[string]interface{}
}

func newFakeAppium() *fakeAppium {
	return &fakeAppium{handlers: map[string]map[string]interface{}{}}
}

func (f *fakeAppium) on(method, path string, response map[string]interface{}) {
	f.handlers[method+" "+path] = response
}

func (f *fakeAppium) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	var body map[string]interface{}
	json.NewDecoder(r.Body).Decode(&body)
	f.lastBody = body
	resp, ok := f.handlers[key]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": map[string]interface{}{"error": "unknown command", "message": key},
		})
		return
	}
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeAppium) saw(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == key {
			return true
		}
	}
	return false
}

func openTestSession(t *testing.T, fake *fakeAppium) (*Session, *httptest.Server) {
	t.Helper()
	fake.on("POST", "/session", map[string]interface{}{
		"value": map[string]interface{}{"sessionId": "sess-1"},
	})
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	session, err := Open(srv.URL, map[string]interface{}{"platformName": "Android"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return session, srv
}

func TestOpen_CreatesSession(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)

	if session.ID() != "sess-1" {
		t.Errorf("session ID = %q", session.ID())
	}
	caps, ok := fake.lastBody["capabilities"].(map[string]interface{})
	if !ok {
		t.Fatalf("capabilities not sent: %v", fake.lastBody)
	}
	always, ok := caps["alwaysMatch"].(map[string]interface{})
	if !ok || always["platformName"] != "Android" {
		t.Errorf("alwaysMatch = %v", caps["alwaysMatch"])
	}
}

func TestOpen_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close() // nothing listening anymore

	_, err := Open(addr, map[string]interface{}{"platformName": "Android"})
	if err == nil {
		t.Fatal("expected error")
	}
	var herr *core.HarnessError
	if !errors.As(err, &herr) || herr.Code != "server_unreachable" {
		t.Errorf("expected server_unreachable, got %v", err)
	}
}

func TestOpen_RejectedCapabilities(t *testing.T) {
	fake := newFakeAppium()
	fake.on("POST", "/session", map[string]interface{}{
		"value": map[string]interface{}{
			"error":   "session not created",
			"message": "A new session could not be created",
		},
	})
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := Open(srv.URL, map[string]interface{}{"platformName": "Android"})
	if err == nil {
		t.Fatal("expected error")
	}
	var herr *core.HarnessError
	if !errors.As(err, &herr) || herr.Code != "session_rejected" {
		t.Errorf("expected session_rejected, got %v", err)
	}
}

func TestFindElement_W3CKey(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)
	fake.on("POST", "/session/sess-1/element", map[string]interface{}{
		"value": map[string]interface{}{w3cElementKey: "elem-9"},
	})

	elem, err := session.FindElement("accessibility id", "Login")
	if err != nil {
		t.Fatalf("FindElement: %v", err)
	}
	if elem.(*Element).id != "elem-9" {
		t.Errorf("element id = %q", elem.(*Element).id)
	}
	if fake.lastBody["using"] != "accessibility id" || fake.lastBody["value"] != "Login" {
		t.Errorf("locator body = %v", fake.lastBody)
	}
}

func TestFindElement_LegacyKey(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)
	fake.on("POST", "/session/sess-1/element", map[string]interface{}{
		"value": map[string]interface{}{"ELEMENT": "old-3"},
	})

	elem, err := session.FindElement("id", "btn")
	if err != nil {
		t.Fatalf("FindElement: %v", err)
	}
	if elem.(*Element).id != "old-3" {
		t.Errorf("element id = %q", elem.(*Element).id)
	}
}

func TestFindElements_NoMatchIsEmpty(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)
	fake.on("POST", "/session/sess-1/elements", map[string]interface{}{
		"value": []interface{}{},
	})

	elements, err := session.FindElements("class name", "android.widget.Button")
	if err != nil {
		t.Fatalf("FindElements: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("expected no elements, got %d", len(elements))
	}
}

func TestSession_PageSourceAndActivity(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)
	fake.on("GET", "/session/sess-1/source", map[string]interface{}{
		"value": "<hierarchy/>",
	})
	fake.on("GET", "/session/sess-1/appium/device/current_activity", map[string]interface{}{
		"value": ".MainActivity",
	})

	source, err := session.PageSource()
	if err != nil || source != "<hierarchy/>" {
		t.Errorf("PageSource = %q, %v", source, err)
	}
	activity, err := session.CurrentActivity()
	if err != nil || activity != ".MainActivity" {
		t.Errorf("CurrentActivity = %q, %v", activity, err)
	}
}

func TestSession_BackAndImplicitWait(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)
	fake.on("POST", "/session/sess-1/back", map[string]interface{}{"value": nil})
	fake.on("POST", "/session/sess-1/timeouts", map[string]interface{}{"value": nil})

	if err := session.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if !fake.saw("POST /session/sess-1/back") {
		t.Error("back endpoint not hit")
	}

	if err := session.SetImplicitWait(5 * time.Second); err != nil {
		t.Fatalf("SetImplicitWait: %v", err)
	}
	if ms, _ := fake.lastBody["implicit"].(float64); int(ms) != 5000 {
		t.Errorf("implicit = %v, want 5000", fake.lastBody["implicit"])
	}
}

func TestSession_QuitIsIdempotent(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)
	fake.on("DELETE", "/session/sess-1", map[string]interface{}{"value": nil})

	if err := session.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	if err := session.Quit(); err != nil {
		t.Fatalf("second Quit: %v", err)
	}

	deletes := 0
	fake.mu.Lock()
	for _, r := range fake.requests {
		if r == "DELETE /session/sess-1" {
			deletes++
		}
	}
	fake.mu.Unlock()
	if deletes != 1 {
		t.Errorf("expected one DELETE, got %d", deletes)
	}
}

func TestElement_Operations(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)
	fake.on("POST", "/session/sess-1/element", map[string]interface{}{
		"value": map[string]interface{}{w3cElementKey: "elem-1"},
	})
	fake.on("POST", "/session/sess-1/element/elem-1/click", map[string]interface{}{"value": nil})
	fake.on("GET", "/session/sess-1/element/elem-1/text", map[string]interface{}{"value": "Sign in"})
	fake.on("GET", "/session/sess-1/element/elem-1/attribute/clickable", map[string]interface{}{"value": "true"})

	elem, err := session.FindElement("id", "login")
	if err != nil {
		t.Fatalf("FindElement: %v", err)
	}
	if err := elem.Click(); err != nil {
		t.Errorf("Click: %v", err)
	}
	if text, _ := elem.Text(); text != "Sign in" {
		t.Errorf("Text = %q", text)
	}
	if v, _ := elem.Attribute("clickable"); v != "true" {
		t.Errorf("Attribute = %q", v)
	}
}

func TestStaleElement_ErrorSurfaces(t *testing.T) {
	fake := newFakeAppium()
	session, _ := openTestSession(t, fake)
	fake.on("POST", "/session/sess-1/element", map[string]interface{}{
		"value": map[string]interface{}{w3cElementKey: "elem-1"},
	})
	fake.on("POST", "/session/sess-1/element/elem-1/click", map[string]interface{}{
		"value": map[string]interface{}{
			"error":   "stale element reference",
			"message": "element is not attached to the page document",
		},
	})

	elem, err := session.FindElement("id", "gone")
	if err != nil {
		t.Fatalf("FindElement: %v", err)
	}
	err = elem.Click()
	if err == nil {
		t.Fatal("expected stale element error")
	}
	if !strings.HasPrefix(err.Error(), "stale element reference") {
		t.Errorf("error = %q", err)
	}
}
