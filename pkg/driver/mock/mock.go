// Package mock provides a scriptable in-memory driver.Session for testing
// without a device or a server. Tests describe screens as element lists
// plus click transitions; the mock serves a generated hierarchy XML and
// walks the screen graph as elements are clicked.
package mock

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/driver"
)

// Element describes one scripted element on a screen.
type Element struct {
	ID            string // resource-id
	Accessibility string // content-desc
	Class         string
	Text          string
	Clickable     bool
	Enabled       bool

	// Target is the screen the session moves to when this element is
	// clicked. Empty means the click changes nothing.
	Target string
	// Stale makes every interaction with the element fail.
	Stale bool
}

// Screen is one node in the scripted UI graph.
type Screen struct {
	Activity string
	Elements []Element

	// Source overrides the generated hierarchy XML when non-empty,
	// e.g. to serve malformed markup.
	Source string
}

// Session implements driver.Session over the scripted graph.
type Session struct {
	Screens map[string]*Screen

	// SourceErr makes PageSource fail.
	SourceErr error

	current      string
	history      []string
	implicitWait time.Duration
	quit         bool

	// Clicks records clicked element identities in order.
	Clicks []string
}

var _ driver.Session = (*Session)(nil)

// NewSession starts a session on the named screen.
func NewSession(start string, screens map[string]*Screen) *Session {
	return &Session{Screens: screens, current: start}
}

// CurrentScreen returns the name of the screen the session is on.
func (s *Session) CurrentScreen() string {
	return s.current
}

// ImplicitWait returns the configured implicit wait.
func (s *Session) ImplicitWait() time.Duration {
	return s.implicitWait
}

// Quit ends the session.
func (s *Session) Quit() error {
	s.quit = true
	return nil
}

// Quitted reports whether Quit was called.
func (s *Session) Quitted() bool {
	return s.quit
}

func (s *Session) SetImplicitWait(timeout time.Duration) error {
	s.implicitWait = timeout
	return nil
}

func (s *Session) CurrentActivity() (string, error) {
	if s.quit {
		return "", fmt.Errorf("session is closed")
	}
	return s.screen().Activity, nil
}

// PageSource serves the screen's XML, generating it from the element list
// unless the screen scripts its own source.
func (s *Session) PageSource() (string, error) {
	if s.SourceErr != nil {
		return "", s.SourceErr
	}
	scr := s.screen()
	if scr.Source != "" {
		return scr.Source, nil
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><hierarchy>`)
	for _, e := range scr.Elements {
		fmt.Fprintf(&b,
			`<node class="%s" text="%s" resource-id="%s" content-desc="%s" clickable="%t" enabled="%t" bounds="[0,0][100,50]"/>`,
			xmlEscape(e.Class), xmlEscape(e.Text), xmlEscape(e.ID),
			xmlEscape(e.Accessibility), e.Clickable, e.Enabled)
	}
	b.WriteString(`</hierarchy>`)
	return b.String(), nil
}

func (s *Session) Back() error {
	if len(s.history) == 0 {
		return nil
	}
	s.current = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return nil
}

func (s *Session) FindElement(strategy, value string) (driver.Element, error) {
	for i := range s.screen().Elements {
		e := &s.screen().Elements[i]
		if matches(e, strategy, value) {
			return &handle{session: s, spec: *e}, nil
		}
	}
	return nil, fmt.Errorf("no such element: %s=%q", strategy, value)
}

func (s *Session) FindElements(strategy, value string) ([]driver.Element, error) {
	var out []driver.Element
	for i := range s.screen().Elements {
		e := &s.screen().Elements[i]
		if matches(e, strategy, value) {
			out = append(out, &handle{session: s, spec: *e})
		}
	}
	return out, nil
}

func (s *Session) screen() *Screen {
	if scr, ok := s.Screens[s.current]; ok {
		return scr
	}
	return &Screen{}
}

func matches(e *Element, strategy, value string) bool {
	switch strategy {
	case driver.ByID:
		return e.ID == value
	case driver.ByAccessibilityID:
		return e.Accessibility == value
	case driver.ByClassName:
		return e.Class == value
	case driver.ByXPath:
		// Good enough for the locators the harness emits.
		return e.Text != "" && strings.Contains(value, `"`+e.Text+`"`)
	}
	return false
}

// handle is an element handle bound to the session state at find time.
type handle struct {
	session *Session
	spec    Element
}

func (h *handle) Click() error {
	if h.spec.Stale {
		return fmt.Errorf("stale element reference: %s", h.name())
	}
	h.session.Clicks = append(h.session.Clicks, h.name())
	if h.spec.Target != "" {
		h.session.history = append(h.session.history, h.session.current)
		h.session.current = h.spec.Target
	}
	return nil
}

func (h *handle) Text() (string, error) {
	if h.spec.Stale {
		return "", fmt.Errorf("stale element reference: %s", h.name())
	}
	return h.spec.Text, nil
}

func (h *handle) Attribute(name string) (string, error) {
	switch name {
	case "resource-id":
		return h.spec.ID, nil
	case "content-desc":
		return h.spec.Accessibility, nil
	case "class":
		return h.spec.Class, nil
	case "clickable":
		return fmt.Sprintf("%t", h.spec.Clickable), nil
	case "enabled":
		return fmt.Sprintf("%t", h.spec.Enabled), nil
	}
	return "", nil
}

func (h *handle) name() string {
	if h.spec.ID != "" {
		return h.spec.ID
	}
	if h.spec.Accessibility != "" {
		return h.spec.Accessibility
	}
	return h.spec.Text
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
