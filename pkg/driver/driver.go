// Package driver defines the session contract the harness needs from a
// device-automation backend. Implementations live in subpackages; callers
// depend only on these interfaces so tests can substitute the mock.
package driver

import "time"

// Locator strategies understood by the backends.
const (
	ByID              = "id"
	ByAccessibilityID = "accessibility id"
	ByClassName       = "class name"
	ByXPath           = "xpath"
)

// Session is one live automation session against a device.
type Session interface {
	// FindElement locates a single element, honoring the implicit wait.
	FindElement(strategy, value string) (Element, error)
	// FindElements locates all matching elements; no match is an empty
	// slice, not an error.
	FindElements(strategy, value string) ([]Element, error)
	// PageSource returns the current UI hierarchy as XML.
	PageSource() (string, error)
	// CurrentActivity returns the foreground screen identifier.
	CurrentActivity() (string, error)
	// Back navigates one screen back.
	Back() error
	// SetImplicitWait configures how long element lookups poll.
	SetImplicitWait(timeout time.Duration) error
	// Quit ends the session. Safe to call more than once.
	Quit() error
}

// Element is a handle to one on-screen element. Handles can go stale when
// the screen changes; operations on a stale handle return an error.
type Element interface {
	Click() error
	Text() (string, error)
	Attribute(name string) (string, error)
}
