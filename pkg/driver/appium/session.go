package appium

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/driver"
)

// Session is a live W3C session.
type Session struct {
	client *client
}

var _ driver.Session = (*Session)(nil)

// ID returns the server-assigned session identifier.
func (s *Session) ID() string {
	return s.client.sessionID
}

// FindElement locates a single element.
func (s *Session) FindElement(strategy, value string) (driver.Element, error) {
	resp, err := s.client.post(s.client.sessionPath()+"/element", map[string]interface{}{
		"using": strategy,
		"value": value,
	})
	if err != nil {
		return nil, err
	}

	elemValue, ok := resp["value"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("element not found: %s=%q", strategy, value)
	}
	id := extractElementID(elemValue)
	if id == "" {
		return nil, fmt.Errorf("element not found: %s=%q", strategy, value)
	}
	return &Element{client: s.client, id: id}, nil
}

// FindElements locates all matching elements. No match is an empty slice.
func (s *Session) FindElements(strategy, value string) ([]driver.Element, error) {
	resp, err := s.client.post(s.client.sessionPath()+"/elements", map[string]interface{}{
		"using": strategy,
		"value": value,
	})
	if err != nil {
		return nil, err
	}

	values, ok := resp["value"].([]interface{})
	if !ok {
		return nil, nil
	}
	var elements []driver.Element
	for _, v := range values {
		if elem, ok := v.(map[string]interface{}); ok {
			if id := extractElementID(elem); id != "" {
				elements = append(elements, &Element{client: s.client, id: id})
			}
		}
	}
	return elements, nil
}

// PageSource returns the UI hierarchy XML.
func (s *Session) PageSource() (string, error) {
	resp, err := s.client.get(s.client.sessionPath() + "/source")
	if err != nil {
		return "", err
	}
	source, _ := resp["value"].(string)
	return source, nil
}

// CurrentActivity returns the foreground activity name.
func (s *Session) CurrentActivity() (string, error) {
	resp, err := s.client.get(s.client.sessionPath() + "/appium/device/current_activity")
	if err != nil {
		return "", err
	}
	activity, _ := resp["value"].(string)
	return activity, nil
}

// Back navigates one screen back.
func (s *Session) Back() error {
	_, err := s.client.post(s.client.sessionPath()+"/back", nil)
	return err
}

// SetImplicitWait sets the implicit wait timeout for element lookups.
func (s *Session) SetImplicitWait(timeout time.Duration) error {
	_, err := s.client.post(s.client.sessionPath()+"/timeouts", map[string]interface{}{
		"implicit": timeout.Milliseconds(),
	})
	return err
}

// Quit ends the session. Quitting an already-quit session is a no-op.
func (s *Session) Quit() error {
	if s.client.sessionID == "" {
		return nil
	}
	_, err := s.client.delete(s.client.sessionPath())
	s.client.sessionID = ""
	return err
}
