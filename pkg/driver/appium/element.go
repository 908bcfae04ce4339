package appium

import "github.com/devicelab-dev/appium-harness/pkg/driver"

// Element is a handle to one element inside a session.
type Element struct {
	client *client
	id     string
}

var _ driver.Element = (*Element)(nil)

// Click clicks the element.
func (e *Element) Click() error {
	_, err := e.client.post(e.client.elementPath(e.id)+"/click", nil)
	return err
}

// Text returns the element's visible text.
func (e *Element) Text() (string, error) {
	resp, err := e.client.get(e.client.elementPath(e.id) + "/text")
	if err != nil {
		return "", err
	}
	text, _ := resp["value"].(string)
	return text, nil
}

// Attribute returns one attribute value.
func (e *Element) Attribute(name string) (string, error) {
	resp, err := e.client.get(e.client.elementPath(e.id) + "/attribute/" + name)
	if err != nil {
		return "", err
	}
	value, _ := resp["value"].(string)
	return value, nil
}
