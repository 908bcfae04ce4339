// Package appium implements driver.Session against an Appium server via
// the W3C WebDriver protocol.
package appium

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// W3C WebDriver element identifier key (standard constant)
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// client handles HTTP communication with the Appium server.
type client struct {
	serverURL string
	sessionID string
	http      *http.Client
}

func newClient(serverURL string) *client {
	return &client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		http: &http.Client{
			Timeout: 2 * time.Minute, // page-source dumps can be slow
		},
	}
}

// Open creates a session with the given capabilities. A server that cannot
// be reached and a server that rejects the capabilities are different
// failures with different remediations, so they map to different errors.
func Open(serverURL string, capabilities map[string]interface{}) (*Session, error) {
	c := newClient(serverURL)

	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": capabilities,
		},
	}

	resp, err := c.post("/session", body)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, core.ErrServerUnreachable.WithCause(err)
		}
		return nil, core.ErrSessionRejected.WithCause(err)
	}

	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return nil, core.ErrSessionRejected.WithMessage("malformed session response")
	}
	c.sessionID, _ = value["sessionId"].(string)
	if c.sessionID == "" {
		return nil, core.ErrSessionRejected.WithMessage("no session ID in response")
	}

	return &Session{client: c}, nil
}

// HTTP helpers

func (c *client) sessionPath() string {
	return "/session/" + c.sessionID
}

func (c *client) elementPath(elementID string) string {
	return c.sessionPath() + "/element/" + elementID
}

func (c *client) get(path string) (map[string]interface{}, error) {
	return c.request("GET", path, nil)
}

func (c *client) post(path string, body interface{}) (map[string]interface{}, error) {
	return c.request("POST", path, body)
}

func (c *client) delete(path string) (map[string]interface{}, error) {
	return c.request("DELETE", path, nil)
}

func (c *client) request(method, path string, body interface{}) (map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.serverURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// W3C errors arrive as {"value": {"error": ..., "message": ...}}.
	if errValue, ok := result["value"].(map[string]interface{}); ok {
		if errType, ok := errValue["error"].(string); ok {
			msg, _ := errValue["message"].(string)
			return result, fmt.Errorf("%s: %s", errType, msg)
		}
	}

	return result, nil
}

func extractElementID(value map[string]interface{}) string {
	// W3C format
	if id, ok := value[w3cElementKey].(string); ok {
		return id
	}
	// Legacy format
	if id, ok := value["ELEMENT"].(string); ok {
		return id
	}
	return ""
}
