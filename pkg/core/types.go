// Package core defines the shared vocabulary of the harness: element and
// page models produced by inspection, test-case records produced by
// synthesis, and the structured error type used across packages.
package core

import (
	"strconv"
	"strings"
)

// ElementType classifies a UI element by heuristic rules.
type ElementType string

// Element types inferred from class names.
const (
	TypeInput   ElementType = "input"
	TypeButton  ElementType = "button"
	TypeImage   ElementType = "image"
	TypeText    ElementType = "text"
	TypeList    ElementType = "list"
	TypeVideo   ElementType = "video"
	TypeAudio   ElementType = "audio"
	TypeSwitch  ElementType = "switch"
	TypeUnknown ElementType = "unknown"
)

// ElementRecord is a snapshot of a single UI element. Records are rebuilt
// on every page query and never cached across navigation: the underlying
// view may be redrawn at any time, invalidating element references.
type ElementRecord struct {
	Class        string            `yaml:"class"`
	Text         string            `yaml:"text,omitempty"`
	ResourceID   string            `yaml:"resource-id,omitempty"`
	ContentDesc  string            `yaml:"content-desc,omitempty"`
	Clickable    bool              `yaml:"clickable"`
	Enabled      bool              `yaml:"enabled"`
	Bounds       Bounds            `yaml:"bounds,omitempty"`
	Attributes   map[string]string `yaml:"attributes,omitempty"`
	InferredType ElementType       `yaml:"type"`
}

// Name returns the best human-readable identifier for the element:
// content description, then text, then class name.
func (e ElementRecord) Name() string {
	if e.ContentDesc != "" {
		return e.ContentDesc
	}
	if e.Text != "" {
		return e.Text
	}
	return e.Class
}

// PageFeature is the element inventory of one discovered screen.
type PageFeature struct {
	Activity    string          `yaml:"activity"`
	Description string          `yaml:"description"`
	Elements    []ElementRecord `yaml:"elements"`
}

// FeatureMap aggregates discovered screens keyed by screen identifier.
// It grows monotonically during a single exploration run.
type FeatureMap map[string]PageFeature

// TestCase is a generated test-case record: a name, an ordered step
// narrative, and the expected outcomes.
type TestCase struct {
	Name     string   `yaml:"name"`
	Steps    []string `yaml:"steps"`
	Expected []string `yaml:"expected"`
}

// Bounds represents element position and size.
type Bounds struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Center returns the center point of the bounds.
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// ParseBounds parses an Android bounds string "[x1,y1][x2,y2]".
// Malformed input yields zero bounds.
func ParseBounds(s string) Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}
	}

	x1, _ := strconv.Atoi(parts[0])
	y1, _ := strconv.Atoi(parts[1])
	x2, _ := strconv.Atoi(parts[2])
	y2, _ := strconv.Atoi(parts[3])

	return Bounds{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}
