package testgen

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/appium-harness/pkg/core"
)

// WriteTestCases serializes the cases to dir/test_cases.yaml.
func WriteTestCases(dir string, cases []core.TestCase) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(cases)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "test_cases.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFeatures serializes a discovered feature map to dir/features.yaml.
func WriteFeatures(dir string, features core.FeatureMap) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(features)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "features.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFlow writes one rendered flow under dir as <kind>_flow.yaml.
func WriteFlow(dir, kind, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_flow.yaml", kind))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
