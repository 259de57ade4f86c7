// Package testutil provides shared test infrastructure for the lazy-sim packages.
// It holds the golden scenario types and assertion helpers.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gopkg.in/yaml.v3"
)

// GoldenDataset represents the structure of testdata/golden.yaml.
type GoldenDataset struct {
	Tests []GoldenTestCase `yaml:"tests"`
}

// GoldenTestCase is one text script with the outcome every user must reach.
// Scripts keep each decisive instant at least one virtual second away from
// any other so outcomes do not depend on goroutine scheduling.
type GoldenTestCase struct {
	Name   string `yaml:"name"`
	Script string `yaml:"script"`
	// Outcomes maps user id to the expected outcome string.
	Outcomes map[int]string `yaml:"outcomes"`
	// Waits maps user id to the expected wait in virtual seconds. Optional.
	Waits map[int]float64 `yaml:"waits,omitempty"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertVirtualTimeNear compares two virtual-second values with an absolute tolerance.
func AssertVirtualTimeNear(t *testing.T, name string, want, got, tol float64) {
	t.Helper()
	if diff := math.Abs(want - got); diff > tol {
		t.Errorf("%s: got %.3f, want %.3f (diff=%.3f, tol=%.3f)", name, got, want, diff, tol)
	}
}
