package data

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"farm-dashboard/internal/model"
)

// LoadRunJSON reads a saved global optimization response.
func LoadRunJSON(path string) (*model.OptimizationRun, error) {
	var run model.OptimizationRun
	if err := loadJSON(path, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadSiteSummaryJSON reads a saved site summary response.
func LoadSiteSummaryJSON(path string) (*model.SiteSummary, error) {
	var summary model.SiteSummary
	if err := loadJSON(path, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SaveRunJSON writes a run so it can be replayed offline with the CLI.
func SaveRunJSON(run *model.OptimizationRun, path string) error {
	return saveJSON(run, path)
}

func SaveSiteSummaryJSON(summary *model.SiteSummary, path string) error {
	return saveJSON(summary, path)
}

func loadJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}

func saveJSON(v interface{}, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal")
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
