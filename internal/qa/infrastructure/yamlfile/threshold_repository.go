// Package yamlfile serves thresholds from a YAML document that operators edit by hand.
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	qa "mpc-plus/internal/qa/domain"
)

// ErrEmptyPath is returned when no file is configured.
var ErrEmptyPath = errors.New("yamlfile: empty path")

type document struct {
	Thresholds []qa.Threshold `yaml:"thresholds"`
}

// ThresholdRepository reads the threshold file on every call so edits apply
// to the next evaluation without a restart.
type ThresholdRepository struct {
	path string
}

// NewThresholdRepository constructs a repository and validates the file once.
func NewThresholdRepository(path string) (*ThresholdRepository, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	repo := &ThresholdRepository{path: path}
	if _, err := repo.GetAll(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// GetAll parses and validates the file.
func (r *ThresholdRepository) GetAll(ctx context.Context) ([]qa.Threshold, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("yamlfile: read %s: %w", r.path, err)
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("yamlfile: parse %s: %w", r.path, err)
	}
	seen := make(map[string]struct{}, len(doc.Thresholds))
	for i, t := range doc.Thresholds {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("yamlfile: threshold %d: %w", i, err)
		}
		if _, dup := seen[t.Key()]; dup {
			return nil, fmt.Errorf("yamlfile: duplicate threshold %s", t.Key())
		}
		seen[t.Key()] = struct{}{}
	}
	return doc.Thresholds, nil
}
