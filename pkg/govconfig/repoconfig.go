package govconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RepoConfigFileName is the optional per-repository defaults file, read
// from the root of --repo (SPEC_FULL.md §11, gopkg.in/yaml.v3 home: optional
// per-repo drafter/reviewer model, labels, and tracker repo). It supplies fallback
// values for flags the operator did not pass explicitly; an explicit CLI
// flag always wins.
const RepoConfigFileName = ".govern.yml"

// RepoConfig is the shape of the optional per-repository defaults file.
type RepoConfig struct {
	DrafterModel  string   `yaml:"drafter_model"`
	ReviewerModel string   `yaml:"reviewer_model"`
	Labels        []string `yaml:"labels"`
	TrackerRepo   string   `yaml:"tracker_repo"`
}

// LoadRepoConfig reads RepoConfigFileName from repoRoot. A missing file is
// not an error — it returns the zero RepoConfig, since the file is
// entirely optional (spec.md treats per-repo tuning as a convenience, not
// a contract).
func LoadRepoConfig(repoRoot string) (RepoConfig, error) {
	path := filepath.Join(repoRoot, RepoConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RepoConfig{}, nil
		}
		return RepoConfig{}, fmt.Errorf("read %s: %w", RepoConfigFileName, err)
	}

	var cfg RepoConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RepoConfig{}, fmt.Errorf("parse %s: %w", RepoConfigFileName, err)
	}
	return cfg, nil
}
