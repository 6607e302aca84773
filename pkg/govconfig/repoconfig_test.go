package govconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/continuum-labs/govern/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRepoConfigMissingFileIsNotAnError(t *testing.T) {
	dir := testutil.TempDir(t, "govconfig-")

	cfg, err := LoadRepoConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, RepoConfig{}, cfg)
}

func TestLoadRepoConfigParsesFile(t *testing.T) {
	dir := testutil.TempDir(t, "govconfig-")
	content := `
drafter_model: claude-opus
reviewer_model: claude-sonnet
labels:
  - governance
  - lld
tracker_repo: acme/widgets
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFileName), []byte(content), 0o644))

	cfg, err := LoadRepoConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "claude-opus", cfg.DrafterModel)
	assert.Equal(t, "claude-sonnet", cfg.ReviewerModel)
	assert.Equal(t, []string{"governance", "lld"}, cfg.Labels)
	assert.Equal(t, "acme/widgets", cfg.TrackerRepo)
}

func TestLoadRepoConfigRejectsMalformedYAML(t *testing.T) {
	dir := testutil.TempDir(t, "govconfig-")
	require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFileName), []byte("drafter_model: [unterminated"), 0o644))

	_, err := LoadRepoConfig(dir)
	assert.Error(t, err)
}
