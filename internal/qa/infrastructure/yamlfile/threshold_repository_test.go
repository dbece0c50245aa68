package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qa "mpc-plus/internal/qa/domain"
)

const thresholdsYAML = `thresholds:
  - machine_id: NDS-WKS-SN6543
    check_category: beam
    metric_type: relativeOutput
    tolerance: 2
  - machine_id: NDS-WKS-SN6543
    check_category: beam
    beam_variant: "6e"
    metric_type: relativeOutput
    tolerance: 3
    last_updated: 2025-09-01T00:00:00Z
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestThresholdRepository_ReadsFile(t *testing.T) {
	path := writeFile(t, thresholdsYAML)
	repo, err := NewThresholdRepository(path)
	require.NoError(t, err)

	got, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsGeneric())
	assert.Equal(t, "6e", got[1].BeamVariant)
	assert.Equal(t, qa.CategoryBeam, got[1].CheckCategory)
	assert.Equal(t, 2025, got[1].LastUpdated.Year())
}

func TestThresholdRepository_PicksUpEdits(t *testing.T) {
	path := writeFile(t, thresholdsYAML)
	repo, err := NewThresholdRepository(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("thresholds: []\n"), 0o644))
	got, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestThresholdRepository_Rejects(t *testing.T) {
	_, err := NewThresholdRepository("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = NewThresholdRepository(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, "thresholds:\n  - machine_id: M1\n    check_category: dose\n    metric_type: relativeOutput\n    tolerance: 1\n")
	_, err = NewThresholdRepository(bad)
	assert.ErrorIs(t, err, qa.ErrInvalidCategory)

	dup := writeFile(t, "thresholds:\n  - {machine_id: M1, check_category: beam, metric_type: relativeOutput, tolerance: 1}\n  - {machine_id: M1, check_category: beam, metric_type: RelativeOutput, tolerance: 2}\n")
	_, err = NewThresholdRepository(dup)
	assert.Error(t, err)
}
