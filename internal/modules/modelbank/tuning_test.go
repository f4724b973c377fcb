package modelbank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	assert.True(t, policy.Enabled(FamilyDepthwise, "blocks"))
	assert.True(t, policy.Enabled(FamilyDepthwise, "steals"))
	assert.False(t, policy.Enabled(FamilyDepthwise, "points"))

	for _, target := range []string{"points", "rebounds_total", "assists", "steals", "blocks", "turnovers", "three_pointers_made"} {
		assert.True(t, policy.Enabled(FamilySymmetric, target), target)
	}

	assert.False(t, policy.Enabled(FamilyLeafwise, "points"))
	assert.False(t, policy.Enabled(FamilyForest, "blocks"))
}

func TestDefaultPolicy_FreshCopy(t *testing.T) {
	mutated := DefaultPolicy()
	mutated[FamilyForest] = map[string]bool{"blocks": true}
	mutated[FamilyDepthwise]["blocks"] = false

	clean := DefaultPolicy()
	assert.False(t, clean.Enabled(FamilyForest, "blocks"))
	assert.True(t, clean.Enabled(FamilyDepthwise, "blocks"))
}

func TestParamsFor_Defaults(t *testing.T) {
	tuning := NewTuning(t.TempDir(), zerolog.Nop())

	// Not in the policy: defaults regardless of stored files.
	params := tuning.ParamsFor(FamilyLeafwise, "points")
	assert.Equal(t, DefaultParams(), params)

	// In the policy but no stored file: still defaults.
	params = tuning.ParamsFor(FamilySymmetric, "points")
	assert.Equal(t, DefaultParams(), params)
}

func TestParamsFor_TunedOverlay(t *testing.T) {
	dir := t.TempDir()
	payload := `{"best_params": {"n_estimators": 250, "learning_rate": 0.05, "max_depth": 8, "reg_lambda": 2.5}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "symmetric_gbt_points.json"), []byte(payload), 0o644))

	tuning := NewTuning(dir, zerolog.Nop())
	params := tuning.ParamsFor(FamilySymmetric, "points")

	assert.Equal(t, 250, params.Trees)
	assert.InDelta(t, 0.05, params.LearningRate, 1e-9)
	assert.Equal(t, 8, params.MaxDepth)
	assert.InDelta(t, 2.5, params.Lambda, 1e-9)

	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultParams().MaxLeaves, params.MaxLeaves)
	assert.InDelta(t, DefaultParams().Subsample, params.Subsample, 1e-9)
}

func TestParamsFor_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "depthwise_gbt_blocks.json"), []byte("{not json"), 0o644))

	tuning := NewTuning(dir, zerolog.Nop())
	assert.Equal(t, DefaultParams(), tuning.ParamsFor(FamilyDepthwise, "blocks"))
}

func TestParamsFor_NilTuning(t *testing.T) {
	var tuning *Tuning
	assert.Equal(t, DefaultParams(), tuning.ParamsFor(FamilySymmetric, "points"))
}
