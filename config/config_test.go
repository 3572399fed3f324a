package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, 120*time.Second, cfg.Tutoring.StuckAfter)
	assert.Equal(t, 2, cfg.Tutoring.IncorrectToStuck)
	assert.Equal(t, 2, cfg.Tutoring.MediumCorrectToHard)
	assert.Equal(t, 30*time.Minute, cfg.Tutoring.CheckpointEvery)
	assert.Equal(t, 15*time.Second, cfg.Tutoring.WatchEvery)
	assert.Equal(t, 20, cfg.Planning.DefaultPYQCount)
	assert.Equal(t, []string{"Physics", "Chemistry", "Mathematics"}, cfg.Planning.Subjects)
	assert.Equal(t, "content/lectures.yaml", cfg.Content.LecturesPath)
	assert.Equal(t, "Asia/Kolkata", cfg.App.Timezone)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_DotEnvAndOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TUTOR_STUCK_AFTER=90s\nPLAN_SUBJECTS=Physics, Mathematics\nTUTOR_INCORRECT_TO_STUCK=3\n"), 0o600))

	// Process environment wins over the file.
	t.Setenv("TUTOR_INCORRECT_TO_STUCK", "4")
	t.Cleanup(func() {
		os.Unsetenv("TUTOR_STUCK_AFTER")
		os.Unsetenv("PLAN_SUBJECTS")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Tutoring.StuckAfter)
	assert.Equal(t, 4, cfg.Tutoring.IncorrectToStuck)
	assert.Equal(t, []string{"Physics", "Mathematics"}, cfg.Planning.Subjects)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("TUTOR_INCORRECT_TO_STUCK", "0")
	t.Setenv("PLAN_LOW_ACCURACY_BELOW", "0.8")

	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "TUTOR_INCORRECT_TO_STUCK")
	assert.Contains(t, err.Error(), "PLAN_LOW_ACCURACY_BELOW")
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FEATURE_THEORY_LLM", "false")
	t.Setenv("FEATURE_EVENTS_MIRROR", "true")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureLLMTheory, ""))
	assert.True(t, ff.IsEnabled(FeatureEventMirror, ""))
	assert.True(t, ff.IsEnabled(FeatureCLIColour, "riya"))
	assert.False(t, ff.IsEnabled("unknown", ""))

	ff.SetOverride("riya", FeatureCLIColour, false)
	assert.False(t, ff.IsEnabled(FeatureCLIColour, "riya"))
	assert.True(t, ff.IsEnabled(FeatureCLIColour, "arjun"))

	require.NoError(t, ff.SetRolloutPercent(FeatureProfileCache, 50))
	first := ff.IsEnabled(FeatureProfileCache, "meera")
	assert.Equal(t, first, ff.IsEnabled(FeatureProfileCache, "meera"), "stable bucket")

	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureProfileCache, 101), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRolloutPercent("nope", 10), ErrFeatureNotFound)
	assert.Len(t, ff.Names(), 4)
}
