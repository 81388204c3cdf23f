package config

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_PROVIDER", "")
	t.Setenv("MAX_TURNS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.API.Provider)
	assert.False(t, cfg.API.RateLimited())
	assert.Equal(t, 20, cfg.Pipeline.MaxTurns)
	assert.InDelta(t, 0.2, cfg.Pipeline.CalorieThreshold, 1e-9)
	assert.Equal(t, 6*time.Second, cfg.API.DelayAfterCall)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadMissingCloudKey(t *testing.T) {
	t.Setenv("API_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *errors.ConfigurationError
	require.True(t, stderrors.As(err, &cfgErr))
	assert.Equal(t, "GROQ_API_KEY", cfgErr.Field)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := &Config{
		API:      APIConfig{Provider: "openrouter", Model: "m"},
		Pipeline: PipelineConfig{MenuPath: "m.csv", DialogsDir: "d", RegProfilesPath: "r", MaxTurns: 20, CalorieThreshold: 0.2},
	}
	err := cfg.Validate()
	require.Error(t, err)

	var cfgErr *errors.ConfigurationError
	assert.True(t, stderrors.As(err, &cfgErr))
}

func TestValidateGemini(t *testing.T) {
	cfg := &Config{
		API:      APIConfig{Provider: ProviderGemini, Model: "gemini-2.5-flash", GeminiKey: "k"},
		Pipeline: PipelineConfig{MenuPath: "m.csv", DialogsDir: "d", RegProfilesPath: "r", MaxTurns: 20, CalorieThreshold: 0.2},
	}
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.API.RateLimited())
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())
}
