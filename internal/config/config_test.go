package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexcli/internal/period"
	"indexcli/pkg/contracts/domain"
)

// chdirWithConfig moves the test into a temp working directory holding
// the given config.yaml, so Load picks it up.
func chdirWithConfig(t *testing.T, yamlBody string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlBody), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"cpi", "ppi", "cci"}, cfg.Ingest.Families)
	assert.True(t, cfg.Ingest.GapMode)
}

func TestPlanConfig(t *testing.T) {
	cfg := Default()
	cfg.Ingest.From = "03/2010"
	cfg.Ingest.End = "now-2"

	plan, err := cfg.PlanConfig()
	require.NoError(t, err)

	assert.Equal(t, domain.NewPeriod(3, 2010), plan.From)
	assert.Equal(t, period.EndNowMinus, plan.End.Mode)
	assert.Equal(t, 2, plan.End.MinusMonths)
	assert.Equal(t, 1990, plan.MinYear)
	assert.Equal(t, 2100, plan.MaxYear)
}

func TestValidateRejectsBadPeriodGrammar(t *testing.T) {
	cfg := Default()
	cfg.Ingest.From = "2002-01"

	err := cfg.Validate()
	var cfgErr *period.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidateRejectsBadStructuralValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad base url", func(c *Config) { c.Publisher.BaseURL = "not a url" }},
		{"empty regions", func(c *Config) { c.Ingest.Regions = nil }},
		{"bad region length", func(c *Config) { c.Ingest.Regions = []string{"ESP"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	chdirWithConfig(t, `
server:
  port: 9999
ingest:
  from: "03/2010"
  families:
    - cpi
`)

	cfg, err := Load()
	require.NoError(t, err)

	// Values from the file win over the built-in defaults.
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "03/2010", cfg.Ingest.From)
	assert.Equal(t, []string{"cpi"}, cfg.Ingest.Families)

	// Fields the file does not mention keep their defaults.
	assert.Equal(t, "now-1", cfg.Ingest.End)
	assert.Equal(t, []string{"ES"}, cfg.Ingest.Regions)
	assert.Equal(t, "both", cfg.Logging.Output)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	chdirWithConfig(t, `
server:
  port: 9999
ingest:
  from: "03/2010"
`)
	t.Setenv("INDEXCLI_SERVER_PORT", "7070")
	t.Setenv("INDEXCLI_INGEST_FROM", "05/2011")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "05/2011", cfg.Ingest.From)
	// Unset env vars leave the file layer untouched.
	assert.Equal(t, "now-1", cfg.Ingest.End)
}

func TestRestrictRegions(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Regions = []string{"ES", "MD", "CT"}

	require.NoError(t, cfg.RestrictRegions([]string{"MD", "ES"}))
	assert.Equal(t, []string{"MD", "ES"}, cfg.Ingest.Regions)

	err := cfg.RestrictRegions([]string{"XX"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XX")
}

func TestRegionCodes(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Regions = []string{"ES", "MD"}

	assert.Equal(t, []domain.RegionCode{"ES", "MD"}, cfg.RegionCodes())
}
