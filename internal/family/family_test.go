package family

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexcli/pkg/contracts/domain"
)

func TestGet(t *testing.T) {
	for _, id := range IDs() {
		spec, err := Get(id)
		require.NoError(t, err)
		assert.Equal(t, id, spec.ID)
		assert.NotEmpty(t, spec.Anchors)
		assert.NotEmpty(t, spec.MetadataHeaders)
		assert.Greater(t, spec.ExpectedMetadataCount, 0)
	}

	spec, err := Get("CPI")
	require.NoError(t, err)
	assert.Equal(t, "cpi", spec.ID)

	_, err = Get("gdp")
	assert.Error(t, err)
}

func TestReportURL(t *testing.T) {
	spec, err := Get("cpi")
	require.NoError(t, err)

	url := spec.ReportURL("https://stats.example.org/", domain.NewPeriod(7, 2025), domain.RegionNational)
	assert.Equal(t, "https://stats.example.org/statistics/cpi/2025/07/cpi_es.xlsx", url)
}

func TestIsLegacyArtifact(t *testing.T) {
	spec, err := Get("cpi")
	require.NoError(t, err)

	assert.True(t, spec.IsLegacyArtifact("Harmonized Index"))
	assert.True(t, spec.IsLegacyArtifact("  base effect "))
	assert.False(t, spec.IsLegacyArtifact("core index"))
}

func TestAnchorShapeConsistency(t *testing.T) {
	for _, spec := range All() {
		for _, anchor := range spec.Anchors {
			assert.Len(t, anchor.Columns, len(anchor.Fields),
				"%s anchor %q must map one column per field", spec.ID, anchor.Title)
		}
	}
}
