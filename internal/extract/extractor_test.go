package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexcli/pkg/contracts/domain"
)

func cpiHeadlineGrid() [][]string {
	return [][]string{
		{"Consumer Price Index. July 2025"},
		{"General index. Index, in points and percentage variations"},
		{"", "Index", "Monthly", "Annual", "YTD"},
		{"General", "104,7", "-0,1", "2,7", "1,9"},
	}
}

func TestCanonicalCPI(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)

	rec, err := e.Canonical(cpiHeadlineGrid())
	require.NoError(t, err)

	assert.Equal(t, "cpi", rec.Family)
	assert.Equal(t, domain.MethodPrimary, rec.Method)
	assert.InDelta(t, 104.7, rec.IndexPoints, 0.0001)
	assert.InDelta(t, -0.1, rec.MonthlyChange, 0.0001)
	assert.InDelta(t, 2.7, rec.AnnualChange, 0.0001)
	assert.InDelta(t, 1.9, rec.YTDChange, 0.0001)
}

func TestCanonicalPPITwoAnchors(t *testing.T) {
	e := New(mustSpec(t, "ppi"), nil)
	grid := [][]string{
		{"Producer Price Index. July 2025"},
		{"Percentage section"},
		{"General", "0,4", "1,8", "1,2"},
		{""},
		{"Synthesis section"},
		{"General", "118,3"},
	}

	rec, err := e.Canonical(grid)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, rec.MonthlyChange, 0.0001)
	assert.InDelta(t, 1.8, rec.AnnualChange, 0.0001)
	assert.InDelta(t, 1.2, rec.YTDChange, 0.0001)
	assert.InDelta(t, 118.3, rec.IndexPoints, 0.0001)
}

func TestCanonicalWidenedAnchorSearch(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	// The exact historical phrasing "index, in points" is absent, but the
	// title keywords co-occur in a reworded section row.
	grid := [][]string{
		{"Consumer Price Index"},
		{"General Index (points) published in base 2021"},
		{"", "Index", "Monthly", "Annual", "YTD"},
		{"General", "104,7", "0,1", "2,7", "1,9"},
	}

	rec, err := e.Canonical(grid)
	require.NoError(t, err)
	assert.InDelta(t, 104.7, rec.IndexPoints, 0.0001)
}

func TestCanonicalSectionNotFound(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	grid := [][]string{
		{"Unrelated workbook"},
		{"Nothing to see here"},
	}

	_, err := e.Canonical(grid)

	var notFound *SectionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "cpi", notFound.Family)
	assert.Equal(t, []string{"exact substring", "widened keyword scan"}, notFound.Strategies)
}

func TestCanonicalFigureRowPastEnd(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	grid := [][]string{
		{"filler"},
		{"General index. Index, in points"},
	}

	_, err := e.Canonical(grid)

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestMetadataBlocks(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	grid := [][]string{
		{"Consumer Price Index"},
		{"Category", "Field", "Index", "Monthly", "Annual", "YTD"},
		{"Food", "Bread and cereals", "112,4", "0,2", "3,1", "2,0"},
		{"", "Meat", "109,8", "0,1", "2,4", "1,7"},
		{"Housing", "Rentals", "105,2", "0,0", "1,9", "1,1"},
		{""},
		{"Footnote outside any block"},
	}

	entries := e.Metadata(grid, domain.LayoutProfile{Kind: domain.LayoutModern})
	require.Len(t, entries, 3)

	assert.Equal(t, "Food", entries[0].Category)
	assert.Equal(t, "Bread and cereals", entries[0].Field)
	assert.Equal(t, "112,4", entries[0].Index)
	// Category carries forward across rows with a blank first column.
	assert.Equal(t, "Food", entries[1].Category)
	assert.Equal(t, "Meat", entries[1].Field)
	assert.Equal(t, "Housing", entries[2].Category)
}

func TestMetadataDropsAllZeroLegacyArtifacts(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	grid := [][]string{
		{"Category", "Field", "Index", "Monthly", "Annual", "YTD"},
		{"Food", "Bread and cereals", "112,4", "0,2", "3,1", "2,0"},
		{"General", "Harmonized index", "0,0", "0,00", "", "0"},
		{"General", "Core index", "0,0", "0,00", "", "0"},
	}

	profile := domain.LayoutProfile{Kind: domain.LayoutHistorical, HasLegacyArtifactFields: true}
	entries := e.Metadata(grid, profile)

	require.Len(t, entries, 2)
	assert.Equal(t, "Bread and cereals", entries[0].Field)
	// Only known artifact fields are dropped; other all-zero rows survive.
	assert.Equal(t, "Core index", entries[1].Field)
}

func TestMetadataKeepsNonZeroArtifactFields(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	grid := [][]string{
		{"Category", "Field", "Index", "Monthly", "Annual", "YTD"},
		{"General", "Harmonized index", "104,1", "0,1", "2,6", "1,8"},
	}

	profile := domain.LayoutProfile{Kind: domain.LayoutHistorical, HasLegacyArtifactFields: true}
	entries := e.Metadata(grid, profile)

	require.Len(t, entries, 1)
	assert.Equal(t, "Harmonized index", entries[0].Field)
}

func TestMetadataArtifactsKeptOnModernLayouts(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	grid := [][]string{
		{"Category", "Field", "Index", "Monthly", "Annual", "YTD"},
		{"General", "Harmonized index", "0,0", "0,0", "0,0", "0,0"},
	}

	entries := e.Metadata(grid, domain.LayoutProfile{Kind: domain.LayoutModern})
	require.Len(t, entries, 1)
}

func TestMetadataReconcilesSwappedSlotsOnHistoricalLayouts(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	// Some historical years published the monthly variation before the
	// index level.
	grid := [][]string{
		{"Category", "Field", "Index", "Monthly", "Annual", "YTD"},
		{"Food", "Bread and cereals", "0,2", "112,4", "3,1", "2,0"},
	}

	entries := e.Metadata(grid, domain.LayoutProfile{Kind: domain.LayoutHistorical})
	require.Len(t, entries, 1)
	assert.Equal(t, "112,4", entries[0].Index)
	assert.Equal(t, "0,2", entries[0].Monthly)
}

func TestMetadataKeepsSlotOrderOnModernLayouts(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)
	grid := [][]string{
		{"Category", "Field", "Index", "Monthly", "Annual", "YTD"},
		{"Food", "Bread and cereals", "0,2", "112,4", "3,1", "2,0"},
	}

	entries := e.Metadata(grid, domain.LayoutProfile{Kind: domain.LayoutModern})
	require.Len(t, entries, 1)
	assert.Equal(t, "0,2", entries[0].Index)
	assert.Equal(t, "112,4", entries[0].Monthly)
}

func TestCheckMetadataCount(t *testing.T) {
	e := New(mustSpec(t, "cpi"), nil)

	assert.Empty(t, e.CheckMetadataCount(57))
	assert.Empty(t, e.CheckMetadataCount(51))
	assert.Empty(t, e.CheckMetadataCount(63))
	assert.NotEmpty(t, e.CheckMetadataCount(50))
	assert.NotEmpty(t, e.CheckMetadataCount(64))
	assert.NotEmpty(t, e.CheckMetadataCount(0))
}
