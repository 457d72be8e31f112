package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexcli/pkg/contracts/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(p domain.Period) *domain.CanonicalRecord {
	return &domain.CanonicalRecord{
		Family:        "cpi",
		Period:        p,
		Region:        domain.RegionNational,
		Method:        domain.MethodPrimary,
		IndexPoints:   104.7,
		MonthlyChange: -0.1,
		AnnualChange:  2.7,
		YTDChange:     1.9,
	}
}

func TestSaveAndFindRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := domain.NewPeriod(7, 2025)

	id, err := s.Save(ctx, testRecord(p))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := s.FindByPeriodRegion(ctx, "cpi", p, domain.RegionNational)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, domain.MethodPrimary, got.Method)
	assert.InDelta(t, 104.7, got.IndexPoints, 0.0001)
	assert.InDelta(t, -0.1, got.MonthlyChange, 0.0001)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestFindMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.FindByPeriodRegion(context.Background(), "cpi", domain.NewPeriod(1, 1999), domain.RegionNational)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveUpsertsSamePeriodRegion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := domain.NewPeriod(7, 2025)

	first := testRecord(p)
	firstID, err := s.Save(ctx, first)
	require.NoError(t, err)

	second := testRecord(p)
	second.Method = domain.MethodSecondary
	second.IndexPoints = 104.8
	secondID, err := s.Save(ctx, second)
	require.NoError(t, err)

	// The replacement keeps the original row identity.
	assert.Equal(t, firstID, secondID)

	got, err := s.FindByPeriodRegion(ctx, "cpi", p, domain.RegionNational)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.MethodSecondary, got.Method)
	assert.InDelta(t, 104.8, got.IndexPoints, 0.0001)
}

func TestSaveUnknownFamily(t *testing.T) {
	s := newTestStore(t)
	rec := testRecord(domain.NewPeriod(7, 2025))
	rec.Family = "gdp"

	_, err := s.Save(context.Background(), rec)

	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "save", storeErr.Op)
}

func TestMetadataLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, testRecord(domain.NewPeriod(7, 2025)))
	require.NoError(t, err)

	has, err := s.HasMetadata(ctx, "cpi", id)
	require.NoError(t, err)
	assert.False(t, has)

	entries := []domain.MetadataEntry{
		{Category: "Food", Field: "Bread and cereals", Index: "112,4", Monthly: "0,2", Annual: "3,1", YTD: "2,0"},
		{Category: "Food", Field: "Meat", Index: "109,8", Monthly: "0,1", Annual: "2,4", YTD: "1,7"},
	}
	require.NoError(t, s.SaveMetadata(ctx, "cpi", id, entries))

	has, err = s.HasMetadata(ctx, "cpi", id)
	require.NoError(t, err)
	assert.True(t, has)

	n, err := s.MetadataCount(ctx, "cpi", id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSaveBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []*domain.CanonicalRecord{
		testRecord(domain.NewPeriod(5, 2025)),
		testRecord(domain.NewPeriod(6, 2025)),
		testRecord(domain.NewPeriod(7, 2025)),
	}

	ids, err := s.SaveBatch(ctx, recs)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for i, rec := range recs {
		assert.Equal(t, ids[i], rec.ID)
		got, err := s.FindByPeriodRegion(ctx, "cpi", rec.Period, rec.Region)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, ids[i], got.ID)
	}
}

func TestSaveBatchRollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := testRecord(domain.NewPeriod(5, 2025))
	bad := testRecord(domain.NewPeriod(6, 2025))
	bad.Family = "gdp"

	_, err := s.SaveBatch(ctx, []*domain.CanonicalRecord{good, bad})

	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "save_batch", storeErr.Op)

	got, err := s.FindByPeriodRegion(ctx, "cpi", good.Period, good.Region)
	require.NoError(t, err)
	assert.Nil(t, got, "a failed batch must not leave earlier records persisted")
}

func TestSaveMetadataEmptyIsNoOp(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveMetadata(context.Background(), "cpi", 1, nil))
}

func TestPeriodsOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, p := range []domain.Period{
		domain.NewPeriod(3, 2025),
		domain.NewPeriod(1, 2025),
		domain.NewPeriod(12, 2024),
	} {
		_, err := s.Save(ctx, testRecord(p))
		require.NoError(t, err)
	}

	got, err := s.Periods(ctx, "cpi", domain.RegionNational)
	require.NoError(t, err)
	assert.Equal(t, []domain.Period{
		domain.NewPeriod(12, 2024),
		domain.NewPeriod(1, 2025),
		domain.NewPeriod(3, 2025),
	}, got)
}

func TestPeriodsScopedByRegion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord(domain.NewPeriod(7, 2025))
	rec.Region = domain.RegionCode("MD")
	_, err := s.Save(ctx, rec)
	require.NoError(t, err)

	got, err := s.Periods(ctx, "cpi", domain.RegionNational)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, testRecord(domain.NewPeriod(7, 2025)))
	require.NoError(t, err)
	require.NoError(t, s.SaveMetadata(ctx, "cpi", id, []domain.MetadataEntry{{Category: "c", Field: "f"}}))

	require.NoError(t, s.DeleteAll(ctx, "cpi"))

	got, err := s.FindByPeriodRegion(ctx, "cpi", domain.NewPeriod(7, 2025), domain.RegionNational)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.MetadataCount(ctx, "cpi", id)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFamiliesIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := domain.NewPeriod(7, 2025)

	_, err := s.Save(ctx, testRecord(p))
	require.NoError(t, err)

	got, err := s.FindByPeriodRegion(ctx, "ppi", p, domain.RegionNational)
	require.NoError(t, err)
	assert.Nil(t, got)
}
