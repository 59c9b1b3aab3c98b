package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatevision/platewatch/internal/anpr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.MigrateUp())
	return s
}

func testRecord(trackID int64, plate string, conf float64) anpr.VehicleRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return anpr.VehicleRecord{
		EventID:    "evt-" + plate,
		TrackID:    trackID,
		Plate:      plate,
		Confidence: conf,
		AxleCount:  2,
		FirstSeen:  now.Add(-2 * time.Second),
		LastSeen:   now,
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.MigrateUp())

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.NotZero(t, version)
}

func TestUpsertImprovementOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testRecord(1, "ABCI23", 80)))

	// Lower confidence must not overwrite.
	lower := testRecord(1, "WRONGG", 60)
	require.NoError(t, s.Upsert(ctx, lower))

	got, err := s.RecentVehicles(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ABCI23", got[0].Plate)
	require.Equal(t, float64(80), got[0].Confidence)

	// Higher confidence replaces.
	better := testRecord(1, "ABCI28", 95)
	better.AxleCount = 3
	require.NoError(t, s.Upsert(ctx, better))

	got, err = s.RecentVehicles(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ABCI28", got[0].Plate)
	require.Equal(t, float64(95), got[0].Confidence)
	require.Equal(t, 3, got[0].AxleCount)
}

func TestUpsertKeepsMaxAxleCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testRecord(7, "TRUCKI", 80)
	first.AxleCount = 5
	require.NoError(t, s.Upsert(ctx, first))

	// An improved reading with a lower per-commit axle estimate must
	// not lower the stored count.
	second := testRecord(7, "TRUCKI", 90)
	second.AxleCount = 2
	require.NoError(t, s.Upsert(ctx, second))

	got, err := s.RecentVehicles(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 5, got[0].AxleCount)
	require.Equal(t, float64(90), got[0].Confidence)
}

func TestRecentVehiclesWindowAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := testRecord(1, "OLDOLD", 80)
	old.LastSeen = time.Now().Add(-2 * time.Hour).UTC()
	require.NoError(t, s.Upsert(ctx, old))

	mid := testRecord(2, "MIDMID", 80)
	mid.LastSeen = time.Now().Add(-10 * time.Minute).UTC()
	require.NoError(t, s.Upsert(ctx, mid))

	fresh := testRecord(3, "NEWNEW", 80)
	require.NoError(t, s.Upsert(ctx, fresh))

	got, err := s.RecentVehicles(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "NEWNEW", got[0].Plate)
	require.Equal(t, "MIDMID", got[1].Plate)
}

func TestSearchPlateNormalizesQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testRecord(1, "ABCI23", 80)))
	require.NoError(t, s.Upsert(ctx, testRecord(2, "XYZ789", 80)))

	// The raw query "abc-123" normalizes to ABCI23.
	got, err := s.SearchPlate(ctx, "abc-123", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ABCI23", got[0].Plate)

	got, err = s.SearchPlate(ctx, "BCI", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.SearchPlate(ctx, "NOPE", 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestGetStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.GetStatistics(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.TotalVehicles)

	confs := []float64{80, 90, 100}
	for i, c := range confs {
		rec := testRecord(int64(i+1), "PLATE"+string(rune('A'+i)), c)
		rec.AxleCount = i + 2
		require.NoError(t, s.Upsert(ctx, rec))
	}

	stats, err = s.GetStatistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalVehicles)
	require.Equal(t, 3, stats.Last24Hours)
	require.InDelta(t, 90.0, stats.AvgConfidence, 0.001)
	require.InDelta(t, 90.0, stats.MedianConfidence, 0.001)
	require.InDelta(t, 3.0, stats.AvgAxleCount, 0.001)
}
