package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gatevision/platewatch/internal/anpr"
)

// Upsert persists a committed vehicle record keyed by track id. A
// re-commit for the same track only overwrites when the new confidence
// is at least as high, so replayed or out-of-order commits can never
// degrade a stored record.
func (s *Store) Upsert(ctx context.Context, rec anpr.VehicleRecord) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO vehicles (track_id, event_id, plate, confidence, axle_count, image_ref, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (track_id) DO UPDATE SET
			event_id   = excluded.event_id,
			plate      = excluded.plate,
			confidence = excluded.confidence,
			axle_count = MAX(vehicles.axle_count, excluded.axle_count),
			image_ref  = excluded.image_ref,
			last_seen  = excluded.last_seen
		WHERE excluded.confidence >= vehicles.confidence`,
		rec.TrackID, rec.EventID, rec.Plate, rec.Confidence, rec.AxleCount,
		rec.ImageRef, rec.FirstSeen.UTC(), rec.LastSeen.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle for track %d: %w", rec.TrackID, err)
	}
	return nil
}

// RecentVehicles returns vehicles last seen within the window, newest
// first.
func (s *Store) RecentVehicles(ctx context.Context, window time.Duration, limit int) ([]anpr.VehicleRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := time.Now().Add(-window).UTC()

	rows, err := s.QueryContext(ctx, `
		SELECT track_id, event_id, plate, confidence, axle_count, image_ref, first_seen, last_seen
		FROM vehicles
		WHERE last_seen >= ?
		ORDER BY last_seen DESC
		LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent vehicles: %w", err)
	}
	defer rows.Close()

	return scanVehicles(rows)
}

// SearchPlate returns vehicles whose plate contains the (normalized)
// query, newest first.
func (s *Store) SearchPlate(ctx context.Context, plate string, limit int) ([]anpr.VehicleRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	pattern := "%" + anpr.NormalizePlate(plate) + "%"

	rows, err := s.QueryContext(ctx, `
		SELECT track_id, event_id, plate, confidence, axle_count, image_ref, first_seen, last_seen
		FROM vehicles
		WHERE plate LIKE ?
		ORDER BY last_seen DESC
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search plates: %w", err)
	}
	defer rows.Close()

	return scanVehicles(rows)
}

// Statistics summarizes the stored vehicle records.
type Statistics struct {
	TotalVehicles    int     `json:"total_vehicles"`
	Last24Hours      int     `json:"last_24_hours"`
	AvgConfidence    float64 `json:"avg_confidence"`
	MedianConfidence float64 `json:"median_confidence"`
	AvgAxleCount     float64 `json:"avg_axle_count"`
}

// GetStatistics computes aggregate statistics over all stored
// vehicles.
func (s *Store) GetStatistics(ctx context.Context) (Statistics, error) {
	var stats Statistics

	rows, err := s.QueryContext(ctx, `SELECT confidence, axle_count FROM vehicles`)
	if err != nil {
		return stats, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	var confidences, axles []float64
	for rows.Next() {
		var conf float64
		var axleCount int
		if err := rows.Scan(&conf, &axleCount); err != nil {
			return stats, fmt.Errorf("failed to scan statistics row: %w", err)
		}
		confidences = append(confidences, conf)
		axles = append(axles, float64(axleCount))
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	stats.TotalVehicles = len(confidences)
	if len(confidences) > 0 {
		stats.AvgConfidence = stat.Mean(confidences, nil)
		stats.AvgAxleCount = stat.Mean(axles, nil)

		sort.Float64s(confidences)
		stats.MedianConfidence = stat.Quantile(0.5, stat.Empirical, confidences, nil)
	}

	cutoff := time.Now().Add(-24 * time.Hour).UTC()
	err = s.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicles WHERE last_seen >= ?`, cutoff,
	).Scan(&stats.Last24Hours)
	if err != nil {
		return stats, fmt.Errorf("failed to count recent vehicles: %w", err)
	}

	return stats, nil
}

func scanVehicles(rows *sql.Rows) ([]anpr.VehicleRecord, error) {
	var out []anpr.VehicleRecord
	for rows.Next() {
		var rec anpr.VehicleRecord
		if err := rows.Scan(&rec.TrackID, &rec.EventID, &rec.Plate, &rec.Confidence,
			&rec.AxleCount, &rec.ImageRef, &rec.FirstSeen, &rec.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
