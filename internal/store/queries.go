package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Activity returns the stored activity with the given id, or ErrNotFound.
func (s *Store) Activity(ctx context.Context, id int64) (*Activity, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = ?", id)
	activity, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query activity %d: %w", id, err)
	}
	return activity, nil
}

// Segment returns the stored segment with the given id, or ErrNotFound.
func (s *Store) Segment(ctx context.Context, id int64) (*Segment, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+segmentColumns+" FROM segments WHERE id = ?", id)
	segment, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query segment %d: %w", id, err)
	}
	return segment, nil
}

// Effort returns the stored segment effort with the given id, or ErrNotFound.
func (s *Store) Effort(ctx context.Context, id int64) (*SegmentEffort, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+effortColumns+" FROM segment_efforts WHERE id = ?", id)
	effort, err := scanEffort(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query effort %d: %w", id, err)
	}
	return effort, nil
}

// LatestActivities returns up to limit activities ordered by start date,
// newest first.
func (s *Store) LatestActivities(ctx context.Context, limit int) ([]*Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+activityColumns+" FROM activities ORDER BY start_date DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query latest activities: %w", err)
	}
	defer rows.Close()
	return collectActivities(rows)
}

// LatestActivityStart returns the most recent stored activity start date as a
// raw string, or "" when the store is empty.
func (s *Store) LatestActivityStart(ctx context.Context) (string, error) {
	var start sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(start_date) FROM activities").Scan(&start)
	if err != nil {
		return "", fmt.Errorf("query latest activity start: %w", err)
	}
	return start.String, nil
}

// EffortsBySegment returns all stored efforts on a segment, newest first.
func (s *Store) EffortsBySegment(ctx context.Context, segmentID int64) ([]*SegmentEffort, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+effortColumns+" FROM segment_efforts WHERE segment_id = ? ORDER BY start_date DESC",
		segmentID)
	if err != nil {
		return nil, fmt.Errorf("query efforts for segment %d: %w", segmentID, err)
	}
	defer rows.Close()
	return collectEfforts(rows)
}

// BestEfforts returns up to limit efforts on a segment ordered by elapsed
// time, fastest first.
func (s *Store) BestEfforts(ctx context.Context, segmentID int64, limit int) ([]*SegmentEffort, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+effortColumns+" FROM segment_efforts WHERE segment_id = ? ORDER BY elapsed_time ASC LIMIT ?",
		segmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query best efforts for segment %d: %w", segmentID, err)
	}
	defer rows.Close()
	return collectEfforts(rows)
}

// TopSegments returns up to limit segments ordered by stored effort count,
// most attempted first.
func (s *Store) TopSegments(ctx context.Context, limit int) ([]SegmentEffortCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, COUNT(e.id) AS efforts
         FROM segments s
         JOIN segment_efforts e ON e.segment_id = s.id
         GROUP BY s.id, s.name
         ORDER BY efforts DESC, s.id ASC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top segments: %w", err)
	}
	defer rows.Close()

	var counts []SegmentEffortCount
	for rows.Next() {
		var entry SegmentEffortCount
		var name sql.NullString
		if err := rows.Scan(&entry.SegmentID, &name, &entry.Efforts); err != nil {
			return nil, fmt.Errorf("scan top segment: %w", err)
		}
		entry.Name = name.String
		counts = append(counts, entry)
	}
	return counts, rows.Err()
}

// EffortCountByActivity returns how many stored efforts reference an activity.
func (s *Store) EffortCountByActivity(ctx context.Context, activityID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM segment_efforts WHERE activity_id = ?", activityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count efforts for activity %d: %w", activityID, err)
	}
	return count, nil
}

// ActivitiesNeedingEfforts returns up to limit activities whose efforts have
// not yet been fetched, newest first.
func (s *Store) ActivitiesNeedingEfforts(ctx context.Context, limit int) ([]*Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities
         WHERE efforts_processed = 0
           AND id NOT IN (SELECT DISTINCT activity_id FROM segment_efforts)
         ORDER BY start_date DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities needing efforts: %w", err)
	}
	defer rows.Close()
	return collectActivities(rows)
}

// IncompleteSegments returns up to limit segments that lack detail data: no
// polyline, or a raw payload that is empty or the literal "{}".
func (s *Store) IncompleteSegments(ctx context.Context, limit int) ([]*Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments
         WHERE polyline IS NULL OR polyline = ''
            OR raw_data IS NULL OR raw_data = '' OR raw_data = '{}'
         ORDER BY id ASC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query incomplete segments: %w", err)
	}
	defer rows.Close()

	var segments []*Segment
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incomplete segment: %w", err)
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}

// Counts returns the stored row counts for activities, segments, and efforts.
func (s *Store) Counts(ctx context.Context) (activities, segments, efforts int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT
            (SELECT COUNT(1) FROM activities),
            (SELECT COUNT(1) FROM segments),
            (SELECT COUNT(1) FROM segment_efforts)`,
	).Scan(&activities, &segments, &efforts)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("query row counts: %w", err)
	}
	return activities, segments, efforts, nil
}

func collectActivities(rows *sql.Rows) ([]*Activity, error) {
	var activities []*Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}

func collectEfforts(rows *sql.Rows) ([]*SegmentEffort, error) {
	var efforts []*SegmentEffort
	for rows.Next() {
		effort, err := scanEffort(rows)
		if err != nil {
			return nil, fmt.Errorf("scan effort: %w", err)
		}
		efforts = append(efforts, effort)
	}
	return efforts, rows.Err()
}
