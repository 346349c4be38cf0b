package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertActivity inserts or fully replaces the activity row with the given id.
func (s *Store) UpsertActivity(ctx context.Context, activity *Activity) error {
	if activity == nil || activity.ID == 0 {
		return fmt.Errorf("upsert activity: missing id")
	}
	now := time.Now().UTC()
	if err := upsertActivityExec(ctx, s.db, activity, now); err != nil {
		return fmt.Errorf("upsert activity %d: %w", activity.ID, err)
	}
	activity.FetchedAt = now
	return nil
}

// UpsertSegment inserts or fully replaces the segment row with the given id.
func (s *Store) UpsertSegment(ctx context.Context, segment *Segment) error {
	if segment == nil || segment.ID == 0 {
		return fmt.Errorf("upsert segment: missing id")
	}
	now := time.Now().UTC()
	if err := upsertSegmentExec(ctx, s.db, segment, now); err != nil {
		return fmt.Errorf("upsert segment %d: %w", segment.ID, err)
	}
	segment.FetchedAt = now
	return nil
}

// UpsertEffort inserts or fully replaces a segment effort. When the effort
// carries an embedded segment summary, that segment is upserted in the same
// transaction before the effort itself. An effort that cannot be linked to
// both an activity and a segment is rejected with ErrMissingLink.
func (s *Store) UpsertEffort(ctx context.Context, effort *SegmentEffort) error {
	if effort == nil || effort.ID == 0 {
		return fmt.Errorf("upsert effort: missing id")
	}
	if effort.SegmentID == 0 && effort.Segment != nil {
		effort.SegmentID = effort.Segment.ID
	}
	if effort.ActivityID == 0 || effort.SegmentID == 0 {
		return fmt.Errorf("upsert effort %d: %w", effort.ID, ErrMissingLink)
	}

	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert effort %d: begin tx: %w", effort.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	// Referenced rows must exist before the effort insert. Detail passes fill
	// these stubs in later.
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO activities (id, fetched_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
		effort.ActivityID, timestamp(now),
	); err != nil {
		return fmt.Errorf("upsert effort %d: ensure activity: %w", effort.ID, err)
	}

	if effort.Segment != nil {
		if err := upsertSegmentExec(ctx, tx, effort.Segment, now); err != nil {
			return fmt.Errorf("upsert effort %d: embedded segment: %w", effort.ID, err)
		}
	} else if _, err := tx.ExecContext(ctx,
		"INSERT INTO segments (id, fetched_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
		effort.SegmentID, timestamp(now),
	); err != nil {
		return fmt.Errorf("upsert effort %d: ensure segment: %w", effort.ID, err)
	}

	if err := upsertEffortExec(ctx, tx, effort, now); err != nil {
		return fmt.Errorf("upsert effort %d: %w", effort.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert effort %d: commit: %w", effort.ID, err)
	}
	effort.FetchedAt = now
	if effort.Segment != nil {
		effort.Segment.FetchedAt = now
	}
	return nil
}

// MarkEffortsProcessed flags an activity so effort backfill skips it.
func (s *Store) MarkEffortsProcessed(ctx context.Context, activityID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE activities SET efforts_processed = 1 WHERE id = ?", activityID)
	if err != nil {
		return fmt.Errorf("mark efforts processed %d: %w", activityID, err)
	}
	return nil
}

func upsertActivityExec(ctx context.Context, db execer, activity *Activity, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO activities (
            id, name, type, start_date, distance, moving_time, elapsed_time,
            total_elevation_gain, average_speed, max_speed, average_watts,
            kilojoules, device_watts, has_heartrate, average_heartrate,
            max_heartrate, efforts_processed, raw_data, fetched_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            type = excluded.type,
            start_date = excluded.start_date,
            distance = excluded.distance,
            moving_time = excluded.moving_time,
            elapsed_time = excluded.elapsed_time,
            total_elevation_gain = excluded.total_elevation_gain,
            average_speed = excluded.average_speed,
            max_speed = excluded.max_speed,
            average_watts = excluded.average_watts,
            kilojoules = excluded.kilojoules,
            device_watts = excluded.device_watts,
            has_heartrate = excluded.has_heartrate,
            average_heartrate = excluded.average_heartrate,
            max_heartrate = excluded.max_heartrate,
            efforts_processed = excluded.efforts_processed,
            raw_data = excluded.raw_data,
            fetched_at = excluded.fetched_at`,
		activity.ID, activity.Name, activity.Type, activity.StartDate,
		activity.Distance, activity.MovingTime, activity.ElapsedTime,
		activity.TotalElevationGain, activity.AverageSpeed, activity.MaxSpeed,
		nullableFloat(activity.AverageWatts), nullableFloat(activity.Kilojoules),
		boolInt(activity.DeviceWatts), boolInt(activity.HasHeartrate),
		nullableFloat(activity.AverageHeartrate), nullableFloat(activity.MaxHeartrate),
		boolInt(activity.EffortsProcessed), activity.RawData, timestamp(now),
	)
	return err
}

func upsertSegmentExec(ctx context.Context, db execer, segment *Segment, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO segments (
            id, name, activity_type, distance, average_grade, maximum_grade,
            elevation_high, elevation_low, start_latlng, end_latlng,
            climb_category, city, state, country, private, starred,
            polyline, raw_data, fetched_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            activity_type = excluded.activity_type,
            distance = excluded.distance,
            average_grade = excluded.average_grade,
            maximum_grade = excluded.maximum_grade,
            elevation_high = excluded.elevation_high,
            elevation_low = excluded.elevation_low,
            start_latlng = excluded.start_latlng,
            end_latlng = excluded.end_latlng,
            climb_category = excluded.climb_category,
            city = excluded.city,
            state = excluded.state,
            country = excluded.country,
            private = excluded.private,
            starred = excluded.starred,
            polyline = excluded.polyline,
            raw_data = excluded.raw_data,
            fetched_at = excluded.fetched_at`,
		segment.ID, segment.Name, segment.ActivityType, segment.Distance,
		segment.AverageGrade, segment.MaximumGrade, segment.ElevationHigh,
		segment.ElevationLow, segment.StartLatLng, segment.EndLatLng,
		segment.ClimbCategory, segment.City, segment.State, segment.Country,
		boolInt(segment.Private), boolInt(segment.Starred),
		segment.Polyline, segment.RawData, timestamp(now),
	)
	return err
}

func upsertEffortExec(ctx context.Context, db execer, effort *SegmentEffort, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO segment_efforts (
            id, activity_id, segment_id, name, elapsed_time, moving_time,
            start_date, distance, average_watts, device_watts,
            average_heartrate, max_heartrate, pr_rank, raw_data, fetched_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            activity_id = excluded.activity_id,
            segment_id = excluded.segment_id,
            name = excluded.name,
            elapsed_time = excluded.elapsed_time,
            moving_time = excluded.moving_time,
            start_date = excluded.start_date,
            distance = excluded.distance,
            average_watts = excluded.average_watts,
            device_watts = excluded.device_watts,
            average_heartrate = excluded.average_heartrate,
            max_heartrate = excluded.max_heartrate,
            pr_rank = excluded.pr_rank,
            raw_data = excluded.raw_data,
            fetched_at = excluded.fetched_at`,
		effort.ID, effort.ActivityID, effort.SegmentID, effort.Name,
		effort.ElapsedTime, effort.MovingTime, effort.StartDate, effort.Distance,
		nullableFloat(effort.AverageWatts), boolInt(effort.DeviceWatts),
		nullableFloat(effort.AverageHeartrate), nullableFloat(effort.MaxHeartrate),
		nullableInt(effort.PRRank), effort.RawData, timestamp(now),
	)
	return err
}
