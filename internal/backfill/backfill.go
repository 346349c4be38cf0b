// Package backfill drives incremental completion of the store: fetching
// missing segment efforts for stored activities, completing segment detail
// for stub or stale rows, and pulling activities recorded since the last
// sync. Each run is tagged with a correlation id so interleaved log lines
// from long sessions stay attributable.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"paceline/internal/logging"
	"paceline/internal/refresh"
	"paceline/internal/store"
	"paceline/internal/strava"
)

// Client is the remote surface the runner needs. *strava.Client satisfies it.
type Client interface {
	Activities(ctx context.Context, after time.Time, limit int) ([]*strava.Activity, error)
	ActivityDetail(ctx context.Context, id int64) (*strava.Activity, error)
	SegmentDetail(ctx context.Context, id int64) (*strava.Segment, error)
}

// Runner executes backfill batches against the store.
type Runner struct {
	store  *store.Store
	client Client
	policy refresh.Policy
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes the runner.
type Option func(*Runner)

// WithLogger attaches a logger for batch progress.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the wall clock (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a runner.
func New(st *store.Store, client Client, policy refresh.Policy, opts ...Option) *Runner {
	runner := &Runner{
		store:  st,
		client: client,
		policy: policy,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Efforts fetches segment efforts for up to maxActivities stored activities
// that have none. A failed activity is logged and skipped; the batch
// continues. It returns how many activities were completed.
func (r *Runner) Efforts(ctx context.Context, maxActivities int) (int, error) {
	logger := r.logger.With("run", uuid.NewString(), "op", "efforts")

	activities, err := r.store.ActivitiesNeedingEfforts(ctx, maxActivities)
	if err != nil {
		return 0, err
	}
	if len(activities) == 0 {
		logger.Info("no activities need efforts")
		return 0, nil
	}
	logger.Info("backfilling efforts", "activities", len(activities))

	processed := 0
	for _, activity := range activities {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		detail, err := r.client.ActivityDetail(ctx, activity.ID)
		if err != nil {
			if ctx.Err() != nil {
				return processed, ctx.Err()
			}
			logger.Warn("skipping activity", "activity", activity.ID, "error", err)
			continue
		}

		stored := 0
		for i := range detail.SegmentEfforts {
			record := detail.SegmentEfforts[i].Record()
			if record.ActivityID == 0 {
				record.ActivityID = activity.ID
			}
			if err := r.store.UpsertEffort(ctx, record); err != nil {
				logger.Warn("skipping effort", "effort", record.ID, "error", err)
				continue
			}
			stored++
		}
		if err := r.store.MarkEffortsProcessed(ctx, activity.ID); err != nil {
			return processed, err
		}
		processed++
		logger.Info("processed activity", "activity", activity.ID, "efforts", stored)
	}
	return processed, nil
}

// Segments completes detail for up to batchSize segments that are stubs or
// stale per the refresh policy. It returns how many segments were fetched.
func (r *Runner) Segments(ctx context.Context, batchSize int) (int, error) {
	logger := r.logger.With("run", uuid.NewString(), "op", "segments")

	// Fetch extra candidates so rows the policy declines don't shrink the batch.
	candidates, err := r.store.IncompleteSegments(ctx, batchSize*2)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		logger.Info("no segments need detail")
		return 0, nil
	}

	now := r.now()
	processed := 0
	for _, segment := range candidates {
		if processed >= batchSize {
			break
		}
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if !r.policy.NeedsFetch(segment.Polyline, segment.RawData, segment.FetchedAt, now) {
			continue
		}
		detail, err := r.client.SegmentDetail(ctx, segment.ID)
		if err != nil {
			if ctx.Err() != nil {
				return processed, ctx.Err()
			}
			logger.Warn("skipping segment", "segment", segment.ID, "error", err)
			continue
		}
		if err := r.store.UpsertSegment(ctx, detail.Record()); err != nil {
			logger.Warn("could not store segment", "segment", segment.ID, "error", err)
			continue
		}
		processed++
		logger.Info("completed segment", "segment", segment.ID, "name", detail.Name)
	}
	return processed, nil
}

// Sync pulls summary activities started after the newest stored one and
// upserts them. It returns how many new activities were stored.
func (r *Runner) Sync(ctx context.Context, limit int) (int, error) {
	logger := r.logger.With("run", uuid.NewString(), "op", "sync")

	latest, err := r.store.LatestActivityStart(ctx)
	if err != nil {
		return 0, err
	}
	var after time.Time
	if latest != "" {
		after, err = parseStartDate(latest)
		if err != nil {
			return 0, fmt.Errorf("parse latest start date %q: %w", latest, err)
		}
	}

	activities, err := r.client.Activities(ctx, after, limit)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, activity := range activities {
		if err := r.store.UpsertActivity(ctx, activity.Record()); err != nil {
			logger.Warn("skipping activity", "activity", activity.ID, "error", err)
			continue
		}
		stored++
	}
	logger.Info("synced activities", "fetched", len(activities), "stored", stored)
	return stored, nil
}

func parseStartDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
