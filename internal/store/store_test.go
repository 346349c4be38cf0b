package store_test

import (
	"context"
	"errors"
	"testing"

	"paceline/internal/store"
	"paceline/internal/testsupport"
)

func ptr[T any](v T) *T { return &v }

func TestUpsertActivityInsertAndReplace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	activity := &store.Activity{
		ID:           42,
		Name:         "Morning Ride",
		Type:         "Ride",
		StartDate:    "2020-06-01T07:30:00Z",
		Distance:     31250.5,
		MovingTime:   4100,
		AverageWatts: ptr(185.0),
		RawData:      `{"id":42}`,
	}
	if err := st.UpsertActivity(ctx, activity); err != nil {
		t.Fatalf("UpsertActivity: %v", err)
	}

	stored, err := st.Activity(ctx, 42)
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if stored.Name != "Morning Ride" || stored.Distance != 31250.5 {
		t.Fatalf("unexpected stored activity: %+v", stored)
	}
	if stored.AverageWatts == nil || *stored.AverageWatts != 185.0 {
		t.Fatalf("expected average watts 185, got %v", stored.AverageWatts)
	}
	if stored.FetchedAt.IsZero() {
		t.Fatal("expected fetched_at to be set")
	}

	// A second upsert replaces the row wholesale, including clearing
	// previously present optional fields.
	activity.Name = "Renamed Ride"
	activity.AverageWatts = nil
	if err := st.UpsertActivity(ctx, activity); err != nil {
		t.Fatalf("UpsertActivity (replace): %v", err)
	}

	stored, err = st.Activity(ctx, 42)
	if err != nil {
		t.Fatalf("Activity after replace: %v", err)
	}
	if stored.Name != "Renamed Ride" {
		t.Fatalf("expected replaced name, got %q", stored.Name)
	}
	if stored.AverageWatts != nil {
		t.Fatalf("expected cleared average watts, got %v", *stored.AverageWatts)
	}

	acts, segs, effs, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if acts != 1 || segs != 0 || effs != 0 {
		t.Fatalf("expected single activity row, got %d/%d/%d", acts, segs, effs)
	}
}

func TestUpsertEffortRejectsMissingLinkage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cases := []struct {
		name   string
		effort *store.SegmentEffort
	}{
		{"no activity", &store.SegmentEffort{ID: 1, SegmentID: 10}},
		{"no segment", &store.SegmentEffort{ID: 2, ActivityID: 20}},
		{"neither", &store.SegmentEffort{ID: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := st.UpsertEffort(ctx, tc.effort)
			if !errors.Is(err, store.ErrMissingLink) {
				t.Fatalf("expected ErrMissingLink, got %v", err)
			}
		})
	}

	_, _, effs, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if effs != 0 {
		t.Fatalf("expected no effort rows, got %d", effs)
	}
}

func TestUpsertEffortCascadesEmbeddedSegment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedActivity(t, st, 100, "Hill Repeats")

	effort := &store.SegmentEffort{
		ID:          500,
		ActivityID:  100,
		Name:        "Col du Test",
		ElapsedTime: 612,
		StartDate:   "2020-06-01T07:45:00Z",
		Segment: &store.Segment{
			ID:           9000,
			Name:         "Col du Test",
			ActivityType: "Ride",
			Distance:     2400,
			AverageGrade: 7.2,
		},
	}
	if err := st.UpsertEffort(ctx, effort); err != nil {
		t.Fatalf("UpsertEffort: %v", err)
	}

	// The segment id is resolved from the embedded record and both rows land.
	stored, err := st.Effort(ctx, 500)
	if err != nil {
		t.Fatalf("Effort: %v", err)
	}
	if stored.SegmentID != 9000 {
		t.Fatalf("expected segment id resolved to 9000, got %d", stored.SegmentID)
	}
	segment, err := st.Segment(ctx, 9000)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if segment.Name != "Col du Test" || segment.AverageGrade != 7.2 {
		t.Fatalf("unexpected cascaded segment: %+v", segment)
	}
}

func TestUpsertEffortCreatesStubReferences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Neither the activity nor the segment exists yet; the effort creates
	// placeholder rows so later detail fetches can fill them in.
	effort := &store.SegmentEffort{
		ID:         700,
		ActivityID: 1,
		SegmentID:  2,
	}
	if err := st.UpsertEffort(ctx, effort); err != nil {
		t.Fatalf("UpsertEffort: %v", err)
	}

	segment, err := st.Segment(ctx, 2)
	if err != nil {
		t.Fatalf("Segment stub: %v", err)
	}
	if segment.Polyline != "" || segment.RawData != "" {
		t.Fatalf("expected empty stub segment, got %+v", segment)
	}

	incomplete, err := st.IncompleteSegments(ctx, 10)
	if err != nil {
		t.Fatalf("IncompleteSegments: %v", err)
	}
	if len(incomplete) != 1 || incomplete[0].ID != 2 {
		t.Fatalf("expected stub segment reported incomplete, got %+v", incomplete)
	}
}

func TestEffortOrderings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedActivity(t, st, 100, "Ride A")
	if err := st.UpsertSegment(ctx, &store.Segment{ID: 9000, Name: "Climb"}); err != nil {
		t.Fatalf("UpsertSegment: %v", err)
	}

	efforts := []*store.SegmentEffort{
		{ID: 1, ActivityID: 100, SegmentID: 9000, ElapsedTime: 700, StartDate: "2020-06-01T08:00:00Z"},
		{ID: 2, ActivityID: 100, SegmentID: 9000, ElapsedTime: 640, StartDate: "2020-07-01T08:00:00Z"},
		{ID: 3, ActivityID: 100, SegmentID: 9000, ElapsedTime: 655, StartDate: "2020-05-01T08:00:00Z"},
	}
	for _, effort := range efforts {
		if err := st.UpsertEffort(ctx, effort); err != nil {
			t.Fatalf("UpsertEffort %d: %v", effort.ID, err)
		}
	}

	recent, err := st.EffortsBySegment(ctx, 9000)
	if err != nil {
		t.Fatalf("EffortsBySegment: %v", err)
	}
	if len(recent) != 3 || recent[0].ID != 2 || recent[2].ID != 3 {
		t.Fatalf("expected newest-first ordering, got %+v", recent)
	}

	best, err := st.BestEfforts(ctx, 9000, 2)
	if err != nil {
		t.Fatalf("BestEfforts: %v", err)
	}
	if len(best) != 2 || best[0].ID != 2 || best[1].ID != 3 {
		t.Fatalf("expected fastest-first ordering, got %+v", best)
	}

	top, err := st.TopSegments(ctx, 5)
	if err != nil {
		t.Fatalf("TopSegments: %v", err)
	}
	if len(top) != 1 || top[0].SegmentID != 9000 || top[0].Efforts != 3 {
		t.Fatalf("unexpected top segments: %+v", top)
	}
}

func TestActivitiesNeedingEfforts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.SeedActivity(t, st, 1, "Old Ride")
	first.StartDate = "2019-01-01T08:00:00Z"
	if err := st.UpsertActivity(ctx, first); err != nil {
		t.Fatalf("UpsertActivity: %v", err)
	}
	testsupport.SeedActivity(t, st, 2, "New Ride")

	pending, err := st.ActivitiesNeedingEfforts(ctx, 10)
	if err != nil {
		t.Fatalf("ActivitiesNeedingEfforts: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != 2 {
		t.Fatalf("expected both activities newest first, got %+v", pending)
	}

	if err := st.MarkEffortsProcessed(ctx, 2); err != nil {
		t.Fatalf("MarkEffortsProcessed: %v", err)
	}
	pending, err = st.ActivitiesNeedingEfforts(ctx, 10)
	if err != nil {
		t.Fatalf("ActivitiesNeedingEfforts after mark: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != 1 {
		t.Fatalf("expected only unprocessed activity, got %+v", pending)
	}
}

func TestIncompleteSegmentsFlagsEmptyDetail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	full := &store.Segment{ID: 1, Name: "Full", Polyline: "abc123", RawData: `{"id":1}`}
	empty := &store.Segment{ID: 2, Name: "Empty Detail", Polyline: "abc123", RawData: "{}"}
	noLine := &store.Segment{ID: 3, Name: "No Polyline", RawData: `{"id":3}`}
	for _, segment := range []*store.Segment{full, empty, noLine} {
		if err := st.UpsertSegment(ctx, segment); err != nil {
			t.Fatalf("UpsertSegment %d: %v", segment.ID, err)
		}
	}

	incomplete, err := st.IncompleteSegments(ctx, 10)
	if err != nil {
		t.Fatalf("IncompleteSegments: %v", err)
	}
	if len(incomplete) != 2 || incomplete[0].ID != 2 || incomplete[1].ID != 3 {
		t.Fatalf("expected segments 2 and 3 incomplete, got %+v", incomplete)
	}
}

func TestLatestActivityStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	start, err := st.LatestActivityStart(ctx)
	if err != nil {
		t.Fatalf("LatestActivityStart: %v", err)
	}
	if start != "" {
		t.Fatalf("expected empty start on fresh store, got %q", start)
	}

	testsupport.SeedActivity(t, st, 1, "Ride")
	start, err = st.LatestActivityStart(ctx)
	if err != nil {
		t.Fatalf("LatestActivityStart: %v", err)
	}
	if start != "2020-01-01T08:00:00Z" {
		t.Fatalf("unexpected latest start %q", start)
	}
}

func TestNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := st.Activity(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for activity, got %v", err)
	}
	if _, err := st.Segment(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for segment, got %v", err)
	}
	if _, err := st.Effort(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for effort, got %v", err)
	}
}
