package archive_test

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paceline/internal/archive"
	"paceline/internal/strava"
	"paceline/internal/testsupport"
)

const documentFixture = `{
    "id": 1234567890,
    "name": "Archive Ride",
    "type": "Ride",
    "start_date": "2020-06-01T07:30:00Z",
    "distance": 42300.0,
    "segment_efforts": [
        {
            "id": 9876543210,
            "name": "Col du Test",
            "elapsed_time": 612,
            "start_date": "2020-06-01T07:45:00Z",
            "activity": {"id": 1234567890},
            "segment": {"id": 5555555, "name": "Col du Test", "distance": 2400.0}
        }
    ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestImportDocumentScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "activities", "1234567890.json"), documentFixture)

	importer := archive.New(st)
	summary, err := importer.Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Activities)
	assert.Equal(t, 1, summary.Efforts)
	assert.Equal(t, 1, summary.Segments)
	assert.Zero(t, summary.Skipped)

	activity, err := st.Activity(ctx, 1234567890)
	require.NoError(t, err)
	assert.Equal(t, "Archive Ride", activity.Name)
	assert.True(t, activity.EffortsProcessed)

	segment, err := st.Segment(ctx, 5555555)
	require.NoError(t, err)
	assert.Equal(t, "Col du Test", segment.Name)

	effort, err := st.Effort(ctx, 9876543210)
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890), effort.ActivityID)
	assert.Equal(t, int64(5555555), effort.SegmentID)

	// A second pass over the same archive changes nothing.
	summary, err = importer.Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Activities)
	assert.Equal(t, 1, summary.Efforts)

	activities, segments, efforts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), activities)
	assert.Equal(t, int64(1), segments)
	assert.Equal(t, int64(1), efforts)
}

func TestImportLedgerFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "activities.csv"),
		"Activity ID,Activity Date,Activity Name,Activity Type,Elapsed Time,Moving Time,Distance,Average Watts,Average Heart Rate\n"+
			`2741766627,"Jun 4, 2013, 7:12:09 AM",Commute,Ride,1800.0,1750.0,12.1,,`+"\n")

	summary, err := archive.New(st).Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Activities)
	assert.Zero(t, summary.Efforts)

	activity, err := st.Activity(ctx, 2741766627)
	require.NoError(t, err)
	assert.Equal(t, "Commute", activity.Name)
	assert.Nil(t, activity.AverageWatts)
	assert.Nil(t, activity.AverageHeartrate)
	assert.False(t, activity.EffortsProcessed)
	assert.InDelta(t, 12100.0, activity.Distance, 0.001)
}

func TestImportContinuesPastMalformedLedgerRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "activities", "1234567890.json"), documentFixture)
	writeFile(t, filepath.Join(root, "activities.csv"),
		"Activity ID,Activity Name\n"+
			"111,First Ride\n"+
			"222,bad\"quote\n"+
			"333,Last Ride\n")
	writeFile(t, filepath.Join(root, "segments.csv"),
		"Segment ID,Name\n"+
			"101,Good Climb\n"+
			"102,bad\"quote\n")

	summary, err := archive.New(st).Import(ctx, root)
	require.NoError(t, err, "a mangled row must not abort the run")
	assert.Equal(t, 3, summary.Activities, "document plus both intact ledger rows")
	assert.Equal(t, 2, summary.Skipped)

	for _, id := range []int64{111, 333} {
		activity, err := st.Activity(ctx, id)
		require.NoError(t, err, "intact row %d survives its broken neighbour", id)
		assert.NotEmpty(t, activity.Name)
	}
	segment, err := st.Segment(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "Good Climb", segment.Name)
}

func TestImportDocumentWinsOverLedgerRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "activities", "1234567890.json"), documentFixture)
	writeFile(t, filepath.Join(root, "activities.csv"),
		"Activity ID,Activity Date,Activity Name\n"+
			`1234567890,"Jun 1, 2020, 7:30:00 AM",Ledger Name`+"\n")

	summary, err := archive.New(st).Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Activities, "the ledger row for a documented id is skipped")

	activity, err := st.Activity(ctx, 1234567890)
	require.NoError(t, err)
	assert.Equal(t, "Archive Ride", activity.Name)
}

func TestImportSegmentsTableCompletesSegment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "activities", "1234567890.json"), documentFixture)
	writeFile(t, filepath.Join(root, "segments.csv"),
		"Segment ID,Name,Activity Type,Distance,Average Grade,City\n"+
			"5555555,Col du Test,Ride,2.4,7.2,Grenoble\n")

	summary, err := archive.New(st).Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Segments, "the same segment is counted once per run")

	segment, err := st.Segment(ctx, 5555555)
	require.NoError(t, err)
	assert.Equal(t, "Grenoble", segment.City, "the table pass replaces the embedded summary")
	assert.InDelta(t, 2400.0, segment.Distance, 0.001)
}

func TestImportSkipsMalformedInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "activities", "1234567890.json"), documentFixture)
	writeFile(t, filepath.Join(root, "activities", "broken.json"), "{not json")
	writeFile(t, filepath.Join(root, "activities", "1001.fit.gz"), "not gzip at all")

	summary, err := archive.New(st).Import(ctx, root)
	require.NoError(t, err, "malformed records never abort the batch")
	assert.Equal(t, 1, summary.Activities)
	assert.Equal(t, 2, summary.Skipped)
}

func TestImportZipBundle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	bundle := filepath.Join(t.TempDir(), "export.zip")
	file, err := os.Create(bundle)
	require.NoError(t, err)
	writer := zip.NewWriter(file)
	entry, err := writer.Create("activities/1234567890.json")
	require.NoError(t, err)
	_, err = entry.Write([]byte(documentFixture))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, file.Close())

	summary, err := archive.New(st).Import(ctx, bundle)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Activities)
	assert.Equal(t, 1, summary.Efforts)
}

func TestImportCorruptBundleAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	bundle := filepath.Join(t.TempDir(), "corrupt.zip")
	require.NoError(t, os.WriteFile(bundle, []byte("definitely not a zip"), 0o644))

	_, err := archive.New(st).Import(context.Background(), bundle)
	require.Error(t, err)
}

type fakeFetcher struct {
	calls []int64
}

func (f *fakeFetcher) ActivityDetail(_ context.Context, id int64) (*strava.Activity, error) {
	f.calls = append(f.calls, id)
	detail := fmt.Sprintf(`{
        "id": %d,
        "name": "Fetched",
        "segment_efforts": [
            {"id": %d, "name": "Live Effort", "elapsed_time": 300,
             "activity": {"id": %d},
             "segment": {"id": 8100, "name": "Live Segment"}}
        ]
    }`, id, id+1, id)
	return strava.DecodeActivityDetail([]byte(detail))
}

func TestImportNetworkCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "activities.csv"),
		"Activity ID,Activity Date,Activity Name\n"+
			`2741766627,"Jun 4, 2013, 7:12:09 AM",Commute`+"\n")

	fetcher := &fakeFetcher{}
	summary, err := archive.New(st, archive.WithEffortFetcher(fetcher)).Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []int64{2741766627}, fetcher.calls)
	assert.Equal(t, 1, summary.Efforts)
	assert.Equal(t, 1, summary.Segments)

	activity, err := st.Activity(ctx, 2741766627)
	require.NoError(t, err)
	assert.True(t, activity.EffortsProcessed)

	// A second run sees stored efforts and fetches nothing.
	fetcher.calls = nil
	_, err = archive.New(st, archive.WithEffortFetcher(fetcher)).Import(ctx, root)
	require.NoError(t, err)
	assert.Empty(t, fetcher.calls)
}
