package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"paceline/internal/logging"
	"paceline/internal/store"
	"paceline/internal/strava"
)

// EffortFetcher supplies live efforts for ledger activities when network
// completion is requested. *strava.Client satisfies it.
type EffortFetcher interface {
	ActivityDetail(ctx context.Context, id int64) (*strava.Activity, error)
}

// Summary reports what one reconciliation run touched.
type Summary struct {
	Activities int
	Efforts    int
	Segments   int
	Skipped    int
}

// Importer reconciles export bundles against the store.
type Importer struct {
	store      *store.Store
	logger     *slog.Logger
	fetcher    EffortFetcher
	extractDir string
}

// Option customizes the importer.
type Option func(*Importer)

// WithLogger attaches a logger for per-record diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// WithEffortFetcher enables network completion: ledger activities with no
// stored efforts get their efforts fetched live during the run.
func WithEffortFetcher(fetcher EffortFetcher) Option {
	return func(im *Importer) {
		im.fetcher = fetcher
	}
}

// WithExtractDir sets where zip bundles are unpacked. When unset, a
// temporary directory is used and removed after the run.
func WithExtractDir(dir string) Option {
	return func(im *Importer) {
		im.extractDir = dir
	}
}

// New constructs an importer writing to the given store.
func New(st *store.Store, opts ...Option) *Importer {
	im := &Importer{
		store:  st,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// run tracks per-run state so one pass never repeats work for the same id.
type run struct {
	summary Summary

	// documentActivities holds ids covered by per-activity documents; the
	// ledger and device-file passes skip these.
	documentActivities map[int64]bool
	seenSegments       map[int64]bool
}

// Import reconciles the bundle at path, which may be a zip file or an
// already-extracted directory. A corrupt zip aborts the whole run; malformed
// individual documents, rows, and device files are logged and skipped.
func (im *Importer) Import(ctx context.Context, path string) (Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Summary{}, fmt.Errorf("import archive: %w", err)
	}

	root := path
	if !info.IsDir() {
		root, err = im.extractBundle(path)
		if err != nil {
			return Summary{}, err
		}
		if im.extractDir == "" {
			defer os.RemoveAll(root)
		}
	}

	state := &run{
		documentActivities: make(map[int64]bool),
		seenSegments:       make(map[int64]bool),
	}

	if err := im.importDocuments(ctx, root, state); err != nil {
		return state.summary, err
	}
	ledger, err := im.importLedger(ctx, root, state)
	if err != nil {
		return state.summary, err
	}
	if err := im.importDeviceFiles(ctx, root, state); err != nil {
		return state.summary, err
	}
	if err := im.importSegmentsTable(ctx, root, state); err != nil {
		return state.summary, err
	}
	if im.fetcher != nil {
		if err := im.completeLedgerEfforts(ctx, ledger, state); err != nil {
			return state.summary, err
		}
	}

	im.logger.Info("archive import complete",
		"activities", state.summary.Activities,
		"efforts", state.summary.Efforts,
		"segments", state.summary.Segments,
		"skipped", state.summary.Skipped)
	return state.summary, nil
}

func (im *Importer) extractBundle(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("import archive: open bundle: %w", err)
	}
	defer reader.Close()

	dest := im.extractDir
	if dest == "" {
		dest, err = os.MkdirTemp("", "paceline-archive-")
		if err != nil {
			return "", fmt.Errorf("import archive: temp dir: %w", err)
		}
	} else if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("import archive: extract dir: %w", err)
	}

	for _, entry := range reader.File {
		if err := extractZipEntry(entry, dest); err != nil {
			return "", fmt.Errorf("import archive: extract %s: %w", entry.Name, err)
		}
	}
	return dest, nil
}

func extractZipEntry(entry *zip.File, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("entry escapes extraction root")
	}
	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// importDocuments walks the activities subtree for per-activity JSON
// documents, the richest encoding.
func (im *Importer) importDocuments(ctx context.Context, root string, state *run) error {
	dir := activitiesDir(root)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			return nil
		}
		if err := im.importDocument(ctx, path, state); err != nil {
			im.logger.Warn("skipping activity document", "path", path, "error", err)
			state.summary.Skipped++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (im *Importer) importDocument(ctx context.Context, path string, state *run) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	activity, err := strava.DecodeActivityDetail(body)
	if err != nil {
		return err
	}
	if activity.ID == 0 {
		return fmt.Errorf("document has no activity id")
	}

	record := activity.Record()
	record.EffortsProcessed = true
	if err := im.store.UpsertActivity(ctx, record); err != nil {
		return err
	}
	state.documentActivities[activity.ID] = true
	state.summary.Activities++

	im.storeEfforts(ctx, activity.SegmentEfforts, activity.ID, state)
	return nil
}

// storeEfforts upserts a batch of wire efforts, deduplicating segment
// upserts within the run.
func (im *Importer) storeEfforts(ctx context.Context, efforts []strava.Effort, activityID int64, state *run) {
	for i := range efforts {
		record := efforts[i].Record()
		if record.ActivityID == 0 {
			record.ActivityID = activityID
		}
		im.storeEffortRecord(ctx, record, state)
	}
}

func (im *Importer) storeEffortRecord(ctx context.Context, record *store.SegmentEffort, state *run) {
	segmentID := record.SegmentID
	if segmentID == 0 && record.Segment != nil {
		segmentID = record.Segment.ID
	}
	if state.seenSegments[segmentID] {
		// Already upserted this run; skip the redundant segment write.
		record.Segment = nil
		record.SegmentID = segmentID
	}
	if err := im.store.UpsertEffort(ctx, record); err != nil {
		im.logger.Warn("skipping effort", "effort", record.ID, "error", err)
		state.summary.Skipped++
		return
	}
	state.summary.Efforts++
	if segmentID != 0 && !state.seenSegments[segmentID] {
		state.seenSegments[segmentID] = true
		state.summary.Segments++
	}
}

// importLedger upserts activities from the tabular ledger, skipping ids the
// document pass already covered. It returns the parsed ledger for the
// optional network-completion pass.
func (im *Importer) importLedger(ctx context.Context, root string, state *run) ([]ledgerRow, error) {
	path := filepath.Join(root, "activities.csv")
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("import ledger: %w", err)
	}
	defer file.Close()

	ledger, malformed, err := readLedger(file)
	if err != nil {
		return nil, fmt.Errorf("import ledger: %w", err)
	}
	if malformed > 0 {
		im.logger.Warn("skipping malformed ledger rows", "rows", malformed)
		state.summary.Skipped += malformed
	}

	for _, row := range ledger {
		if state.documentActivities[row.ID] {
			continue
		}
		if err := im.store.UpsertActivity(ctx, row.Record); err != nil {
			im.logger.Warn("skipping ledger row", "activity", row.ID, "error", err)
			state.summary.Skipped++
			continue
		}
		state.summary.Activities++
	}
	return ledger, nil
}

// importDeviceFiles extracts efforts from gzip-compressed FIT files. Files
// whose activity already has a per-activity document are skipped entirely.
func (im *Importer) importDeviceFiles(ctx context.Context, root string, state *run) error {
	dir := activitiesDir(root)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".fit.gz") {
			return nil
		}

		activityID, ok := activityIDFromFilename(d.Name())
		if !ok {
			im.logger.Warn("skipping device file without activity id", "path", path)
			state.summary.Skipped++
			return nil
		}
		if state.documentActivities[activityID] {
			return nil
		}
		if err := im.importDeviceFile(ctx, path, activityID, state); err != nil {
			im.logger.Warn("skipping device file", "path", path, "error", err)
			state.summary.Skipped++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (im *Importer) importDeviceFile(ctx context.Context, path string, activityID int64, state *run) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	efforts, err := readDeviceEfforts(file, activityID)
	if err != nil {
		return err
	}
	for _, effort := range efforts {
		im.storeEffortRecord(ctx, effort, state)
	}
	return nil
}

// importSegmentsTable upserts full segment rows from the tabular segment
// listing, completing stubs created by earlier passes.
func (im *Importer) importSegmentsTable(ctx context.Context, root string, state *run) error {
	path := filepath.Join(root, "segments.csv")
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("import segments table: %w", err)
	}
	defer file.Close()

	segments, malformed, err := readSegmentsTable(file)
	if err != nil {
		return fmt.Errorf("import segments table: %w", err)
	}
	if malformed > 0 {
		im.logger.Warn("skipping malformed segment rows", "rows", malformed)
		state.summary.Skipped += malformed
	}
	for _, segment := range segments {
		if err := im.store.UpsertSegment(ctx, segment); err != nil {
			im.logger.Warn("skipping segment row", "segment", segment.ID, "error", err)
			state.summary.Skipped++
			continue
		}
		if !state.seenSegments[segment.ID] {
			state.seenSegments[segment.ID] = true
			state.summary.Segments++
		}
	}
	return nil
}

// completeLedgerEfforts fetches efforts live for ledger activities that have
// none stored. Fetch failures affect only the activity at hand.
func (im *Importer) completeLedgerEfforts(ctx context.Context, ledger []ledgerRow, state *run) error {
	for _, row := range ledger {
		if state.documentActivities[row.ID] {
			continue
		}
		count, err := im.store.EffortCountByActivity(ctx, row.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		detail, err := im.fetcher.ActivityDetail(ctx, row.ID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			im.logger.Warn("could not fetch efforts", "activity", row.ID, "error", err)
			state.summary.Skipped++
			continue
		}
		im.storeEfforts(ctx, detail.SegmentEfforts, row.ID, state)
		if err := im.store.MarkEffortsProcessed(ctx, row.ID); err != nil {
			return err
		}
	}
	return nil
}

// activitiesDir prefers the conventional activities subtree but falls back
// to the bundle root when the export is laid out flat.
func activitiesDir(root string) string {
	dir := filepath.Join(root, "activities")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return root
}

// activityIDFromFilename recovers the activity id from a device-file name
// such as "2741766626.fit.gz".
func activityIDFromFilename(name string) (int64, bool) {
	stem := strings.TrimSuffix(strings.ToLower(name), ".fit.gz")
	if idx := strings.IndexFunc(stem, func(r rune) bool { return r < '0' || r > '9' }); idx >= 0 {
		stem = stem[:idx]
	}
	if stem == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(stem, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
