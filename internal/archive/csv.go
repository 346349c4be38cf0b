package archive

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"paceline/internal/store"
)

// ledgerDateLayout matches the export's human-readable timestamps, e.g.
// "Jun 3, 2013, 11:56:31 PM".
const ledgerDateLayout = "Jan 2, 2006, 3:04:05 PM"

// ledgerRow is one parsed line of the activities ledger.
type ledgerRow struct {
	ID       int64
	Filename string
	Record   *store.Activity
}

// readLedger parses the tabular activity ledger. Rows without a usable
// activity id are dropped; blank or unparsable numeric cells fall back to
// zero (or null for the optional aggregates) instead of failing the row.
// Syntactically broken rows are counted in skipped, not fatal.
func readLedger(r io.Reader) ([]ledgerRow, int, error) {
	rows, skipped, err := readCSVMaps(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read activity ledger: %w", err)
	}

	ledger := make([]ledgerRow, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseInt(strings.TrimSpace(row["Activity ID"]), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ledger = append(ledger, ledgerRow{
			ID:       id,
			Filename: strings.TrimSpace(row["Filename"]),
			Record:   activityFromLedger(id, row),
		})
	}
	return ledger, skipped, nil
}

func activityFromLedger(id int64, row map[string]string) *store.Activity {
	raw, _ := json.Marshal(row)
	return &store.Activity{
		ID:                 id,
		Name:               row["Activity Name"],
		Type:               row["Activity Type"],
		StartDate:          normalizeLedgerDate(row["Activity Date"]),
		Distance:           safeFloat(row["Distance"]) * 1000, // ledger distances are km
		MovingTime:         safeInt(row["Moving Time"]),
		ElapsedTime:        safeInt(row["Elapsed Time"]),
		TotalElevationGain: safeFloat(row["Elevation Gain"]),
		AverageSpeed:       safeFloat(row["Average Speed"]),
		MaxSpeed:           safeFloat(row["Max Speed"]),
		AverageWatts:       optionalFloat(row["Average Watts"]),
		Kilojoules:         optionalFloat(row["Total Work"]),
		DeviceWatts:        strings.TrimSpace(row["Average Watts"]) != "",
		HasHeartrate:       strings.TrimSpace(row["Average Heart Rate"]) != "",
		AverageHeartrate:   optionalFloat(row["Average Heart Rate"]),
		MaxHeartrate:       optionalFloat(row["Max Heart Rate"]),
		RawData:            string(raw),
	}
}

// readSegmentsTable parses the tabular segment listing. Syntactically broken
// rows are counted in skipped, not fatal.
func readSegmentsTable(r io.Reader) ([]*store.Segment, int, error) {
	rows, skipped, err := readCSVMaps(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read segments table: %w", err)
	}

	segments := make([]*store.Segment, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseInt(strings.TrimSpace(row["Segment ID"]), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		raw, _ := json.Marshal(row)
		segments = append(segments, &store.Segment{
			ID:            id,
			Name:          row["Name"],
			ActivityType:  row["Activity Type"],
			Distance:      safeFloat(row["Distance"]) * 1000,
			AverageGrade:  safeFloat(row["Average Grade"]),
			MaximumGrade:  safeFloat(row["Maximum Grade"]),
			ElevationHigh: safeFloat(row["Highest Elevation"]),
			ElevationLow:  safeFloat(row["Lowest Elevation"]),
			ClimbCategory: safeInt(row["Category"]),
			City:          row["City"],
			State:         row["State"],
			Country:       row["Country"],
			Private:       strings.EqualFold(row["Private"], "true"),
			Starred:       strings.EqualFold(row["Starred"], "true"),
			RawData:       string(raw),
		})
	}
	return segments, skipped, nil
}

// readCSVMaps reads every row into a header-keyed map. A row that fails to
// parse is dropped and counted in skipped so one mangled line cannot sink
// the rest of the file; only I/O failures and a broken header are fatal.
func readCSVMaps(r io.Reader) ([]map[string]string, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	var rows []map[string]string
	var skipped int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[strings.TrimSpace(name)] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func normalizeLedgerDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if parsed, err := time.Parse(ledgerDateLayout, value); err == nil {
		return parsed.Format("2006-01-02T15:04:05Z")
	}
	// Keep the raw string when the layout doesn't match rather than losing it.
	return value
}

func safeFloat(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func safeInt(value string) int64 {
	// The export writes integral columns as floats ("1234.0").
	return int64(safeFloat(value))
}

func optionalFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
