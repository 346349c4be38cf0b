package archive

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/basetype"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"paceline/internal/store"
)

// lapSummary carries the traversal fields shared by segment_lap and lap
// messages, with the FIT wire scaling already applied.
type lapSummary struct {
	name      string
	startTime time.Time
	elapsed   float64 // seconds
	timer     float64 // seconds
	distance  float64 // meters
	avgPower  *float64
	avgHR     *float64
	maxHR     *float64
}

// readDeviceEfforts decodes a gzip-compressed FIT device file and extracts
// one effort per segment traversal message that names a segment id. Messages
// without a usable segment id are skipped.
func readDeviceEfforts(r io.Reader, activityID int64) ([]*store.SegmentEffort, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	fitDec := decoder.New(gz)
	var efforts []*store.SegmentEffort
	devNames := make(map[devFieldKey]string)
	for fitDec.Next() {
		fitData, err := fitDec.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode fit: %w", err)
		}
		for i := range fitData.Messages {
			msg := &fitData.Messages[i]
			var summary lapSummary
			switch msg.Num {
			case typedef.MesgNumFieldDescription:
				recordFieldDescription(msg, devNames)
				continue
			case typedef.MesgNumSegmentLap:
				lap := mesgdef.NewSegmentLap(msg)
				summary = lapSummary{
					name:      lap.Name,
					startTime: lap.StartTime,
					elapsed:   scaleUint32(lap.TotalElapsedTime, 1000),
					timer:     scaleUint32(lap.TotalTimerTime, 1000),
					distance:  scaleUint32(lap.TotalDistance, 100),
					avgPower:  uint16Metric(lap.AvgPower),
					avgHR:     uint8Metric(lap.AvgHeartRate),
					maxHR:     uint8Metric(lap.MaxHeartRate),
				}
			case typedef.MesgNumLap:
				lap := mesgdef.NewLap(msg)
				summary = lapSummary{
					startTime: lap.StartTime,
					elapsed:   scaleUint32(lap.TotalElapsedTime, 1000),
					timer:     scaleUint32(lap.TotalTimerTime, 1000),
					distance:  scaleUint32(lap.TotalDistance, 100),
					avgPower:  uint16Metric(lap.AvgPower),
					avgHR:     uint8Metric(lap.AvgHeartRate),
					maxHR:     uint8Metric(lap.MaxHeartRate),
				}
			default:
				continue
			}
			if effort := effortFromLap(msg, summary, activityID, devNames); effort != nil {
				efforts = append(efforts, effort)
			}
		}
	}
	return efforts, nil
}

// effortFromLap builds a stored effort from one traversal message, or nil
// when the message carries no usable segment id.
func effortFromLap(msg *proto.Message, summary lapSummary, activityID int64, devNames map[devFieldKey]string) *store.SegmentEffort {
	rawSegmentID := segmentIDField(msg, devNames)
	if rawSegmentID == "" {
		return nil
	}
	segmentID, err := strconv.ParseInt(rawSegmentID, 10, 64)
	if err != nil || segmentID == 0 {
		return nil
	}

	name := summary.name
	if name == "" {
		name = fmt.Sprintf("Segment %s", rawSegmentID)
	}
	startDate := ""
	if !summary.startTime.IsZero() {
		startDate = summary.startTime.UTC().Format(time.RFC3339)
	}

	effort := &store.SegmentEffort{
		ID:               syntheticEffortID(activityID, rawSegmentID),
		ActivityID:       activityID,
		SegmentID:        segmentID,
		Name:             name,
		ElapsedTime:      int64(summary.elapsed),
		MovingTime:       int64(summary.timer),
		StartDate:        startDate,
		Distance:         summary.distance,
		AverageWatts:     summary.avgPower,
		DeviceWatts:      summary.avgPower != nil,
		AverageHeartrate: summary.avgHR,
		MaxHeartrate:     summary.maxHR,
		Segment: &store.Segment{
			ID:   segmentID,
			Name: name,
		},
	}

	raw, _ := json.Marshal(map[string]any{
		"id":           effort.ID,
		"activity_id":  activityID,
		"segment_id":   segmentID,
		"name":         name,
		"elapsed_time": effort.ElapsedTime,
		"distance":     effort.Distance,
		"start_date":   startDate,
	})
	effort.RawData = string(raw)
	return effort
}

// devFieldKey identifies a developer field across a decode: the wire carries
// only this pair per value, the name lives in a field_description message.
type devFieldKey struct {
	developerDataIndex uint8
	num                uint8
}

// recordFieldDescription remembers the declared name of a developer field so
// later traversal messages can resolve their developer values by name.
func recordFieldDescription(msg *proto.Message, devNames map[devFieldKey]string) {
	desc := mesgdef.NewFieldDescription(msg)
	if len(desc.FieldName) == 0 || desc.FieldName[0] == "" {
		return
	}
	key := devFieldKey{desc.DeveloperDataIndex, desc.FieldDefinitionNumber}
	devNames[key] = desc.FieldName[0]
}

// segmentIDField scans the message for a field named "segment_id" and
// returns its value rendered as a string, or "" when absent. Exported FIT
// files carry the id as a developer field, so both field lists are checked.
func segmentIDField(msg *proto.Message, devNames map[devFieldKey]string) string {
	for i := range msg.Fields {
		field := &msg.Fields[i]
		if field.Name == "segment_id" {
			return renderFieldValue(field.Value.Any())
		}
	}
	for i := range msg.DeveloperFields {
		field := &msg.DeveloperFields[i]
		key := devFieldKey{field.DeveloperDataIndex, field.Num}
		if devNames[key] == "segment_id" {
			return renderFieldValue(field.Value.Any())
		}
	}
	return ""
}

func renderFieldValue(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func scaleUint32(value uint32, scale float64) float64 {
	if value == basetype.Uint32Invalid {
		return 0
	}
	return float64(value) / scale
}

func uint16Metric(value uint16) *float64 {
	if value == basetype.Uint16Invalid || value == 0 {
		return nil
	}
	converted := float64(value)
	return &converted
}

func uint8Metric(value uint8) *float64 {
	if value == basetype.Uint8Invalid || value == 0 {
		return nil
	}
	converted := float64(value)
	return &converted
}
