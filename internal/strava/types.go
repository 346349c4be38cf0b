package strava

import (
	"encoding/json"

	"paceline/internal/store"
)

// Activity mirrors the fields of a Strava activity payload that the store
// keeps as columns. Raw holds the verbatim JSON it was decoded from.
type Activity struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	StartDate          string   `json:"start_date"`
	Distance           float64  `json:"distance"`
	MovingTime         int64    `json:"moving_time"`
	ElapsedTime        int64    `json:"elapsed_time"`
	TotalElevationGain float64  `json:"total_elevation_gain"`
	AverageSpeed       float64  `json:"average_speed"`
	MaxSpeed           float64  `json:"max_speed"`
	AverageWatts       *float64 `json:"average_watts"`
	Kilojoules         *float64 `json:"kilojoules"`
	DeviceWatts        bool     `json:"device_watts"`
	HasHeartrate       bool     `json:"has_heartrate"`
	AverageHeartrate   *float64 `json:"average_heartrate"`
	MaxHeartrate       *float64 `json:"max_heartrate"`
	SegmentEfforts     []Effort `json:"segment_efforts"`

	Raw string `json:"-"`
}

// Segment mirrors a Strava segment payload. The polyline lives under the
// nested map object in detail responses.
type Segment struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ActivityType  string    `json:"activity_type"`
	Distance      float64   `json:"distance"`
	AverageGrade  float64   `json:"average_grade"`
	MaximumGrade  float64   `json:"maximum_grade"`
	ElevationHigh float64   `json:"elevation_high"`
	ElevationLow  float64   `json:"elevation_low"`
	StartLatLng   []float64 `json:"start_latlng"`
	EndLatLng     []float64 `json:"end_latlng"`
	ClimbCategory int64     `json:"climb_category"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Country       string    `json:"country"`
	Private       bool      `json:"private"`
	Starred       bool      `json:"starred"`
	Map           struct {
		Polyline string `json:"polyline"`
	} `json:"map"`

	Raw string `json:"-"`
}

// Effort mirrors a Strava segment effort payload as embedded in activity
// detail responses.
type Effort struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	ElapsedTime      int64    `json:"elapsed_time"`
	MovingTime       int64    `json:"moving_time"`
	StartDate        string   `json:"start_date"`
	Distance         float64  `json:"distance"`
	AverageWatts     *float64 `json:"average_watts"`
	DeviceWatts      bool     `json:"device_watts"`
	AverageHeartrate *float64 `json:"average_heartrate"`
	MaxHeartrate     *float64 `json:"max_heartrate"`
	PRRank           *int64   `json:"pr_rank"`
	Activity         struct {
		ID int64 `json:"id"`
	} `json:"activity"`
	Segment *Segment `json:"segment"`

	Raw string `json:"-"`
}

// Record converts the wire activity into its stored form.
func (a *Activity) Record() *store.Activity {
	return &store.Activity{
		ID:                 a.ID,
		Name:               a.Name,
		Type:               a.Type,
		StartDate:          a.StartDate,
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		ElapsedTime:        a.ElapsedTime,
		TotalElevationGain: a.TotalElevationGain,
		AverageSpeed:       a.AverageSpeed,
		MaxSpeed:           a.MaxSpeed,
		AverageWatts:       a.AverageWatts,
		Kilojoules:         a.Kilojoules,
		DeviceWatts:        a.DeviceWatts,
		HasHeartrate:       a.HasHeartrate,
		AverageHeartrate:   a.AverageHeartrate,
		MaxHeartrate:       a.MaxHeartrate,
		RawData:            a.Raw,
	}
}

// Record converts the wire segment into its stored form. Start and end
// coordinates are kept as compact JSON arrays.
func (s *Segment) Record() *store.Segment {
	return &store.Segment{
		ID:            s.ID,
		Name:          s.Name,
		ActivityType:  s.ActivityType,
		Distance:      s.Distance,
		AverageGrade:  s.AverageGrade,
		MaximumGrade:  s.MaximumGrade,
		ElevationHigh: s.ElevationHigh,
		ElevationLow:  s.ElevationLow,
		StartLatLng:   encodeLatLng(s.StartLatLng),
		EndLatLng:     encodeLatLng(s.EndLatLng),
		ClimbCategory: s.ClimbCategory,
		City:          s.City,
		State:         s.State,
		Country:       s.Country,
		Private:       s.Private,
		Starred:       s.Starred,
		Polyline:      s.Map.Polyline,
		RawData:       s.Raw,
	}
}

// Record converts the wire effort into its stored form. The activity link is
// resolved from the embedded activity reference, and any embedded segment
// summary is carried along for the store to cascade.
func (e *Effort) Record() *store.SegmentEffort {
	record := &store.SegmentEffort{
		ID:               e.ID,
		ActivityID:       e.Activity.ID,
		Name:             e.Name,
		ElapsedTime:      e.ElapsedTime,
		MovingTime:       e.MovingTime,
		StartDate:        e.StartDate,
		Distance:         e.Distance,
		AverageWatts:     e.AverageWatts,
		DeviceWatts:      e.DeviceWatts,
		AverageHeartrate: e.AverageHeartrate,
		MaxHeartrate:     e.MaxHeartrate,
		PRRank:           e.PRRank,
		RawData:          e.Raw,
	}
	if e.Segment != nil {
		record.SegmentID = e.Segment.ID
		record.Segment = e.Segment.Record()
	}
	return record
}

func encodeLatLng(coords []float64) string {
	if len(coords) == 0 {
		return ""
	}
	encoded, err := json.Marshal(coords)
	if err != nil {
		return ""
	}
	return string(encoded)
}
