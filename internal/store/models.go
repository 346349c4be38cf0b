package store

import "time"

// Activity is a stored exercise session. Optional metrics use pointers so
// that an absent value survives a round trip as NULL rather than zero.
type Activity struct {
	ID                 int64
	Name               string
	Type               string
	StartDate          string
	Distance           float64
	MovingTime         int64
	ElapsedTime        int64
	TotalElevationGain float64
	AverageSpeed       float64
	MaxSpeed           float64
	AverageWatts       *float64
	Kilojoules         *float64
	DeviceWatts        bool
	HasHeartrate       bool
	AverageHeartrate   *float64
	MaxHeartrate       *float64
	EffortsProcessed   bool
	RawData            string
	FetchedAt          time.Time
}

// Segment is a stored segment definition. Polyline and RawData distinguish a
// summary row (created as a side effect of storing an effort) from a row
// backed by a full detail fetch.
type Segment struct {
	ID            int64
	Name          string
	ActivityType  string
	Distance      float64
	AverageGrade  float64
	MaximumGrade  float64
	ElevationHigh float64
	ElevationLow  float64
	StartLatLng   string
	EndLatLng     string
	ClimbCategory int64
	City          string
	State         string
	Country       string
	Private       bool
	Starred       bool
	Polyline      string
	RawData       string
	FetchedAt     time.Time
}

// SegmentEffort is a stored effort on a segment within an activity. Segment,
// when non-nil, carries an embedded summary that UpsertEffort persists in the
// same transaction as the effort itself.
type SegmentEffort struct {
	ID               int64
	ActivityID       int64
	SegmentID        int64
	Name             string
	ElapsedTime      int64
	MovingTime       int64
	StartDate        string
	Distance         float64
	AverageWatts     *float64
	DeviceWatts      bool
	AverageHeartrate *float64
	MaxHeartrate     *float64
	PRRank           *int64
	RawData          string
	FetchedAt        time.Time

	Segment *Segment
}

// SegmentEffortCount pairs a segment with how many stored efforts reference it.
type SegmentEffortCount struct {
	SegmentID int64
	Name      string
	Efforts   int64
}
