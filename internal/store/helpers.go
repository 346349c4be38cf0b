package store

import "database/sql"

const activityColumns = "id, name, type, start_date, distance, moving_time, elapsed_time, total_elevation_gain, average_speed, max_speed, average_watts, kilojoules, device_watts, has_heartrate, average_heartrate, max_heartrate, efforts_processed, raw_data, fetched_at"

const segmentColumns = "id, name, activity_type, distance, average_grade, maximum_grade, elevation_high, elevation_low, start_latlng, end_latlng, climb_category, city, state, country, private, starred, polyline, raw_data, fetched_at"

const effortColumns = "id, activity_id, segment_id, name, elapsed_time, moving_time, start_date, distance, average_watts, device_watts, average_heartrate, max_heartrate, pr_rank, raw_data, fetched_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanActivity(scanner rowScanner) (*Activity, error) {
	var (
		name          sql.NullString
		activityType  sql.NullString
		startDate     sql.NullString
		distance      sql.NullFloat64
		movingTime    sql.NullInt64
		elapsedTime   sql.NullInt64
		elevationGain sql.NullFloat64
		averageSpeed  sql.NullFloat64
		maxSpeed      sql.NullFloat64
		averageWatts  sql.NullFloat64
		kilojoules    sql.NullFloat64
		deviceWatts   sql.NullInt64
		hasHeartrate  sql.NullInt64
		averageHR     sql.NullFloat64
		maxHR         sql.NullFloat64
		processed     sql.NullInt64
		rawData       sql.NullString
		fetchedRaw    sql.NullString
	)

	activity := &Activity{}
	if err := scanner.Scan(
		&activity.ID, &name, &activityType, &startDate, &distance,
		&movingTime, &elapsedTime, &elevationGain, &averageSpeed, &maxSpeed,
		&averageWatts, &kilojoules, &deviceWatts, &hasHeartrate,
		&averageHR, &maxHR, &processed, &rawData, &fetchedRaw,
	); err != nil {
		return nil, err
	}

	activity.Name = name.String
	activity.Type = activityType.String
	activity.StartDate = startDate.String
	activity.Distance = distance.Float64
	activity.MovingTime = movingTime.Int64
	activity.ElapsedTime = elapsedTime.Int64
	activity.TotalElevationGain = elevationGain.Float64
	activity.AverageSpeed = averageSpeed.Float64
	activity.MaxSpeed = maxSpeed.Float64
	activity.AverageWatts = floatPtr(averageWatts)
	activity.Kilojoules = floatPtr(kilojoules)
	activity.DeviceWatts = deviceWatts.Int64 != 0
	activity.HasHeartrate = hasHeartrate.Int64 != 0
	activity.AverageHeartrate = floatPtr(averageHR)
	activity.MaxHeartrate = floatPtr(maxHR)
	activity.EffortsProcessed = processed.Int64 != 0
	activity.RawData = rawData.String
	activity.FetchedAt = parseTimestamp(fetchedRaw)
	return activity, nil
}

func scanSegment(scanner rowScanner) (*Segment, error) {
	var (
		name          sql.NullString
		activityType  sql.NullString
		distance      sql.NullFloat64
		averageGrade  sql.NullFloat64
		maximumGrade  sql.NullFloat64
		elevationHigh sql.NullFloat64
		elevationLow  sql.NullFloat64
		startLatLng   sql.NullString
		endLatLng     sql.NullString
		climbCategory sql.NullInt64
		city          sql.NullString
		state         sql.NullString
		country       sql.NullString
		private       sql.NullInt64
		starred       sql.NullInt64
		polyline      sql.NullString
		rawData       sql.NullString
		fetchedRaw    sql.NullString
	)

	segment := &Segment{}
	if err := scanner.Scan(
		&segment.ID, &name, &activityType, &distance, &averageGrade,
		&maximumGrade, &elevationHigh, &elevationLow, &startLatLng, &endLatLng,
		&climbCategory, &city, &state, &country, &private, &starred,
		&polyline, &rawData, &fetchedRaw,
	); err != nil {
		return nil, err
	}

	segment.Name = name.String
	segment.ActivityType = activityType.String
	segment.Distance = distance.Float64
	segment.AverageGrade = averageGrade.Float64
	segment.MaximumGrade = maximumGrade.Float64
	segment.ElevationHigh = elevationHigh.Float64
	segment.ElevationLow = elevationLow.Float64
	segment.StartLatLng = startLatLng.String
	segment.EndLatLng = endLatLng.String
	segment.ClimbCategory = climbCategory.Int64
	segment.City = city.String
	segment.State = state.String
	segment.Country = country.String
	segment.Private = private.Int64 != 0
	segment.Starred = starred.Int64 != 0
	segment.Polyline = polyline.String
	segment.RawData = rawData.String
	segment.FetchedAt = parseTimestamp(fetchedRaw)
	return segment, nil
}

func scanEffort(scanner rowScanner) (*SegmentEffort, error) {
	var (
		name         sql.NullString
		elapsedTime  sql.NullInt64
		movingTime   sql.NullInt64
		startDate    sql.NullString
		distance     sql.NullFloat64
		averageWatts sql.NullFloat64
		deviceWatts  sql.NullInt64
		averageHR    sql.NullFloat64
		maxHR        sql.NullFloat64
		prRank       sql.NullInt64
		rawData      sql.NullString
		fetchedRaw   sql.NullString
	)

	effort := &SegmentEffort{}
	if err := scanner.Scan(
		&effort.ID, &effort.ActivityID, &effort.SegmentID, &name,
		&elapsedTime, &movingTime, &startDate, &distance,
		&averageWatts, &deviceWatts, &averageHR, &maxHR, &prRank,
		&rawData, &fetchedRaw,
	); err != nil {
		return nil, err
	}

	effort.Name = name.String
	effort.ElapsedTime = elapsedTime.Int64
	effort.MovingTime = movingTime.Int64
	effort.StartDate = startDate.String
	effort.Distance = distance.Float64
	effort.AverageWatts = floatPtr(averageWatts)
	effort.DeviceWatts = deviceWatts.Int64 != 0
	effort.AverageHeartrate = floatPtr(averageHR)
	effort.MaxHeartrate = floatPtr(maxHR)
	effort.PRRank = intPtr(prRank)
	effort.RawData = rawData.String
	effort.FetchedAt = parseTimestamp(fetchedRaw)
	return effort, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
