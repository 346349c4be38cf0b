package strava_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paceline/internal/config"
	"paceline/internal/ratelimit"
	"paceline/internal/strava"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...strava.Option) (*strava.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	limiter := ratelimit.New(config.RateLimit{
		WindowSeconds: 900,
		WindowLimit:   100,
		DailyLimit:    1000,
		SafetyMargin:  0.9,
	})
	cfg := config.Strava{
		AccessToken: "test-token",
		BaseURL:     server.URL,
		PerPage:     2,
	}
	opts = append([]strava.Option{
		strava.WithRetryBackoff(time.Millisecond, 10*time.Millisecond),
	}, opts...)
	return strava.NewClient(cfg, limiter, opts...), server
}

func activityJSON(id int64, name string) string {
	return fmt.Sprintf(`{"id":%d,"name":%q,"type":"Ride","start_date":"2020-06-01T07:30:00Z","distance":1000.5}`, id, name)
}

func TestActivitiesPaginatesUntilShortPage(t *testing.T) {
	var pages []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/athlete/activities", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "2", r.URL.Query().Get("per_page"))

		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "1":
			fmt.Fprintf(w, "[%s,%s]", activityJSON(1, "One"), activityJSON(2, "Two"))
		case "2":
			fmt.Fprintf(w, "[%s]", activityJSON(3, "Three"))
		default:
			t.Fatalf("unexpected page %s", page)
		}
	})
	client, _ := newTestClient(t, handler)

	activities, err := client.Activities(context.Background(), time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, activities, 3)
	assert.Equal(t, []string{"1", "2"}, pages)
	assert.Equal(t, int64(3), activities[2].ID)
	assert.JSONEq(t, activityJSON(1, "One"), activities[0].Raw)
}

func TestActivitiesHonorsLimitAndAfter(t *testing.T) {
	after := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, fmt.Sprint(after.Unix()), r.URL.Query().Get("after"))
		fmt.Fprintf(w, "[%s,%s]", activityJSON(1, "One"), activityJSON(2, "Two"))
	})
	client, _ := newTestClient(t, handler)

	activities, err := client.Activities(context.Background(), after, 1)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, int64(1), activities[0].ID)
}

func TestActivityDetailDecodesEfforts(t *testing.T) {
	detail := `{
        "id": 100,
        "name": "Big Ride",
        "type": "Ride",
        "start_date": "2020-06-01T07:30:00Z",
        "segment_efforts": [
            {
                "id": 500,
                "name": "Col du Test",
                "elapsed_time": 612,
                "start_date": "2020-06-01T07:45:00Z",
                "segment": {"id": 9000, "name": "Col du Test", "average_grade": 7.2}
            }
        ]
    }`
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/activities/100", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("include_all_efforts"))
		fmt.Fprint(w, detail)
	})
	client, _ := newTestClient(t, handler)

	activity, err := client.ActivityDetail(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), activity.ID)
	require.Len(t, activity.SegmentEfforts, 1)

	effort := activity.SegmentEfforts[0]
	assert.Equal(t, int64(500), effort.ID)
	// The activity link falls back to the enclosing activity when the payload
	// omits an explicit reference.
	assert.Equal(t, int64(100), effort.Activity.ID)
	require.NotNil(t, effort.Segment)
	assert.Equal(t, int64(9000), effort.Segment.ID)
	assert.JSONEq(t, `{"id": 9000, "name": "Col du Test", "average_grade": 7.2}`, effort.Segment.Raw)

	record := effort.Record()
	assert.Equal(t, int64(100), record.ActivityID)
	assert.Equal(t, int64(9000), record.SegmentID)
	require.NotNil(t, record.Segment)
}

func TestSegmentDetail(t *testing.T) {
	payload := `{"id":9000,"name":"Col du Test","start_latlng":[45.1,6.2],"map":{"polyline":"abc123"}}`
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/segments/9000", r.URL.Path)
		fmt.Fprint(w, payload)
	})
	client, _ := newTestClient(t, handler)

	segment, err := client.SegmentDetail(context.Background(), 9000)
	require.NoError(t, err)
	assert.Equal(t, "abc123", segment.Map.Polyline)

	record := segment.Record()
	assert.Equal(t, "abc123", record.Polyline)
	assert.Equal(t, "[45.1,6.2]", record.StartLatLng)
	assert.JSONEq(t, payload, record.RawData)
}

func TestRetryOn429HonorsRetryAfter(t *testing.T) {
	var calls int
	var slept []time.Duration
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"id":9000,"name":"Col du Test"}`)
	})
	client, _ := newTestClient(t, handler,
		strava.WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	segment, err := client.SegmentDetail(context.Background(), 9000)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), segment.ID)
	assert.Equal(t, 2, calls)
	require.Len(t, slept, 1)
	assert.Equal(t, 7*time.Second, slept[0])
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client, _ := newTestClient(t, handler,
		strava.WithSleeper(func(time.Duration) {}))

	_, err := client.SegmentDetail(context.Background(), 9000)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "http 503")
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Record Not Found"}`)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.SegmentDetail(context.Background(), 9000)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "http 404")
}

func TestEffortRecordWithoutSegmentHasNoLink(t *testing.T) {
	var effort strava.Effort
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"activity":{"id":2}}`), &effort))
	record := effort.Record()
	assert.Equal(t, int64(2), record.ActivityID)
	assert.Zero(t, record.SegmentID)
	assert.Nil(t, record.Segment)
}
