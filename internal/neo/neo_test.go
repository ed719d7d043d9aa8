package neo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/nasaapi"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/ratelimit"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func testAdapter(baseURL string) *Adapter {
	limiter := ratelimit.NewLimiter(nil,
		ratelimit.Budget{MaxPerWindow: 10000, Window: time.Second, Burst: 100}, testLogger)
	client := nasaapi.NewClient(nasaapi.Config{
		BaseURL: baseURL,
		APIKey:  "TEST_KEY",
		Policy:  nasaapi.AttemptPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: time.Millisecond},
	}, limiter, testLogger)
	return NewAdapter(client, 0, testLogger)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// feedObject renders one raw feed object.
func feedObject(id, name string, maxDiameter float64, approachDate string, hazardous bool) string {
	return fmt.Sprintf(`{
		"id": %q,
		"neo_reference_id": %q,
		"name": %q,
		"nasa_jpl_url": "https://ssd.jpl.nasa.gov/%s",
		"absolute_magnitude_h": 22.1,
		"estimated_diameter": {"kilometers": {"estimated_diameter_min": %f, "estimated_diameter_max": %f}},
		"is_potentially_hazardous_asteroid": %t,
		"is_sentry_object": false,
		"close_approach_data": [{
			"close_approach_date": %q,
			"close_approach_date_full": "%s 12:00",
			"epoch_date_close_approach": 0,
			"relative_velocity": {"kilometers_per_second": "18.25"},
			"miss_distance": {"kilometers": "4500000.5", "lunar": "11.7"},
			"orbiting_body": "Earth"
		}]
	}`, id, id, name, id, maxDiameter/2, maxDiameter, hazardous, approachDate, approachDate)
}

// fixtureFeed serves a four-object feed: diameters
// [0.5, 1.2, 1.2, 0.3] km with the 1.2s at 2023-07-03 and 2023-07-02.
func fixtureFeed() string {
	return fmt.Sprintf(`{
		"element_count": 4,
		"near_earth_objects": {
			"2023-07-01": [%s],
			"2023-07-02": [%s],
			"2023-07-03": [%s],
			"2023-07-04": [%s]
		}
	}`,
		feedObject("3001", "(2023 AA)", 0.5, "2023-07-01", false),
		feedObject("3002", "(2023 BB)", 1.2, "2023-07-02", true),
		feedObject("3003", "(2023 CC)", 1.2, "2023-07-03", true),
		feedObject("3004", "(2023 DD)", 0.3, "2023-07-04", false),
	)
}

func TestGetByDateRangeNormalizesAndOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixtureFeed()))
	}))
	defer server.Close()

	objects, err := testAdapter(server.URL).GetByDateRange(context.Background(), day("2023-07-01"), day("2023-07-07"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objects) != 4 {
		t.Fatalf("got %d objects, want 4", len(objects))
	}

	// Ascending approach date regardless of map iteration order.
	for i, wantID := range []string{"3001", "3002", "3003", "3004"} {
		if objects[i].ID != wantID {
			t.Errorf("objects[%d].ID = %s, want %s", i, objects[i].ID, wantID)
		}
	}

	o := objects[1]
	if o.DiameterMaxKm != 1.2 || !o.Hazardous {
		t.Errorf("object 3002 normalized wrong: %+v", o)
	}
	if len(o.Approaches) != 1 {
		t.Fatalf("object 3002 approaches = %d, want 1", len(o.Approaches))
	}
	if o.Approaches[0].VelocityKmS != 18.25 || o.Approaches[0].MissDistanceKm != 4500000.5 {
		t.Errorf("approach numerics not parsed: %+v", o.Approaches[0])
	}
}

// TestGetLargestTieBreak pits two 1.2 km objects against each other; the one
// approaching 2023-07-02 must win over the one approaching 2023-07-03.
func TestGetLargestTieBreak(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixtureFeed()))
	}))
	defer server.Close()

	obj, err := testAdapter(server.URL).GetLargestInRange(context.Background(), day("2023-07-01"), day("2023-07-07"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.ID != "3002" {
		t.Errorf("largest = %s (approach %s), want 3002 (2023-07-02 tie-break)",
			obj.ID, obj.EarliestApproach().Format("2006-01-02"))
	}
}

func TestGetHazardousFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixtureFeed()))
	}))
	defer server.Close()

	objects, err := testAdapter(server.URL).GetHazardous(context.Background(), day("2023-07-01"), day("2023-07-07"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("got %d hazardous objects, want 2", len(objects))
	}
	for _, o := range objects {
		if !o.Hazardous {
			t.Errorf("non-hazardous object %s in filtered result", o.ID)
		}
	}
}

// TestRangeValidationNoNetworkCall verifies reversed and oversized ranges
// fail before any request is issued.
func TestRangeValidationNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	a := testAdapter(server.URL)

	_, err := a.GetByDateRange(context.Background(), day("2023-07-07"), day("2023-07-01"))
	if kind := apierror.KindOf(err); kind != apierror.KindInvalidArgument {
		t.Errorf("reversed range kind = %v, want invalid_argument", kind)
	}

	_, err = a.GetByDateRange(context.Background(), day("2023-07-01"), day("2023-07-20"))
	if kind := apierror.KindOf(err); kind != apierror.KindRangeTooLarge {
		t.Errorf("oversized range kind = %v, want range_too_large", kind)
	}

	if calls.Load() != 0 {
		t.Errorf("validation failures issued %d network calls, want 0", calls.Load())
	}
}

// TestMalformedNumericFailsClosed verifies string-encoded numerics that do
// not parse reject the whole response.
func TestMalformedNumericFailsClosed(t *testing.T) {
	bad := `{
		"element_count": 1,
		"near_earth_objects": {"2023-07-01": [{
			"id": "9001", "name": "(Bad)", "nasa_jpl_url": "",
			"absolute_magnitude_h": 20,
			"estimated_diameter": {"kilometers": {"estimated_diameter_min": 0.1, "estimated_diameter_max": 0.2}},
			"is_potentially_hazardous_asteroid": false,
			"is_sentry_object": false,
			"close_approach_data": [{
				"close_approach_date": "2023-07-01",
				"relative_velocity": {"kilometers_per_second": "not-a-number"},
				"miss_distance": {"kilometers": "1000000", "lunar": "2.6"},
				"orbiting_body": "Earth"
			}]
		}]}
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bad))
	}))
	defer server.Close()

	_, err := testAdapter(server.URL).GetByDateRange(context.Background(), day("2023-07-01"), day("2023-07-01"))
	if err == nil {
		t.Fatal("expected error for malformed numeric, got nil")
	}
	if kind := apierror.KindOf(err); kind != apierror.KindUpstreamRejected {
		t.Errorf("error kind = %v, want upstream_rejected", kind)
	}
}

func TestAnalyzeDanger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/neo/rest/v1/neo/3002" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(feedObject("3002", "(2023 BB)", 1.2, "2023-07-02", true)))
	}))
	defer server.Close()

	report, err := testAdapter(server.URL).AnalyzeDanger(context.Background(), "3002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Object.ID != "3002" {
		t.Errorf("object id = %s", report.Object.ID)
	}
	if report.Assessment.Score <= 0 {
		t.Errorf("score = %f, want > 0", report.Assessment.Score)
	}
	if report.SizeComparison == "" {
		t.Error("size comparison is empty")
	}

	// Determinism: a second identical analysis scores identically.
	again, err := testAdapter(server.URL).AnalyzeDanger(context.Background(), "3002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Assessment != report.Assessment {
		t.Errorf("assessments differ: %+v vs %+v", report.Assessment, again.Assessment)
	}
}

func TestAnalyzeDangerEmptyID(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	_, err := testAdapter(server.URL).AnalyzeDanger(context.Background(), "")
	if kind := apierror.KindOf(err); kind != apierror.KindInvalidArgument {
		t.Errorf("error kind = %v, want invalid_argument", kind)
	}
	if calls.Load() != 0 {
		t.Errorf("empty id issued %d network calls, want 0", calls.Load())
	}
}
