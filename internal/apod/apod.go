// Package apod adapts NASA's Astronomy Picture of the Day API into typed
// imagery records.
package apod

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/dateutil"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/nasaapi"
)

// Provider is the rate-limit budget key for this API.
const Provider = "apod"

const feedPath = "/planetary/apod"

// Upstream caps range queries at 100 days.
const defaultMaxSpanDays = 100

// MediaType distinguishes the two media kinds APOD publishes.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Record is one normalized daily imagery entry. Identity key: Date.
type Record struct {
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Explanation string    `json:"explanation"`
	URL         string    `json:"url"`
	HDURL       string    `json:"hdurl,omitempty"`
	MediaType   MediaType `json:"media_type"`
	Copyright   string    `json:"copyright,omitempty"`
}

// rawRecord mirrors the upstream response shape before normalization.
type rawRecord struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	URL         string `json:"url"`
	HDURL       string `json:"hdurl"`
	MediaType   string `json:"media_type"`
	Copyright   string `json:"copyright"`
}

// Adapter queries the APOD API through the shared client.
type Adapter struct {
	client      *nasaapi.Client
	maxSpanDays int
	logger      *slog.Logger
}

// NewAdapter creates an Adapter. maxSpanDays of 0 uses the upstream cap.
func NewAdapter(client *nasaapi.Client, maxSpanDays int, logger *slog.Logger) *Adapter {
	if maxSpanDays <= 0 || maxSpanDays > defaultMaxSpanDays {
		maxSpanDays = defaultMaxSpanDays
	}
	return &Adapter{client: client, maxSpanDays: maxSpanDays, logger: logger}
}

// GetByDate returns the imagery record for one date.
func (a *Adapter) GetByDate(ctx context.Context, date time.Time) (Record, error) {
	const op = "apod.GetByDate"

	q := url.Values{}
	q.Set("date", dateutil.Format(date))

	body, err := a.client.Get(ctx, Provider, feedPath, q)
	if err != nil {
		return Record{}, err
	}

	var raw rawRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return Record{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"malformed response body: %w", err)
	}
	return normalize(op, raw)
}

// GetToday returns the imagery record for the current UTC date.
func (a *Adapter) GetToday(ctx context.Context) (Record, error) {
	return a.GetByDate(ctx, time.Now().UTC())
}

// GetRange returns records for every date in [start, end] inclusive,
// ascending. Fails before issuing any request when the range is reversed or
// exceeds the configured span.
func (a *Adapter) GetRange(ctx context.Context, start, end time.Time) ([]Record, error) {
	const op = "apod.GetRange"

	if err := dateutil.ValidateRange(op, start, end, a.maxSpanDays); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("start_date", dateutil.Format(start))
	q.Set("end_date", dateutil.Format(end))

	body, err := a.client.Get(ctx, Provider, feedPath, q)
	if err != nil {
		return nil, err
	}

	var raws []rawRecord
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"malformed response body: %w", err)
	}

	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := normalize(op, raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// normalize converts an upstream record into the typed shape, rejecting
// unknown-shaped responses instead of passing them downstream.
func normalize(op string, raw rawRecord) (Record, error) {
	date, err := dateutil.Parse(op, raw.Date)
	if err != nil {
		return Record{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"response carries invalid date %q", raw.Date)
	}
	mt := MediaType(raw.MediaType)
	if mt != MediaImage && mt != MediaVideo {
		return Record{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"response carries unknown media type %q", raw.MediaType)
	}
	if raw.Title == "" || raw.URL == "" {
		return Record{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"response missing required fields")
	}

	return Record{
		Date:        date,
		Title:       raw.Title,
		Explanation: raw.Explanation,
		URL:         raw.URL,
		HDURL:       raw.HDURL,
		MediaType:   mt,
		Copyright:   raw.Copyright,
	}, nil
}
