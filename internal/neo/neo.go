// Package neo adapts NASA's Near Earth Object Web Service (NeoWs) into
// typed asteroid records. Upstream encodes most numerics as strings grouped
// by unit system; normalization extracts kilometers and km/s and fails
// closed on anything that does not parse.
package neo

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/dateutil"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/nasaapi"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/threat"
)

// Provider is the rate-limit budget key for this API.
const Provider = "neows"

const (
	feedPath   = "/neo/rest/v1/feed"
	lookupPath = "/neo/rest/v1/neo"
)

// Upstream caps feed queries at 7 days.
const defaultMaxSpanDays = 7

// Approach is one close-approach event for an object.
type Approach struct {
	Date              time.Time `json:"date"`
	VelocityKmS       float64   `json:"velocity_km_s"`
	MissDistanceKm    float64   `json:"miss_distance_km"`
	MissDistanceLunar float64   `json:"miss_distance_lunar"`
	OrbitingBody      string    `json:"orbiting_body"`
}

// Object is one normalized near-Earth object. Identity key: ID.
type Object struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	JPLURL            string     `json:"nasa_jpl_url,omitempty"`
	AbsoluteMagnitude float64    `json:"absolute_magnitude_h"`
	DiameterMinKm     float64    `json:"diameter_min_km"`
	DiameterMaxKm     float64    `json:"diameter_max_km"`
	Hazardous         bool       `json:"is_potentially_hazardous"`
	Sentry            bool       `json:"is_sentry_object"`
	Approaches        []Approach `json:"approaches"`
}

// ClosestApproach returns the approach with the smallest miss distance,
// or false when the object carries no approach data.
func (o Object) ClosestApproach() (Approach, bool) {
	if len(o.Approaches) == 0 {
		return Approach{}, false
	}
	closest := o.Approaches[0]
	for _, a := range o.Approaches[1:] {
		if a.MissDistanceKm < closest.MissDistanceKm {
			closest = a
		}
	}
	return closest, true
}

// EarliestApproach returns the earliest approach date, or zero time when the
// object carries no approach data.
func (o Object) EarliestApproach() time.Time {
	var earliest time.Time
	for _, a := range o.Approaches {
		if earliest.IsZero() || a.Date.Before(earliest) {
			earliest = a.Date
		}
	}
	return earliest
}

// DangerReport pairs an object with its deterministic threat assessment.
type DangerReport struct {
	Object         Object            `json:"object"`
	Assessment     threat.Assessment `json:"assessment"`
	SizeComparison string            `json:"size_comparison"`
}

// Adapter queries NeoWs through the shared client.
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

// GetByDateRange returns all objects with approaches in [start, end]
// inclusive, ordered by approach date ascending, then by id. Ranges beyond
// the upstream cap fail with RangeTooLarge rather than silently truncating.
func (a *Adapter) GetByDateRange(ctx context.Context, start, end time.Time) ([]Object, error) {
	const op = "neo.GetByDateRange"

	if err := dateutil.ValidateRange(op, start, end, a.maxSpanDays); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("start_date", dateutil.Format(start))
	q.Set("end_date", dateutil.Format(end))
	q.Set("detailed", "true")

	var raw rawFeed
	if err := a.client.GetJSON(ctx, Provider, feedPath, q, &raw); err != nil {
		return nil, err
	}

	var objects []Object
	for _, list := range raw.NearEarthObjects {
		for _, ro := range list {
			obj, err := normalizeObject(op, ro)
			if err != nil {
				return nil, err
			}
			objects = append(objects, obj)
		}
	}

	sort.Slice(objects, func(i, j int) bool {
		di, dj := objects[i].EarliestApproach(), objects[j].EarliestApproach()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return objects[i].ID < objects[j].ID
	})
	return objects, nil
}

// GetWeek returns objects approaching in the next 7 days starting today.
func (a *Adapter) GetWeek(ctx context.Context) ([]Object, error) {
	start := time.Now().UTC().Truncate(24 * time.Hour)
	return a.GetByDateRange(ctx, start, start.AddDate(0, 0, 6))
}

// GetHazardous returns only the objects upstream flags as potentially
// hazardous, in the same deterministic order as GetByDateRange.
func (a *Adapter) GetHazardous(ctx context.Context, start, end time.Time) ([]Object, error) {
	objects, err := a.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	hazardous := objects[:0:0]
	for _, o := range objects {
		if o.Hazardous {
			hazardous = append(hazardous, o)
		}
	}
	return hazardous, nil
}

// GetLargestInRange returns the object with the largest estimated maximum
// diameter. Ties break on earliest approach date, then lexicographic id, so
// the result is deterministic.
func (a *Adapter) GetLargestInRange(ctx context.Context, start, end time.Time) (Object, error) {
	const op = "neo.GetLargestInRange"

	objects, err := a.GetByDateRange(ctx, start, end)
	if err != nil {
		return Object{}, err
	}
	if len(objects) == 0 {
		return Object{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"no objects found between %s and %s", dateutil.Format(start), dateutil.Format(end))
	}

	best := objects[0]
	for _, o := range objects[1:] {
		if larger(o, best) {
			best = o
		}
	}
	return best, nil
}

// larger reports whether a outranks b: greater diameter, then earlier
// approach date, then smaller id.
func larger(a, b Object) bool {
	if a.DiameterMaxKm != b.DiameterMaxKm {
		return a.DiameterMaxKm > b.DiameterMaxKm
	}
	da, db := a.EarliestApproach(), b.EarliestApproach()
	if !da.Equal(db) {
		return da.Before(db)
	}
	return a.ID < b.ID
}

// GetByID looks up one object by its NeoWs identifier.
func (a *Adapter) GetByID(ctx context.Context, id string) (Object, error) {
	const op = "neo.GetByID"

	if id == "" {
		return Object{}, apierror.Errorf(apierror.KindInvalidArgument, op, "asteroid id is required")
	}

	var raw rawObject
	if err := a.client.GetJSON(ctx, Provider, lookupPath+"/"+url.PathEscape(id), nil, &raw); err != nil {
		return Object{}, err
	}
	return normalizeObject(op, raw)
}

// AnalyzeDanger looks up an object and scores it with the shared threat
// scorer. The scoring itself is pure; only the lookup touches the network.
func (a *Adapter) AnalyzeDanger(ctx context.Context, id string) (DangerReport, error) {
	const op = "neo.AnalyzeDanger"

	obj, err := a.GetByID(ctx, id)
	if err != nil {
		return DangerReport{}, err
	}

	closest, ok := obj.ClosestApproach()
	if !ok {
		return DangerReport{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"object %s carries no close approach data", id)
	}

	return DangerReport{
		Object:         obj,
		Assessment:     threat.Score(obj.DiameterMaxKm, closest.VelocityKmS, closest.MissDistanceKm, obj.Hazardous),
		SizeComparison: threat.SizeComparison(obj.DiameterMaxKm),
	}, nil
}

// Upstream wire shapes.

type rawFeed struct {
	ElementCount     int                    `json:"element_count"`
	NearEarthObjects map[string][]rawObject `json:"near_earth_objects"`
}

type rawObject struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	JPLURL            string `json:"nasa_jpl_url"`
	AbsoluteMagnitude float64 `json:"absolute_magnitude_h"`
	EstimatedDiameter struct {
		Kilometers struct {
			Min float64 `json:"estimated_diameter_min"`
			Max float64 `json:"estimated_diameter_max"`
		} `json:"kilometers"`
	} `json:"estimated_diameter"`
	Hazardous         bool          `json:"is_potentially_hazardous_asteroid"`
	Sentry            bool          `json:"is_sentry_object"`
	CloseApproachData []rawApproach `json:"close_approach_data"`
}

type rawApproach struct {
	CloseApproachDate string `json:"close_approach_date"`
	RelativeVelocity  struct {
		KilometersPerSecond string `json:"kilometers_per_second"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Kilometers string `json:"kilometers"`
		Lunar      string `json:"lunar"`
	} `json:"miss_distance"`
	OrbitingBody string `json:"orbiting_body"`
}

func normalizeObject(op string, raw rawObject) (Object, error) {
	if raw.ID == "" || raw.Name == "" {
		return Object{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"object missing id or name")
	}

	approaches := make([]Approach, 0, len(raw.CloseApproachData))
	for _, ra := range raw.CloseApproachData {
		date, err := dateutil.Parse(op, ra.CloseApproachDate)
		if err != nil {
			return Object{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
				"object %s carries invalid approach date %q", raw.ID, ra.CloseApproachDate)
		}
		vel, err := parseUpstreamFloat(op, raw.ID, "relative_velocity", ra.RelativeVelocity.KilometersPerSecond)
		if err != nil {
			return Object{}, err
		}
		missKm, err := parseUpstreamFloat(op, raw.ID, "miss_distance", ra.MissDistance.Kilometers)
		if err != nil {
			return Object{}, err
		}
		missLunar, err := parseUpstreamFloat(op, raw.ID, "miss_distance_lunar", ra.MissDistance.Lunar)
		if err != nil {
			return Object{}, err
		}
		approaches = append(approaches, Approach{
			Date:              date,
			VelocityKmS:       vel,
			MissDistanceKm:    missKm,
			MissDistanceLunar: missLunar,
			OrbitingBody:      ra.OrbitingBody,
		})
	}

	return Object{
		ID:                raw.ID,
		Name:              raw.Name,
		JPLURL:            raw.JPLURL,
		AbsoluteMagnitude: raw.AbsoluteMagnitude,
		DiameterMinKm:     raw.EstimatedDiameter.Kilometers.Min,
		DiameterMaxKm:     raw.EstimatedDiameter.Kilometers.Max,
		Hazardous:         raw.Hazardous,
		Sentry:            raw.Sentry,
		Approaches:        approaches,
	}, nil
}

// parseUpstreamFloat parses NeoWs's string-encoded numerics, failing closed
// on malformed values.
func parseUpstreamFloat(op, id, field, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"object %s carries malformed %s %q", id, field, s)
	}
	return f, nil
}
