// Package engine correlates the three NASA sources by date and derives
// comparative metrics. Joins are fan-out/fan-in with a barrier that
// tolerates partial failure: one source's outage degrades the result with a
// warning instead of failing the whole call.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apod"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/dateutil"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/neo"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/rover"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/threat"
)

// Source names used in partial-failure warnings.
const (
	SourceImagery = "imagery"
	SourceNEO     = "neo"
	SourceRover   = "rover"
)

// ImagerySource is the slice of the APOD adapter the engine consumes.
type ImagerySource interface {
	GetByDate(ctx context.Context, date time.Time) (apod.Record, error)
}

// ObjectSource is the slice of the NEO adapter the engine consumes.
type ObjectSource interface {
	GetByDateRange(ctx context.Context, start, end time.Time) ([]neo.Object, error)
	GetByID(ctx context.Context, id string) (neo.Object, error)
}

// PhotoSource is the slice of the rover adapter the engine consumes.
type PhotoSource interface {
	GetByEarthDate(ctx context.Context, rover string, date time.Time, camera string) ([]rover.Photo, error)
}

// Warning records a source that failed inside an otherwise successful join.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// DateCorrelation joins the three sources for one date. Fields for failed
// sources stay empty; the failure is recorded in Warnings.
type DateCorrelation struct {
	Date              time.Time     `json:"date"`
	Imagery           *apod.Record  `json:"imagery,omitempty"`
	Objects           []neo.Object  `json:"objects"`
	Photos            []rover.Photo `json:"photos"`
	LargestDiameterKm float64       `json:"largest_diameter_km"`
	HazardousCount    int           `json:"hazardous_count"`
	Insights          []string      `json:"insights,omitempty"`
	Warnings          []Warning     `json:"warnings,omitempty"`
}

// ScaleComparison relates an asteroid's size to a rover's physical scale.
type ScaleComparison struct {
	AsteroidID    string  `json:"asteroid_id"`
	AsteroidName  string  `json:"asteroid_name"`
	DiameterM     float64 `json:"diameter_m"`
	Rover         string  `json:"rover"`
	RoverLengthM  float64 `json:"rover_length_m"`
	Ratio         float64 `json:"ratio"`
	Text          string  `json:"text"`
}

// Config bounds the engine's range queries and fan-out width.
type Config struct {
	MaxRangeDays int // maximum span for SummarizeRange (default 31)
	Parallelism  int // concurrent per-date summaries (default 4)
}

// Engine joins adapter outputs. All state is set at construction; methods
// are safe for concurrent use.
type Engine struct {
	imagery  ImagerySource
	objects  ObjectSource
	photos   PhotoSource
	registry *rover.Registry
	cfg      Config
	logger   *slog.Logger
}

// New creates an Engine over the three sources and the rover registry.
func New(imagery ImagerySource, objects ObjectSource, photos PhotoSource, registry *rover.Registry, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 31
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	return &Engine{
		imagery:  imagery,
		objects:  objects,
		photos:   photos,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// SummarizeDate queries all three sources for one date concurrently and
// joins them. A failed source leaves its field empty and adds a warning;
// only caller cancellation fails the whole call.
func (e *Engine) SummarizeDate(ctx context.Context, date time.Time) (DateCorrelation, error) {
	const op = "engine.SummarizeDate"

	var (
		mu sync.Mutex
		dc = DateCorrelation{Date: date}
	)
	warn := func(source string, err error) {
		e.logger.Warn("source degraded in date summary",
			"source", source, "date", dateutil.Format(date), "error", err)
		mu.Lock()
		dc.Warnings = append(dc.Warnings, Warning{Source: source, Message: err.Error()})
		mu.Unlock()
	}

	roverNames := e.registry.Names()
	photosByRover := make([][]rover.Photo, len(roverNames))

	var wg sync.WaitGroup
	wg.Add(2 + len(roverNames))

	go func() {
		defer wg.Done()
		rec, err := e.imagery.GetByDate(ctx, date)
		if err != nil {
			warn(SourceImagery, err)
			return
		}
		mu.Lock()
		dc.Imagery = &rec
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		objects, err := e.objects.GetByDateRange(ctx, date, date)
		if err != nil {
			warn(SourceNEO, err)
			return
		}
		mu.Lock()
		dc.Objects = objects
		mu.Unlock()
	}()

	for i, name := range roverNames {
		go func() {
			defer wg.Done()
			photos, err := e.photos.GetByEarthDate(ctx, name, date, "")
			if err != nil {
				warn(SourceRover+":"+name, err)
				return
			}
			photosByRover[i] = photos
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return DateCorrelation{}, apierror.E(apierror.KindCancelled, op, err)
	}

	// Join rover photos in canonical rover order, never completion order.
	for _, photos := range photosByRover {
		dc.Photos = append(dc.Photos, photos...)
	}

	for _, o := range dc.Objects {
		if o.DiameterMaxKm > dc.LargestDiameterKm {
			dc.LargestDiameterKm = o.DiameterMaxKm
		}
		if o.Hazardous {
			dc.HazardousCount++
		}
	}

	dc.Insights = e.insights(dc)
	return dc, nil
}

// SummarizeRange summarizes every date in [start, end] inclusive with
// bounded parallelism. Results come back ordered by date ascending; one
// date's degradation never aborts the remaining dates.
func (e *Engine) SummarizeRange(ctx context.Context, start, end time.Time) ([]DateCorrelation, error) {
	const op = "engine.SummarizeRange"

	if err := dateutil.ValidateRange(op, start, end, e.cfg.MaxRangeDays); err != nil {
		return nil, err
	}

	days := dateutil.Days(start, end)
	results := make([]DateCorrelation, len(days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for i, date := range days {
		g.Go(func() error {
			dc, err := e.SummarizeDate(gctx, date)
			if err != nil {
				// SummarizeDate only errors on cancellation.
				return err
			}
			results[i] = dc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apierror.E(apierror.KindCancelled, op, err)
	}
	return results, nil
}

// CompareAsteroidToRover relates an asteroid's maximum estimated diameter
// to a rover's body length from the fixed reference table.
func (e *Engine) CompareAsteroidToRover(ctx context.Context, asteroidID, roverName string) (ScaleComparison, error) {
	const op = "engine.CompareAsteroidToRover"

	info, ok := e.registry.Lookup(roverName)
	if !ok {
		return ScaleComparison{}, apierror.Errorf(apierror.KindInvalidArgument, op,
			"unknown rover %q", roverName)
	}

	obj, err := e.objects.GetByID(ctx, asteroidID)
	if err != nil {
		return ScaleComparison{}, err
	}

	diameterM := obj.DiameterMaxKm * 1000
	ratio := diameterM / info.Dimensions.LengthM

	return ScaleComparison{
		AsteroidID:   obj.ID,
		AsteroidName: obj.Name,
		DiameterM:    diameterM,
		Rover:        info.Name,
		RoverLengthM: info.Dimensions.LengthM,
		Ratio:        ratio,
		Text: fmt.Sprintf("%s is about %.1f m across, roughly %.1f times the length of the %s rover (%.1f m)",
			obj.Name, diameterM, ratio, info.DisplayName, info.Dimensions.LengthM),
	}, nil
}

// AnalyzeDanger scores an already-fetched object. Pure: no I/O, identical
// input always yields the identical assessment.
func (e *Engine) AnalyzeDanger(obj neo.Object) (threat.Assessment, error) {
	const op = "engine.AnalyzeDanger"

	closest, ok := obj.ClosestApproach()
	if !ok {
		return threat.Assessment{}, apierror.Errorf(apierror.KindInvalidArgument, op,
			"object %s carries no close approach data", obj.ID)
	}
	return threat.Score(obj.DiameterMaxKm, closest.VelocityKmS, closest.MissDistanceKm, obj.Hazardous), nil
}

// insights derives short narrative facts from a completed join.
func (e *Engine) insights(dc DateCorrelation) []string {
	var out []string
	date := dateutil.Format(dc.Date)

	if dc.Imagery != nil && len(dc.Objects) > 0 {
		out = append(out, fmt.Sprintf(
			"On %s, %d asteroids approached Earth while the daily image featured: %s",
			date, len(dc.Objects), dc.Imagery.Title))
	}
	if dc.HazardousCount > 0 {
		out = append(out, fmt.Sprintf(
			"%d of the approaching objects were flagged potentially hazardous", dc.HazardousCount))
	}
	if len(dc.Photos) > 0 {
		byRover := make(map[string]int)
		for _, p := range dc.Photos {
			byRover[p.Rover]++
		}
		for _, name := range e.registry.Names() {
			if n := byRover[name]; n > 0 {
				out = append(out, fmt.Sprintf("%s captured %d photos on this Earth date", name, n))
			}
		}
	}
	return out
}
