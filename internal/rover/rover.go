// Package rover adapts NASA's Mars Rover Photos API into typed photo and
// mission-status records for the rovers in the static registry.
package rover

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/dateutil"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/nasaapi"
)

// Provider is the rate-limit budget key for this API.
const Provider = "marsrover"

const basePath = "/mars-photos/api/v1/rovers"

const defaultPhotoCount = 25

// Photo is one normalized rover photo. Identity key: ID.
type Photo struct {
	ID             int       `json:"id"`
	Rover          string    `json:"rover"`
	Sol            int       `json:"sol"`
	EarthDate      time.Time `json:"earth_date"`
	Camera         string    `json:"camera"`
	CameraFullName string    `json:"camera_full_name"`
	ImgURL         string    `json:"img_src"`
}

// Status is the normalized mission status for one rover.
type Status struct {
	Rover               string     `json:"rover"`
	LaunchDate          time.Time  `json:"launch_date"`
	LandingDate         time.Time  `json:"landing_date"`
	Status              string     `json:"status"` // active|complete
	MaxSol              int        `json:"max_sol"`
	MaxDate             time.Time  `json:"max_date"`
	TotalPhotos         int        `json:"total_photos"`
	MissionDurationDays int        `json:"mission_duration_days"`
	Cameras             []string   `json:"cameras"`
	Dimensions          Dimensions `json:"dimensions"`
}

// Comparison is the joined mission comparison across all known rovers,
// always in canonical rover-name order.
type Comparison struct {
	Rovers             []Status `json:"rovers"`
	ActiveRovers       []string `json:"active_rovers"`
	TotalPhotos        int      `json:"total_photos"`
	LongestMissionDays int      `json:"longest_mission_days"`
	Warnings           []string `json:"warnings,omitempty"`
}

// Adapter queries the Mars Rover Photos API through the shared client.
type Adapter struct {
	client   *nasaapi.Client
	registry *Registry
	logger   *slog.Logger
}

// NewAdapter creates an Adapter over the given rover registry.
func NewAdapter(client *nasaapi.Client, registry *Registry, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, registry: registry, logger: logger}
}

// Registry exposes the static rover registry for callers that need the
// reference table (e.g. scale comparisons).
func (a *Adapter) Registry() *Registry {
	return a.registry
}

// GetLatest returns the most recent photos from a rover, capped at count
// (default 25).
func (a *Adapter) GetLatest(ctx context.Context, rover string, count int) ([]Photo, error) {
	const op = "rover.GetLatest"

	info, err := a.lookupRover(op, rover)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = defaultPhotoCount
	}

	var raw struct {
		LatestPhotos []rawPhoto `json:"latest_photos"`
	}
	if err := a.client.GetJSON(ctx, Provider, basePath+"/"+info.Name+"/latest_photos", nil, &raw); err != nil {
		return nil, err
	}

	photos, err := normalizePhotos(op, info.Name, raw.LatestPhotos)
	if err != nil {
		return nil, err
	}
	if len(photos) > count {
		photos = photos[:count]
	}
	return photos, nil
}

// GetByEarthDate returns photos taken on the given Earth date. An optional
// camera narrows the query; camera validity is rover-specific.
func (a *Adapter) GetByEarthDate(ctx context.Context, rover string, date time.Time, camera string) ([]Photo, error) {
	const op = "rover.GetByEarthDate"

	info, err := a.lookupRover(op, rover)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("earth_date", dateutil.Format(date))
	if camera != "" {
		if !info.ValidCamera(camera) {
			return nil, a.unknownCamera(op, info, camera)
		}
		q.Set("camera", strings.ToUpper(camera))
	}

	return a.fetchPhotos(ctx, op, info.Name, q)
}

// GetBySol returns photos taken on the given Martian sol.
func (a *Adapter) GetBySol(ctx context.Context, rover string, sol int, camera string) ([]Photo, error) {
	const op = "rover.GetBySol"

	info, err := a.lookupRover(op, rover)
	if err != nil {
		return nil, err
	}
	if sol < 0 {
		return nil, apierror.Errorf(apierror.KindInvalidArgument, op, "sol %d must be >= 0", sol)
	}

	q := url.Values{}
	q.Set("sol", strconv.Itoa(sol))
	if camera != "" {
		if !info.ValidCamera(camera) {
			return nil, a.unknownCamera(op, info, camera)
		}
		q.Set("camera", strings.ToUpper(camera))
	}

	return a.fetchPhotos(ctx, op, info.Name, q)
}

// GetByCamera returns the most recent photos from one camera, capped at
// count (default 25).
func (a *Adapter) GetByCamera(ctx context.Context, rover, camera string, count int) ([]Photo, error) {
	const op = "rover.GetByCamera"

	info, err := a.lookupRover(op, rover)
	if err != nil {
		return nil, err
	}
	if !info.ValidCamera(camera) {
		return nil, a.unknownCamera(op, info, camera)
	}
	if count <= 0 {
		count = defaultPhotoCount
	}

	// The latest_photos endpoint has no camera filter; fetch broadly and
	// filter locally, as the upstream API requires.
	latest, err := a.GetLatest(ctx, rover, 100)
	if err != nil {
		return nil, err
	}

	camera = strings.ToUpper(camera)
	var filtered []Photo
	for _, p := range latest {
		if p.Camera == camera {
			filtered = append(filtered, p)
			if len(filtered) == count {
				break
			}
		}
	}
	return filtered, nil
}

// GetStatus returns the normalized mission status for one rover.
func (a *Adapter) GetStatus(ctx context.Context, rover string) (Status, error) {
	const op = "rover.GetStatus"

	info, err := a.lookupRover(op, rover)
	if err != nil {
		return Status{}, err
	}

	var raw struct {
		Rover rawRoverInfo `json:"rover"`
	}
	if err := a.client.GetJSON(ctx, Provider, basePath+"/"+info.Name, nil, &raw); err != nil {
		return Status{}, err
	}
	return normalizeStatus(op, info, raw.Rover)
}

// CompareRovers fetches mission status for every known rover concurrently
// and joins the results in canonical alphabetical order, independent of
// completion order. A rover whose fetch fails becomes a warning, not a
// failure of the whole comparison.
func (a *Adapter) CompareRovers(ctx context.Context) (Comparison, error) {
	const op = "rover.CompareRovers"

	names := a.registry.Names()
	statuses := make([]*Status, len(names))
	errs := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			st, err := a.GetStatus(gctx, name)
			if err != nil {
				errs[i] = err
				return nil // per-rover failure degrades, it does not abort
			}
			statuses[i] = &st
			return nil
		})
	}
	// Closures only ever return nil; Wait is the join barrier.
	_ = g.Wait()

	if ctx.Err() != nil {
		return Comparison{}, apierror.E(apierror.KindCancelled, op, ctx.Err())
	}

	var cmp Comparison
	for i, name := range names {
		if errs[i] != nil {
			cmp.Warnings = append(cmp.Warnings, name+": "+errs[i].Error())
			continue
		}
		st := *statuses[i]
		cmp.Rovers = append(cmp.Rovers, st)
		cmp.TotalPhotos += st.TotalPhotos
		if st.Status == "active" {
			cmp.ActiveRovers = append(cmp.ActiveRovers, st.Rover)
		}
		if st.MissionDurationDays > cmp.LongestMissionDays {
			cmp.LongestMissionDays = st.MissionDurationDays
		}
	}
	return cmp, nil
}

func (a *Adapter) fetchPhotos(ctx context.Context, op, rover string, q url.Values) ([]Photo, error) {
	var raw struct {
		Photos []rawPhoto `json:"photos"`
	}
	if err := a.client.GetJSON(ctx, Provider, basePath+"/"+rover+"/photos", q, &raw); err != nil {
		return nil, err
	}
	return normalizePhotos(op, rover, raw.Photos)
}

func (a *Adapter) lookupRover(op, name string) (Info, error) {
	info, ok := a.registry.Lookup(name)
	if !ok {
		return Info{}, apierror.Errorf(apierror.KindInvalidArgument, op,
			"unknown rover %q, known rovers: %s", name, strings.Join(a.registry.Names(), ", "))
	}
	return info, nil
}

func (a *Adapter) unknownCamera(op string, info Info, camera string) error {
	return apierror.Errorf(apierror.KindInvalidArgument, op,
		"camera %q is not valid for %s, valid cameras: %s",
		camera, info.DisplayName, strings.Join(info.Cameras, ", "))
}

// Upstream wire shapes.

type rawPhoto struct {
	ID     int `json:"id"`
	Sol    int `json:"sol"`
	Camera struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"camera"`
	ImgSrc    string `json:"img_src"`
	EarthDate string `json:"earth_date"`
}

type rawRoverInfo struct {
	Name        string `json:"name"`
	LaunchDate  string `json:"launch_date"`
	LandingDate string `json:"landing_date"`
	Status      string `json:"status"`
	MaxSol      int    `json:"max_sol"`
	MaxDate     string `json:"max_date"`
	TotalPhotos int    `json:"total_photos"`
}

func normalizePhotos(op, rover string, raws []rawPhoto) ([]Photo, error) {
	photos := make([]Photo, 0, len(raws))
	for _, rp := range raws {
		if rp.ID == 0 || rp.ImgSrc == "" {
			return nil, apierror.Errorf(apierror.KindUpstreamRejected, op,
				"photo entry missing id or image URL")
		}
		date, err := dateutil.Parse(op, rp.EarthDate)
		if err != nil {
			return nil, apierror.Errorf(apierror.KindUpstreamRejected, op,
				"photo %d carries invalid earth date %q", rp.ID, rp.EarthDate)
		}
		photos = append(photos, Photo{
			ID:             rp.ID,
			Rover:          rover,
			Sol:            rp.Sol,
			EarthDate:      date,
			Camera:         rp.Camera.Name,
			CameraFullName: rp.Camera.FullName,
			ImgURL:         rp.ImgSrc,
		})
	}
	// Deterministic order whatever the upstream returned.
	sort.Slice(photos, func(i, j int) bool { return photos[i].ID < photos[j].ID })
	return photos, nil
}

func normalizeStatus(op string, info Info, raw rawRoverInfo) (Status, error) {
	if raw.Status != "active" && raw.Status != "complete" {
		return Status{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"rover %s carries unknown status %q", info.Name, raw.Status)
	}
	launch, err := dateutil.Parse(op, raw.LaunchDate)
	if err != nil {
		return Status{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"rover %s carries invalid launch date %q", info.Name, raw.LaunchDate)
	}
	landing, err := dateutil.Parse(op, raw.LandingDate)
	if err != nil {
		return Status{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
			"rover %s carries invalid landing date %q", info.Name, raw.LandingDate)
	}

	var maxDate time.Time
	if raw.MaxDate != "" {
		maxDate, err = dateutil.Parse(op, raw.MaxDate)
		if err != nil {
			return Status{}, apierror.Errorf(apierror.KindUpstreamRejected, op,
				"rover %s carries invalid max date %q", info.Name, raw.MaxDate)
		}
	}

	duration := 0
	switch {
	case raw.Status == "active":
		duration = dateutil.SpanDays(landing, time.Now().UTC())
	case !maxDate.IsZero():
		duration = dateutil.SpanDays(landing, maxDate)
	}

	return Status{
		Rover:               info.Name,
		LaunchDate:          launch,
		LandingDate:         landing,
		Status:              raw.Status,
		MaxSol:              raw.MaxSol,
		MaxDate:             maxDate,
		TotalPhotos:         raw.TotalPhotos,
		MissionDurationDays: duration,
		Cameras:             info.Cameras,
		Dimensions:          info.Dimensions,
	}, nil
}
