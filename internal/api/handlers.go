package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/dateutil"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/rover"
)

type handlers struct {
	src    Sources
	logger *slog.Logger
}

// statusForKind maps error kinds to HTTP status codes. Caller mistakes are
// 400s; upstream trouble surfaces as a gateway error so clients can tell
// whose fault it was.
func statusForKind(kind apierror.Kind) int {
	switch kind {
	case apierror.KindInvalidArgument, apierror.KindRangeTooLarge:
		return http.StatusBadRequest
	case apierror.KindUpstreamRejected:
		return http.StatusBadGateway
	case apierror.KindUpstreamTransient, apierror.KindCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apierror.KindOf(err)
	status := statusForKind(kind)
	if status >= 500 {
		h.logger.Error("request failed", "path", r.URL.Path, "kind", kind.String(), "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}

// queryDate reads a YYYY-MM-DD query parameter. Missing is not an error;
// the caller decides the default.
func queryDate(r *http.Request, name string) (time.Time, bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err := dateutil.Parse("api."+name, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// queryRange reads required start and end parameters.
func queryRange(r *http.Request) (time.Time, time.Time, error) {
	start, ok, err := queryDate(r, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		return time.Time{}, time.Time{}, apierror.Errorf(apierror.KindInvalidArgument, "api.range", "start is required")
	}
	end, ok, err := queryDate(r, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !ok {
		return time.Time{}, time.Time{}, apierror.Errorf(apierror.KindInvalidArgument, "api.range", "end is required")
	}
	return start, end, nil
}

func (h *handlers) apodByDate(w http.ResponseWriter, r *http.Request) {
	date, ok, err := queryDate(r, "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var rec any
	if ok {
		rec, err = h.src.APOD.GetByDate(r.Context(), date)
	} else {
		rec, err = h.src.APOD.GetToday(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) apodRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := queryRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	records, err := h.src.APOD.GetRange(r.Context(), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(records), "records": records})
}

func (h *handlers) neoFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start") == "" && q.Get("end") == "" {
		objects, err := h.src.NEO.GetWeek(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(objects), "objects": objects})
		return
	}

	start, end, err := queryRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	objects, err := h.src.NEO.GetByDateRange(r.Context(), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(objects), "objects": objects})
}

func (h *handlers) neoHazardous(w http.ResponseWriter, r *http.Request) {
	start, end, err := queryRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	objects, err := h.src.NEO.GetHazardous(r.Context(), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(objects), "objects": objects})
}

func (h *handlers) neoLargest(w http.ResponseWriter, r *http.Request) {
	start, end, err := queryRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	obj, err := h.src.NEO.GetLargestInRange(r.Context(), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (h *handlers) neoByID(w http.ResponseWriter, r *http.Request) {
	obj, err := h.src.NEO.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (h *handlers) neoDanger(w http.ResponseWriter, r *http.Request) {
	report, err := h.src.NEO.AnalyzeDanger(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) roverInfo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("rover")
	info, ok := h.src.Rovers.Registry().Lookup(name)
	if !ok {
		h.writeError(w, r, apierror.Errorf(apierror.KindInvalidArgument, "api.roverInfo", "unknown rover %q", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         info.Name,
		"display_name": info.DisplayName,
		"cameras":      info.Cameras,
		"dimensions":   info.Dimensions,
	})
}

func (h *handlers) roverPhotos(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("rover")
	q := r.URL.Query()
	camera := q.Get("camera")

	var (
		photos []rover.Photo
		err    error
	)
	switch {
	case q.Get("earth_date") != "":
		var date time.Time
		date, _, err = queryDate(r, "earth_date")
		if err == nil {
			photos, err = h.src.Rovers.GetByEarthDate(r.Context(), name, date, camera)
		}
	case q.Get("sol") != "":
		var sol int
		sol, err = strconv.Atoi(q.Get("sol"))
		if err != nil {
			err = apierror.Errorf(apierror.KindInvalidArgument, "api.roverPhotos", "sol must be an integer")
		} else {
			photos, err = h.src.Rovers.GetBySol(r.Context(), name, sol, camera)
		}
	case camera != "":
		// Camera alone means the most recent photos from that camera.
		photos, err = h.src.Rovers.GetByCamera(r.Context(), name, camera, 0)
	default:
		err = apierror.Errorf(apierror.KindInvalidArgument, "api.roverPhotos", "earth_date, sol, or camera is required")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(photos), "photos": photos})
}

func (h *handlers) roverLatest(w http.ResponseWriter, r *http.Request) {
	count := 25
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, r, apierror.Errorf(apierror.KindInvalidArgument, "api.roverLatest", "count must be a positive integer"))
			return
		}
		count = n
	}
	photos, err := h.src.Rovers.GetLatest(r.Context(), r.PathValue("rover"), count)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(photos), "photos": photos})
}

func (h *handlers) roverStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.src.Rovers.GetStatus(r.Context(), r.PathValue("rover"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handlers) roversCompare(w http.ResponseWriter, r *http.Request) {
	cmp, err := h.src.Rovers.CompareRovers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (h *handlers) correlate(w http.ResponseWriter, r *http.Request) {
	date, ok, err := queryDate(r, "date")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}
	dc, err := h.src.Engine.SummarizeDate(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dc)
}

func (h *handlers) correlateRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := queryRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summaries, err := h.src.Engine.SummarizeRange(r.Context(), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(summaries), "summaries": summaries})
}

func (h *handlers) compareScale(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("asteroid_id")
	name := q.Get("rover")
	if id == "" || name == "" {
		h.writeError(w, r, apierror.Errorf(apierror.KindInvalidArgument, "api.compareScale", "asteroid_id and rover are required"))
		return
	}
	cmp, err := h.src.Engine.CompareAsteroidToRover(r.Context(), id, name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}
