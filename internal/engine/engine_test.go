package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apod"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/neo"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/rover"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	testDate   = time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC)
	testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
)

type stubImagery struct {
	rec   apod.Record
	err   error
	delay time.Duration
}

func (s *stubImagery) GetByDate(ctx context.Context, date time.Time) (apod.Record, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return apod.Record{}, ctx.Err()
		}
	}
	if s.err != nil {
		return apod.Record{}, s.err
	}
	return s.rec, nil
}

type stubObjects struct {
	objects []neo.Object
	byID    map[string]neo.Object
	err     error
}

func (s *stubObjects) GetByDateRange(ctx context.Context, start, end time.Time) ([]neo.Object, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.objects, nil
}

func (s *stubObjects) GetByID(ctx context.Context, id string) (neo.Object, error) {
	if s.err != nil {
		return neo.Object{}, s.err
	}
	o, ok := s.byID[id]
	if !ok {
		return neo.Object{}, apierror.Errorf(apierror.KindUpstreamRejected, "neo.GetByID", "object %s not found", id)
	}
	return o, nil
}

type stubPhotos struct {
	photos map[string][]rover.Photo
	errs   map[string]error
	delays map[string]time.Duration
}

func (s *stubPhotos) GetByEarthDate(ctx context.Context, name string, date time.Time, camera string) ([]rover.Photo, error) {
	if d := s.delays[name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.errs[name]; err != nil {
		return nil, err
	}
	return s.photos[name], nil
}

func testObjects() []neo.Object {
	return []neo.Object{
		{
			ID: "3001", Name: "(2023 AA)", DiameterMaxKm: 0.5, Hazardous: false,
			Approaches: []neo.Approach{{Date: testDate, VelocityKmS: 12, MissDistanceKm: 5e6}},
		},
		{
			ID: "3002", Name: "(2023 BB)", DiameterMaxKm: 1.2, Hazardous: true,
			Approaches: []neo.Approach{{Date: testDate, VelocityKmS: 25, MissDistanceKm: 1e6}},
		},
	}
}

func testPhoto(id int, name string) rover.Photo {
	return rover.Photo{
		ID: id, Rover: name, Sol: 3500, EarthDate: testDate,
		Camera: "NAVCAM", ImgURL: fmt.Sprintf("https://mars.nasa.gov/%s/%d.jpg", name, id),
	}
}

func newTestEngine(img ImagerySource, obj ObjectSource, ph PhotoSource) *Engine {
	return New(img, obj, ph, rover.NewRegistry(nil), Config{}, testLogger)
}

func TestSummarizeDateJoinsAllSources(t *testing.T) {
	img := &stubImagery{rec: apod.Record{Date: testDate, Title: "Fireworks Nebula", MediaType: apod.MediaImage}}
	obj := &stubObjects{objects: testObjects()}
	ph := &stubPhotos{photos: map[string][]rover.Photo{
		"curiosity": {testPhoto(101, "curiosity"), testPhoto(102, "curiosity")},
		"spirit":    {testPhoto(301, "spirit")},
	}}

	dc, err := newTestEngine(img, obj, ph).SummarizeDate(context.Background(), testDate)
	require.NoError(t, err)

	require.NotNil(t, dc.Imagery)
	assert.Equal(t, "Fireworks Nebula", dc.Imagery.Title)
	assert.Len(t, dc.Objects, 2)
	assert.Len(t, dc.Photos, 3)
	assert.Equal(t, 1.2, dc.LargestDiameterKm)
	assert.Equal(t, 1, dc.HazardousCount)
	assert.Empty(t, dc.Warnings)
	assert.NotEmpty(t, dc.Insights)
}

func TestSummarizeDateDegradesWhenImageryFails(t *testing.T) {
	img := &stubImagery{err: apierror.Errorf(apierror.KindUpstreamTransient, "apod.GetByDate", "upstream gave 503")}
	obj := &stubObjects{objects: testObjects()}
	ph := &stubPhotos{photos: map[string][]rover.Photo{
		"curiosity": {testPhoto(101, "curiosity")},
	}}

	dc, err := newTestEngine(img, obj, ph).SummarizeDate(context.Background(), testDate)
	require.NoError(t, err)

	assert.Nil(t, dc.Imagery)
	assert.Len(t, dc.Objects, 2)
	assert.Len(t, dc.Photos, 1)
	require.Len(t, dc.Warnings, 1)
	assert.Equal(t, SourceImagery, dc.Warnings[0].Source)
	assert.Contains(t, dc.Warnings[0].Message, "503")
}

func TestSummarizeDateWarnsPerFailedRover(t *testing.T) {
	img := &stubImagery{rec: apod.Record{Date: testDate, Title: "Quiet Sky", MediaType: apod.MediaImage}}
	obj := &stubObjects{}
	ph := &stubPhotos{
		photos: map[string][]rover.Photo{"curiosity": {testPhoto(101, "curiosity")}},
		errs:   map[string]error{"opportunity": errors.New("upstream gave 500")},
	}

	dc, err := newTestEngine(img, obj, ph).SummarizeDate(context.Background(), testDate)
	require.NoError(t, err)

	assert.Len(t, dc.Photos, 1)
	require.Len(t, dc.Warnings, 1)
	assert.Equal(t, SourceRover+":opportunity", dc.Warnings[0].Source)
}

func TestSummarizeDatePhotoOrderIgnoresCompletionOrder(t *testing.T) {
	img := &stubImagery{rec: apod.Record{Date: testDate, Title: "t", MediaType: apod.MediaImage}}
	obj := &stubObjects{}
	// Curiosity answers last but its photos still come first.
	ph := &stubPhotos{
		photos: map[string][]rover.Photo{
			"curiosity":   {testPhoto(101, "curiosity")},
			"opportunity": {testPhoto(201, "opportunity")},
			"spirit":      {testPhoto(301, "spirit")},
		},
		delays: map[string]time.Duration{"curiosity": 120 * time.Millisecond},
	}

	dc, err := newTestEngine(img, obj, ph).SummarizeDate(context.Background(), testDate)
	require.NoError(t, err)

	var order []string
	for _, p := range dc.Photos {
		order = append(order, p.Rover)
	}
	assert.Equal(t, []string{"curiosity", "opportunity", "spirit"}, order)
}

func TestSummarizeDateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img := &stubImagery{delay: time.Second}
	e := newTestEngine(img, &stubObjects{}, &stubPhotos{})

	_, err := e.SummarizeDate(ctx, testDate)
	require.Error(t, err)
	assert.Equal(t, apierror.KindCancelled, apierror.KindOf(err))
}

func TestSummarizeRangeOrderedAndTolerant(t *testing.T) {
	// Imagery fails for every date; the range still completes.
	img := &stubImagery{err: errors.New("upstream gave 502")}
	obj := &stubObjects{objects: testObjects()}
	ph := &stubPhotos{}

	start := testDate
	end := testDate.AddDate(0, 0, 4)

	results, err := newTestEngine(img, obj, ph).SummarizeRange(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, dc := range results {
		assert.Equal(t, start.AddDate(0, 0, i), dc.Date)
		assert.Len(t, dc.Objects, 2)
		require.NotEmpty(t, dc.Warnings)
		assert.Equal(t, SourceImagery, dc.Warnings[0].Source)
	}
}

func TestSummarizeRangeValidation(t *testing.T) {
	e := newTestEngine(&stubImagery{}, &stubObjects{}, &stubPhotos{})

	_, err := e.SummarizeRange(context.Background(), testDate, testDate.AddDate(0, 0, -1))
	assert.Equal(t, apierror.KindInvalidArgument, apierror.KindOf(err))

	_, err = e.SummarizeRange(context.Background(), testDate, testDate.AddDate(0, 0, 60))
	assert.Equal(t, apierror.KindRangeTooLarge, apierror.KindOf(err))
}

func TestCompareAsteroidToRover(t *testing.T) {
	obj := &stubObjects{byID: map[string]neo.Object{
		"3002": {ID: "3002", Name: "(2023 BB)", DiameterMaxKm: 0.029},
	}}
	e := newTestEngine(&stubImagery{}, obj, &stubPhotos{})

	cmp, err := e.CompareAsteroidToRover(context.Background(), "3002", "curiosity")
	require.NoError(t, err)

	assert.InDelta(t, 29.0, cmp.DiameterM, 1e-9)
	assert.InDelta(t, 10.0, cmp.Ratio, 1e-9) // 29 m over Curiosity's 2.9 m
	assert.Contains(t, cmp.Text, "Curiosity")
	assert.Contains(t, cmp.Text, "10.0 times")

	_, err = e.CompareAsteroidToRover(context.Background(), "3002", "sojourner")
	assert.Equal(t, apierror.KindInvalidArgument, apierror.KindOf(err))
}

func TestAnalyzeDangerIsPure(t *testing.T) {
	e := newTestEngine(&stubImagery{}, &stubObjects{}, &stubPhotos{})
	obj := testObjects()[1]

	first, err := e.AnalyzeDanger(obj)
	require.NoError(t, err)
	second, err := e.AnalyzeDanger(obj)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = e.AnalyzeDanger(neo.Object{ID: "9999"})
	assert.Equal(t, apierror.KindInvalidArgument, apierror.KindOf(err))
}
