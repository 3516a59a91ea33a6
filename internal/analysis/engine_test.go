package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbemaps/geofence/internal/area"
	"github.com/urbemaps/geofence/internal/model"
	"github.com/urbemaps/geofence/internal/storage"
)

func squareArea(slug, agency string) model.Area {
	return model.Area{
		Name:      "Square " + slug,
		Slug:      slug,
		Agency:    agency,
		Relevance: 5,
		Polygons: []model.RawPolygon{{
			Type: "Polygon",
			Coordinates: [][][]float64{{
				{-46.640, -23.550},
				{-46.620, -23.550},
				{-46.620, -23.560},
				{-46.640, -23.560},
			}},
		}},
	}
}

func newTestEngine(t *testing.T, areas ...model.Area) *Engine {
	t.Helper()
	st := storage.NewMemoryStore()
	seed := make(map[string]model.Area, len(areas))
	for _, a := range areas {
		seed[a.Slug] = a
	}
	st.Seed(seed)
	return NewEngine(area.NewRepository(st))
}

func TestAnalyze_PointInside(t *testing.T) {
	e := newTestEngine(t, squareArea("downtown", "City Hall"))

	results, errs, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.555, Lng: -46.630}, []string{"downtown"}, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "downtown", r.Slug)
	assert.Equal(t, "Square downtown", r.Name)
	assert.True(t, r.IsIn)
	assert.Zero(t, r.NearestBorderDistanceMeters)
	assert.Equal(t, "City Hall", r.Agency)
	assert.Equal(t, 5, r.Relevance)
}

func TestAnalyze_PointOutsideHasDistance(t *testing.T) {
	e := newTestEngine(t, squareArea("downtown", "City Hall"))

	results, errs, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.540, Lng: -46.630}, []string{"downtown"}, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, results, 1)

	assert.False(t, results[0].IsIn)
	assert.InDelta(t, 1112.0, results[0].NearestBorderDistanceMeters, 2.0)
}

func TestAnalyze_EmptyRequest(t *testing.T) {
	e := newTestEngine(t)
	_, _, err := e.Analyze(context.Background(), model.Point{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAnalyze_MissingSlugCollectedNotFatal(t *testing.T) {
	e := newTestEngine(t)

	results, errs, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.555, Lng: -46.630}, []string{"missing"}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, []string{"Area 'missing' not found."}, errs)
}

func TestAnalyze_PartialSuccess(t *testing.T) {
	e := newTestEngine(t, squareArea("downtown", "City Hall"))

	results, errs, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.555, Lng: -46.630},
		[]string{"downtown", "ghost_area"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "downtown", results[0].Slug)
	assert.Equal(t, []string{"Area 'ghost_area' not found."}, errs)
}

func TestAnalyze_CandidateOrderPreserved(t *testing.T) {
	e := newTestEngine(t,
		squareArea("a", "Agency One"),
		squareArea("b", "Agency One"),
		squareArea("c", "Agency Two"),
	)

	results, errs, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.555, Lng: -46.630},
		[]string{"c", "a", "b"}, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, results, 3)
	assert.Equal(t, "c", results[0].Slug)
	assert.Equal(t, "a", results[1].Slug)
	assert.Equal(t, "b", results[2].Slug)
}

func TestAnalyze_AgencyResolution(t *testing.T) {
	e := newTestEngine(t,
		squareArea("a", "City Hall"),
		squareArea("b", "Fire Dept"),
	)

	results, errs, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.555, Lng: -46.630}, nil, []string{"city hall"})
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Slug)
}

func TestAnalyze_DedupeKeepsFirstOccurrence(t *testing.T) {
	e := newTestEngine(t, squareArea("a", "City Hall"))

	// "a" is requested directly and also matches the agency filter.
	results, errs, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.555, Lng: -46.630},
		[]string{"a", "a"}, []string{"City Hall"})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Len(t, results, 1)
}

func TestAnalyze_BackwardCompatibleDefaults(t *testing.T) {
	a := squareArea("legacy_area", "")
	a.Name = ""
	a.Relevance = 0
	e := newTestEngine(t, a)

	results, _, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.555, Lng: -46.630}, []string{"legacy_area"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Agency)
	assert.Equal(t, 1, results[0].Relevance)
}

func TestAnalyze_HydrationFailureAborts(t *testing.T) {
	st := storage.NewMemoryStore()
	st.FailLoads(assert.AnError)
	e := NewEngine(area.NewRepository(st))

	_, _, err := e.Analyze(context.Background(),
		model.Point{Lat: -23.555, Lng: -46.630}, []string{"downtown"}, nil)
	require.Error(t, err)
}
