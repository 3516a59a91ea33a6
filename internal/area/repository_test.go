package area

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbemaps/geofence/internal/geometry"
	"github.com/urbemaps/geofence/internal/model"
	"github.com/urbemaps/geofence/internal/storage"
)

func squareArea(slug string) model.Area {
	return model.Area{
		Name:      "Test Area",
		Slug:      slug,
		Agency:    "City Hall",
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

func newTestRepo(t *testing.T) (*Repository, *storage.MemoryStore) {
	t.Helper()
	st := storage.NewMemoryStore()
	return NewRepository(st), st
}

func TestUpsertAndGet(t *testing.T) {
	repo, st := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, squareArea("downtown")))

	rec, ok, err := repo.GetRaw(ctx, "downtown")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Test Area", rec.Name)

	g, ok, err := repo.GetGeometry(ctx, "downtown")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, g.Contains(geometry.Position{Lng: -46.630, Lat: -23.555}))

	assert.Equal(t, 1, st.SaveCount())
}

func TestGet_UnknownSlugIsAbsentNotError(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, ok, err := repo.GetRaw(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.GetGeometry(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsert_InvalidGeometryLeavesStateUntouched(t *testing.T) {
	repo, st := newTestRepo(t)
	ctx := context.Background()

	bad := squareArea("broken")
	bad.Polygons = []model.RawPolygon{{Coordinates: [][][]float64{{{-200, 0}, {0, 0}, {1, 1}, {-200, 0}}}}}

	err := repo.Upsert(ctx, bad)
	require.Error(t, err)
	assert.True(t, eris.Is(err, geometry.ErrInvalidGeometry))

	_, ok, err := repo.GetRaw(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, st.SaveCount())
}

func TestHydration_LoadsRecordsAndGeometries(t *testing.T) {
	st := storage.NewMemoryStore()
	st.Seed(map[string]model.Area{"downtown": squareArea("downtown")})
	repo := NewRepository(st)
	ctx := context.Background()

	g, ok, err := repo.GetGeometry(ctx, "downtown")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, g.Contains(geometry.Position{Lng: -46.630, Lat: -23.555}))
}

func TestHydration_Idempotent(t *testing.T) {
	st := storage.NewMemoryStore()
	st.Seed(map[string]model.Area{"downtown": squareArea("downtown")})
	repo := NewRepository(st)
	ctx := context.Background()

	require.NoError(t, repo.EnsureHydrated(ctx))
	first, err := repo.List(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.EnsureHydrated(ctx))
	second, err := repo.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHydration_LoadFailureIsFatalThenRetries(t *testing.T) {
	st := storage.NewMemoryStore()
	st.Seed(map[string]model.Area{"downtown": squareArea("downtown")})
	st.FailLoads(eris.New("storage unreachable"))
	repo := NewRepository(st)
	ctx := context.Background()

	_, _, err := repo.GetRaw(ctx, "downtown")
	require.Error(t, err)

	// Once storage recovers, the next call hydrates.
	st.FailLoads(nil)
	rec, ok, err := repo.GetRaw(ctx, "downtown")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "downtown", rec.Slug)
}

func TestHydration_UnbuildableRecordIsFatal(t *testing.T) {
	st := storage.NewMemoryStore()
	st.Seed(map[string]model.Area{
		"broken": {Name: "Broken", Slug: "broken", Polygons: []model.RawPolygon{{}}},
	})
	repo := NewRepository(st)

	err := repo.EnsureHydrated(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, geometry.ErrInvalidGeometry))
}

func TestPatch_MergesProvidedFieldsOnly(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, squareArea("downtown")))

	name := "Renamed Area"
	merged, err := repo.Patch(ctx, "downtown", model.AreaPatch{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Renamed Area", merged.Name)
	assert.Equal(t, "downtown", merged.Slug)
	assert.Equal(t, "City Hall", merged.Agency)
	assert.Equal(t, 5, merged.Relevance)
}

func TestPatch_RenameMovesBothEntries(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, squareArea("a")))

	slug := "b"
	merged, err := repo.Patch(ctx, "a", model.AreaPatch{Slug: &slug})
	require.NoError(t, err)
	assert.Equal(t, "b", merged.Slug)

	_, ok, err := repo.GetRaw(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = repo.GetGeometry(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, ok, err := repo.GetRaw(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Test Area", rec.Name)
	_, ok, err = repo.GetGeometry(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPatch_RenameOntoExistingSlugConflicts(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, squareArea("a")))
	require.NoError(t, repo.Upsert(ctx, squareArea("b")))

	slug := "b"
	_, err := repo.Patch(ctx, "a", model.AreaPatch{Slug: &slug})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrConflict))

	// Both records survive untouched.
	_, ok, _ := repo.GetRaw(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = repo.GetRaw(ctx, "b")
	assert.True(t, ok)
}

func TestPatch_UnknownSlug(t *testing.T) {
	repo, _ := newTestRepo(t)
	name := "x"
	_, err := repo.Patch(context.Background(), "missing", model.AreaPatch{Name: &name})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestPatch_InvalidGeometryRejected(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, squareArea("downtown")))

	_, err := repo.Patch(ctx, "downtown", model.AreaPatch{
		Polygons: []model.RawPolygon{{}},
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, geometry.ErrInvalidGeometry))

	// Original polygons still in place.
	rec, ok, err := repo.GetRaw(ctx, "downtown")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, rec.Polygons[0].Coordinates)
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, squareArea("downtown")))

	existed, err := repo.Delete(ctx, "downtown")
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok, err := repo.GetRaw(ctx, "downtown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_MissingSlugLeavesStateUnchanged(t *testing.T) {
	repo, st := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, squareArea("downtown")))
	saves := st.SaveCount()

	existed, err := repo.Delete(ctx, "missing_slug")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, saves, st.SaveCount())

	_, ok, _ := repo.GetRaw(ctx, "downtown")
	assert.True(t, ok)
}

func TestPersistFailure_InMemoryStateStillAuthoritative(t *testing.T) {
	repo, st := newTestRepo(t)
	ctx := context.Background()
	st.SetReadOnly(true)

	require.NoError(t, repo.Upsert(ctx, squareArea("downtown")))

	rec, ok, err := repo.GetRaw(ctx, "downtown")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "downtown", rec.Slug)
	assert.Zero(t, st.SaveCount())
}

func TestFindByAgency(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	a := squareArea("a")
	a.Agency = "City Hall"
	b := squareArea("b")
	b.Agency = "  city hall  "
	c := squareArea("c")
	c.Agency = "Fire Dept"
	for _, area := range []model.Area{a, b, c} {
		require.NoError(t, repo.Upsert(ctx, area))
	}

	slugs, err := repo.FindByAgency(ctx, []string{"CITY HALL"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, slugs)

	slugs, err = repo.FindByAgency(ctx, []string{" fire dept "})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, slugs)

	slugs, err = repo.FindByAgency(ctx, []string{"unknown"})
	require.NoError(t, err)
	assert.Empty(t, slugs)
}

func TestList_SortedBySlug(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	for _, slug := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Upsert(ctx, squareArea(slug)))
	}

	summaries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "a", summaries[0].Slug)
	assert.Equal(t, "b", summaries[1].Slug)
	assert.Equal(t, "c", summaries[2].Slug)
	assert.Equal(t, 1, summaries[0].PolygonCount)
	assert.Equal(t, 4, summaries[0].TotalPoints)
}
