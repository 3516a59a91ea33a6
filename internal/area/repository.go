// Package area owns the mapping from slug to raw record and compiled
// geometry, keeping the two in sync across mutations and cold starts.
package area

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbemaps/geofence/internal/geometry"
	"github.com/urbemaps/geofence/internal/model"
	"github.com/urbemaps/geofence/internal/storage"
)

var (
	// ErrNotFound is returned when an operation references an unknown slug.
	ErrNotFound = eris.New("area: not found")
	// ErrConflict is returned when a rename targets an existing slug.
	ErrConflict = eris.New("area: slug already exists")
)

// Repository caches raw area records alongside their compiled geometries.
// The raw record is authoritative; a geometry is only installed after a
// successful build from the current record. One mutex serializes all access
// so the pair is never observed half-updated.
type Repository struct {
	mu       sync.Mutex
	store    storage.Store
	records  map[string]model.Area
	geoms    map[string]*geometry.Compiled
	hydrated bool
}

// NewRepository returns an unhydrated repository over the given store.
// Hydration happens lazily on first use.
func NewRepository(store storage.Store) *Repository {
	return &Repository{
		store:   store,
		records: map[string]model.Area{},
		geoms:   map[string]*geometry.Compiled{},
	}
}

// EnsureHydrated loads raw records from storage and rebuilds every compiled
// geometry in one pass. Idempotent; safe to call before any read or write.
// A load or build failure is fatal to the triggering operation and leaves
// the repository unhydrated so the next call retries.
func (r *Repository) EnsureHydrated(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hydrateLocked(ctx)
}

func (r *Repository) hydrateLocked(ctx context.Context) error {
	if r.hydrated {
		return nil
	}

	raw, err := r.store.Load(ctx)
	if err != nil {
		return eris.Wrap(err, "area: hydrate")
	}

	records := make(map[string]model.Area, len(raw))
	geoms := make(map[string]*geometry.Compiled, len(raw))
	for slug, rec := range raw {
		// A record whose geometry cannot be built would break the
		// record/geometry pairing, so it fails the whole hydration.
		g, err := geometry.Build(rec.Polygons)
		if err != nil {
			return eris.Wrapf(err, "area: hydrate %q", slug)
		}
		records[slug] = rec
		geoms[slug] = g
	}

	r.records = records
	r.geoms = geoms
	r.hydrated = true
	return nil
}

// persistLocked writes the full mapping to storage. Failures are logged and
// swallowed: on read-only media the in-memory state stays authoritative for
// the rest of the process lifetime.
func (r *Repository) persistLocked(ctx context.Context) {
	if err := r.store.Save(ctx, r.records); err != nil {
		zap.L().Warn("area: persist failed, in-memory state retained", zap.Error(err))
	}
}

// Upsert installs or replaces an area. The geometry is built before any
// state changes, so invalid input leaves the repository untouched.
func (r *Repository) Upsert(ctx context.Context, a model.Area) error {
	g, err := geometry.Build(a.Polygons)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hydrateLocked(ctx); err != nil {
		return err
	}

	r.records[a.Slug] = a
	r.geoms[a.Slug] = g
	r.persistLocked(ctx)
	return nil
}

// Patch merges the provided fields over the existing record and reinstalls
// record and geometry together. A slug change is a delete-old plus
// insert-new in the same critical section; renaming onto an existing slug
// fails with ErrConflict. Returns the merged record.
func (r *Repository) Patch(ctx context.Context, slug string, patch model.AreaPatch) (model.Area, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hydrateLocked(ctx); err != nil {
		return model.Area{}, err
	}

	existing, ok := r.records[slug]
	if !ok {
		return model.Area{}, eris.Wrapf(ErrNotFound, "area %q", slug)
	}

	merged := patch.Apply(existing)
	if merged.Slug != slug {
		if _, taken := r.records[merged.Slug]; taken {
			return model.Area{}, eris.Wrapf(ErrConflict, "area %q", merged.Slug)
		}
	}

	g, err := geometry.Build(merged.Polygons)
	if err != nil {
		return model.Area{}, err
	}

	if merged.Slug != slug {
		delete(r.records, slug)
		delete(r.geoms, slug)
	}
	r.records[merged.Slug] = merged
	r.geoms[merged.Slug] = g
	r.persistLocked(ctx)
	return merged, nil
}

// Delete removes the record and geometry together and reports whether the
// slug existed.
func (r *Repository) Delete(ctx context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hydrateLocked(ctx); err != nil {
		return false, err
	}

	if _, ok := r.records[slug]; !ok {
		return false, nil
	}
	delete(r.records, slug)
	delete(r.geoms, slug)
	r.persistLocked(ctx)
	return true, nil
}

// GetGeometry returns the compiled geometry for slug, reporting absence
// rather than failing for unknown slugs.
func (r *Repository) GetGeometry(ctx context.Context, slug string) (*geometry.Compiled, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hydrateLocked(ctx); err != nil {
		return nil, false, err
	}
	g, ok := r.geoms[slug]
	return g, ok, nil
}

// GetRaw returns the raw record for slug, reporting absence rather than
// failing for unknown slugs.
func (r *Repository) GetRaw(ctx context.Context, slug string) (model.Area, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hydrateLocked(ctx); err != nil {
		return model.Area{}, false, err
	}
	rec, ok := r.records[slug]
	return rec, ok, nil
}

// FindByAgency returns the slugs whose agency matches any of the given
// names, case-insensitively and ignoring surrounding whitespace. Order is
// unspecified; callers dedupe and order as they need.
func (r *Repository) FindByAgency(ctx context.Context, names []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hydrateLocked(ctx); err != nil {
		return nil, err
	}

	wanted := make([]string, 0, len(names))
	for _, n := range names {
		wanted = append(wanted, strings.TrimSpace(n))
	}

	var slugs []string
	for slug, rec := range r.records {
		agency := strings.TrimSpace(rec.Agency)
		for _, w := range wanted {
			if strings.EqualFold(agency, w) {
				slugs = append(slugs, slug)
				break
			}
		}
	}
	return slugs, nil
}

// List returns summaries of every stored area, ordered by slug.
func (r *Repository) List(ctx context.Context) ([]model.AreaSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hydrateLocked(ctx); err != nil {
		return nil, err
	}

	summaries := make([]model.AreaSummary, 0, len(r.records))
	for _, rec := range r.records {
		summaries = append(summaries, rec.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Slug < summaries[j].Slug })
	return summaries, nil
}
