// Package analysis answers containment and boundary-distance queries for a
// batch of areas against one target point.
package analysis

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/urbemaps/geofence/internal/area"
	"github.com/urbemaps/geofence/internal/geometry"
	"github.com/urbemaps/geofence/internal/model"
)

// ErrInvalidRequest is returned when a query names neither area slugs nor
// agency filters.
var ErrInvalidRequest = eris.New("analysis: no areas or agencies requested")

// maxParallel bounds per-area distance computations within one request.
const maxParallel = 8

// Result is the per-area outcome of an analysis. Distance is 0 whenever the
// point is inside.
type Result struct {
	Slug                        string  `json:"slug"`
	Name                        string  `json:"name"`
	IsIn                        bool    `json:"is_in"`
	NearestBorderDistanceMeters float64 `json:"nearest_border_distance_meters"`
	Agency                      string  `json:"agencia"`
	Relevance                   int     `json:"relevancia"`
}

// Engine runs analyses against a repository's compiled geometries. It holds
// no state of its own.
type Engine struct {
	repo *area.Repository
}

// NewEngine returns an engine over the given repository.
func NewEngine(repo *area.Repository) *Engine {
	return &Engine{repo: repo}
}

// Analyze checks the target point against every requested area. The
// candidate list is the requested slugs, in order, followed by agency
// matches, deduplicated keeping the first occurrence. Unknown slugs are
// collected as errors without aborting the batch; results keep candidate
// order. Per-area computations are pure with respect to their geometry
// snapshot and run concurrently.
func (e *Engine) Analyze(ctx context.Context, target model.Point, slugs, agencies []string) ([]Result, []string, error) {
	if len(slugs) == 0 && len(agencies) == 0 {
		return nil, nil, ErrInvalidRequest
	}

	candidates := append([]string{}, slugs...)
	if len(agencies) > 0 {
		matched, err := e.repo.FindByAgency(ctx, agencies)
		if err != nil {
			return nil, nil, err
		}
		candidates = append(candidates, matched...)
	}
	candidates = dedupe(candidates)

	point := geometry.Position{Lng: target.Lng, Lat: target.Lat}

	type outcome struct {
		result *Result
		errMsg string
	}
	outcomes := make([]outcome, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, slug := range candidates {
		i, slug := i, slug
		g.Go(func() error {
			compiled, ok, err := e.repo.GetGeometry(gctx, slug)
			if err != nil {
				return err
			}
			if !ok {
				outcomes[i] = outcome{errMsg: fmt.Sprintf("Area '%s' not found.", slug)}
				return nil
			}
			rec, _, err := e.repo.GetRaw(gctx, slug)
			if err != nil {
				return err
			}

			res := Result{
				Slug:      slug,
				Name:      rec.Name,
				Agency:    rec.Agency,
				Relevance: rec.Relevance,
			}
			// Records written before relevance existed default to 1.
			if res.Relevance == 0 {
				res.Relevance = 1
			}

			if compiled.Contains(point) {
				res.IsIn = true
			} else {
				res.NearestBorderDistanceMeters = compiled.NearestBoundaryDistanceMeters(point)
			}
			outcomes[i] = outcome{result: &res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	results := make([]Result, 0, len(candidates))
	var errs []string
	for _, o := range outcomes {
		if o.result != nil {
			results = append(results, *o.result)
		} else {
			errs = append(errs, o.errMsg)
		}
	}
	return results, errs, nil
}

// dedupe removes duplicate slugs preserving first-occurrence order.
func dedupe(slugs []string) []string {
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
