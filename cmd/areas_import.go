package main

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbemaps/geofence/internal/model"
)

var (
	importSlug      string
	importName      string
	importAgency    string
	importRelevance int
)

var areasImportShpCmd = &cobra.Command{
	Use:   "import-shp <file.shp>",
	Short: "Create an area from shapefile polygons",
	Long:  "Reads every polygon record in the shapefile and stores them as one multi-polygon area. Shapefile parts become rings in record order, first part as shell.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		polygons, err := readShapefilePolygons(args[0])
		if err != nil {
			return err
		}
		if len(polygons) == 0 {
			return eris.Errorf("no polygon records in %s", args[0])
		}

		a := model.Area{
			Name:      importName,
			Slug:      importSlug,
			Agency:    importAgency,
			Relevance: importRelevance,
			Polygons:  polygons,
		}
		if err := a.Validate(); err != nil {
			return err
		}

		repo, st, err := openRepository()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := repo.Upsert(cmd.Context(), a); err != nil {
			return err
		}
		zap.L().Info("area imported",
			zap.String("slug", a.Slug),
			zap.Int("polygons", len(polygons)),
		)
		return nil
	},
}

// readShapefilePolygons converts the polygon shapes in a shapefile into the
// wire polygon format. Non-polygon shapes are skipped.
func readShapefilePolygons(path string) ([]model.RawPolygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var polygons []model.RawPolygon
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 || len(poly.Points) == 0 {
			skipped++
			continue
		}

		rings := make([][][]float64, 0, poly.NumParts)
		for i := int32(0); i < poly.NumParts; i++ {
			start := poly.Parts[i]
			end := int32(len(poly.Points))
			if i+1 < poly.NumParts {
				end = poly.Parts[i+1]
			}

			ring := make([][]float64, 0, end-start)
			for j := start; j < end; j++ {
				ring = append(ring, []float64{poly.Points[j].X, poly.Points[j].Y})
			}
			rings = append(rings, ring)
		}

		polygons = append(polygons, model.RawPolygon{Type: "Polygon", Coordinates: rings})
	}

	if skipped > 0 {
		zap.L().Debug("import: skipped non-polygon records", zap.Int("skipped", skipped))
	}
	return polygons, nil
}

func init() {
	areasImportShpCmd.Flags().StringVar(&importSlug, "slug", "", "slug for the imported area (required)")
	areasImportShpCmd.Flags().StringVar(&importName, "name", "", "display name for the imported area (required)")
	areasImportShpCmd.Flags().StringVar(&importAgency, "agency", "", "owning agency")
	areasImportShpCmd.Flags().IntVar(&importRelevance, "relevance", 1, "relevance from 1 to 10")
	_ = areasImportShpCmd.MarkFlagRequired("slug")
	_ = areasImportShpCmd.MarkFlagRequired("name")

	areasCmd.AddCommand(areasImportShpCmd)
}
