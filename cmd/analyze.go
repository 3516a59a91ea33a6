package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbemaps/geofence/internal/analysis"
	"github.com/urbemaps/geofence/internal/model"
)

var (
	analyzeLat      float64
	analyzeLng      float64
	analyzeAreas    []string
	analyzeAgencies []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Check a point against stored areas",
	Long:  "Reports, for each requested area, whether the point lies inside and the distance in meters to the nearest boundary when it does not.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		target := model.Point{Lat: analyzeLat, Lng: analyzeLng}
		if !target.Valid() {
			return eris.Errorf("target lat=%v lng=%v out of range", analyzeLat, analyzeLng)
		}

		repo, st, err := openRepository()
		if err != nil {
			return err
		}
		defer st.Close()

		engine := analysis.NewEngine(repo)
		results, errs, err := engine.Analyze(ctx, target, analyzeAreas, analyzeAgencies)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(map[string]any{
			"results": results,
			"errors":  errs,
		}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "analyze: encode output")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeLat, "lat", 0, "target latitude (required)")
	analyzeCmd.Flags().Float64Var(&analyzeLng, "lng", 0, "target longitude (required)")
	analyzeCmd.Flags().StringSliceVar(&analyzeAreas, "area", nil, "area slug to check (repeatable)")
	analyzeCmd.Flags().StringSliceVar(&analyzeAgencies, "agency", nil, "agency name to resolve areas from (repeatable)")
	_ = analyzeCmd.MarkFlagRequired("lat")
	_ = analyzeCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(analyzeCmd)
}
