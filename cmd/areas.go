package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbemaps/geofence/internal/model"
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Manage stored areas",
}

var areasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored areas",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, st, err := openRepository()
		if err != nil {
			return err
		}
		defer st.Close()

		summaries, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("no areas stored")
			return nil
		}
		for _, s := range summaries {
			fmt.Printf("%-24s %-32s polygons=%d points=%d\n", s.Slug, s.Name, s.PolygonCount, s.TotalPoints)
		}
		return nil
	},
}

var areasUpsertFile string

var areasUpsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Create or replace an area from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(areasUpsertFile)
		if err != nil {
			return eris.Wrapf(err, "areas: read %s", areasUpsertFile)
		}

		var a model.Area
		if err := json.Unmarshal(data, &a); err != nil {
			return eris.Wrapf(err, "areas: decode %s", areasUpsertFile)
		}
		if a.Relevance == 0 {
			a.Relevance = 1
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
		zap.L().Info("area saved", zap.String("slug", a.Slug))
		return nil
	},
}

var areasDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Remove an area",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, st, err := openRepository()
		if err != nil {
			return err
		}
		defer st.Close()

		existed, err := repo.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !existed {
			return eris.Errorf("area %q not found", args[0])
		}
		zap.L().Info("area removed", zap.String("slug", args[0]))
		return nil
	},
}

func init() {
	areasUpsertCmd.Flags().StringVarP(&areasUpsertFile, "file", "f", "", "path to area JSON (required)")
	_ = areasUpsertCmd.MarkFlagRequired("file")

	areasCmd.AddCommand(areasListCmd, areasUpsertCmd, areasDeleteCmd)
	rootCmd.AddCommand(areasCmd)
}
