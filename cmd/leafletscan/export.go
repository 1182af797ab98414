package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/leaflet-scanner/internal/export"
	"github.com/joseph-ayodele/leaflet-scanner/internal/repository"
)

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <keyword>",
		Short: "Write an XLSX report of cached pages matching a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			keyword := args[0]
			ctx := cmd.Context()

			cache, err := repository.Open(ctx, repository.Config{
				Path:          cfg.Cache.Path,
				FlushEvery:    cfg.Cache.FlushEvery,
				QueryChunkLen: cfg.Cache.QueryChunkLen,
			}, logger)
			if err != nil {
				return err
			}
			defer cache.Close()

			svc := export.NewService(cache, logger)
			data, err := svc.ExportMatchesXLSX(ctx, keyword)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "matches.xlsx", "output file path")
	return cmd
}
