package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/leaflet-scanner/internal/match"
	"github.com/joseph-ayodele/leaflet-scanner/internal/repository"
)

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Query already-cached pages for a keyword, no network work",
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

			total, err := cache.Count(ctx)
			if err != nil {
				return err
			}
			hits, err := cache.LookupKeyword(ctx, nil, keyword)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			found := 0
			for _, hit := range hits {
				if !match.Matches(hit.RecognizedText, keyword) {
					continue
				}
				found++
				fmt.Fprintf(out, "%s (page %d)\n  %s\n", hit.DocumentName, hit.PageNumber, hit.ImageURL)
			}
			fmt.Fprintf(out, "%d of %d cached pages match %q\n", found, total, keyword)
			return nil
		},
	}
}
