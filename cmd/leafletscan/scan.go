package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/leaflet-scanner/internal/discovery"
	"github.com/joseph-ayodele/leaflet-scanner/internal/notify"
	"github.com/joseph-ayodele/leaflet-scanner/internal/ocr"
	"github.com/joseph-ayodele/leaflet-scanner/internal/pipeline"
	"github.com/joseph-ayodele/leaflet-scanner/internal/repository"
)

func scanCmd() *cobra.Command {
	var keyword string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one full discover, recognize, and notify pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := setupLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if keyword != "" {
				cfg.Scan.Keyword = keyword
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			cache, err := repository.Open(ctx, repository.Config{
				Path:          cfg.Cache.Path,
				FlushEvery:    cfg.Cache.FlushEvery,
				QueryChunkLen: cfg.Cache.QueryChunkLen,
			}, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := cache.Close(); cerr != nil {
					logger.Error("cache close", "error", cerr)
				}
			}()

			source := discovery.NewClient(cfg.Discovery, logger)
			engine := ocr.NewTesseract(ocr.Config{
				Language:    cfg.OCR.Language,
				TessdataDir: cfg.OCR.TessdataDir,
			}, logger)

			var notifier pipeline.Notifier
			if cfg.Notify.WebhookURL != "" {
				notifier = notify.NewService(cfg.Notify, logger)
			} else {
				logger.Info("notify.disabled", "reason", "no webhook url configured")
			}

			proc := pipeline.NewProcessor(cfg, cache, source, engine, notifier, logger)
			sum, err := proc.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Found %d pages matching %q (%d from cache, %d freshly recognized)\n",
				sum.TotalMatches(), cfg.Scan.Keyword, sum.CacheMatches, sum.FreshMatches)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "keyword to search for (overrides config)")
	return cmd
}
