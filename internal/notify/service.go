package notify

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
	"github.com/joseph-ayodele/leaflet-scanner/internal/entity"
)

// Service turns the run's matches into outbound webhook batches. One failed
// batch is logged and does not block the remaining batches.
type Service struct {
	packer  *Packer
	webhook *Webhook
	logger  *slog.Logger
}

func NewService(cfg common.NotifyConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		packer:  NewPacker(cfg, logger),
		webhook: NewWebhook(cfg.WebhookURL, cfg.SendTimeout, logger),
		logger:  logger,
	}
}

// Notify compresses, packs, and sends all matches.
func (s *Service) Notify(ctx context.Context, keyword string, matches []entity.MatchResult) error {
	items := make([]Item, 0, len(matches))
	for _, m := range matches {
		item, err := s.packer.Compress(m)
		if err != nil {
			s.logger.Warn("notify.compress", "path", m.SavedPath, "error", err)
			continue
		}
		items = append(items, item)
	}

	var failed int
	for _, batch := range s.packer.Pack(items) {
		if err := s.webhook.SendBatch(ctx, keyword, batch); err != nil {
			failed++
			s.logger.Error("notify.batch", "batch", batch.Index+1, "items", len(batch.Items), "error", err)
		}
	}
	if failed > 0 {
		s.logger.Warn("notify.partial", "failed_batches", failed)
	}
	return nil
}
