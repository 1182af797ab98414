package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Webhook sends packed batches to a Discord-compatible webhook endpoint as
// multipart requests: a payload_json part with the embeds plus one binary
// part per attachment.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type embedImage struct {
	URL string `json:"url"`
}

type embed struct {
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       *embedImage `json:"image,omitempty"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// SendBatch posts one batch. The first item carries a title naming the
// keyword and batch number; the rest carry per-item descriptions only.
// Success is any 2xx status.
func (w *Webhook) SendBatch(ctx context.Context, keyword string, b Batch) error {
	reqID := uuid.New().String()
	start := time.Now()

	payload := webhookPayload{Embeds: make([]embed, 0, len(b.Items))}
	for i, it := range b.Items {
		e := embed{
			Description: fmt.Sprintf("%s, page %d", it.DocumentName, it.PageNumber),
			Image:       &embedImage{URL: "attachment://" + it.Filename},
		}
		if i == 0 {
			e.Title = fmt.Sprintf("Found %q (batch %d)", keyword, b.Index+1)
		}
		payload.Embeds = append(payload.Embeds, e)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	field, err := mw.CreateFormField("payload_json")
	if err != nil {
		return fmt.Errorf("create payload field: %w", err)
	}
	if err := json.NewEncoder(field).Encode(payload); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	for i, it := range b.Items {
		part, err := mw.CreateFormFile(fmt.Sprintf("files[%d]", i), it.Filename)
		if err != nil {
			return fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(it.Data); err != nil {
			return fmt.Errorf("write file part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w.logger.Info("notify.http.request",
		"req_id", reqID,
		"batch", b.Index+1,
		"items", len(b.Items),
		"content_length", body.Len(),
	)

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Error("notify.http.send_error", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return err
	}
	defer func(rc io.ReadCloser) {
		if cerr := rc.Close(); cerr != nil {
			w.logger.Warn("notify.http.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	w.logger.Info("notify.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return nil
}
