package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"wechat_sync/internal/domain"
)

// HTTP posts callback payloads as JSON to the URL carried on each payload.
type HTTP struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTP(timeout time.Duration, logger *slog.Logger) *HTTP {
	return &HTTP{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "callback_notifier"),
	}
}

func (n *HTTP) Notify(ctx context.Context, payload domain.CallbackPayload) error {
	if payload.URL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, payload.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	n.logger.Debug("callback delivered",
		"task_id", payload.TaskID,
		"status", payload.Status,
	)
	return nil
}
