package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const userAgent = "shotpipe/0.1.0"

// Webhook posts each delivery as JSON to a fixed endpoint.
type Webhook struct {
	endpoint string
	client   *http.Client
}

// NewWebhook returns a webhook sink. A nil client uses http.DefaultClient.
func NewWebhook(endpoint string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{endpoint: endpoint, client: client}
}

// Deliver posts file and treats any non-2xx response as failure.
func (w *Webhook) Deliver(ctx context.Context, file ProcessedFile) error {
	body, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if file.RunID != "" {
		req.Header.Set("X-Shotpipe-Run", file.RunID)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
