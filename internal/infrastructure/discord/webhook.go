package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"shareminder/internal/pkg/logger"
)

// Client posts reminder content to a Discord channel webhook. Webhooks are
// plain HTTP, so no SDK is needed; the request carries an embed with the
// title, description and optional image.
type Client struct {
	webhookURL string
	httpClient *http.Client
	log        logger.Logger
}

// NewClient creates a Discord share client from the DISCORD_WEBHOOK_URL
// environment variable.
func NewClient(log logger.Logger) *Client {
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if webhookURL == "" {
		log.Error("🔴 ERROR: DISCORD_WEBHOOK_URL environment variable must be set", nil)
		os.Exit(1)
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

type webhookImage struct {
	URL string `json:"url"`
}

type webhookEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Image       *webhookImage `json:"image,omitempty"`
}

type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

// Share posts the content to the webhook. Any non-2xx response is a
// failure.
func (c *Client) Share(ctx context.Context, photoReference *string, title, description string) error {
	embed := webhookEmbed{
		Title:       title,
		Description: description,
	}
	if photoReference != nil && strings.HasPrefix(*photoReference, "https://") {
		embed.Image = &webhookImage{URL: *photoReference}
	}

	body, err := json.Marshal(webhookPayload{Embeds: []webhookEmbed{embed}})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	c.log.Debug(fmt.Sprintf("Shared %q to Discord webhook", title))
	return nil
}
