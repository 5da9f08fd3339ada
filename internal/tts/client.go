package tts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"newswire/internal/config"
	"newswire/internal/services"
)

const defaultTimeout = 60 * time.Second

// Client calls a speech synthesis service that turns article text into an
// MP3 narration.
type Client struct {
	http     *resty.Client
	language string
}

// New builds a synthesis client from configuration.
func New(cfg config.Audio) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, services.Wrap(services.ErrConfiguration, "media", "init", "audio base_url is empty", nil)
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout),
		language: strings.TrimSpace(cfg.Language),
	}, nil
}

type synthesisRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Synthesize renders the text to audio and returns the encoded bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrContentQuality, "media", "synthesize", "empty narration text", nil)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(synthesisRequest{Text: text, Language: c.language}).
		SetHeader("Accept", "audio/mpeg").
		Post("/synthesize")
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "media", "synthesize", "", err)
	}
	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrTransport, "media", "synthesize", fmt.Sprintf("http %d", code), nil)
	}
	audio := resp.Body()
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrTransport, "media", "synthesize", "empty audio response", nil)
	}
	return audio, nil
}
