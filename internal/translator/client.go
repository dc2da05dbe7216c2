package translator

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"linguachat-backend/internal/config"
	"linguachat-backend/internal/domain"
)

// translateRequest is the wire request of the translation backend
type translateRequest struct {
	Text           string `json:"q"`
	SourceLanguage string `json:"source"`
	TargetLanguage string `json:"target"`
	Tone           string `json:"tone,omitempty"`
	Format         string `json:"format"`
	APIKey         string `json:"api_key,omitempty"`
}

// translateResponse is the wire response of the translation backend
type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// Client calls the HTTP translation backend
type Client struct {
	http   *resty.Client
	apiKey string
}

// NewClient creates a translation backend client
func NewClient(cfg config.TranslatorConfig) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   http,
		apiKey: cfg.APIKey,
	}
}

// Translate converts text between languages, shaped by the requested tone
func (c *Client) Translate(ctx context.Context, text string, source, target domain.Language, tone domain.Tone) (string, error) {
	var result translateResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(translateRequest{
			Text:           text,
			SourceLanguage: string(source),
			TargetLanguage: string(target),
			Tone:           string(tone),
			Format:         "text",
			APIKey:         c.apiKey,
		}).
		SetResult(&result).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}

	if resp.IsError() {
		if result.Error != "" {
			return "", fmt.Errorf("translation backend error: %s", result.Error)
		}
		return "", fmt.Errorf("translation backend returned status %d", resp.StatusCode())
	}
	if result.TranslatedText == "" {
		return "", fmt.Errorf("translation backend returned empty result")
	}
	return result.TranslatedText, nil
}

// Ping checks that the translation backend is reachable. Used for the
// lazy warm-up probe at startup, not on the message path.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/languages")
	if err != nil {
		return fmt.Errorf("translation backend unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("translation backend returned status %d", resp.StatusCode())
	}
	return nil
}
