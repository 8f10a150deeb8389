// Package translateapi talks to the LibreTranslate-compatible HTTP service
// used for caption translation, language discovery and smart replies.
package translateapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

const requestTimeout = 8 * time.Second

// Client implements the Translator, LanguageLister and SuggestionClient
// capabilities over one HTTP endpoint.
type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type translateRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate converts text from source to target. Both tags must already be
// primary codes.
func (c *Client) Translate(ctx context.Context, text string, source, target domain.Lang) (string, error) {
	var out translateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(translateRequest{Text: text, Source: string(source), Target: string(target)}).
		SetResult(&out).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("translate request: status %d", resp.StatusCode())
	}
	return out.TranslatedText, nil
}

type languagesResponse struct {
	Languages []core.Language `json:"languages"`
}

// SupportedLanguages fetches the language list for the preference picker.
func (c *Client) SupportedLanguages(ctx context.Context) ([]core.Language, error) {
	var out languagesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/languages")
	if err != nil {
		return nil, fmt.Errorf("languages request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("languages request: status %d", resp.StatusCode())
	}
	log.Debug().Int("count", len(out.Languages)).Str("module", "translateapi").Msg("languages fetched")
	return out.Languages, nil
}

type repliesRequest struct {
	Context    []core.ContextLine `json:"context"`
	Summary    string             `json:"summary"`
	TargetLang string             `json:"targetLang"`
}

type repliesResponse struct {
	Replies []string `json:"replies"`
}

// SmartReplies asks for reply suggestions in the target language given the
// recent conversation context and the current narrative summary.
func (c *Client) SmartReplies(ctx context.Context, lines []core.ContextLine, summary string, target domain.Lang) ([]string, error) {
	var out repliesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(repliesRequest{Context: lines, Summary: summary, TargetLang: string(target)}).
		SetResult(&out).
		Post("/replies")
	if err != nil {
		return nil, fmt.Errorf("replies request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("replies request: status %d", resp.StatusCode())
	}
	return out.Replies, nil
}

var (
	_ core.Translator       = (*Client)(nil)
	_ core.LanguageLister   = (*Client)(nil)
	_ core.SuggestionClient = (*Client)(nil)
)
