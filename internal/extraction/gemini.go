package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/provider"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/retry"
)

const (
	// ProviderName identifies Gemini in errors, logs and metrics.
	ProviderName = "gemini"

	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the Gemini extractor.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Retry   retry.Policy
}

// GeminiExtractor extracts patient fields from a transcript with a Gemini model.
type GeminiExtractor struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
}

// NewGeminiExtractor creates a new extractor. The API key is required.
func NewGeminiExtractor(cfg Config) (*GeminiExtractor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.Operation == "" {
		cfg.Retry.Operation = "ai_parser"
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") +
		"/v1beta/models/" + url.PathEscape(cfg.Model) + ":generateContent"

	return &GeminiExtractor{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Extract asks the model for the four patient fields. The result is total: every
// field is either a string or nil.
func (g *GeminiExtractor) Extract(ctx context.Context, transcript string) (Fields, error) {
	prompt := BuildPrompt(transcript)

	text, err := retry.Do(ctx, g.cfg.Retry, func(ctx context.Context) (string, error) {
		return g.generate(ctx, prompt)
	})
	if err != nil {
		return Fields{}, err
	}

	fields, err := DecodeFields(text)
	if err != nil {
		return Fields{}, &provider.Error{
			Provider: ProviderName,
			Message:  fmt.Sprintf("Invalid JSON from Gemini: %v", err),
			Payload:  provider.Truncate(text, provider.MaxPayloadChars),
			Err:      err,
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("event", "ai_parser.parsing.success").
		Str("provider", ProviderName).
		Int("response_chars", len(text)).
		Msg("ai_parser.parsing.success")
	return fields, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

func (g *GeminiExtractor) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &provider.Error{
			Provider: ProviderName,
			Message:  "Gemini generate_content call failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &provider.Error{
			Provider:   ProviderName,
			Message:    "Gemini generate_content call failed",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	if resp.StatusCode >= 400 {
		return "", &provider.Error{
			Provider:   ProviderName,
			Message:    "Gemini generate_content call failed",
			StatusCode: resp.StatusCode,
			Payload:    provider.Truncate(string(raw), provider.MaxPayloadChars),
		}
	}

	var result generateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", &provider.Error{
			Provider:   ProviderName,
			Message:    "Gemini generate_content call failed",
			StatusCode: resp.StatusCode,
			Payload:    provider.Truncate(string(raw), provider.MaxPayloadChars),
			Err:        err,
		}
	}

	text := result.text()
	if text == "" {
		return "", &provider.Error{
			Provider:   ProviderName,
			Message:    "Gemini returned an empty response",
			StatusCode: resp.StatusCode,
			Payload:    provider.Truncate(string(raw), provider.MaxPayloadChars),
		}
	}
	return text, nil
}
