package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/provider"
	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/retry"
)

const (
	// ProviderName identifies ElevenLabs in errors, logs and metrics.
	ProviderName = "elevenlabs"

	DefaultURL     = "https://api.elevenlabs.io/v1/speech-to-text"
	DefaultModelID = "scribe_v1"
	DefaultTimeout = 90 * time.Second

	defaultFilename    = "recording.webm"
	defaultContentType = "audio/webm"
)

// ErrEmptyAudio is returned before any network call when the upload has no bytes.
var ErrEmptyAudio = errors.New("empty audio file received")

// Config holds configuration for the ElevenLabs speech-to-text client.
type Config struct {
	APIKey  string
	URL     string
	ModelID string
	Timeout time.Duration
	Retry   retry.Policy
}

// Audio is an uploaded recording.
type Audio struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Client sends audio to ElevenLabs and returns the transcript.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new ElevenLabs client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing ElevenLabs API key")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.Operation == "" {
		cfg.Retry.Operation = "elevenlabs_transcription"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Transcribe uploads the audio and returns a non-empty transcript.
func (c *Client) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", ErrEmptyAudio
	}

	transcript, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (string, error) {
		return c.do(ctx, audio)
	})
	if err != nil {
		return "", err
	}

	zerolog.Ctx(ctx).Info().
		Str("event", "voice_agent.transcription.success").
		Str("provider", ProviderName).
		Int("char_length", len(transcript)).
		Msg("voice_agent.transcription.success")
	return transcript, nil
}

type sttResponse struct {
	Text string `json:"text"`
}

func (c *Client) do(ctx context.Context, audio Audio) (string, error) {
	body, contentType, err := buildMultipart(audio, c.cfg.ModelID)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &provider.Error{
			Provider: ProviderName,
			Message:  "Network failure while calling ElevenLabs STT",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &provider.Error{
			Provider:   ProviderName,
			Message:    "Network failure while reading ElevenLabs STT response",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	if resp.StatusCode >= 400 {
		return "", &provider.Error{
			Provider:   ProviderName,
			Message:    "ElevenLabs STT returned an error response",
			StatusCode: resp.StatusCode,
			Payload:    provider.Truncate(string(raw), provider.MaxPayloadChars),
		}
	}

	var result sttResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", &provider.Error{
			Provider:   ProviderName,
			Message:    "Invalid JSON from ElevenLabs STT",
			StatusCode: resp.StatusCode,
			Payload:    provider.Truncate(string(raw), provider.MaxPayloadChars),
			Err:        err,
		}
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", &provider.Error{
			Provider:   ProviderName,
			Message:    "ElevenLabs STT returned an empty transcript",
			StatusCode: resp.StatusCode,
			Payload:    provider.Truncate(string(raw), provider.MaxPayloadChars),
		}
	}
	return text, nil
}

func buildMultipart(audio Audio, modelID string) (*bytes.Buffer, string, error) {
	filename := audio.Filename
	if filename == "" {
		filename = defaultFilename
	}
	contentType := audio.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("model_id", modelID); err != nil {
		return nil, "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
