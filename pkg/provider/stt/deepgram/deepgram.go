// Package deepgram implements batch transcription against the Deepgram
// prerecorded API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/MrWong99/voxprint/pkg/provider/stt"
	"github.com/MrWong99/voxprint/pkg/voice"
)

const (
	defaultEndpoint = "https://api.deepgram.com/v1/listen"
	defaultModel    = "nova-2"
	defaultLanguage = "en"
)

// Compile-time interface check.
var _ stt.Transcriber = (*Provider)(nil)

// Provider transcribes prerecorded audio via Deepgram.
type Provider struct {
	apiKey   string
	endpoint string
	model    string
	language string
	client   *http.Client
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithModel overrides the default model ("nova-2").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage overrides the default language ("en").
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// WithHTTPClient replaces the default HTTP client (60s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		model:    defaultModel,
		language: defaultLanguage,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// response is the subset of Deepgram's prerecorded JSON we consume.
type response struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word       string  `json:"word"`
					Start      float64 `json:"start"`
					End        float64 `json:"end"`
					Confidence float64 `json:"confidence"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe implements [stt.Transcriber] against the prerecorded endpoint.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, cfg stt.Config) (*stt.Transcript, error) {
	if len(audio) == 0 {
		return nil, errors.New("deepgram: audio must not be empty")
	}

	reqURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	if cfg.MimeType != "" {
		req.Header.Set("Content-Type", cfg.MimeType)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("deepgram: status %d: %s", resp.StatusCode, body)
	}

	var dr response
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("deepgram: decode response: %w", err)
	}
	return toTranscript(&dr)
}

// buildURL constructs the prerecorded endpoint URL for the given config.
func (p *Provider) buildURL(cfg stt.Config) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// toTranscript maps Deepgram's response to the provider-neutral shape.
func toTranscript(dr *response) (*stt.Transcript, error) {
	if len(dr.Results.Channels) == 0 || len(dr.Results.Channels[0].Alternatives) == 0 {
		return nil, errors.New("deepgram: response has no alternatives")
	}
	alt := dr.Results.Channels[0].Alternatives[0]

	words := make([]voice.WordTimestamp, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, voice.WordTimestamp{
			Word:       w.Word,
			Start:      w.Start,
			End:        w.End,
			Confidence: w.Confidence,
		})
	}

	return &stt.Transcript{
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
		Words:      words,
		Duration:   time.Duration(dr.Metadata.Duration * float64(time.Second)),
	}, nil
}
