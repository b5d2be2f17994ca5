package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MrWong99/voxprint/pkg/provider/llm"
	"github.com/MrWong99/voxprint/pkg/voice"
)

const defaultTemperature = 0.2

// spokenPrompt instructs the model to extract spoken-style attributes from a
// transcript. The response contract mirrors the shape [Sanitize] expects;
// anything the model gets wrong is repaired field by field afterwards.
const spokenPrompt = `You are a linguistic analyst. Analyse how the speaker in the following transcript talks — their word choice, rhythm, rhetoric, and what excites them.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "vocabulary": {
    "frequent_words": ["<up to 10 characteristic words>"],
    "unique_phrases": ["<up to 5 distinctive expressions>"],
    "filler_words": ["<up to 5 habitual fillers>"],
    "preserve_fillers": <true if the fillers are characteristic of the voice>
  },
  "rhythm": {
    "sentence_length": "<short|medium|long|varied>",
    "pace": "<slow|moderate|fast|variable>",
    "pause_pattern": "<frequent|natural|rare|dramatic>"
  },
  "rhetoric": {
    "uses_questions": <bool>,
    "uses_analogies": <bool>,
    "storytelling_style": "<anecdotal|linear|circular|direct>"
  },
  "enthusiasm": {
    "exciting_topics": ["<up to 8 topics that raise the speaker's energy>"],
    "emphasis_patterns": ["<up to 5 phrases used for emphasis>"],
    "energy_baseline": <0.0-1.0>
  },
  "tonal": {
    "warmth": <0.0-1.0>,
    "authority": <0.0-1.0>,
    "humor": <0.0-1.0>,
    "directness": <0.0-1.0>,
    "empathy": <0.0-1.0>
  }
}

Base every value on evidence from the transcript. Use 0.5 for tonal scalars you cannot judge.`

// writtenPrompt instructs the model to extract written-style attributes from
// a free-text writing sample.
const writtenPrompt = `You are a linguistic analyst. Analyse how the author of the following text structures their writing.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "structure_preference": "<linear|modular|narrative|analytical>",
  "formality": <0.0-1.0>,
  "paragraph_length": "<short|medium|long>",
  "opening_style": "<context|hook|question|statement>",
  "closing_style": "<summary|action|question|reflection>"
}`

// Extractor asks an [llm.Provider] to extract qualitative linguistic
// attributes from a transcript or writing sample. It is safe for concurrent
// use.
//
// The model's reply is treated as untrusted: it is parsed into a generic map
// and passed through the sanitizer, so a partially wrong reply still yields
// a valid pattern structure. An unparseable reply degrades to the neutral
// defaults with a nil error; only transport-level failures (network, model
// unavailable, context cancellation) surface as errors, so callers can
// decide whether to retry against a fallback provider.
type Extractor struct {
	llm         llm.Provider
	temperature float64
}

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithTemperature sets the LLM sampling temperature. Lower values produce
// more reproducible extractions. Default: 0.2.
func WithTemperature(temp float64) Option {
	return func(e *Extractor) {
		e.temperature = temp
	}
}

// NewExtractor returns a new [Extractor] backed by the given [llm.Provider].
func NewExtractor(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractSpoken analyses a voice-session transcript and returns the
// sanitized spoken pattern set.
func (e *Extractor) ExtractSpoken(ctx context.Context, transcript string) (voice.PatternSet, error) {
	if strings.TrimSpace(transcript) == "" {
		return Defaults(), nil
	}

	raw, err := e.complete(ctx, spokenPrompt, transcript)
	if err != nil {
		return Defaults(), err
	}
	return Sanitize(raw), nil
}

// ExtractWritten analyses a free-text writing sample and returns the
// sanitized written pattern structure.
func (e *Extractor) ExtractWritten(ctx context.Context, sample string) (voice.WrittenPatterns, error) {
	if strings.TrimSpace(sample) == "" {
		return WrittenDefaults(), nil
	}

	raw, err := e.complete(ctx, writtenPrompt, sample)
	if err != nil {
		return WrittenDefaults(), err
	}
	return SanitizeWritten(raw), nil
}

// complete sends one extraction request and decodes the reply into a generic
// map. A reply that is not valid JSON yields a nil map and nil error — the
// sanitizer turns that into defaults.
func (e *Extractor) complete(ctx context.Context, sysPrompt, text string) (map[string]any, error) {
	resp, err := e.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: sysPrompt,
		Temperature:  e.temperature,
		Messages: []llm.Message{
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pattern extractor: complete: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("pattern extractor: nil response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripMarkdown(resp.Content)), &raw); err != nil {
		// Unparseable reply: sanitizer defaults, no error (graceful
		// degradation — the session must continue).
		return nil, nil //nolint:nilerr
	}
	return raw, nil
}

// stripMarkdown removes a surrounding markdown code fence, if present.
// Models frequently wrap JSON in ```json fences despite instructions.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
