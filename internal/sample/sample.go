// Package sample validates writing samples before ingestion: length
// bounds, text normalization, and near-duplicate rejection so one pasted
// email submitted twice does not double-count in the calibration score.
package sample

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/voxprint/pkg/voice"
)

const (
	// Samples shorter than this carry too little signal for written-pattern
	// extraction to be meaningful.
	defaultMinLength = 50

	// Upper bound keeps a pasted novel from dominating extraction cost.
	defaultMaxLength = 50_000

	// Jaro-Winkler similarity on normalized text above which two samples
	// are considered the same writing.
	defaultDuplicateThreshold = 0.95
)

var (
	// ErrTooShort rejects samples below the minimum length.
	ErrTooShort = errors.New("sample: text too short")

	// ErrTooLong rejects samples above the maximum length.
	ErrTooLong = errors.New("sample: text too long")
)

// DuplicateError reports that a submitted sample is a near-duplicate of an
// already stored one.
type DuplicateError struct {
	ExistingID string
	Similarity float64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("sample: near-duplicate of %q (similarity %.3f)", e.ExistingID, e.Similarity)
}

// Option is a functional option for configuring a [Checker].
type Option func(*Checker)

// WithLengthBounds overrides the minimum and maximum accepted text length
// in runes.
func WithLengthBounds(minLen, maxLen int) Option {
	return func(c *Checker) {
		c.minLength = minLen
		c.maxLength = maxLen
	}
}

// WithDuplicateThreshold sets the Jaro-Winkler similarity above which a
// sample is rejected as a duplicate. Default: 0.95.
func WithDuplicateThreshold(threshold float64) Option {
	return func(c *Checker) {
		c.duplicateThreshold = threshold
	}
}

// Checker validates incoming writing samples. It is read-only after
// construction and safe for concurrent use.
type Checker struct {
	minLength          int
	maxLength          int
	duplicateThreshold float64
}

// New returns a [Checker] configured with the supplied options.
func New(opts ...Option) *Checker {
	c := &Checker{
		minLength:          defaultMinLength,
		maxLength:          defaultMaxLength,
		duplicateThreshold: defaultDuplicateThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check validates text against the length bounds and the user's existing
// samples. On success it returns the normalized text to store. A
// near-duplicate returns a [*DuplicateError] naming the colliding sample.
func (c *Checker) Check(text string, existing []voice.WritingSample) (string, error) {
	normalized := Normalize(text)
	runes := len([]rune(normalized))
	if runes < c.minLength {
		return "", fmt.Errorf("%w: %d runes, need at least %d", ErrTooShort, runes, c.minLength)
	}
	if runes > c.maxLength {
		return "", fmt.Errorf("%w: %d runes, at most %d allowed", ErrTooLong, runes, c.maxLength)
	}

	key := comparisonKey(normalized)
	for _, s := range existing {
		similarity := matchr.JaroWinkler(key, comparisonKey(Normalize(s.Text)), false)
		if similarity >= c.duplicateThreshold {
			return "", &DuplicateError{ExistingID: s.ID, Similarity: similarity}
		}
	}
	return normalized, nil
}

// Normalize collapses all whitespace runs to single spaces and trims the
// ends. Visible content is preserved as typed.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// comparisonKey lowercases and strips punctuation so that trivial edits
// (capitalization, an added comma) do not defeat duplicate detection.
func comparisonKey(normalized string) string {
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range strings.ToLower(normalized) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
