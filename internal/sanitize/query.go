package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Validation errors for user query text.
var (
	// ErrEmptyQuery indicates the query is empty after normalization.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrQueryTooLong indicates the query exceeds MaxQueryLength.
	ErrQueryTooLong = errors.New("query exceeds maximum length")

	// ErrQueryUnsafe indicates the query matches an instruction-injection
	// pattern and must not reach the language model.
	ErrQueryUnsafe = errors.New("query contains a forbidden pattern")
)

// injectionPatterns are prompt-injection markers matched case-insensitively
// against the normalized query.
var injectionPatterns = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"disregard previous instructions",
	"disregard prior instructions",
	"forget your instructions",
	"system prompt",
	"you are now",
}

// MaxQueryLength caps user query text. Long queries degrade embedding
// quality and inflate LLM token usage without improving retrieval.
const MaxQueryLength = 2000

// Query normalizes and validates user-supplied query text before it reaches
// the language model or the embedding API.
//
// Rules applied:
//   - Strips control characters (keeps \n and \t as spaces)
//   - Collapses runs of whitespace into single spaces
//   - Trims leading/trailing whitespace
//   - Rejects empty results and queries over MaxQueryLength
//   - Rejects queries matching an instruction-injection pattern
func Query(text string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	normalized := strings.Join(strings.Fields(b.String()), " ")
	if normalized == "" {
		return "", ErrEmptyQuery
	}
	if len(normalized) > MaxQueryLength {
		return "", fmt.Errorf("%w: %d > %d characters", ErrQueryTooLong, len(normalized), MaxQueryLength)
	}
	lowered := strings.ToLower(normalized)
	for _, pattern := range injectionPatterns {
		if strings.Contains(lowered, pattern) {
			return "", fmt.Errorf("%w: %q", ErrQueryUnsafe, pattern)
		}
	}

	return normalized, nil
}
