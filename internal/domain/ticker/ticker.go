package ticker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/tickerdex/internal/domain"
)

// MaxLength is the maximum length of a normalized ticker symbol.
const MaxLength = 20

var symbolRegex = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.=^-]*$`)

// Symbol is a normalized (upper-case) ticker symbol. The zero value is invalid.
type Symbol string

// Parse trims and upper-cases raw, then validates it.
// Accepts exchange forms such as BRK.B, ^GSPC and EURUSD=X.
func Parse(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("ticker is required: %w", domain.ErrInvalidInput)
	}
	if len(s) > MaxLength {
		return "", fmt.Errorf("ticker %q too long (max %d): %w", s, MaxLength, domain.ErrInvalidInput)
	}
	if !symbolRegex.MatchString(s) {
		return "", fmt.Errorf("ticker %q has invalid characters: %w", s, domain.ErrInvalidInput)
	}
	return Symbol(s), nil
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) Symbol {
	s, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the normalized symbol.
func (s Symbol) String() string { return string(s) }

// ArtifactName derives the ticker-qualified name {TICKER}_{artifact}.
// Local file names and remote blob names both use it.
func (s Symbol) ArtifactName(artifact string) string {
	return string(s) + "_" + artifact
}

// FromArtifactName recovers the ticker from a name produced by ArtifactName.
func FromArtifactName(name, artifact string) (Symbol, bool) {
	base, ok := strings.CutSuffix(name, "_"+artifact)
	if !ok || base == "" {
		return "", false
	}
	s, err := Parse(base)
	if err != nil || string(s) != base {
		return "", false
	}
	return s, true
}
