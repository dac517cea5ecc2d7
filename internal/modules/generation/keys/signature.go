package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// SchemaVersion is folded into every signature; bump it when generated
// content shapes change so old cache rows stop matching.
const SchemaVersion = 1

const (
	DefaultFocus         = "general"
	DefaultLevel         = "beginner"
	DefaultMinutesPerDay = 15
	DefaultLocale        = "en"
)

// Params are the request attributes that determine generated content.
type Params struct {
	Topic         string `json:"topic"`
	Focus         string `json:"focus,omitempty"`
	Level         string `json:"level,omitempty"`
	MinutesPerDay int    `json:"minutes_per_day,omitempty"`
	Locale        string `json:"locale,omitempty"`
}

// Normalize trims, collapses whitespace, lower-cases and fills defaults.
func (p Params) Normalize() Params {
	out := Params{
		Topic:         normalizeText(p.Topic),
		Focus:         normalizeText(p.Focus),
		Level:         normalizeText(p.Level),
		MinutesPerDay: p.MinutesPerDay,
		Locale:        normalizeText(p.Locale),
	}
	if out.Focus == "" {
		out.Focus = DefaultFocus
	}
	if out.Level == "" {
		out.Level = DefaultLevel
	}
	if out.MinutesPerDay <= 0 {
		out.MinutesPerDay = DefaultMinutesPerDay
	}
	if out.Locale == "" {
		out.Locale = DefaultLocale
	}
	return out
}

// Signature computes the 64-hex content address for p. Two requests that
// normalize to the same Params always get the same signature.
func Signature(p Params) string {
	n := p.Normalize()
	payload := map[string]any{
		"topic":           n.Topic,
		"focus":           n.Focus,
		"level":           n.Level,
		"minutes_per_day": n.MinutesPerDay,
		"locale":          n.Locale,
		"schema_version":  SchemaVersion,
	}
	// encoding/json sorts map keys.
	b, _ := json.Marshal(payload)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
