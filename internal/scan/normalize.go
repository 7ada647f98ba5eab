package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyInput is returned when scan input is empty or whitespace-only
var ErrEmptyInput = errors.New("scan input is empty or contains only whitespace")

// largeInputThreshold marks inputs worth warning about, not rejecting
const largeInputThreshold = 1 << 20

const redactedPlaceholder = "***REDACTED***"

// secretKeys lists JSON keys whose values must never reach the knowledge
// pipeline. Matching is case-insensitive on the key name.
var secretKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"token":         true,
	"access_token":  true,
	"auth_token":    true,
	"bearer_token":  true,
	"secret":        true,
	"password":      true,
	"pass":          true,
	"passwd":        true,
	"credential":    true,
	"credentials":   true,
	"private_key":   true,
	"private-key":   true,
	"privatekey":    true,
	"client_secret": true,
	"client-secret": true,
}

var (
	lineEndingPattern = regexp.MustCompile("\r\n?|\f")
	excessNewlines    = regexp.MustCompile("\n{3,}")
)

// NormalizeText validates and normalizes raw text scan output.
//
// Line endings are converted to \n, runs of three or more newlines collapse
// to two, and trailing whitespace is stripped from each line.
func NormalizeText(text string) (string, error) {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return "", ErrEmptyInput
	}

	normalized = lineEndingPattern.ReplaceAllString(normalized, "\n")
	normalized = excessNewlines.ReplaceAllString(normalized, "\n\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.Join(lines, "\n"), nil
}

// NormalizeJSON redacts secret-bearing keys in a decoded JSON payload and
// renders it as indented JSON, then applies the same text normalization as
// NormalizeText.
func NormalizeJSON(payload map[string]any) (string, error) {
	cleaned := redactSecrets(payload)

	data, err := json.MarshalIndent(cleaned, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render scan payload: %w", err)
	}

	return NormalizeText(string(data))
}

// Normalize accepts raw scan output and normalizes it for identifier
// extraction. Input that parses as a JSON object goes through redaction;
// everything else is treated as plain text.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var payload map[string]any
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			return NormalizeJSON(payload)
		}
		// Not valid JSON after all, fall through to text handling
	}
	return NormalizeText(raw)
}

// IsLargeInput reports whether the input exceeds the advisory size threshold.
// Large inputs are still processed; callers may log a warning.
func IsLargeInput(text string) bool {
	return len(text) > largeInputThreshold
}

func redactSecrets(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if secretKeys[strings.ToLower(k)] {
				out[k] = redactedPlaceholder
				continue
			}
			out[k] = redactSecrets(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redactSecrets(inner)
		}
		return out
	default:
		return v
	}
}
