package chunker

import "unicode/utf8"

// CharsPerToken is the heuristic ratio for estimating tokens (chars/4)
const CharsPerToken = 4

// TokenEstimator approximates token counts from character length. It is a
// fast, model-agnostic proxy for real tokenization; callers must treat
// outputs as approximations, not exact model token counts.
type TokenEstimator struct {
	charsPerToken int
}

// NewTokenEstimator creates an estimator with the default chars-per-token ratio
func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{charsPerToken: CharsPerToken}
}

// EstimateTokens estimates the number of tokens in a string. Length is
// counted in characters, not bytes, so multibyte text is not over-counted.
// Always returns at least 1, including for the empty string, so downstream
// chunk-size math never divides by zero.
func (e *TokenEstimator) EstimateTokens(text string) int {
	count := utf8.RuneCountInString(text) / e.charsPerToken
	if count < 1 {
		return 1
	}
	return count
}

// CharsForTokens converts a token budget to an approximate character count
func (e *TokenEstimator) CharsForTokens(tokens int) int {
	return tokens * e.charsPerToken
}
