package chunker

import "strings"

// defaultSeparators is the split cascade, tried most-structural-first.
// The empty string marks the character-level fallback.
var defaultSeparators = []string{
	"\n\n\n",
	"\n\n",
	"\n",
	". ",
	"! ",
	"? ",
	"; ",
	", ",
	" ",
	"",
}

// RecursiveTextSplitter splits text into token-budgeted segments using the
// separator cascade, then optionally injects backward-looking overlap
// between adjacent segments
type RecursiveTextSplitter struct {
	maxTokens     int
	minTokens     int
	overlapTokens int
	estimator     *TokenEstimator
	separators    []string
}

// NewSplitter creates a splitter with the given token budgets
func NewSplitter(maxTokens, minTokens, overlapTokens int) *RecursiveTextSplitter {
	return &RecursiveTextSplitter{
		maxTokens:     maxTokens,
		minTokens:     minTokens,
		overlapTokens: overlapTokens,
		estimator:     NewTokenEstimator(),
		separators:    defaultSeparators,
	}
}

// SplitText splits text into segments that each fit the max token budget.
// Blank input yields an empty result. Segments below the min budget are
// retained rather than dropped, so trailing fragments survive. No segment
// is ever blank or whitespace-only.
func (s *RecursiveTextSplitter) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if s.estimator.EstimateTokens(text) <= s.maxTokens {
		return []string{text}
	}

	return s.splitAtLevel(text, 0)
}

// workItem is one pending sub-problem. Resolved items pass through to the
// output; unresolved items still exceed the budget and are split at sepIndex.
type workItem struct {
	text     string
	sepIndex int
	resolved bool
}

// splitAtLevel runs the separator cascade as an explicit worklist instead of
// call-stack recursion, so pathological inputs cannot grow the stack.
// Output order matches input text order.
func (s *RecursiveTextSplitter) splitAtLevel(text string, sepIndex int) []string {
	var out []string

	stack := []workItem{{text: text, sepIndex: sepIndex}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		trimmed := strings.TrimSpace(item.text)
		if trimmed == "" {
			continue
		}

		if item.resolved || s.estimator.EstimateTokens(trimmed) <= s.maxTokens {
			out = append(out, trimmed)
			continue
		}

		// Advance past separators that do not occur in this text
		idx := item.sepIndex
		for idx < len(s.separators) && s.separators[idx] != "" && !strings.Contains(trimmed, s.separators[idx]) {
			idx++
		}

		var pieces []workItem
		if idx >= len(s.separators) || s.separators[idx] == "" {
			pieces = s.sliceByChars(trimmed)
		} else {
			pieces = s.recombineParts(trimmed, idx)
		}

		// Push in reverse so the stack pops them in document order
		for i := len(pieces) - 1; i >= 0; i-- {
			stack = append(stack, pieces[i])
		}
	}

	return out
}

// recombineParts splits on the separator at sepIndex, then greedily rejoins
// consecutive parts (re-appending the separator) into the largest run still
// under the budget. A single part that alone exceeds the budget is deferred
// to the next separator level.
func (s *RecursiveTextSplitter) recombineParts(text string, sepIndex int) []workItem {
	sep := s.separators[sepIndex]
	parts := strings.Split(text, sep)

	var pieces []workItem
	current := ""
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}

		candidate := part
		if current != "" {
			candidate = current + sep + part
		}

		if s.estimator.EstimateTokens(candidate) <= s.maxTokens {
			current = candidate
			continue
		}

		if current != "" {
			pieces = append(pieces, workItem{text: current, resolved: true})
			current = ""
		}

		if s.estimator.EstimateTokens(part) > s.maxTokens {
			pieces = append(pieces, workItem{text: part, sepIndex: sepIndex + 1})
		} else {
			current = part
		}
	}

	if strings.TrimSpace(current) != "" {
		pieces = append(pieces, workItem{text: current, resolved: true})
	}

	return pieces
}

// sliceByChars is the last-resort fallback: fixed-width character slicing
// sized to approximate the max token budget. Slicing is rune-wise so
// multibyte text is never cut mid-sequence.
func (s *RecursiveTextSplitter) sliceByChars(text string) []workItem {
	width := s.estimator.CharsForTokens(s.maxTokens)
	if width < 1 {
		width = 1
	}

	runes := []rune(text)
	var pieces []workItem
	for start := 0; start < len(runes); start += width {
		end := start + width
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, workItem{text: string(runes[start:end]), resolved: true})
	}
	return pieces
}

// CreateOverlappingChunks prepends a suffix of each chunk's predecessor,
// sized to approximately the overlap token budget and trimmed at the nearest
// word boundary so overlap never begins mid-word. A predecessor no longer
// than the overlap width contributes no overlap, so short chunks are never
// duplicated wholesale into their successors. The overlap is backward only:
// chunk i gains trailing context from chunk i-1. Chunk sizes are not
// re-validated afterwards, so a rendered chunk may exceed the max budget by
// up to the overlap budget.
func (s *RecursiveTextSplitter) CreateOverlappingChunks(chunks []string) []string {
	if len(chunks) <= 1 || s.overlapTokens <= 0 {
		return chunks
	}

	overlapChars := s.estimator.CharsForTokens(s.overlapTokens)

	result := make([]string, 0, len(chunks))
	result = append(result, chunks[0])
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		if len(prev) <= overlapChars {
			result = append(result, chunks[i])
			continue
		}

		overlap := string(prev[len(prev)-overlapChars:])
		// Drop the leading partial word
		if space := strings.Index(overlap, " "); space > 0 {
			overlap = overlap[space+1:]
		}

		overlap = strings.TrimSpace(overlap)
		if overlap == "" {
			result = append(result, chunks[i])
			continue
		}

		result = append(result, overlap+" "+chunks[i])
	}

	return result
}
