package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := New()
	assert.NotNil(t, c)
}

func TestEstimateTokens_MinimumOne(t *testing.T) {
	e := NewTokenEstimator()
	assert.Equal(t, 1, e.EstimateTokens(""))
	assert.Equal(t, 1, e.EstimateTokens("ab"))
	assert.Equal(t, 25, e.EstimateTokens(strings.Repeat("x", 100)))
}

func TestEstimateTokens_CountsCharactersNotBytes(t *testing.T) {
	e := NewTokenEstimator()
	assert.Equal(t, 25, e.EstimateTokens(strings.Repeat("日", 100)))
}

func TestCharsForTokens(t *testing.T) {
	e := NewTokenEstimator()
	assert.Equal(t, 200, e.CharsForTokens(50))
}

func TestSplitText_BlankInput(t *testing.T) {
	s := NewSplitter(100, 10, 0)
	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText("   \n\t  "))
}

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(100, 10, 0)
	chunks := s.SplitText("This is a short text that should not be split.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "This is a short text that should not be split.", chunks[0])
}

func TestSplitText_TrimsWhitespacePreservingContent(t *testing.T) {
	s := NewSplitter(100, 10, 0)
	chunks := s.SplitText("  padded text  ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "padded text", chunks[0])
}

func TestSplitText_SpaceSeparatedWords(t *testing.T) {
	words := make([]string, 10)
	for i := range words {
		words[i] = "word" + string(rune('0'+i))
	}
	text := strings.Join(words, " ")

	s := NewSplitter(10, 2, 0)
	chunks := s.SplitText(text)

	assert.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitText_ParagraphBoundariesFirst(t *testing.T) {
	para := strings.Repeat("alpha beta gamma delta ", 10)
	text := para + "\n\n" + para + "\n\n" + para

	s := NewSplitter(60, 10, 0)
	chunks := s.SplitText(text)

	assert.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.NotContains(t, c, "\n\n", "paragraph split should not leave paragraph breaks inside chunks")
	}
}

func TestSplitText_SentenceBoundariesBeforeWords(t *testing.T) {
	text := "Paragraph one. Paragraph two. Paragraph three. Paragraph four."

	s := NewSplitter(10, 2, 0)
	chunks := s.SplitText(text)

	assert.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		words := strings.Fields(c)
		assert.Equal(t, 0, len(words)%2, "chunks should hold whole sentences: %q", c)
	}
}

func TestSplitText_NoBlankChunksEver(t *testing.T) {
	inputs := []string{
		"a\n\n\n\n\nb",
		strings.Repeat(". ", 50),
		strings.Repeat("word ", 200),
		"one\n\ntwo\n\n\n\nthree",
	}

	s := NewSplitter(5, 1, 0)
	for _, in := range inputs {
		for _, c := range s.SplitText(in) {
			assert.NotEmpty(t, strings.TrimSpace(c), "input %q produced blank chunk", in)
		}
	}
}

func TestSplitText_CharacterFallback(t *testing.T) {
	// No separator at any level: one giant token
	text := strings.Repeat("x", 1000)

	s := NewSplitter(25, 5, 0)
	chunks := s.SplitText(text)

	require.NotEmpty(t, chunks)
	assert.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
		total += len(c)
	}
	assert.Equal(t, 1000, total)
}

func TestSplitText_MultibyteFallbackKeepsValidUTF8(t *testing.T) {
	// Separator-free CJK text forces the character fallback
	text := strings.Repeat("日", 300)

	s := NewSplitter(10, 2, 0)
	chunks := s.SplitText(text)

	require.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk is not valid UTF-8: %q", c)
		total += utf8.RuneCountInString(c)
	}
	assert.Equal(t, 300, total)
}

func TestSplitText_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	s := NewSplitter(50, 10, 0)
	first := s.SplitText(text)
	second := s.SplitText(text)
	assert.Equal(t, first, second)
}

func TestCreateOverlappingChunks_SingleChunkUnchanged(t *testing.T) {
	s := NewSplitter(100, 10, 20)
	chunks := []string{"only chunk"}
	assert.Equal(t, chunks, s.CreateOverlappingChunks(chunks))
}

func TestCreateOverlappingChunks_PrependsPreviousSuffix(t *testing.T) {
	s := NewSplitter(100, 10, 5)
	chunks := []string{
		"attackers can exploit broken access control to escalate privileges",
		"mitigations include deny by default and server side enforcement",
	}

	out := s.CreateOverlappingChunks(chunks)
	require.Len(t, out, 2)
	assert.Equal(t, chunks[0], out[0])
	assert.True(t, strings.HasSuffix(strings.Split(out[1], " mitigations")[0], "privileges"),
		"overlap should end with the predecessor's trailing words: %q", out[1])
	assert.True(t, strings.HasSuffix(out[1], chunks[1]))
}

func TestCreateOverlappingChunks_WordBoundaryTrim(t *testing.T) {
	s := NewSplitter(100, 10, 3) // 12 chars of overlap
	chunks := []string{
		"zzz unbreakable perimeter",
		"next chunk",
	}

	out := s.CreateOverlappingChunks(chunks)
	require.Len(t, out, 2)
	// 12-char suffix is "e perimeter" territory; trim must not start mid-word
	overlap := strings.TrimSuffix(out[1], " next chunk")
	assert.Equal(t, "perimeter", overlap)
}

func TestCreateOverlappingChunks_ShortPredecessorAddsNoOverlap(t *testing.T) {
	s := NewSplitter(10, 2, 50) // overlap window far wider than the chunks
	chunks := []string{"short one", "short two"}

	out := s.CreateOverlappingChunks(chunks)
	require.Len(t, out, 2)
	assert.Equal(t, "short one", out[0])
	assert.Equal(t, "short two", out[1], "a predecessor shorter than the overlap window must not be duplicated")
}

func TestCreateOverlappingChunks_MultibyteSuffix(t *testing.T) {
	s := NewSplitter(100, 10, 2) // 8 chars of overlap
	chunks := []string{strings.Repeat("水", 20), "next chunk"}

	out := s.CreateOverlappingChunks(chunks)
	require.Len(t, out, 2)
	assert.True(t, utf8.ValidString(out[1]))
	assert.Equal(t, strings.Repeat("水", 8)+" next chunk", out[1])
}

func TestChunkDocument_BlankText(t *testing.T) {
	c := New()
	assert.Empty(t, c.ChunkDocument("", DocumentMeta{ID: "A01:2021"}, DefaultOptions()))
	assert.Empty(t, c.ChunkDocument("  \n ", DocumentMeta{ID: "A01:2021"}, DefaultOptions()))
}

func TestChunkDocument_OrderIndexesSequential(t *testing.T) {
	text := strings.Repeat("Injection vulnerabilities occur when untrusted data reaches an interpreter. ", 60)

	c := New()
	chunks := c.ChunkDocument(text, DocumentMeta{ID: "A03:2021", Source: "owasp"}, ChunkOptions{
		MaxTokens: 50, MinTokens: 10, OverlapTokens: 10,
	})

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.OrderIndex)
		assert.GreaterOrEqual(t, chunk.TokenCount, 1)
		assert.NotEmpty(t, chunk.Content)
	}
}

func TestChunkDocument_OverlapFlags(t *testing.T) {
	text := strings.Repeat("Cross site scripting lets attackers run scripts in a victim browser session. ", 60)

	c := New()
	chunks := c.ChunkDocument(text, DocumentMeta{ID: "A07:2021"}, ChunkOptions{
		MaxTokens: 50, MinTokens: 10, OverlapTokens: 10,
	})
	require.Greater(t, len(chunks), 1)

	n := len(chunks)
	assert.False(t, chunks[0].OverlapPre)
	assert.True(t, chunks[0].OverlapPost)
	assert.False(t, chunks[n-1].OverlapPost)
	assert.True(t, chunks[n-1].OverlapPre)
	for _, chunk := range chunks[1 : n-1] {
		assert.True(t, chunk.OverlapPre)
		assert.True(t, chunk.OverlapPost)
	}
}

func TestChunkDocument_NoOverlapAllFlagsFalse(t *testing.T) {
	text := strings.Repeat("Server side request forgery flaws let attackers coerce the server. ", 60)

	c := New()
	chunks := c.ChunkDocument(text, DocumentMeta{ID: "A10:2021"}, ChunkOptions{
		MaxTokens: 50, MinTokens: 10, OverlapTokens: 0,
	})
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.False(t, chunk.OverlapPre)
		assert.False(t, chunk.OverlapPost)
	}
}

func TestChunkDocument_Idempotent(t *testing.T) {
	text := strings.Repeat("Security misconfiguration is the most commonly seen issue. ", 80)
	meta := DocumentMeta{ID: "A05:2021", Title: "Security Misconfiguration", Source: "owasp"}
	opts := ChunkOptions{MaxTokens: 60, MinTokens: 10, OverlapTokens: 15}

	c := New()
	first := c.ChunkDocument(text, meta, opts)
	second := c.ChunkDocument(text, meta, opts)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Content, second[i].Content)
		assert.Equal(t, first[i].ContentHash, second[i].ContentHash)
	}
}

func TestChunkDocument_SourceInferredWhenAbsent(t *testing.T) {
	c := New()
	chunks := c.ChunkDocument("Adversaries may abuse command interpreters.", DocumentMeta{ID: "T1059"}, DefaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, "mitre", chunks[0].Source)
}

func TestChunkDocument_MetadataPropagated(t *testing.T) {
	c := New()
	meta := DocumentMeta{
		ID:     "CVE-2021-44228",
		Title:  "Log4Shell",
		Source: "cve",
		URL:    "https://nvd.nist.gov/vuln/detail/CVE-2021-44228",
	}
	chunks := c.ChunkDocument("JNDI features do not protect against attacker controlled endpoints.", meta, DefaultOptions())
	require.Len(t, chunks, 1)

	chunk := chunks[0]
	assert.Equal(t, meta.ID, chunk.VulnerabilityID)
	assert.Equal(t, meta.Title, chunk.Title)
	assert.Equal(t, meta.Source, chunk.Source)
	assert.Equal(t, meta.URL, chunk.URL)
	require.NoError(t, chunk.Validate())
}
