package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkContentHashDeterminism(t *testing.T) {
	a := Chunk{Content: "injection flaws", Source: "owasp", VulnerabilityID: "A03:2021", OrderIndex: 2}
	b := Chunk{Content: "injection flaws", Source: "owasp", VulnerabilityID: "A03:2021", OrderIndex: 2}

	a.ComputeContentHash()
	b.ComputeContentHash()
	assert.Equal(t, a.ContentHash, b.ContentHash)
	assert.Equal(t, a.ContentHashHex(), b.ContentHashHex())
}

func TestChunkContentHashFieldSensitivity(t *testing.T) {
	base := Chunk{Content: "injection flaws", Source: "owasp", VulnerabilityID: "A03:2021", OrderIndex: 2}
	base.ComputeContentHash()

	mutations := []Chunk{
		{Content: "injection flaws!", Source: "owasp", VulnerabilityID: "A03:2021", OrderIndex: 2},
		{Content: "injection flaws", Source: "mitre", VulnerabilityID: "A03:2021", OrderIndex: 2},
		{Content: "injection flaws", Source: "owasp", VulnerabilityID: "A01:2021", OrderIndex: 2},
		{Content: "injection flaws", Source: "owasp", VulnerabilityID: "A03:2021", OrderIndex: 3},
	}

	for i := range mutations {
		mutations[i].ComputeContentHash()
		assert.NotEqual(t, base.ContentHash, mutations[i].ContentHash, "mutation %d should change hash", i)
	}
}

func TestChunkComputeTokenCountMinimumOne(t *testing.T) {
	c := Chunk{Content: "ab"}
	assert.Equal(t, 1, c.ComputeTokenCount())

	c.Content = strings.Repeat("x", 400)
	assert.Equal(t, 100, c.ComputeTokenCount())
}

func TestChunkValidate(t *testing.T) {
	c := Chunk{
		Content:         "broken access control allows attackers to act outside intended permissions",
		VulnerabilityID: "A01:2021",
		Source:          "owasp",
		OrderIndex:      0,
	}
	c.ComputeTokenCount()
	c.ComputeContentHash()
	require.NoError(t, c.Validate())

	missing := c
	missing.VulnerabilityID = ""
	assert.Error(t, missing.Validate())

	badSource := c
	badSource.Source = "nvd"
	badSource.ComputeContentHash()
	assert.ErrorIs(t, badSource.Validate(), ErrInvalidSource)

	noHash := c
	noHash.ContentHash = [32]byte{}
	assert.Error(t, noHash.Validate())
}

func TestInferSource(t *testing.T) {
	tests := []struct {
		id   string
		want Source
	}{
		{"A01:2021", SourceOWASP},
		{"a03:2021", SourceOWASP},
		{"API1:2023", SourceOWASP},
		{"T1059", SourceMITRE},
		{"T1059.001", SourceMITRE},
		{"t1566", SourceMITRE},
		{"CVE-2021-44228", SourceCVE},
		{"cve-2014-0160", SourceCVE},
		{"GHSA-xxxx", SourceCustom},
		{"Thing", SourceCustom}, // leading T but not digits
		{"", SourceCustom},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, InferSource(tt.id), "id %q", tt.id)
	}
}

func TestFindingValidate(t *testing.T) {
	f := VulnerabilityFinding{ID: "CVE-2021-44228", Source: SourceCVE}
	require.NoError(t, f.Validate())

	f.ID = "   "
	assert.ErrorIs(t, f.Validate(), ErrEmptyVulnerabilityID)

	f = VulnerabilityFinding{ID: "X", Source: "unknown"}
	assert.ErrorIs(t, f.Validate(), ErrInvalidSource)

	f = VulnerabilityFinding{ID: "X", Source: SourceCustom, Description: strings.Repeat("a", MaxDescriptionLength+1)}
	assert.ErrorIs(t, f.Validate(), ErrDescriptionTooLong)
}

func TestRetrievedContextValidate(t *testing.T) {
	rc := RetrievedContext{
		Finding:          VulnerabilityFinding{ID: "A01:2021", Source: SourceOWASP},
		RetrievedChunks:  []string{"chunk one", "chunk two"},
		SimilarityScores: []float64{0.91, 0.75},
		SourceURLs:       []string{"https://owasp.org/Top10/A01_2021"},
		RetrievalQuery:   "A01:2021 Broken Access Control web application security vulnerability",
	}
	require.NoError(t, rc.Validate())
	assert.False(t, rc.IsEmpty())

	rc.SimilarityScores = rc.SimilarityScores[:1]
	assert.ErrorIs(t, rc.Validate(), ErrScoreChunkMismatch)

	rc.SimilarityScores = []float64{0.91, 1.2}
	assert.ErrorIs(t, rc.Validate(), ErrInvalidRelevanceScore)

	empty := RetrievedContext{Finding: VulnerabilityFinding{ID: "X", Source: SourceCustom}}
	require.NoError(t, empty.Validate())
	assert.True(t, empty.IsEmpty())
}
