package scan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

// DefaultContextChars is the default surrounding-text window captured by
// ExtractWithContext
const DefaultContextChars = 100

// Compiled patterns for the three identifier taxonomies. All are
// case-insensitive; matched IDs are uppercased.
var (
	// mitrePattern matches ATT&CK technique IDs: T1059 or T1059.001
	mitrePattern = regexp.MustCompile(`(?i)\b(T\d{4}(?:\.\d{3})?)\b`)

	// owaspPattern matches Top 10 and API Top 10 IDs: A01:2021 or API1:2023
	owaspPattern = regexp.MustCompile(`(?i)\b(A(?:PI)?\d{1,2}:\d{4})\b`)

	// cvePattern requires at least 4 digits after the year: CVE-2023-12345
	cvePattern = regexp.MustCompile(`(?i)\b(CVE-\d{4}-\d{4,})\b`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

type match struct {
	position int
	end      int
	id       string
	source   types.Source
}

// Extract scans normalized text for OWASP, MITRE ATT&CK, and CVE
// identifiers. IDs are uppercased and deduplicated; findings come back in
// order of first appearance in the text.
func Extract(text string) []types.VulnerabilityFinding {
	if text == "" {
		return nil
	}

	matches := findMatches(text)

	seen := make(map[string]bool, len(matches))
	findings := make([]types.VulnerabilityFinding, 0, len(matches))
	for _, m := range matches {
		if seen[m.id] {
			continue
		}
		seen[m.id] = true
		findings = append(findings, types.VulnerabilityFinding{
			ID:     m.id,
			Source: m.source,
		})
	}

	return findings
}

// ExtractWithContext is Extract plus a surrounding-text window per finding,
// stored in the Description field. contextChars <= 0 uses
// DefaultContextChars.
func ExtractWithContext(text string, contextChars int) []types.VulnerabilityFinding {
	if text == "" {
		return nil
	}
	if contextChars <= 0 {
		contextChars = DefaultContextChars
	}

	matches := findMatches(text)

	seen := make(map[string]bool, len(matches))
	findings := make([]types.VulnerabilityFinding, 0, len(matches))
	for _, m := range matches {
		if seen[m.id] {
			continue
		}
		seen[m.id] = true

		start := m.position - contextChars
		if start < 0 {
			start = 0
		}
		end := m.end + contextChars
		if end > len(text) {
			end = len(text)
		}
		context := strings.TrimSpace(text[start:end])
		context = whitespaceRun.ReplaceAllString(context, " ")

		finding := types.VulnerabilityFinding{
			ID:     m.id,
			Source: m.source,
		}
		if context != "" {
			finding.Description = "..." + context + "..."
		}
		findings = append(findings, finding)
	}

	return findings
}

// ExtractIDs returns only the identifiers, deduplicated in first-appearance
// order.
func ExtractIDs(text string) []string {
	findings := Extract(text)
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
	}
	return ids
}

func findMatches(text string) []match {
	patterns := []struct {
		re     *regexp.Regexp
		source types.Source
	}{
		{mitrePattern, types.SourceMITRE},
		{owaspPattern, types.SourceOWASP},
		{cvePattern, types.SourceCVE},
	}

	var matches []match
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2], loc[3]
			matches = append(matches, match{
				position: start,
				end:      end,
				id:       strings.ToUpper(text[start:end]),
				source:   p.source,
			})
		}
	}

	// Patterns scan independently, so restore document order
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].position < matches[j].position
	})

	return matches
}
