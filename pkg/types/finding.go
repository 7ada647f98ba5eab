package types

import "strings"

// Source identifies the taxonomy a vulnerability identifier belongs to
type Source string

const (
	SourceOWASP  Source = "owasp"
	SourceMITRE  Source = "mitre"
	SourceCVE    Source = "cve"
	SourceCustom Source = "custom"
)

// MaxDescriptionLength bounds finding descriptions; longer text belongs in
// the chunked knowledge base, not the finding record
const MaxDescriptionLength = 5000

// ValidSource reports whether s names a known taxonomy
func ValidSource(s string) bool {
	switch Source(s) {
	case SourceOWASP, SourceMITRE, SourceCVE, SourceCustom:
		return true
	default:
		return false
	}
}

// InferSource guesses the taxonomy from an identifier's lexical shape.
// Inference is purely syntactic and case-insensitive: "A01:2021" and
// "API1:2023" are OWASP, "T1059" and "T1059.001" are MITRE, "CVE-..." is
// CVE, everything else is custom.
func InferSource(id string) Source {
	upper := strings.ToUpper(strings.TrimSpace(id))
	switch {
	case strings.HasPrefix(upper, "CVE-"):
		return SourceCVE
	case strings.HasPrefix(upper, "A") && strings.Contains(upper, ":"):
		return SourceOWASP
	case strings.HasPrefix(upper, "T") && len(upper) > 1 && isDigitsAndDots(upper[1:]):
		return SourceMITRE
	default:
		return SourceCustom
	}
}

func isDigitsAndDots(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return s != ""
}

// VulnerabilityFinding identifies a vulnerability under analysis
type VulnerabilityFinding struct {
	ID          string
	Source      Source
	Title       string // optional
	Description string // optional, bounded by MaxDescriptionLength
}

// Validate checks if the finding is valid
func (f *VulnerabilityFinding) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return ErrEmptyVulnerabilityID
	}

	if !ValidSource(string(f.Source)) {
		return ErrInvalidSource
	}

	if len(f.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}

	return nil
}
