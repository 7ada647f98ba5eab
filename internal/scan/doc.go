// Package scan normalizes raw vulnerability scan output and extracts
// vulnerability identifiers from it.
//
// Normalization accepts plain text or JSON scan payloads: JSON objects have
// secret-bearing keys (API keys, tokens, passwords) redacted before being
// rendered as text, line endings are unified to \n, runs of blank lines are
// collapsed, and trailing whitespace is stripped.
//
// Extraction finds OWASP Top 10 (A01:2021, API1:2023), MITRE ATT&CK (T1059,
// T1059.001), and CVE identifiers, uppercases them, and returns them
// deduplicated in order of first appearance. ExtractWithContext additionally
// captures a window of surrounding text per finding.
package scan
