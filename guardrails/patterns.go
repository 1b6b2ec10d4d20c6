package guardrails

import "regexp"

// Injection patterns mirror the known prompt-manipulation and SQL phrasings
// this system has actually seen; they are a blocklist, not a classifier.
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore.*previous.*instructions?`),
	regexp.MustCompile(`(?i)forget.*previous.*instructions?`),
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`(?i)system:`),
	regexp.MustCompile(`(?i)assistant:`),
	regexp.MustCompile(`(?i)disregard.*above`),
}

var sqlInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bUNION\b.*\bSELECT\b`),
	regexp.MustCompile(`(?i)\bDROP\b.*\bTABLE\b`),
	regexp.MustCompile(`(?i)\bINSERT\b.*\bINTO\b`),
	regexp.MustCompile(`(?i)\bDELETE\b.*\bFROM\b`),
	regexp.MustCompile(`--|#|/\*|\*/`),
}

// PII patterns cover fixed-format identifiers. Placeholders are typed so a
// reader of the sanitized text still knows what kind of value was removed.
var piiPatterns = []struct {
	Type        string
	Placeholder string
	Pattern     *regexp.Regexp
}{
	{
		Type:        "EMAIL",
		Placeholder: "[EMAIL]",
		Pattern:     regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	},
	{
		Type:        "DOCUMENT",
		Placeholder: "[DOCUMENT]",
		// CPF-style identifier: 000.000.000-00
		Pattern: regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`),
	},
	{
		Type:        "PHONE",
		Placeholder: "[PHONE]",
		// (11) 91234-5678, 11 1234-5678 or +5511912345678
		Pattern: regexp.MustCompile(`\+\d{10,14}|\(?\d{2}\)?\s?\d{4,5}-\d{4}`),
	},
}

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// detectInjection scans text against the injection blocklists. Returns the
// matched category and true when any pattern fires.
func detectInjection(text string) (string, bool) {
	for _, p := range promptInjectionPatterns {
		if p.MatchString(text) {
			return "potential prompt injection detected", true
		}
	}
	for _, p := range sqlInjectionPatterns {
		if p.MatchString(text) {
			return "potential SQL injection detected", true
		}
	}
	return "", false
}

// RedactPII replaces fixed-format identifiers with typed placeholders and
// reports what was replaced. The original match never survives in the output.
func RedactPII(text string) (string, []Redaction) {
	var redactions []Redaction
	for _, p := range piiPatterns {
		matches := p.Pattern.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		text = p.Pattern.ReplaceAllString(text, p.Placeholder)
		redactions = append(redactions, Redaction{Type: p.Type, Count: len(matches)})
	}
	return text, redactions
}
