package detection

import (
	"regexp"
	"sort"
	"strings"

	"github.com/HollandReese/bulwark/internal/models"
)

// Signature is one compiled attack pattern. Patterns are data: the analyzer
// evaluates whatever table it is constructed with, which keeps each rule
// individually testable.
type Signature struct {
	Name     string
	Pattern  *regexp.Regexp
	Type     models.IntrusionType
	Severity models.Severity
}

// ScanResult classifies a request snapshot
type ScanResult struct {
	Threat    bool
	Signature string
	Type      models.IntrusionType
	Severity  models.Severity
}

// DefaultSignatures returns the built-in rule table. Order matters: SQL
// injection rules are evaluated before XSS rules and the first match wins.
func DefaultSignatures() []Signature {
	return []Signature{
		{
			Name:     "sqli_union_select",
			Pattern:  regexp.MustCompile(`(?i)union[\s/*+]+select`),
			Type:     models.IntrusionSQLInjection,
			Severity: models.SeverityHigh,
		},
		{
			Name:     "sqli_select_from",
			Pattern:  regexp.MustCompile(`(?i)select\s+[\w*,\s]+\s+from\s`),
			Type:     models.IntrusionSQLInjection,
			Severity: models.SeverityHigh,
		},
		{
			Name:     "sqli_insert_into",
			Pattern:  regexp.MustCompile(`(?i)insert\s+into`),
			Type:     models.IntrusionSQLInjection,
			Severity: models.SeverityHigh,
		},
		{
			Name:     "sqli_drop_table",
			Pattern:  regexp.MustCompile(`(?i)drop\s+table`),
			Type:     models.IntrusionSQLInjection,
			Severity: models.SeverityHigh,
		},
		{
			Name:     "sqli_delete_from",
			Pattern:  regexp.MustCompile(`(?i)delete\s+from`),
			Type:     models.IntrusionSQLInjection,
			Severity: models.SeverityHigh,
		},
		{
			Name:     "sqli_quote_or_equals",
			Pattern:  regexp.MustCompile(`(?i)('|%27)\s*(or|and)\s*('|%27)?[\w\s]*('|%27)?\s*=`),
			Type:     models.IntrusionSQLInjection,
			Severity: models.SeverityHigh,
		},
		{
			Name:     "xss_script_tag",
			Pattern:  regexp.MustCompile(`(?i)<\s*script[\s>]`),
			Type:     models.IntrusionXSSAttack,
			Severity: models.SeverityMedium,
		},
		{
			Name:     "xss_javascript_uri",
			Pattern:  regexp.MustCompile(`(?i)javascript\s*:`),
			Type:     models.IntrusionXSSAttack,
			Severity: models.SeverityMedium,
		},
		{
			Name:     "xss_event_handler",
			Pattern:  regexp.MustCompile(`(?i)\bon(load|error|click|mouseover|focus|submit)\s*=`),
			Type:     models.IntrusionXSSAttack,
			Severity: models.SeverityMedium,
		},
		{
			Name:     "xss_iframe_tag",
			Pattern:  regexp.MustCompile(`(?i)<\s*iframe`),
			Type:     models.IntrusionXSSAttack,
			Severity: models.SeverityMedium,
		},
		{
			Name:     "xss_object_tag",
			Pattern:  regexp.MustCompile(`(?i)<\s*object`),
			Type:     models.IntrusionXSSAttack,
			Severity: models.SeverityMedium,
		},
	}
}

// DefaultExemptPaths are request paths never subjected to the content scan.
// Credential fields legitimately contain quotes and special characters.
func DefaultExemptPaths() []string {
	return []string{
		"/health",
		"/auth/login",
		"/auth/signup",
		"/admin/login",
		"/internal/login-outcome",
	}
}

// SignatureAnalyzer scans request snapshots against a compiled pattern set.
// It holds no mutable state and is safe for concurrent use.
type SignatureAnalyzer struct {
	signatures   []Signature
	exemptPaths  map[string]struct{}
	maxScanBytes int
}

// NewSignatureAnalyzer builds an analyzer from a rule table.
// maxScanBytes caps the searchable representation so scan cost stays
// proportional to a fixed input size.
func NewSignatureAnalyzer(signatures []Signature, exemptPaths []string, maxScanBytes int) *SignatureAnalyzer {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}
	if maxScanBytes <= 0 {
		maxScanBytes = 64 * 1024
	}
	return &SignatureAnalyzer{
		signatures:   signatures,
		exemptPaths:  exempt,
		maxScanBytes: maxScanBytes,
	}
}

// MaxScanBytes returns the cap on the searchable representation
func (a *SignatureAnalyzer) MaxScanBytes() int {
	return a.maxScanBytes
}

// Exempt reports whether path bypasses the content scan entirely
func (a *SignatureAnalyzer) Exempt(path string) bool {
	_, ok := a.exemptPaths[path]
	return ok
}

// Scan serializes the snapshot's URL, query, body, and headers into one
// searchable string and tests the rule table in order. The first matching
// signature classifies the request; later rules are not evaluated.
func (a *SignatureAnalyzer) Scan(snapshot models.RequestSnapshot) ScanResult {
	if a.Exempt(snapshot.Path) {
		return ScanResult{}
	}

	haystack := a.searchable(snapshot)

	for _, sig := range a.signatures {
		if sig.Pattern.MatchString(haystack) {
			return ScanResult{
				Threat:    true,
				Signature: sig.Name,
				Type:      sig.Type,
				Severity:  sig.Severity,
			}
		}
	}

	return ScanResult{}
}

func (a *SignatureAnalyzer) searchable(snapshot models.RequestSnapshot) string {
	var b strings.Builder
	b.WriteString(snapshot.Path)
	b.WriteByte('\n')
	b.WriteString(snapshot.RawQuery)
	b.WriteByte('\n')
	b.WriteString(snapshot.Body)
	b.WriteByte('\n')

	// Deterministic header order keeps scans reproducible
	keys := make([]string, 0, len(snapshot.Headers))
	for k := range snapshot.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(snapshot.Headers[k])
		b.WriteByte('\n')
	}

	s := b.String()
	if len(s) > a.maxScanBytes {
		s = s[:a.maxScanBytes]
	}
	return s
}
