// Package dedupe decides whether imported records already exist.
//
// Matching is entity specific (see TransactionStrategy and LeadStrategy) and
// shares one string similarity primitive. Everything here is pure and safe
// for concurrent use.
package dedupe

import (
	"math"
	"net"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity scores two strings from 0 (nothing in common) to 100
// (identical, ignoring case) using normalized Levenshtein distance.
func Similarity(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round((1 - float64(d)/float64(longest)) * 100))
}

var (
	legalSuffix       = regexp.MustCompile(`(?i)[\s,]+(inc\.?|l\.?l\.?c\.?|ltd\.?|limited|corp\.?|corporation)$`)
	trailingPunct     = regexp.MustCompile(`[\s.,;:!]+$`)
	protocolPrefix    = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.\-]*://`)
	domainLabel       = regexp.MustCompile(`^[a-z0-9]([a-z0-9\-]*[a-z0-9])?$`)
	collapseSeparator = regexp.MustCompile(`\s+`)
)

// NormalizeCompanyName lowercases a company name and strips legal suffixes
// and trailing punctuation, so "Acme, Inc." and "acme" compare equal.
func NormalizeCompanyName(name string) string {
	n := collapseSeparator.ReplaceAllString(strings.TrimSpace(strings.ToLower(name)), " ")
	for {
		stripped := trailingPunct.ReplaceAllString(legalSuffix.ReplaceAllString(n, ""), "")
		if stripped == n {
			return n
		}
		n = stripped
	}
}

// ExtractDomain reduces a website or URL to its bare host, without
// protocol, "www." prefix, port or path. It reports false for empty input
// and for hosts without a dot.
func ExtractDomain(website string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(website))
	s = protocolPrefix.ReplaceAllString(s, "")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimSuffix(s, ".")

	if !strings.Contains(s, ".") {
		return "", false
	}
	for _, label := range strings.Split(s, ".") {
		if !domainLabel.MatchString(label) {
			return "", false
		}
	}
	return s, true
}
