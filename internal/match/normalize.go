package match

import (
	"regexp"
	"strings"
)

var (
	rePunct  = regexp.MustCompile(`[^a-z0-9\s]`)
	reSpaces = regexp.MustCompile(`\s+`)
)

// Generic corporate suffixes and filler words stripped before comparing
// company names, so "Acme Corp." and "The Acme Corporation" collapse to "acme".
var companyStopwords = map[string]struct{}{
	"inc": {}, "incorporated": {}, "corp": {}, "corporation": {},
	"ltd": {}, "limited": {}, "llc": {}, "company": {}, "co": {},
	"enterprises": {}, "group": {}, "holdings": {}, "international": {},
	"intl": {}, "services": {}, "solutions": {}, "systems": {},
	"technologies": {}, "tech": {}, "the": {}, "and": {}, "of": {}, "for": {},
}

// NormalizeCompanyName lower-cases, replaces punctuation with spaces,
// collapses whitespace runs, and removes the corporate-suffix stoplist.
func NormalizeCompanyName(input string) string {
	s := strings.ToLower(input)
	s = rePunct.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	parts := strings.Split(s, " ")
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if _, stop := companyStopwords[p]; stop {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		// Every token was a stopword; fall back to the cleaned string so
		// "The Company" still compares against something.
		return s
	}
	return strings.Join(kept, " ")
}

// CollapseWhitespace reduces internal whitespace runs to single spaces.
func CollapseWhitespace(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}
