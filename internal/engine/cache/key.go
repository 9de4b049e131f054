package cache

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/Daethyra/ExecEye/internal/search"
)

// keySeparator joins the normalized subject and the intent. Intents never
// contain it, so the last separator in a key always splits it unambiguously.
const keySeparator = "|"

// NormalizeSubject trims the subject, collapses internal whitespace runs to a
// single space and case-folds it, so "  ACME   corp" and "acme Corp" share a
// cache entry.
func NormalizeSubject(subject string) string {
	collapsed := strings.Join(strings.Fields(subject), " ")
	return cases.Fold().String(collapsed)
}

// GenerateKey returns the deterministic cache key for subject and intent.
// An empty intent is treated as search.DefaultIntent.
func GenerateKey(subject string, intent search.Intent) string {
	if intent == "" {
		intent = search.DefaultIntent
	}
	return NormalizeSubject(subject) + keySeparator + string(intent)
}

// SplitKey reverses GenerateKey into its normalized subject and intent.
// ok is false for strings that were not produced by GenerateKey.
func SplitKey(key string) (subject string, intent search.Intent, ok bool) {
	idx := strings.LastIndex(key, keySeparator)
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], search.Intent(key[idx+len(keySeparator):]), true
}
