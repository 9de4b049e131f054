// Package search holds the value types shared by the lookup provider, the
// coordinator and the persistence layer.
package search

import (
	"fmt"
	"strings"
)

// Intent selects which kind of results a lookup asks the provider for.
type Intent string

// Supported intents.
const (
	// IntentLeadership asks for executives and board members of a company.
	IntentLeadership Intent = "leadership"

	// IntentNews asks for recent news coverage of a company.
	IntentNews Intent = "news"
)

// DefaultIntent is used when a caller does not choose one.
const DefaultIntent = IntentLeadership

// Intents returns every supported intent in display order.
func Intents() []Intent {
	return []Intent{IntentLeadership, IntentNews}
}

// ParseIntent converts a user-supplied name into an Intent.
// The empty string maps to DefaultIntent.
func ParseIntent(name string) (Intent, error) {
	switch Intent(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultIntent, nil
	case IntentLeadership:
		return IntentLeadership, nil
	case IntentNews:
		return IntentNews, nil
	default:
		return "", fmt.Errorf("unknown intent %q (valid: leadership, news)", name)
	}
}

// String implements fmt.Stringer.
func (i Intent) String() string {
	return string(i)
}

// Record is one result returned by the provider. Fields the provider did not
// supply are left empty; display code decides how to show them.
type Record struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Request is what the coordinator hands to a provider.
type Request struct {
	// Subject is the trimmed company name the user asked about.
	Subject string

	// Intent selects the query shape and the response section to read.
	Intent Intent

	// Query is the full text sent to the search engine.
	Query string
}

// NewRequest builds the provider request for subject and intent.
func NewRequest(subject string, intent Intent) Request {
	return Request{
		Subject: subject,
		Intent:  intent,
		Query:   QueryText(subject, intent),
	}
}

// QueryText returns the search engine query for subject. Leadership lookups
// broaden the search to both executives and the board of directors.
func QueryText(subject string, intent Intent) string {
	switch intent {
	case IntentNews:
		return subject + " company news"
	default:
		return subject + " executives OR " + subject + " board of directors"
	}
}

// CloneRecords returns a copy of records so callers can't mutate shared state.
// A nil input yields an empty, non-nil slice.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
