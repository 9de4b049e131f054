package serpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Daethyra/ExecEye/internal/search"
)

// APIError is a failure reported by SerpAPI itself, either as a non-2xx status
// or as an "error" field in the response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serpapi: %s (status %d)", e.Message, e.StatusCode)
}

// Unauthorized reports whether the provider rejected the API key.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden ||
		strings.Contains(strings.ToLower(e.Message), "invalid api key")
}

// result is one entry of a SerpAPI results array.
type result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type response struct {
	Error          string   `json:"error"`
	OrganicResults []result `json:"organic_results"`
	NewsResults    []result `json:"news_results"`
}

// records returns the section matching intent as search records.
func (r response) records(intent search.Intent) []search.Record {
	section := r.OrganicResults
	if intent == search.IntentNews {
		section = r.NewsResults
	}

	out := make([]search.Record, 0, len(section))
	for _, res := range section {
		out = append(out, search.Record{
			Title:   strings.TrimSpace(res.Title),
			Link:    strings.TrimSpace(res.Link),
			Snippet: strings.TrimSpace(res.Snippet),
		})
	}
	return out
}

// errorMessage extracts SerpAPI's error text from body, falling back to the
// HTTP status line.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return status
}
