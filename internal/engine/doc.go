// Package engine coordinates cache-aside company lookups.
//
// An Engine answers a query from the bounded cache when it can. On a miss it
// collapses concurrent lookups for the same key into a single provider call,
// caches the response and appends non-empty results to the SQLite store
// through the connection pool. Persistence is best effort: a failed write is
// logged and reported on the Result but never fails the lookup.
//
// Provider failures degrade to an empty, uncached result so callers can tell
// "no results" apart from "fetch failed" by inspecting Result.Source.
package engine
