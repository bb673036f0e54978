// Package search indexes note content so users can find a card on the
// infinite canvas. Meilisearch is used when configured; otherwise searches
// fall back to an in-memory scan of the live notes.
package search

// NoteRecord is the data we index for a note card. Image payloads are
// opaque and never indexed.
type NoteRecord struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Result is a single search hit: the matching note plus its canvas
// position so the UI can jump to it.
type Result struct {
	ID      string  `json:"id"`
	Snippet string  `json:"snippet"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Query describes a search request.
type Query struct {
	Text  string
	Limit int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over note content.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
