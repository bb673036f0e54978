package search

import (
	"log"
	"strings"
	"sync"
)

// Service is the facade that tries Meilisearch first and falls back to an
// in-memory scan of the last synced note records.
type Service struct {
	meili *Meili

	mu      sync.Mutex
	records []NoteRecord
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured; searches then use the memory fallback only.
func NewService(meili *Meili) *Service {
	return &Service{meili: meili}
}

// Sync updates both the memory fallback and, when available, the
// Meilisearch index. The meili push is fire-and-forget; failures are logged
// and the fallback still serves.
func (s *Service) Sync(records []NoteRecord) {
	s.mu.Lock()
	var removed []string
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		seen[record.ID] = struct{}{}
	}
	for _, old := range s.records {
		if _, ok := seen[old.ID]; !ok {
			removed = append(removed, old.ID)
		}
	}
	s.records = records
	s.mu.Unlock()

	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.SyncNotes(records, removed); err != nil {
			log.Printf("search: sync notes: %v", err)
		}
	}()
}

// Search tries Meilisearch if healthy, otherwise scans the memory fallback.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to memory scan: %v", err)
	}

	results := s.scan(q)
	return Response{Results: nonNil(results), Total: len(results), Query: q.Text}
}

// scan is the fallback: a case-insensitive substring match over note
// content.
func (s *Service) scan(q Query) []Result {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return nil
	}
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var results []Result
	for _, record := range s.records {
		if !strings.Contains(strings.ToLower(record.Content), needle) {
			continue
		}
		results = append(results, Result{
			ID:      record.ID,
			Snippet: snippet(record.Content, needle),
			X:       record.X,
			Y:       record.Y,
		})
		if len(results) >= limit {
			break
		}
	}
	return results
}

// snippet extracts a short window of content around the first match.
func snippet(content, needle string) string {
	const window = 40
	idx := strings.Index(strings.ToLower(content), needle)
	if idx < 0 {
		return content
	}
	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + window
	if end > len(content) {
		end = len(content)
	}
	out := content[start:end]
	if start > 0 {
		out = "…" + out
	}
	if end < len(content) {
		out += "…"
	}
	return out
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
