package internal

// Deduplicator cleans up session lists returned by the backend
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate drops summaries without an id and keeps the first summary for each id,
// preserving order
func (d *Deduplicator) Deduplicate(sessions []SessionSummary) []SessionSummary {
	seen := make(map[string]bool, len(sessions))
	unique := make([]SessionSummary, 0, len(sessions))

	for _, session := range sessions {
		if session.ID == "" || seen[session.ID] {
			continue
		}
		seen[session.ID] = true
		unique = append(unique, session)
	}

	return unique
}
