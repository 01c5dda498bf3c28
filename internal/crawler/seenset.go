package crawler

// SeenSet holds the offer ids already known before the current crawl
// session. It also receives the ids ingested during the session, so a
// synthetic id appearing twice in one run is only ingested once.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet builds a seen-set from previously stored offer ids. An empty
// collection means a first run: everything is new.
func NewSeenSet(ids []string) *SeenSet {
	set := &SeenSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			set.ids[id] = struct{}{}
		}
	}
	return set
}

// IsNew reports whether the id has not been seen before. An empty id is
// always new; it gets a synthetic id before ingestion.
func (s *SeenSet) IsNew(id string) bool {
	if id == "" {
		return true
	}
	_, ok := s.ids[id]
	return !ok
}

// Add records an id as seen.
func (s *SeenSet) Add(id string) {
	if id != "" {
		s.ids[id] = struct{}{}
	}
}

// Len returns the number of known ids.
func (s *SeenSet) Len() int {
	return len(s.ids)
}
