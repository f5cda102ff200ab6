package engine

// Session holds per-run mutable state that is deliberately not persisted:
// the set of inbound message IDs already turned into rules. A restart
// forgets them, which is acceptable because providers only return a short
// rolling window of recent messages anyway.
type Session struct {
	processedSIDs map[string]struct{}
}

// NewSession creates a fresh session.
func NewSession() *Session {
	return &Session{processedSIDs: make(map[string]struct{})}
}

// Processed reports whether a message SID was already handled this session.
func (s *Session) Processed(sid string) bool {
	_, ok := s.processedSIDs[sid]
	return ok
}

// MarkProcessed records a message SID as handled.
func (s *Session) MarkProcessed(sid string) {
	s.processedSIDs[sid] = struct{}{}
}

// ProcessedCount returns how many SIDs have been handled this session.
func (s *Session) ProcessedCount() int {
	return len(s.processedSIDs)
}
