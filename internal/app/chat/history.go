package chat

// HistoryStore keeps a per-identity append-only log of the messages that
// identity is entitled to see. Logs survive disconnects so a later login with
// the same identity ID resumes where it left off. Like the Registry it is owned
// by the Hub's event loop and is not safe for concurrent use.
//
// There is no eviction: history grows for the lifetime of the process.
type HistoryStore struct {
	logs map[string][]Message
}

// NewHistoryStore returns an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{logs: make(map[string][]Message)}
}

// Ensure creates an empty log for identityID if none exists yet.
func (s *HistoryStore) Ensure(identityID string) {
	if _, ok := s.logs[identityID]; !ok {
		s.logs[identityID] = []Message{}
	}
}

// Append adds msg to identityID's log, creating the log if absent. Directed
// messages may target identities that have never authenticated; their log is
// created lazily so the message is waiting when they first log in.
func (s *HistoryStore) Append(identityID string, msg Message) {
	s.logs[identityID] = append(s.logs[identityID], msg)
}

// Get returns a copy of identityID's log in insertion order. An identity that
// never had anything appended yields an empty slice.
func (s *HistoryStore) Get(identityID string) []Message {
	log := s.logs[identityID]
	out := make([]Message, len(log))
	copy(out, log)
	return out
}
