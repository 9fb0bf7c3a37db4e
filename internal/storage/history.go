package storage

import "sync"

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type HistoryStore interface {
	Append(contextID string, msg Message) error
	Get(contextID string) []Message
}

// FileHistoryStore keeps a FIFO-capped conversation history per context and
// rewrites the whole snapshot file on every append.
type FileHistoryStore struct {
	path string
	max  int

	mu      sync.RWMutex
	history map[string][]Message
}

func NewFileHistoryStore(path string, maxMessages int) (*FileHistoryStore, error) {
	s := &FileHistoryStore{
		path:    path,
		max:     maxMessages,
		history: make(map[string][]Message),
	}
	if err := loadSnapshot(path, &s.history); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileHistoryStore) Append(contextID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.history[contextID], msg)
	if s.max > 0 && len(h) > s.max {
		h = h[len(h)-s.max:]
	}
	s.history[contextID] = h
	return saveSnapshot(s.path, s.history)
}

func (s *FileHistoryStore) Get(contextID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[contextID]
	out := make([]Message, len(h))
	copy(out, h)
	return out
}
