package storage

import "sync"

// Preference is one recipient's subscription state.
type Preference struct {
	Subscribed bool   `json:"subscribed_news"`
	Keywords   string `json:"news_keywords,omitempty"`
}

type PreferenceStore interface {
	Get(id string) Preference
	Put(id string, p Preference) error
	// All returns a copy of every stored preference, keyed by recipient id.
	All() map[string]Preference
}

type FilePreferenceStore struct {
	path string

	mu    sync.RWMutex
	prefs map[string]Preference
}

func NewFilePreferenceStore(path string) (*FilePreferenceStore, error) {
	s := &FilePreferenceStore{
		path:  path,
		prefs: make(map[string]Preference),
	}
	if err := loadSnapshot(path, &s.prefs); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FilePreferenceStore) Get(id string) Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs[id]
}

func (s *FilePreferenceStore) Put(id string, p Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[id] = p
	return saveSnapshot(s.path, s.prefs)
}

func (s *FilePreferenceStore) All() map[string]Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Preference, len(s.prefs))
	for id, p := range s.prefs {
		out[id] = p
	}
	return out
}
