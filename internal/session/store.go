// Package session holds the access/refresh token pair between runs.
//
// A [Store] keeps the pair in memory and writes it through to a [Backend].
// Backend failures are logged and otherwise ignored: callers always see a working store,
// at worst one that forgets the pair when the process exits.
package session

import (
	"io"
	"sync"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
	"github.com/charmbracelet/log"
)

// Backend persists a [models.Session].
//
// Load returns an empty session and no error when nothing has been saved.
type Backend interface {
	Load() (models.Session, error)
	Save(models.Session) error
	Delete() error
}

// Store is the token store used by the API client.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	logger  *log.Logger
	current models.Session
	loaded  bool
}

// NewStore wraps backend. A nil backend keeps tokens in memory only.
func NewStore(backend Backend, logger *log.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{backend: backend, logger: logger}
}

// load reads the backend once. Callers hold mu for writing.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true

	sess, err := s.backend.Load()
	if err != nil {
		s.logger.Warn("session storage unavailable, continuing without saved tokens", "error", err)
		return
	}
	s.current = sess
}

func (s *Store) snapshot() models.Session {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.current
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return s.current
}

// Set replaces both tokens together.
func (s *Store) Set(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.current = models.Session{AccessToken: access, RefreshToken: refresh}
	if err := s.backend.Save(s.current); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
}

// Access returns the access token, or "" when none is held.
func (s *Store) Access() string { return s.snapshot().AccessToken }

// Refresh returns the refresh token, or "" when none is held.
func (s *Store) Refresh() string { return s.snapshot().RefreshToken }

// Session returns both tokens.
func (s *Store) Session() models.Session { return s.snapshot() }

// Clear drops both tokens together.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.current = models.Session{}
	if err := s.backend.Delete(); err != nil {
		s.logger.Warn("failed to clear persisted session", "error", err)
	}
}

// MemoryBackend keeps the session in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	sess models.Session
}

func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

func (m *MemoryBackend) Load() (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess, nil
}

func (m *MemoryBackend) Save(sess models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = sess
	return nil
}

func (m *MemoryBackend) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = models.Session{}
	return nil
}
