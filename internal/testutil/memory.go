// Package testutil provides in-memory stand-ins for redis, S3, the audit table
// and the distribution API. It is only imported by tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/session"
)

// SessionStore is an in-memory session.Store
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]models.Session
	states    map[string][]byte
	locks     map[string]bool
	blacklist map[string]time.Duration
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:  map[string]models.Session{},
		states:    map[string][]byte{},
		locks:     map[string]bool{},
		blacklist: map[string]time.Duration{},
	}
}

var _ session.Store = (*SessionStore)(nil)

func (m *SessionStore) Save(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *SessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &s, nil
}

func (m *SessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	for k := range m.states {
		if strings.HasPrefix(k, id+"/") {
			delete(m.states, k)
		}
	}
	return nil
}

func (m *SessionStore) SaveState(_ context.Context, id, kind string, state interface{}) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id+"/"+kind] = b
	return nil
}

func (m *SessionStore) LoadState(_ context.Context, id, kind string, state interface{}) (bool, error) {
	m.mu.Lock()
	b, ok := m.states[id+"/"+kind]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, state)
}

func (m *SessionStore) DeleteState(_ context.Context, id, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id+"/"+kind)
	return nil
}

// HasState reports whether state of kind is saved for the session
func (m *SessionStore) HasState(id, kind string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[id+"/"+kind]
	return ok
}

func (m *SessionStore) Lock(_ context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] {
		return nil, session.ErrBusy
	}
	m.locks[id] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locks, id)
	}, nil
}

func (m *SessionStore) Blacklist(_ context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklist[tokenID] = ttl
	return nil
}

func (m *SessionStore) IsBlacklisted(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blacklist[tokenID]
	return ok, nil
}

// ObjectStore is an in-memory object store
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (o *ObjectStore) Put(_ context.Context, key string, body io.Reader, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = b
	o.types[key] = contentType
	return nil
}

func (o *ObjectStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.objects[key]
	if !ok {
		return nil, errors.Newf("no such key %s", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (o *ObjectStore) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	delete(o.types, key)
	return nil
}

func (o *ObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := []string{}
	for k := range o.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Keys returns every stored key sorted
func (o *ObjectStore) Keys() []string {
	keys, _ := o.List(context.Background(), "")
	return keys
}

// Object returns the content and type stored under key
func (o *ObjectStore) Object(key string) ([]byte, string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.objects[key]
	return b, o.types[key], ok
}

// Recorder collects submission log entries
type Recorder struct {
	mu      sync.Mutex
	Entries []models.SubmissionLog
}

func (r *Recorder) Record(_ context.Context, entry *models.SubmissionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, *entry)
	return nil
}

// Actions returns the recorded actions in order
func (r *Recorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		actions = append(actions, e.Action)
	}
	return actions
}
