// Package memory is the mapping-backed Entity Store. It keeps everything in
// process memory and loses it on exit.
package memory

import (
	"context"
	"sync"

	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
)

// Store holds the catalog, users and favorites in keyed maps. Ordering slices
// record insertion order, which every "many" read preserves.
type Store struct {
	mu sync.RWMutex

	content      map[string]*models.Content
	contentOrder []string

	users     map[string]*models.User
	userOrder []string

	lists map[string][]*models.UserListEntry // user id -> entries in insertion order
}

var _ store.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		content: make(map[string]*models.Content),
		users:   make(map[string]*models.User),
		lists:   make(map[string][]*models.UserListEntry),
	}
}

// Content operations

func (s *Store) PutContent(_ context.Context, c *models.Content) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.content[c.ID]; !exists {
		s.contentOrder = append(s.contentOrder, c.ID)
	}
	s.content[c.ID] = c.Clone()
	return nil
}

func (s *Store) GetContent(_ context.Context, id string) (*models.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.content[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *Store) FindContent(_ context.Context, q store.ContentQuery) ([]*models.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Content, 0, len(s.contentOrder))
	for _, id := range s.contentOrder {
		c := s.content[id]
		if q.Matches(c) {
			result = append(result, c.Clone())
		}
	}
	return result, nil
}

// User operations

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.userOrder {
		if u := s.users[id]; u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) InsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; !exists {
		s.userOrder = append(s.userOrder, u.ID)
	}
	copied := *u
	s.users[u.ID] = &copied
	s.lists[u.ID] = []*models.UserListEntry{}
	return nil
}

// User list operations

func (s *Store) ListEntries(_ context.Context, userID string) ([]*models.UserListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyEntries(s.lists[userID]), nil
}

func (s *Store) ListAllEntries(_ context.Context) ([]*models.UserListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.UserListEntry
	// Walk users in creation order so the result is deterministic
	seen := make(map[string]bool, len(s.userOrder))
	for _, id := range s.userOrder {
		seen[id] = true
		result = append(result, copyEntries(s.lists[id])...)
	}
	for id, entries := range s.lists {
		if !seen[id] {
			result = append(result, copyEntries(entries)...)
		}
	}
	return result, nil
}

func (s *Store) AppendEntry(_ context.Context, e *models.UserListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLocked(e)
	return nil
}

func (s *Store) InsertEntryIfAbsent(_ context.Context, e *models.UserListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.lists[e.UserID] {
		if existing.ContentID == e.ContentID {
			return models.ErrAlreadyInList
		}
	}
	s.appendLocked(e)
	return nil
}

func (s *Store) appendLocked(e *models.UserListEntry) {
	copied := *e
	s.lists[e.UserID] = append(s.lists[e.UserID], &copied)
}

func (s *Store) DeleteEntries(_ context.Context, userID, contentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.lists[userID]
	kept := make([]*models.UserListEntry, 0, len(existing))
	for _, e := range existing {
		if e.ContentID != contentID {
			kept = append(kept, e)
		}
	}

	removed := len(existing) - len(kept)
	if removed > 0 {
		s.lists[userID] = kept
	}
	return removed, nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, entries := range s.lists {
		for i, e := range entries {
			if e.ID == id {
				s.lists[userID] = append(entries[:i:i], entries[i+1:]...)
				return nil
			}
		}
	}
	return models.ErrNotFound
}

// Close is a no-op for the memory store
func (s *Store) Close() error {
	return nil
}

func copyEntries(in []*models.UserListEntry) []*models.UserListEntry {
	out := make([]*models.UserListEntry, len(in))
	for i, e := range in {
		copied := *e
		out[i] = &copied
	}
	return out
}
