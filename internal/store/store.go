// Package store defines the Entity Store: the three keyed collections
// (content, users, user list entries) behind the catalog service.
//
// Backends keep no referential integrity between collections. An entry may
// reference content that no longer exists; callers decide what to do with it.
package store

import (
	"context"

	"github.com/amaumene/streambox/internal/models"
)

// ContentQuery narrows FindContent. The zero value matches every entry.
type ContentQuery struct {
	Type         models.ContentType // empty matches both kinds
	FeaturedOnly bool
}

// Matches reports whether c satisfies the query
func (q ContentQuery) Matches(c *models.Content) bool {
	if q.Type != "" && c.Type() != q.Type {
		return false
	}
	if q.FeaturedOnly && !c.Featured {
		return false
	}
	return true
}

// Store is implemented by every Entity Store backend. All "many" reads return
// results in insertion order. Single reads return models.ErrNotFound when the
// key is absent. Returned values are copies owned by the caller.
type Store interface {
	// PutContent inserts c, or replaces the entry with the same id while
	// keeping its original position.
	PutContent(ctx context.Context, c *models.Content) error
	GetContent(ctx context.Context, id string) (*models.Content, error)
	FindContent(ctx context.Context, q ContentQuery) ([]*models.Content, error)

	GetUser(ctx context.Context, id string) (*models.User, error)
	// FindUserByUsername returns the first user, in creation order, whose
	// username equals username exactly.
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	// InsertUser stores u and starts an empty favorites collection for it.
	InsertUser(ctx context.Context, u *models.User) error

	ListEntries(ctx context.Context, userID string) ([]*models.UserListEntry, error)
	ListAllEntries(ctx context.Context) ([]*models.UserListEntry, error)
	// AppendEntry stores e unconditionally.
	AppendEntry(ctx context.Context, e *models.UserListEntry) error
	// InsertEntryIfAbsent stores e unless an entry for the same
	// (UserID, ContentID) pair exists, in which case it returns
	// models.ErrAlreadyInList. The check and the insert are atomic.
	InsertEntryIfAbsent(ctx context.Context, e *models.UserListEntry) error
	// DeleteEntries removes every entry for the pair and reports how many went.
	DeleteEntries(ctx context.Context, userID, contentID string) (int, error)
	DeleteEntry(ctx context.Context, id string) error

	Close() error
}
