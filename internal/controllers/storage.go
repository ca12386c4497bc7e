package controllers

import (
	"context"

	"github.com/amaumene/streambox/internal/models"
)

// Storage is the Query/Command Service contract the HTTP layer and the CLI
// are written against. A database-backed implementation must keep the same
// semantics.
type Storage interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, in models.InsertUser) (*models.User, error)

	GetAllContent(ctx context.Context) ([]*models.Content, error)
	GetContentByID(ctx context.Context, id string) (*models.Content, error)
	GetContentByType(ctx context.Context, kind models.ContentType) ([]*models.Content, error)
	GetFeaturedContent(ctx context.Context) ([]*models.Content, error)
	SearchContent(ctx context.Context, query string) ([]*models.Content, error)

	GetUserList(ctx context.Context, userID string) ([]string, error)
	AddToUserList(ctx context.Context, userID, contentID string) (*models.UserListEntry, error)
	RemoveFromUserList(ctx context.Context, userID, contentID string) (bool, error)
	IsInUserList(ctx context.Context, userID, contentID string) (bool, error)
}

// Service bundles the controllers into one Storage implementation
type Service struct {
	*CatalogController
	*IdentityController
	*UserListController
}

var _ Storage = (*Service)(nil)
