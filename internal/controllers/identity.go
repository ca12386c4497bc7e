package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
	"github.com/amaumene/streambox/internal/telemetry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// IdentityController manages user records and the fixed demo identity
type IdentityController struct {
	store  store.Store
	inst   instrumentation
	logger *logrus.Logger

	demo models.InsertUser

	mu       sync.Mutex
	resolved *models.User
}

// NewIdentityController creates a new identity controller
func NewIdentityController(st store.Store, demo models.InsertUser, tracer trace.Tracer, metrics *telemetry.Metrics, logger *logrus.Logger) *IdentityController {
	return &IdentityController{
		store:  st,
		inst:   instrumentation{tracer: tracer, metrics: metrics},
		logger: logger,
		demo:   demo,
	}
}

// GetUser returns the user with the given id, or models.ErrNotFound
func (c *IdentityController) GetUser(ctx context.Context, id string) (user *models.User, err error) {
	ctx, done := c.inst.start(ctx, "identity.get_user", attribute.String("user.id", id))
	defer done(&err)

	return c.store.GetUser(ctx, id)
}

// GetUserByUsername returns the first user whose username matches exactly
func (c *IdentityController) GetUserByUsername(ctx context.Context, username string) (user *models.User, err error) {
	ctx, done := c.inst.start(ctx, "identity.get_user_by_username", attribute.String("user.username", username))
	defer done(&err)

	return c.store.FindUserByUsername(ctx, username)
}

// CreateUser stores a new user under a fresh id. Username uniqueness is not
// checked here; callers look the username up first.
func (c *IdentityController) CreateUser(ctx context.Context, in models.InsertUser) (user *models.User, err error) {
	ctx, done := c.inst.start(ctx, "identity.create_user", attribute.String("user.username", in.Username))
	defer done(&err)

	if strings.TrimSpace(in.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrInvalidInput)
	}

	user = &models.User{
		ID:       uuid.NewString(),
		Username: in.Username,
		Password: in.Password,
	}
	if err := c.store.InsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ResolveDemoUser finds or creates the demo identity. Calls are serialised,
// so concurrent first requests create it once; later calls reuse the result.
func (c *IdentityController) ResolveDemoUser(ctx context.Context) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved != nil {
		copied := *c.resolved
		return &copied, nil
	}

	user, err := c.GetUserByUsername(ctx, c.demo.Username)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		user, err = c.CreateUser(ctx, c.demo)
		if err != nil {
			return nil, err
		}
		c.logger.WithField("user_id", user.ID).Info("Created new demo user")
	default:
		return nil, fmt.Errorf("failed to look up demo user: %w", err)
	}

	c.resolved = user
	copied := *user
	return &copied, nil
}
