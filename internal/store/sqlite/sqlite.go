// Package sqlite is the Entity Store backed by a SQLite database through gorm.
// It lays data out in three tables: content, users and user_lists.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type contentRow struct {
	Seq      uint64 `gorm:"primaryKey;autoIncrement"`
	ID       string `gorm:"column:id;uniqueIndex;not null"`
	Type     string `gorm:"index;not null"`
	Featured bool   `gorm:"index;not null;default:false"`
	Payload  []byte `gorm:"not null"`
}

func (contentRow) TableName() string { return "content" }

type userRow struct {
	Seq      uint64 `gorm:"primaryKey;autoIncrement"`
	ID       string `gorm:"column:id;uniqueIndex;not null"`
	Username string `gorm:"index;not null"`
	Password string `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

// The (user_id, content_id) index is deliberately not unique: AppendEntry
// must be able to store duplicates.
type entryRow struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"column:id;uniqueIndex;not null"`
	UserID    string    `gorm:"index:idx_user_content;not null"`
	ContentID string    `gorm:"index:idx_user_content;not null"`
	AddedAt   time.Time `gorm:"not null"`
}

func (entryRow) TableName() string { return "user_lists" }

// Store wraps a gorm database handle
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open opens the SQLite database at path and migrates the schema
func Open(path string, logger *logrus.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// One connection serialises writers, which keeps InsertEntryIfAbsent atomic
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&contentRow{}, &userRow{}, &entryRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Content operations

// PutContent upserts a content item; the row keeps its sequence on conflict
func (s *Store) PutContent(ctx context.Context, c *models.Content) error {
	if err := c.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode content %s: %w", c.ID, err)
	}

	row := contentRow{ID: c.ID, Type: string(c.Type()), Featured: c.Featured, Payload: payload}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "featured", "payload"}),
	}).Create(&row).Error
	return wrapErr(err)
}

// GetContent retrieves a content item by ID
func (s *Store) GetContent(ctx context.Context, id string) (*models.Content, error) {
	var row contentRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, wrapErr(err)
	}
	return row.toModel()
}

// FindContent retrieves matching content items in insertion order
func (s *Store) FindContent(ctx context.Context, q store.ContentQuery) ([]*models.Content, error) {
	tx := s.db.WithContext(ctx).Order("seq")
	if q.Type != "" {
		tx = tx.Where("type = ?", string(q.Type))
	}
	if q.FeaturedOnly {
		tx = tx.Where("featured = ?", true)
	}

	var rows []contentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, wrapErr(err)
	}

	result := make([]*models.Content, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (r contentRow) toModel() (*models.Content, error) {
	var c models.Content
	if err := json.Unmarshal(r.Payload, &c); err != nil {
		return nil, fmt.Errorf("failed to decode content %s: %w", r.ID, err)
	}
	return &c, nil
}

// User operations

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, wrapErr(err)
	}
	return row.toModel(), nil
}

// FindUserByUsername retrieves the oldest user with the given username
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("username = ?", username).Order("seq").First(&row).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return row.toModel(), nil
}

// InsertUser creates a user row
func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	row := userRow{ID: u.ID, Username: u.Username, Password: u.Password}
	return wrapErr(s.db.WithContext(ctx).Create(&row).Error)
}

func (r userRow) toModel() *models.User {
	return &models.User{ID: r.ID, Username: r.Username, Password: r.Password}
}

// User list operations

// ListEntries retrieves a user's entries in the order they were added
func (s *Store) ListEntries(ctx context.Context, userID string) ([]*models.UserListEntry, error) {
	var rows []entryRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("seq").Find(&rows).Error; err != nil {
		return nil, wrapErr(err)
	}
	return rowsToEntries(rows), nil
}

// ListAllEntries retrieves every entry
func (s *Store) ListAllEntries(ctx context.Context) ([]*models.UserListEntry, error) {
	var rows []entryRow
	if err := s.db.WithContext(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, wrapErr(err)
	}
	return rowsToEntries(rows), nil
}

// AppendEntry inserts an entry without a duplicate check
func (s *Store) AppendEntry(ctx context.Context, e *models.UserListEntry) error {
	row := entryFromModel(e)
	return wrapErr(s.db.WithContext(ctx).Create(&row).Error)
}

// InsertEntryIfAbsent runs the duplicate check and the insert in one transaction
func (s *Store) InsertEntryIfAbsent(ctx context.Context, e *models.UserListEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&entryRow{}).
			Where("user_id = ? AND content_id = ?", e.UserID, e.ContentID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return models.ErrAlreadyInList
		}
		row := entryFromModel(e)
		return tx.Create(&row).Error
	})
	if errors.Is(err, models.ErrAlreadyInList) {
		return err
	}
	return wrapErr(err)
}

// DeleteEntries deletes every entry for the user/content pair
func (s *Store) DeleteEntries(ctx context.Context, userID, contentID string) (int, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND content_id = ?", userID, contentID).
		Delete(&entryRow{})
	if res.Error != nil {
		return 0, wrapErr(res.Error)
	}
	return int(res.RowsAffected), nil
}

// DeleteEntry deletes a single entry by ID
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&entryRow{})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func entryFromModel(e *models.UserListEntry) entryRow {
	return entryRow{ID: e.ID, UserID: e.UserID, ContentID: e.ContentID, AddedAt: e.AddedAt}
}

func rowsToEntries(rows []entryRow) []*models.UserListEntry {
	result := make([]*models.UserListEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, &models.UserListEntry{
			ID:        row.ID,
			UserID:    row.UserID,
			ContentID: row.ContentID,
			AddedAt:   row.AddedAt,
		})
	}
	return result
}

func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
}
