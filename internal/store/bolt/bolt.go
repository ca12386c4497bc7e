// Package bolt is the Entity Store persisted in a single bbolt file through bolthold.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/store"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

var seqBucket = []byte("_sequence")

// Records are JSON-encoded so Content's Detail variant survives the round trip.
type contentRecord struct {
	ID       string             `boltholdKey:"ID"`
	Seq      uint64             `boltholdIndex:"Seq"`
	Type     models.ContentType `boltholdIndex:"Type"`
	Featured bool
	Content  *models.Content
}

type userRecord struct {
	ID       string `boltholdKey:"ID"`
	Seq      uint64
	Username string `boltholdIndex:"Username"`
	Password string
}

type entryRecord struct {
	ID        string `boltholdKey:"ID"`
	Seq       uint64
	UserID    string `boltholdIndex:"UserID"`
	ContentID string
	AddedAt   time.Time
}

// Options controls how the database file is opened
type Options struct {
	// Timeout is how long a single open waits for the file lock
	Timeout time.Duration
	// Retries is how many more times a lock timeout is retried
	Retries int
}

// Store wraps the bolthold store
type Store struct {
	db     *bolthold.Store
	logger *logrus.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path. A file held by another
// process is retried with exponential backoff.
func Open(path string, opts Options, logger *logrus.Logger) (*Store, error) {
	var db *bolthold.Store

	operation := func() error {
		var err error
		db, err = bolthold.Open(path, 0600, &bolthold.Options{
			Encoder: json.Marshal,
			Decoder: json.Unmarshal,
			Options: &bbolt.Options{
				Timeout: opts.Timeout,
			},
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, bbolt.ErrTimeout) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(opts.Retries))
	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":     path,
			"retry_in": next.String(),
		}).Warn("Database file is locked, retrying")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func nextSeq(tx *bbolt.Tx) (uint64, error) {
	bucket, err := tx.CreateBucketIfNotExists(seqBucket)
	if err != nil {
		return 0, err
	}
	return bucket.NextSequence()
}

func ordered() *bolthold.Query {
	return bolthold.Where("Seq").Ge(uint64(0)).SortBy("Seq")
}

func wrapUnavailable(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) || errors.Is(err, bbolt.ErrTimeout) {
		return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	return err
}

// Content operations

// PutContent inserts or replaces a content item, keeping the sequence of an existing one
func (s *Store) PutContent(_ context.Context, c *models.Content) error {
	if err := c.Validate(); err != nil {
		return err
	}

	err := s.db.Bolt().Update(func(tx *bbolt.Tx) error {
		var existing contentRecord
		err := s.db.TxGet(tx, c.ID, &existing)
		switch {
		case err == nil:
		case errors.Is(err, bolthold.ErrNotFound):
			seq, err := nextSeq(tx)
			if err != nil {
				return err
			}
			existing.Seq = seq
		default:
			return err
		}

		return s.db.TxUpsert(tx, c.ID, &contentRecord{
			ID:       c.ID,
			Seq:      existing.Seq,
			Type:     c.Type(),
			Featured: c.Featured,
			Content:  c,
		})
	})
	return wrapUnavailable(err)
}

// GetContent retrieves a content item by ID
func (s *Store) GetContent(_ context.Context, id string) (*models.Content, error) {
	var rec contentRecord
	if err := s.db.Get(id, &rec); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return rec.Content, nil
}

// FindContent retrieves content items matching q in insertion order
func (s *Store) FindContent(_ context.Context, q store.ContentQuery) ([]*models.Content, error) {
	query := bolthold.Where("Seq").Ge(uint64(0))
	if q.Type != "" {
		query = query.And("Type").Eq(q.Type)
	}
	if q.FeaturedOnly {
		query = query.And("Featured").Eq(true)
	}

	var recs []contentRecord
	if err := s.db.Find(&recs, query.SortBy("Seq")); err != nil {
		return nil, wrapUnavailable(err)
	}

	result := make([]*models.Content, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.Content)
	}
	return result, nil
}

// User operations

// GetUser retrieves a user by ID
func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	var rec userRecord
	if err := s.db.Get(id, &rec); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, wrapUnavailable(err)
	}
	return rec.toModel(), nil
}

// FindUserByUsername retrieves the oldest user with the given username
func (s *Store) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	var recs []userRecord
	err := s.db.Find(&recs, bolthold.Where("Username").Eq(username).SortBy("Seq").Limit(1))
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	if len(recs) == 0 {
		return nil, models.ErrNotFound
	}
	return recs[0].toModel(), nil
}

// InsertUser creates a new user record. Favorites need no initialisation here,
// an empty query result is an empty list.
func (s *Store) InsertUser(_ context.Context, u *models.User) error {
	err := s.db.Bolt().Update(func(tx *bbolt.Tx) error {
		seq, err := nextSeq(tx)
		if err != nil {
			return err
		}
		return s.db.TxUpsert(tx, u.ID, &userRecord{
			ID:       u.ID,
			Seq:      seq,
			Username: u.Username,
			Password: u.Password,
		})
	})
	return wrapUnavailable(err)
}

func (r userRecord) toModel() *models.User {
	return &models.User{ID: r.ID, Username: r.Username, Password: r.Password}
}

// User list operations

// ListEntries retrieves a user's entries in the order they were added
func (s *Store) ListEntries(_ context.Context, userID string) ([]*models.UserListEntry, error) {
	var recs []entryRecord
	if err := s.db.Find(&recs, bolthold.Where("UserID").Eq(userID).SortBy("Seq")); err != nil {
		return nil, wrapUnavailable(err)
	}
	return entriesToModels(recs), nil
}

// ListAllEntries retrieves every entry of every user
func (s *Store) ListAllEntries(_ context.Context) ([]*models.UserListEntry, error) {
	var recs []entryRecord
	if err := s.db.Find(&recs, ordered()); err != nil {
		return nil, wrapUnavailable(err)
	}
	return entriesToModels(recs), nil
}

// AppendEntry stores an entry without checking for duplicates
func (s *Store) AppendEntry(_ context.Context, e *models.UserListEntry) error {
	err := s.db.Bolt().Update(func(tx *bbolt.Tx) error {
		return s.insertEntryTx(tx, e)
	})
	return wrapUnavailable(err)
}

// InsertEntryIfAbsent checks and inserts inside one write transaction;
// bbolt allows a single writer so the pair cannot be inserted twice.
func (s *Store) InsertEntryIfAbsent(_ context.Context, e *models.UserListEntry) error {
	err := s.db.Bolt().Update(func(tx *bbolt.Tx) error {
		var existing []entryRecord
		query := bolthold.Where("UserID").Eq(e.UserID).And("ContentID").Eq(e.ContentID)
		if err := s.db.TxFind(tx, &existing, query); err != nil {
			return err
		}
		if len(existing) > 0 {
			return models.ErrAlreadyInList
		}
		return s.insertEntryTx(tx, e)
	})
	if errors.Is(err, models.ErrAlreadyInList) {
		return err
	}
	return wrapUnavailable(err)
}

func (s *Store) insertEntryTx(tx *bbolt.Tx, e *models.UserListEntry) error {
	seq, err := nextSeq(tx)
	if err != nil {
		return err
	}
	return s.db.TxInsert(tx, e.ID, &entryRecord{
		ID:        e.ID,
		Seq:       seq,
		UserID:    e.UserID,
		ContentID: e.ContentID,
		AddedAt:   e.AddedAt,
	})
}

// DeleteEntries deletes every entry for the user/content pair
func (s *Store) DeleteEntries(_ context.Context, userID, contentID string) (int, error) {
	removed := 0
	err := s.db.Bolt().Update(func(tx *bbolt.Tx) error {
		var recs []entryRecord
		query := bolthold.Where("UserID").Eq(userID).And("ContentID").Eq(contentID)
		if err := s.db.TxFind(tx, &recs, query); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := s.db.TxDelete(tx, rec.ID, &entryRecord{}); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, wrapUnavailable(err)
	}
	return removed, nil
}

// DeleteEntry deletes a single entry by ID
func (s *Store) DeleteEntry(_ context.Context, id string) error {
	err := s.db.Bolt().Update(func(tx *bbolt.Tx) error {
		var rec entryRecord
		if err := s.db.TxGet(tx, id, &rec); err != nil {
			return err
		}
		return s.db.TxDelete(tx, id, &entryRecord{})
	})
	if errors.Is(err, bolthold.ErrNotFound) {
		return models.ErrNotFound
	}
	return wrapUnavailable(err)
}

func entriesToModels(recs []entryRecord) []*models.UserListEntry {
	result := make([]*models.UserListEntry, 0, len(recs))
	for _, rec := range recs {
		result = append(result, &models.UserListEntry{
			ID:        rec.ID,
			UserID:    rec.UserID,
			ContentID: rec.ContentID,
			AddedAt:   rec.AddedAt,
		})
	}
	return result
}
