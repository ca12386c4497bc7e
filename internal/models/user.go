package models

import "time"

// User is an account identity. Password is opaque and stored as given.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// InsertUser holds the fields a caller supplies when creating a user
type InsertUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserListEntry records that a user has favorited a content item
type UserListEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ContentID string    `json:"contentId"`
	AddedAt   time.Time `json:"addedAt"`
}
