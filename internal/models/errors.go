package models

import "errors"

var (
	// ErrNotFound is returned when a referenced content, user or list entry does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a required field is missing or malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyInList is returned when a favorite pair already exists
	ErrAlreadyInList = errors.New("content already in list")

	// ErrUnavailable marks a transient backend failure; callers may retry
	ErrUnavailable = errors.New("store unavailable")
)
