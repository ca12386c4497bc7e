package models

import (
	"fmt"
	"strings"
)

// ContentType discriminates movies from series
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// ParseContentType returns the ContentType named by s, or false when s names neither kind
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(s) {
	case ContentTypeMovie, ContentTypeSeries:
		return ContentType(s), true
	}
	return "", false
}

// Classification represents the age rating tier of a catalog entry
type Classification string

const (
	ClassificationFree Classification = "Free"
	Classification10   Classification = "10+"
	Classification12   Classification = "12+"
	Classification14   Classification = "14+"
	Classification16   Classification = "16+"
	Classification18   Classification = "18+"
)

// ParseClassification accepts the canonical tiers plus the legacy "L"/"Livre" spelling of Free
func ParseClassification(s string) (Classification, error) {
	switch c := Classification(strings.TrimSpace(s)); c {
	case ClassificationFree, Classification10, Classification12,
		Classification14, Classification16, Classification18:
		return c, nil
	case "L", "Livre", "free":
		return ClassificationFree, nil
	}
	return "", fmt.Errorf("%w: unknown classification %q", ErrInvalidInput, s)
}
