package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Person is a cast member or director
type Person struct {
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// UnmarshalJSON accepts both the {name, photo} object and a legacy bare name string
func (p *Person) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*p = Person{Name: name}
		return nil
	}

	type person Person
	var v person
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Person(v)
	return nil
}

// Detail holds the fields that only make sense for one kind of content.
// It is implemented by MovieDetail and SeriesDetail only.
type Detail interface {
	Kind() ContentType
	clone() Detail
}

// MovieDetail carries movie-only metadata
type MovieDetail struct {
	Directors []Person
	Duration  string // e.g. "108 min", empty when unknown
}

// Kind implements Detail
func (MovieDetail) Kind() ContentType { return ContentTypeMovie }

func (d MovieDetail) clone() Detail {
	d.Directors = clonePeople(d.Directors)
	return d
}

// SeriesDetail carries series-only metadata. Zero counts mean unknown.
type SeriesDetail struct {
	Creator      string
	CreatorImage string
	Seasons      int
	Episodes     int
}

// Kind implements Detail
func (SeriesDetail) Kind() ContentType { return ContentTypeSeries }

func (d SeriesDetail) clone() Detail { return d }

// Content is a catalog entry. Shared fields live on the struct, kind-specific
// fields live in Detail.
type Content struct {
	ID              string
	Title           string
	Year            int
	Rating          string // opaque numeric text, e.g. "8.1"
	Genre           string
	Classification  Classification
	Cast            []Person
	Description     string
	FullDescription string
	Poster          string
	Backdrop        string
	Embed           string
	Featured        bool
	Detail          Detail
}

// Type reports whether the entry is a movie or a series
func (c *Content) Type() ContentType {
	if c.Detail == nil {
		return ""
	}
	return c.Detail.Kind()
}

// Validate checks the invariants a catalog entry must hold before it is stored
func (c *Content) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: content id is required", ErrInvalidInput)
	}
	if c.Detail == nil {
		return fmt.Errorf("%w: content %s has no type", ErrInvalidInput, c.ID)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: content %s has no title", ErrInvalidInput, c.ID)
	}
	return nil
}

// Clone returns a deep copy so callers never share slices with the store
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := *c
	out.Cast = clonePeople(c.Cast)
	if c.Detail != nil {
		out.Detail = c.Detail.clone()
	}
	return &out
}

func clonePeople(in []Person) []Person {
	if in == nil {
		return nil
	}
	out := make([]Person, len(in))
	copy(out, in)
	return out
}

// contentWire is the flat JSON shape served over HTTP and used by catalog files
type contentWire struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Year            int            `json:"year"`
	Rating          string         `json:"rating"`
	Duration        *string        `json:"duration"`
	Seasons         *int           `json:"seasons"`
	Episodes        *int           `json:"episodes"`
	Genre           string         `json:"genre"`
	Classification  Classification `json:"classification"`
	Directors       []Person       `json:"directors"`
	Creator         *string        `json:"creator"`
	CreatorImage    *string        `json:"creatorImage"`
	Cast            []Person       `json:"cast"`
	Description     string         `json:"description"`
	FullDescription string         `json:"fullDescription"`
	Poster          string         `json:"poster"`
	Backdrop        string         `json:"backdrop"`
	Embed           string         `json:"embed"`
	Featured        bool           `json:"featured"`
	Type            ContentType    `json:"type"`
}

// MarshalJSON flattens Detail into the catalog wire shape. Fields that belong
// to the other kind are emitted as null.
func (c Content) MarshalJSON() ([]byte, error) {
	w := contentWire{
		ID:              c.ID,
		Title:           c.Title,
		Year:            c.Year,
		Rating:          c.Rating,
		Genre:           c.Genre,
		Classification:  c.Classification,
		Cast:            c.Cast,
		Description:     c.Description,
		FullDescription: c.FullDescription,
		Poster:          c.Poster,
		Backdrop:        c.Backdrop,
		Embed:           c.Embed,
		Featured:        c.Featured,
		Type:            c.Type(),
	}
	if w.Cast == nil {
		w.Cast = []Person{}
	}

	switch d := c.Detail.(type) {
	case MovieDetail:
		w.Duration = optionalString(d.Duration)
		w.Directors = d.Directors
	case SeriesDetail:
		w.Creator = optionalString(d.Creator)
		w.CreatorImage = optionalString(d.CreatorImage)
		w.Seasons = optionalInt(d.Seasons)
		w.Episodes = optionalInt(d.Episodes)
	default:
		return nil, fmt.Errorf("content %s: unknown detail %T", c.ID, c.Detail)
	}

	return json.Marshal(w)
}

// UnmarshalJSON builds the Detail variant named by "type" and rejects fields
// that belong to the other variant.
func (c *Content) UnmarshalJSON(data []byte) error {
	var w contentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	classification := w.Classification
	if classification != "" {
		parsed, err := ParseClassification(string(classification))
		if err != nil {
			return fmt.Errorf("content %s: %w", w.ID, err)
		}
		classification = parsed
	}

	*c = Content{
		ID:              w.ID,
		Title:           w.Title,
		Year:            w.Year,
		Rating:          w.Rating,
		Genre:           w.Genre,
		Classification:  classification,
		Cast:            w.Cast,
		Description:     w.Description,
		FullDescription: w.FullDescription,
		Poster:          w.Poster,
		Backdrop:        w.Backdrop,
		Embed:           w.Embed,
		Featured:        w.Featured,
	}

	switch w.Type {
	case ContentTypeMovie:
		if w.Creator != nil || w.CreatorImage != nil || w.Seasons != nil || w.Episodes != nil {
			return fmt.Errorf("%w: movie %s carries series fields", ErrInvalidInput, w.ID)
		}
		d := MovieDetail{Directors: w.Directors}
		if w.Duration != nil {
			d.Duration = *w.Duration
		}
		c.Detail = d
	case ContentTypeSeries:
		if w.Duration != nil || len(w.Directors) > 0 {
			return fmt.Errorf("%w: series %s carries movie fields", ErrInvalidInput, w.ID)
		}
		d := SeriesDetail{}
		if w.Creator != nil {
			d.Creator = *w.Creator
		}
		if w.CreatorImage != nil {
			d.CreatorImage = *w.CreatorImage
		}
		if w.Seasons != nil {
			d.Seasons = *w.Seasons
		}
		if w.Episodes != nil {
			d.Episodes = *w.Episodes
		}
		c.Detail = d
	default:
		return fmt.Errorf("%w: content %s has unknown type %q", ErrInvalidInput, w.ID, w.Type)
	}

	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
