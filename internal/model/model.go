// Package model defines the core domain types: abstracts, authors, topics,
// and the links between them.
package model

import "time"

// DateFormat is the wire and storage format for publication dates.
const DateFormat = "2006-01-02"

// Abstract is a scientific abstract. Title and ContentRaw are required;
// the remaining metadata is optional and nil when the source record did
// not carry it. Embedding is nil until the text has been encoded.
type Abstract struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	ContentRaw      string     `json:"content_raw"`
	Content         *string    `json:"content,omitempty"`
	SubmissionDate  *time.Time `json:"submission_date,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	LanguageRef     *int64     `json:"language_ref,omitempty"`
	WordCount       *int64     `json:"word_count,omitempty"`
	Keywords        *string    `json:"keywords,omitempty"`
	SessionID       *int64     `json:"session_id,omitempty"`
	SessionTitle    *string    `json:"session_title,omitempty"`
	Embedding       []float32  `json:"-"`
}

// CanonicalText is the exact string that gets embedded for an abstract.
func (a Abstract) CanonicalText() string {
	return a.Title + ". " + a.ContentRaw
}

// Author is a person linked to abstracts. Embedding is the mean of the
// linked abstracts' embeddings, nil while no linked abstract is embedded.
type Author struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"-"`
}

// Topic is a subject label abstracts can be tagged with.
type Topic struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// VectorEntry pairs an entity id with its stored embedding, used to feed
// index rebuilds.
type VectorEntry struct {
	ID     int64
	Vector []float32
}
