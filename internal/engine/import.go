package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Txm04/author-retrieval/internal/embedding"
	"github.com/Txm04/author-retrieval/internal/model"
)

// ImportRecord is one abstract in an import payload. The flat topic_id and
// topic_title pair is the primary topic shape; a topics array is accepted
// as well. Author and topic references come in several JSON shapes; fields
// outside this struct are dropped on decode.
type ImportRecord struct {
	ID              *int64      `json:"id"`
	Title           string      `json:"title"`
	ContentRaw      string      `json:"content_raw"`
	Content         *string     `json:"content"`
	SubmissionDate  *FlexDate   `json:"submission_date"`
	PublicationDate *FlexDate   `json:"publication_date"`
	LanguageRef     *int64      `json:"language_ref"`
	WordCount       *int64      `json:"word_count"`
	Keywords        *string     `json:"keywords"`
	SessionID       *int64      `json:"session_id"`
	SessionTitle    *string     `json:"session_title"`
	TopicID         *int64      `json:"topic_id"`
	TopicTitle      string      `json:"topic_title"`
	Authors         []AuthorRef `json:"authors"`
	Topics          []TopicRef  `json:"topics"`
}

// topicRefs collects the flat topic pair and the topics array into one
// reference list.
func (r ImportRecord) topicRefs() []TopicRef {
	refs := r.Topics
	if r.TopicID != nil || strings.TrimSpace(r.TopicTitle) != "" {
		refs = append([]TopicRef{{ID: r.TopicID, Title: r.TopicTitle}}, refs...)
	}
	return refs
}

// FlexDate accepts "2006-01-02" dates and full RFC 3339 timestamps.
type FlexDate struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler for FlexDate.
func (d *FlexDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if t, err := time.Parse(model.DateFormat, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("unparseable date %q", s)
	}
	d.Time = t
	return nil
}

// AuthorRef references an author by id, by name, or both. Accepted JSON
// shapes: a bare number (id), a bare string (name), or an object with
// "author_id" (or "id") and/or "name".
type AuthorRef struct {
	ID   *int64
	Name string
}

// UnmarshalJSON implements json.Unmarshaler for AuthorRef.
func (r *AuthorRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(data, &r.Name)
	case '{':
		var obj struct {
			AuthorID *int64 `json:"author_id"`
			ID       *int64 `json:"id"`
			Name     string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.ID = obj.AuthorID
		if r.ID == nil {
			r.ID = obj.ID
		}
		r.Name = obj.Name
		return nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("author reference must be a number, string, or object: %w", err)
		}
		r.ID = &id
		return nil
	}
}

// TopicRef references a topic by id, by title, or both. Accepted JSON
// shapes mirror AuthorRef.
type TopicRef struct {
	ID    *int64
	Title string
}

// UnmarshalJSON implements json.Unmarshaler for TopicRef.
func (r *TopicRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(data, &r.Title)
	case '{':
		var obj struct {
			ID    *int64 `json:"id"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.ID = obj.ID
		r.Title = obj.Title
		return nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("topic reference must be a number, string, or object: %w", err)
		}
		r.ID = &id
		return nil
	}
}

// ImportResult reports the outcome of an import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Import runs the full pipeline for each record: id resolution, field
// validation, topic and author resolution, link dedup, embedding, and
// incremental index updates. A bad record is skipped with an error note;
// the run never aborts because of one record.
func (e *Engine) Import(ctx context.Context, records []ImportRecord) (*ImportResult, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	res := &ImportResult{}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := e.importOne(ctx, rec, res); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		res.Imported++
	}

	e.log.Info("import finished",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

func (e *Engine) importOne(ctx context.Context, rec ImportRecord, res *ImportResult) error {
	if strings.TrimSpace(rec.Title) == "" {
		return fmt.Errorf("missing title")
	}
	if strings.TrimSpace(rec.ContentRaw) == "" {
		return fmt.Errorf("missing content_raw")
	}

	var id int64
	if rec.ID != nil {
		exists, err := e.store.AbstractExists(*rec.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("abstract %d already exists", *rec.ID)
		}
		id = *rec.ID
	} else {
		var err error
		if id, err = e.store.NextAbstractID(); err != nil {
			return err
		}
	}

	abs := model.Abstract{
		ID:           id,
		Title:        rec.Title,
		ContentRaw:   rec.ContentRaw,
		Content:      rec.Content,
		LanguageRef:  rec.LanguageRef,
		WordCount:    rec.WordCount,
		Keywords:     rec.Keywords,
		SessionID:    rec.SessionID,
		SessionTitle: rec.SessionTitle,
	}
	if rec.SubmissionDate != nil && !rec.SubmissionDate.IsZero() {
		t := rec.SubmissionDate.Time
		abs.SubmissionDate = &t
	}
	if rec.PublicationDate != nil && !rec.PublicationDate.IsZero() {
		t := rec.PublicationDate.Time
		abs.PublicationDate = &t
	}
	if err := e.store.InsertAbstract(abs); err != nil {
		return err
	}

	for _, tref := range rec.topicRefs() {
		topicID, err := e.resolveTopic(tref)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("abstract %d: %v", id, err))
			continue
		}
		if err := e.store.LinkAbstractTopic(id, topicID); err != nil {
			return err
		}
	}

	var authorIDs []int64
	for _, aref := range rec.Authors {
		authorID, err := e.resolveAuthor(aref)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("abstract %d: %v", id, err))
			continue
		}
		if err := e.store.LinkAbstractAuthor(id, authorID); err != nil {
			return err
		}
		authorIDs = append(authorIDs, authorID)
	}

	if err := e.embedAbstract(ctx, abs); err != nil {
		// The row stays; a later reindex can heal the missing embedding.
		res.Errors = append(res.Errors, fmt.Sprintf("abstract %d: %v", id, err))
	}

	for _, authorID := range authorIDs {
		if err := e.refreshAuthorEmbedding(authorID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("author %d: %v", authorID, err))
		}
	}

	return nil
}

// resolveTopic turns a topic reference into a stored topic id. An id takes
// priority over a title; an unknown id gets a placeholder topic so the
// link is never dangling.
func (e *Engine) resolveTopic(ref TopicRef) (int64, error) {
	if ref.ID != nil {
		exists, err := e.store.TopicExists(*ref.ID)
		if err != nil {
			return 0, err
		}
		if !exists {
			title := ref.Title
			if title == "" {
				title = fmt.Sprintf("Topic %d", *ref.ID)
			}
			if err := e.store.InsertTopic(model.Topic{ID: *ref.ID, Title: title}); err != nil {
				return 0, err
			}
		}
		return *ref.ID, nil
	}

	title := strings.TrimSpace(ref.Title)
	if title == "" {
		return 0, fmt.Errorf("topic reference has neither id nor title")
	}
	existing, err := e.store.FindTopicByTitle(title)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	id, err := e.store.NextTopicID()
	if err != nil {
		return 0, err
	}
	if err := e.store.InsertTopic(model.Topic{ID: id, Title: title}); err != nil {
		return 0, err
	}
	return id, nil
}

// resolveAuthor turns an author reference into a stored author id. An id
// takes priority; names resolve by exact match, creating the author when
// absent.
func (e *Engine) resolveAuthor(ref AuthorRef) (int64, error) {
	if ref.ID != nil {
		exists, err := e.store.AuthorExists(*ref.ID)
		if err != nil {
			return 0, err
		}
		if !exists {
			name := strings.TrimSpace(ref.Name)
			if name == "" {
				name = fmt.Sprintf("Author %d", *ref.ID)
			}
			if err := e.store.InsertAuthor(model.Author{ID: *ref.ID, Name: name}); err != nil {
				return 0, err
			}
		}
		return *ref.ID, nil
	}

	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return 0, fmt.Errorf("author reference has neither id nor name")
	}
	existing, err := e.store.FindAuthorByName(name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	id, err := e.store.NextAuthorID()
	if err != nil {
		return 0, err
	}
	if err := e.store.InsertAuthor(model.Author{ID: id, Name: name}); err != nil {
		return 0, err
	}
	return id, nil
}

// embedAbstract encodes the canonical text and publishes the vector to the
// store and the abstracts index.
func (e *Engine) embedAbstract(ctx context.Context, abs model.Abstract) error {
	emb, err := e.enc.Encode(ctx, abs.CanonicalText())
	if err != nil {
		return wrapEncodeErr(err)
	}
	if err := e.store.SetAbstractEmbedding(abs.ID, emb.Vector); err != nil {
		return err
	}
	if err := e.abstracts.Upsert(abs.ID, emb.Vector); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexBuild, err)
	}
	return nil
}

// refreshAuthorEmbedding recomputes an author's vector as the mean of the
// linked abstracts' embeddings. An author with no embedded abstract loses
// its vector and leaves the index.
func (e *Engine) refreshAuthorEmbedding(authorID int64) error {
	entries, err := e.store.AbstractEmbeddingsForAuthor(authorID)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		if err := e.store.SetAuthorEmbedding(authorID, nil); err != nil {
			return err
		}
		e.authors.Remove(authorID)
		return nil
	}

	vecs := make([]embedding.Embedding, len(entries))
	for i, entry := range entries {
		vecs[i] = embedding.Embedding{Vector: entry.Vector}
	}
	mean := embedding.Mean(vecs)

	if err := e.store.SetAuthorEmbedding(authorID, mean.Vector); err != nil {
		return err
	}
	if err := e.authors.Upsert(authorID, mean.Vector); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexBuild, err)
	}
	return nil
}
