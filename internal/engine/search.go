package engine

import (
	"context"
	"strings"

	"github.com/Txm04/author-retrieval/internal/config"
	"github.com/Txm04/author-retrieval/internal/model"
	"github.com/Txm04/author-retrieval/internal/vecindex"
)

// Paging limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultTopK     = 10
)

// AbstractHit is one abstract search result. Score is nil when scores are
// disabled or the topic-only path served the query.
type AbstractHit struct {
	Abstract model.Abstract `json:"abstract"`
	Score    *float64       `json:"score,omitempty"`
}

// AuthorHit is one author search result.
type AuthorHit struct {
	Author model.Author `json:"author"`
	Score  *float64     `json:"score,omitempty"`
}

// AbstractSearchResult is a page of abstract hits. Total counts the
// candidates before pagination.
type AbstractSearchResult struct {
	Items    []AbstractHit `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
}

// AuthorSearchResult is a page of author hits.
type AuthorSearchResult struct {
	Items    []AuthorHit `json:"items"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
}

// SearchAbstracts finds abstracts by semantic keyword, by topics, or both.
// With topics only, results come straight from the store ordered newest
// first and carry no scores. With a keyword, candidates are oversampled
// from the vector index and topic filters preserve the similarity rank.
func (e *Engine) SearchAbstracts(ctx context.Context, keyword string, topicIDs []int64, page, pageSize int) (*AbstractSearchResult, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	page, pageSize, err := normalizePaging(page, pageSize)
	if err != nil {
		return nil, err
	}

	keyword = strings.TrimSpace(keyword)
	if keyword == "" && len(topicIDs) == 0 {
		return nil, validationErr("either a keyword or topic ids are required")
	}

	if keyword == "" {
		return e.searchAbstractsByTopics(topicIDs, page, pageSize)
	}

	emb, err := e.enc.Encode(ctx, keyword)
	if err != nil {
		return nil, wrapEncodeErr(err)
	}

	want := page * pageSize
	hits, err := e.abstracts.Search(emb.Vector, oversample(want, e.cfg.OversampleFactor))
	if err != nil {
		return nil, err
	}

	if len(topicIDs) > 0 {
		member, err := e.topicMembership(topicIDs)
		if err != nil {
			return nil, err
		}
		filtered := hits[:0]
		for _, h := range hits {
			if member[h.ID] {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	total := len(hits)
	pageHits := slicePage(hits, page, pageSize)

	ids := make([]int64, len(pageHits))
	for i, h := range pageHits {
		ids[i] = h.ID
	}
	rows, err := e.store.ListAbstractsByIDs(ids)
	if err != nil {
		return nil, err
	}

	// The store may skip ids the index still holds, so rows and hits are
	// matched by id, never by position.
	hitByID := make(map[int64]vecindex.Hit, len(pageHits))
	for _, h := range pageHits {
		hitByID[h.ID] = h
	}

	showScores, scoreMode := e.scoreSettings()
	items := make([]AbstractHit, len(rows))
	for i := range rows {
		items[i] = AbstractHit{Abstract: rows[i]}
		if showScores {
			items[i].Score = e.scoreFor(e.abstracts, emb.Vector, hitByID[rows[i].ID], scoreMode)
		}
	}

	return &AbstractSearchResult{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// searchAbstractsByTopics serves the topic-only path: no vector call, no
// scores, store ordering (newest publication first, undated last).
func (e *Engine) searchAbstractsByTopics(topicIDs []int64, page, pageSize int) (*AbstractSearchResult, error) {
	ids, err := e.store.AbstractIDsForTopics(topicIDs)
	if err != nil {
		return nil, err
	}

	total := len(ids)
	pageIDs := slicePage(ids, page, pageSize)
	rows, err := e.store.ListAbstractsByIDs(pageIDs)
	if err != nil {
		return nil, err
	}

	items := make([]AbstractHit, len(rows))
	for i := range rows {
		items[i] = AbstractHit{Abstract: rows[i]}
	}
	return &AbstractSearchResult{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// SearchAuthors finds authors whose mean abstract vector matches the
// keyword. A keyword is required.
func (e *Engine) SearchAuthors(ctx context.Context, keyword string, page, pageSize int) (*AuthorSearchResult, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	page, pageSize, err := normalizePaging(page, pageSize)
	if err != nil {
		return nil, err
	}

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, validationErr("a keyword is required")
	}

	emb, err := e.enc.Encode(ctx, keyword)
	if err != nil {
		return nil, wrapEncodeErr(err)
	}

	want := page * pageSize
	hits, err := e.authors.Search(emb.Vector, oversample(want, e.cfg.OversampleFactor))
	if err != nil {
		return nil, err
	}

	total := len(hits)
	pageHits := slicePage(hits, page, pageSize)

	ids := make([]int64, len(pageHits))
	for i, h := range pageHits {
		ids[i] = h.ID
	}
	rows, err := e.store.ListAuthorsByIDs(ids)
	if err != nil {
		return nil, err
	}

	hitByID := make(map[int64]vecindex.Hit, len(pageHits))
	for _, h := range pageHits {
		hitByID[h.ID] = h
	}

	showScores, scoreMode := e.scoreSettings()
	items := make([]AuthorHit, len(rows))
	for i := range rows {
		items[i] = AuthorHit{Author: rows[i]}
		if showScores {
			items[i].Score = e.scoreFor(e.authors, emb.Vector, hitByID[rows[i].ID], scoreMode)
		}
	}

	return &AuthorSearchResult{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// SimilarAuthors finds the authors closest to the given one, excluding the
// author itself. Scores are always attached. Unknown and unembedded
// authors both yield ErrNotFound.
func (e *Engine) SimilarAuthors(authorID int64, topK int) ([]AuthorHit, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxPageSize {
		return nil, validationErr("top_k must be at most %d", MaxPageSize)
	}

	author, err := e.store.GetAuthor(authorID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, notFoundErr("author %d", authorID)
	}

	query, ok := e.authors.Vector(authorID)
	if !ok {
		query = author.Embedding
	}
	if query == nil {
		return nil, notFoundErr("author %d has no embedding", authorID)
	}

	hits, err := e.authors.Search(query, topK+1)
	if err != nil {
		return nil, err
	}

	_, scoreMode := e.scoreSettings()
	items := make([]AuthorHit, 0, topK)
	for _, h := range hits {
		if h.ID == authorID {
			continue
		}
		if len(items) == topK {
			break
		}
		row, err := e.store.GetAuthor(h.ID)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		items = append(items, AuthorHit{
			Author: *row,
			Score:  e.scoreFor(e.authors, query, h, scoreMode),
		})
	}
	return items, nil
}

// scoreFor converts a raw hit into a user-facing score. Cosine mode
// recomputes true similarity against the stored vector; ann mode maps the
// native distance through 1/(1+d).
func (e *Engine) scoreFor(ix *vecindex.Index, query []float32, hit vecindex.Hit, mode string) *float64 {
	var s float64
	if mode == config.ScoreModeCosine {
		vec, ok := ix.Vector(hit.ID)
		if !ok {
			return nil
		}
		s = vecindex.CosineSimilarity(query, vec)
	} else {
		s = vecindex.HeuristicScore(hit.Distance)
	}
	return &s
}

// topicMembership builds the set of abstract ids tagged with any of the
// topics.
func (e *Engine) topicMembership(topicIDs []int64) (map[int64]bool, error) {
	ids, err := e.store.AbstractIDsForTopics(topicIDs)
	if err != nil {
		return nil, err
	}
	member := make(map[int64]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	return member, nil
}

// normalizePaging validates and defaults page and pageSize.
func normalizePaging(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, validationErr("page must be at least 1")
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return 0, 0, validationErr("page_size must be between 1 and %d", MaxPageSize)
	}
	return page, pageSize, nil
}

// oversample sizes the candidate pull: factor times the rows needed to
// fill the requested page, floored at the rows themselves and capped at
// MaxCandidates.
func oversample(want, factor int) int {
	k := want * factor
	if k < want {
		k = want
	}
	if k > MaxCandidates {
		k = MaxCandidates
	}
	return k
}

// slicePage cuts the page-th window of size pageSize out of items.
func slicePage[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
