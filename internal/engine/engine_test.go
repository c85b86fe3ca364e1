package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Txm04/author-retrieval/internal/config"
	"github.com/Txm04/author-retrieval/internal/device"
	"github.com/Txm04/author-retrieval/internal/embedding"
	"github.com/Txm04/author-retrieval/internal/encoder"
)

const testDims = 8

// stubProvider derives a deterministic pseudo-random vector from the text,
// so identical texts embed identically and different texts diverge.
type stubProvider struct {
	mu     sync.Mutex
	failOn string
}

func (p *stubProvider) Embed(_ context.Context, text string) (embedding.Embedding, error) {
	p.mu.Lock()
	failOn := p.failOn
	p.mu.Unlock()
	if failOn != "" && strings.Contains(text, failOn) {
		return embedding.Embedding{}, fmt.Errorf("backend refused %q", failOn)
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	vec := make([]float32, testDims)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	return embedding.Embedding{Vector: vec}, nil
}

func (p *stubProvider) setFailOn(s string) {
	p.mu.Lock()
	p.failOn = s
	p.mu.Unlock()
}

func (p *stubProvider) ModelName() string { return "stub-model" }
func (p *stubProvider) Dimensions() int   { return testDims }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Model:            "stub-model",
		Device:           "cpu",
		VectorDim:        testDims,
		DBPath:           filepath.Join(dir, "test.db"),
		IndexDir:         filepath.Join(dir, "idx"),
		OversampleFactor: 5,
		ShowScores:       true,
		ScoreMode:        config.ScoreModeCosine,
		LogLevel:         "warn",
	}
}

func newTestEngine(t *testing.T) (*Engine, *stubProvider) {
	t.Helper()
	prov := &stubProvider{}
	e, err := New(testConfig(t),
		WithProviderFactory(func(device.Kind) embedding.Provider { return prov }))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, prov
}

func i64(v int64) *int64   { return &v }
func str(v string) *string { return &v }
func boolp(v bool) *bool   { return &v }

func record(id int64, title, content string, authors ...string) ImportRecord {
	rec := ImportRecord{ID: i64(id), Title: title, ContentRaw: content}
	for _, name := range authors {
		rec.Authors = append(rec.Authors, AuthorRef{Name: name})
	}
	return rec
}

func mustImport(t *testing.T, e *Engine, recs ...ImportRecord) *ImportResult {
	t.Helper()
	res, err := e.Import(context.Background(), recs)
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	return res
}

func TestImport_CountArithmetic(t *testing.T) {
	e, _ := newTestEngine(t)

	res := mustImport(t, e,
		record(1, "Attention Models", "Transformers dominate sequence tasks.", "Ada Lovelace"),
		ImportRecord{ID: i64(2), Title: "", ContentRaw: "orphan content"},
		record(3, "Graph Learning", "Message passing on sparse graphs.", "Alan Turing"),
	)

	if res.Imported != 2 {
		t.Errorf("Imported = %d, want 2", res.Imported)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "title") {
		t.Errorf("Errors = %v, want one about the missing title", res.Errors)
	}

	st, err := e.Status()
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if st.Abstracts != 2 || st.Authors != 2 {
		t.Errorf("counts = %d abstracts / %d authors, want 2/2", st.Abstracts, st.Authors)
	}
	if st.AbstractsIndex.Size != 2 {
		t.Errorf("abstracts index size = %d, want 2", st.AbstractsIndex.Size)
	}
	if st.AuthorsIndex.Size != 2 {
		t.Errorf("authors index size = %d, want 2", st.AuthorsIndex.Size)
	}
}

func TestImport_DuplicateIDSkipped(t *testing.T) {
	e, _ := newTestEngine(t)

	mustImport(t, e, record(1, "First", "Some content.", "Ada Lovelace"))
	res := mustImport(t, e, record(1, "First again", "Some content.", "Ada Lovelace"))

	if res.Imported != 0 || res.Skipped != 1 {
		t.Errorf("re-import = %d imported / %d skipped, want 0/1", res.Imported, res.Skipped)
	}

	detail, err := e.GetAbstract(1)
	if err != nil {
		t.Fatalf("GetAbstract() error: %v", err)
	}
	if detail.Title != "First" {
		t.Errorf("Title = %s, duplicate import overwrote the original", detail.Title)
	}
	if len(detail.Authors) != 1 {
		t.Errorf("got %d author links, want 1 (deduped)", len(detail.Authors))
	}
}

func TestImport_SharedAuthorAndFlexibleRefs(t *testing.T) {
	e, _ := newTestEngine(t)

	recs := []ImportRecord{
		{
			ID: i64(1), Title: "Paper A", ContentRaw: "Alpha content.",
			Authors: []AuthorRef{{Name: "Ada Lovelace"}},
			Topics:  []TopicRef{{Title: "Machine Learning"}},
		},
		{
			ID: i64(2), Title: "Paper B", ContentRaw: "Beta content.",
			Authors: []AuthorRef{{Name: "Ada Lovelace"}, {ID: i64(7), Name: "Grace Hopper"}},
			Topics:  []TopicRef{{Title: "Machine Learning"}, {ID: i64(42)}},
		},
	}
	res := mustImport(t, e, recs...)
	if res.Imported != 2 {
		t.Fatalf("Imported = %d, want 2 (errors: %v)", res.Imported, res.Errors)
	}

	st, _ := e.Status()
	if st.Authors != 2 {
		t.Errorf("authors = %d, want 2 (Ada resolved by name both times)", st.Authors)
	}
	if st.Topics != 2 {
		t.Errorf("topics = %d, want 2 (one by title, one placeholder by id)", st.Topics)
	}

	ada, err := e.GetAuthor(1)
	if err != nil {
		t.Fatalf("GetAuthor() error: %v", err)
	}
	if len(ada.Abstracts) != 2 {
		t.Errorf("Ada has %d abstracts, want 2", len(ada.Abstracts))
	}

	grace, err := e.GetAuthor(7)
	if err != nil {
		t.Fatalf("GetAuthor(7) error: %v", err)
	}
	if grace.Name != "Grace Hopper" {
		t.Errorf("author 7 name = %s, want Grace Hopper", grace.Name)
	}

	topics, err := e.ListTopics()
	if err != nil {
		t.Fatalf("ListTopics() error: %v", err)
	}
	foundPlaceholder := false
	for _, tp := range topics {
		if tp.ID == 42 {
			foundPlaceholder = true
			if tp.Title != "Topic 42" {
				t.Errorf("placeholder title = %s, want Topic 42", tp.Title)
			}
		}
	}
	if !foundPlaceholder {
		t.Error("placeholder topic 42 missing")
	}
}

func TestSearchAbstracts_SelfQueryTopHit(t *testing.T) {
	e, _ := newTestEngine(t)

	mustImport(t, e,
		record(1, "Quantum Chemistry", "Simulating molecules with qubits.", "Ada"),
		record(2, "Protein Folding", "Structure prediction at scale.", "Ada"),
		record(3, "Ocean Currents", "Measuring thermohaline circulation.", "Bob"),
	)

	// Querying with an abstract's own canonical text must put it first with
	// cosine score ~1.0.
	keyword := "Protein Folding. Structure prediction at scale."
	res, err := e.SearchAbstracts(context.Background(), keyword, nil, 1, 10)
	if err != nil {
		t.Fatalf("SearchAbstracts() error: %v", err)
	}
	if len(res.Items) == 0 {
		t.Fatal("no results")
	}
	if res.Items[0].Abstract.ID != 2 {
		t.Errorf("top hit = %d, want 2", res.Items[0].Abstract.ID)
	}
	if res.Items[0].Score == nil {
		t.Fatal("score missing with show_scores on")
	}
	if math.Abs(*res.Items[0].Score-1.0) > 1e-4 {
		t.Errorf("self-query cosine = %f, want ~1.0", *res.Items[0].Score)
	}
}

func TestSearchAbstracts_Validation(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name     string
		keyword  string
		topics   []int64
		page     int
		pageSize int
	}{
		{name: "no keyword no topics", keyword: "", topics: nil, page: 1, pageSize: 10},
		{name: "blank keyword", keyword: "   ", topics: nil, page: 1, pageSize: 10},
		{name: "negative page", keyword: "x", topics: nil, page: -1, pageSize: 10},
		{name: "oversized page size", keyword: "x", topics: nil, page: 1, pageSize: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SearchAbstracts(context.Background(), tt.keyword, tt.topics, tt.page, tt.pageSize)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSearchAbstracts_TopicOnlyPath(t *testing.T) {
	e, _ := newTestEngine(t)

	recs := []ImportRecord{
		{ID: i64(1), Title: "A", ContentRaw: "a.", Topics: []TopicRef{{Title: "Bio"}},
			PublicationDate: flexDate(t, "2021-03-01")},
		{ID: i64(2), Title: "B", ContentRaw: "b.", Topics: []TopicRef{{Title: "Bio"}},
			PublicationDate: flexDate(t, "2024-03-01")},
		{ID: i64(3), Title: "C", ContentRaw: "c.", Topics: []TopicRef{{Title: "Bio"}}},
		{ID: i64(4), Title: "D", ContentRaw: "d.", Topics: []TopicRef{{Title: "Chem"}}},
	}
	mustImport(t, e, recs...)

	res, err := e.SearchAbstracts(context.Background(), "", []int64{1}, 1, 10)
	if err != nil {
		t.Fatalf("SearchAbstracts() error: %v", err)
	}

	// Newest first, undated last; topic Chem excluded; no scores.
	wantOrder := []int64{2, 1, 3}
	if len(res.Items) != len(wantOrder) {
		t.Fatalf("got %d items, want %d", len(res.Items), len(wantOrder))
	}
	for i, want := range wantOrder {
		if res.Items[i].Abstract.ID != want {
			t.Errorf("items[%d].ID = %d, want %d", i, res.Items[i].Abstract.ID, want)
		}
		if res.Items[i].Score != nil {
			t.Errorf("items[%d] has a score on the topic-only path", i)
		}
	}
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}
}

func TestSearchAbstracts_TopicFilterPreservesRank(t *testing.T) {
	e, _ := newTestEngine(t)

	recs := make([]ImportRecord, 0, 6)
	for i := int64(1); i <= 6; i++ {
		rec := record(i, fmt.Sprintf("Title %d", i), fmt.Sprintf("Content body %d.", i))
		if i%2 == 0 {
			rec.Topics = []TopicRef{{Title: "Even"}}
		}
		recs = append(recs, rec)
	}
	mustImport(t, e, recs...)

	unfiltered, err := e.SearchAbstracts(context.Background(), "some query", nil, 1, 10)
	if err != nil {
		t.Fatalf("SearchAbstracts() error: %v", err)
	}
	filtered, err := e.SearchAbstracts(context.Background(), "some query", []int64{1}, 1, 10)
	if err != nil {
		t.Fatalf("SearchAbstracts() filtered error: %v", err)
	}

	var wantOrder []int64
	for _, it := range unfiltered.Items {
		if it.Abstract.ID%2 == 0 {
			wantOrder = append(wantOrder, it.Abstract.ID)
		}
	}
	if len(filtered.Items) != len(wantOrder) {
		t.Fatalf("filtered count = %d, want %d", len(filtered.Items), len(wantOrder))
	}
	for i, want := range wantOrder {
		if filtered.Items[i].Abstract.ID != want {
			t.Errorf("filtered[%d].ID = %d, want %d (rank not preserved)", i, filtered.Items[i].Abstract.ID, want)
		}
	}
}

func TestSearchAbstracts_PageDisjointness(t *testing.T) {
	e, _ := newTestEngine(t)

	recs := make([]ImportRecord, 0, 10)
	for i := int64(1); i <= 10; i++ {
		recs = append(recs, record(i, fmt.Sprintf("Paper %d", i), fmt.Sprintf("Body of paper %d.", i)))
	}
	mustImport(t, e, recs...)

	seen := make(map[int64]int)
	for page := 1; page <= 3; page++ {
		res, err := e.SearchAbstracts(context.Background(), "paper", nil, page, 3)
		if err != nil {
			t.Fatalf("SearchAbstracts(page %d) error: %v", page, err)
		}
		for _, it := range res.Items {
			seen[it.Abstract.ID]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("abstract %d appeared on %d pages", id, n)
		}
	}
	if len(seen) != 9 {
		t.Errorf("3 pages of 3 yielded %d distinct ids, want 9", len(seen))
	}
}

func TestSearchAuthors(t *testing.T) {
	e, _ := newTestEngine(t)

	mustImport(t, e,
		record(1, "Alpha", "First body.", "Ada"),
		record(2, "Beta", "Second body.", "Bob"),
	)

	res, err := e.SearchAuthors(context.Background(), "first", 1, 10)
	if err != nil {
		t.Fatalf("SearchAuthors() error: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("got %d authors, want 2", len(res.Items))
	}
	if res.Items[0].Score == nil {
		t.Error("score missing with show_scores on")
	}

	if _, err := e.SearchAuthors(context.Background(), "", 1, 10); !errors.Is(err, ErrValidation) {
		t.Errorf("empty keyword error = %v, want ErrValidation", err)
	}
}

func TestSimilarAuthors(t *testing.T) {
	e, _ := newTestEngine(t)

	mustImport(t, e,
		record(1, "Alpha", "First body.", "Ada"),
		record(2, "Beta", "Second body.", "Bob"),
		record(3, "Gamma", "Third body.", "Cleo"),
	)

	hits, err := e.SimilarAuthors(1, 10)
	if err != nil {
		t.Fatalf("SimilarAuthors() error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d similar authors, want 2", len(hits))
	}
	for _, h := range hits {
		if h.Author.ID == 1 {
			t.Error("result includes the query author")
		}
		if h.Score == nil {
			t.Error("similar-author score missing; scores are always attached")
		}
	}

	t.Run("unknown author", func(t *testing.T) {
		if _, err := e.SimilarAuthors(999, 5); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("unembedded author", func(t *testing.T) {
		// Deleting Cleo's only abstract leaves her without a vector.
		if err := e.DeleteAbstract(3); err != nil {
			t.Fatalf("DeleteAbstract() error: %v", err)
		}
		if _, err := e.SimilarAuthors(3, 5); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestDeleteAbstract_RecomputesAuthorMean(t *testing.T) {
	e, _ := newTestEngine(t)

	mustImport(t, e,
		record(1, "Alpha", "First body.", "Ada"),
		record(2, "Beta", "Second body.", "Ada"),
	)

	before, err := e.GetAuthor(1)
	if err != nil {
		t.Fatalf("GetAuthor() error: %v", err)
	}
	if !before.HasEmbedding {
		t.Fatal("author should be embedded after import")
	}

	if err := e.DeleteAbstract(1); err != nil {
		t.Fatalf("DeleteAbstract() error: %v", err)
	}

	after, err := e.GetAuthor(1)
	if err != nil {
		t.Fatalf("GetAuthor() after delete error: %v", err)
	}
	if !after.HasEmbedding {
		t.Fatal("author still has one embedded abstract, embedding should remain")
	}
	if len(after.Abstracts) != 1 {
		t.Errorf("author has %d abstracts, want 1", len(after.Abstracts))
	}

	// The mean over one abstract equals that abstract's vector, so it must
	// differ from the mean over two.
	same := true
	for i := range before.Embedding {
		if before.Embedding[i] != after.Embedding[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("author mean vector unchanged after losing an abstract")
	}

	// Deleting the last abstract drops the author from the index.
	if err := e.DeleteAbstract(2); err != nil {
		t.Fatalf("DeleteAbstract(2) error: %v", err)
	}
	if _, err := e.SimilarAuthors(1, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound for author without signal", err)
	}
	st, _ := e.Status()
	if st.AuthorsIndex.Size != 0 {
		t.Errorf("authors index size = %d, want 0", st.AuthorsIndex.Size)
	}
}

func TestUpdateAbstract_ReembedsOnContentChange(t *testing.T) {
	e, _ := newTestEngine(t)
	mustImport(t, e, record(1, "Old Title", "Old content.", "Ada"))

	before, _ := e.GetAbstract(1)

	detail, err := e.UpdateAbstract(context.Background(), 1, AbstractPatch{
		ContentRaw: str("Completely new content."),
	})
	if err != nil {
		t.Fatalf("UpdateAbstract() error: %v", err)
	}
	if detail.ContentRaw != "Completely new content." {
		t.Errorf("ContentRaw = %s", detail.ContentRaw)
	}

	same := len(before.Embedding) == len(detail.Embedding)
	if same {
		for i := range before.Embedding {
			if before.Embedding[i] != detail.Embedding[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("embedding unchanged after content change")
	}
}

func TestUpdateAbstract_TopicsValidated(t *testing.T) {
	e, _ := newTestEngine(t)
	mustImport(t, e, record(1, "T", "Content."))

	_, err := e.UpdateAbstract(context.Background(), 1, AbstractPatch{TopicIDs: &[]int64{99}})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for unknown topic", err)
	}
}

func TestUpdateAuthor(t *testing.T) {
	e, _ := newTestEngine(t)
	mustImport(t, e, record(1, "T", "Content.", "Ada"))

	detail, err := e.UpdateAuthor(1, AuthorPatch{Name: str("Ada Lovelace")})
	if err != nil {
		t.Fatalf("UpdateAuthor() error: %v", err)
	}
	if detail.Name != "Ada Lovelace" {
		t.Errorf("Name = %s, want Ada Lovelace", detail.Name)
	}

	if _, err := e.UpdateAuthor(1, AuthorPatch{Name: str("  ")}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank rename error = %v, want ErrValidation", err)
	}
	if _, err := e.UpdateAuthor(99, AuthorPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown author error = %v, want ErrNotFound", err)
	}
}

func TestSetConfig(t *testing.T) {
	e, _ := newTestEngine(t)

	t.Run("invalid device leaves status unchanged", func(t *testing.T) {
		err := e.SetConfig(context.Background(), ConfigUpdate{Device: str("quantum")})
		if !errors.Is(err, ErrInvalidDevice) {
			t.Errorf("error = %v, want ErrInvalidDevice", err)
		}
		st, _ := e.Status()
		if st.Encoder.Device != device.CPU {
			t.Errorf("device = %s after failed switch, want cpu", st.Encoder.Device)
		}
	})

	t.Run("invalid score mode", func(t *testing.T) {
		err := e.SetConfig(context.Background(), ConfigUpdate{ScoreMode: str("euclidean")})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("score settings applied", func(t *testing.T) {
		err := e.SetConfig(context.Background(), ConfigUpdate{
			ShowScores: boolp(false),
			ScoreMode:  str(config.ScoreModeANN),
		})
		if err != nil {
			t.Fatalf("SetConfig() error: %v", err)
		}
		st, _ := e.Status()
		if st.ShowScores || st.ScoreMode != config.ScoreModeANN {
			t.Errorf("settings = %v/%s, want false/ann", st.ShowScores, st.ScoreMode)
		}
	})
}

func TestScoreModeANN(t *testing.T) {
	e, _ := newTestEngine(t)
	mustImport(t, e, record(1, "Solo", "Only content."))

	if err := e.SetConfig(context.Background(), ConfigUpdate{ScoreMode: str(config.ScoreModeANN)}); err != nil {
		t.Fatalf("SetConfig() error: %v", err)
	}

	res, err := e.SearchAbstracts(context.Background(), "Solo. Only content.", nil, 1, 10)
	if err != nil {
		t.Fatalf("SearchAbstracts() error: %v", err)
	}
	if len(res.Items) == 0 || res.Items[0].Score == nil {
		t.Fatal("missing ann score")
	}
	// Self-query distance is 0, so 1/(1+d) = 1.
	if math.Abs(*res.Items[0].Score-1.0) > 1e-6 {
		t.Errorf("ann self score = %f, want 1.0", *res.Items[0].Score)
	}
}

func TestReset(t *testing.T) {
	e, _ := newTestEngine(t)
	mustImport(t, e, record(1, "T", "Content.", "Ada"))

	t.Run("wrong token", func(t *testing.T) {
		if err := e.Reset("reset"); !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
		st, _ := e.Status()
		if st.Abstracts != 1 {
			t.Error("wrong token wiped data")
		}
	})

	t.Run("lifecycle", func(t *testing.T) {
		if err := e.Reset(ResetConfirmToken); err != nil {
			t.Fatalf("Reset() error: %v", err)
		}
		st, _ := e.Status()
		if st.Abstracts != 0 || st.Authors != 0 || st.Topics != 0 {
			t.Errorf("counts after reset = %d/%d/%d, want zeros", st.Abstracts, st.Authors, st.Topics)
		}
		if st.AbstractsIndex.Size != 0 || st.AuthorsIndex.Size != 0 {
			t.Error("indices not empty after reset")
		}

		// The engine accepts new imports immediately after a reset.
		res := mustImport(t, e, record(1, "Fresh", "New content.", "Ada"))
		if res.Imported != 1 {
			t.Errorf("Imported after reset = %d, want 1", res.Imported)
		}
	})
}

func TestReindex_HealsMissingEmbeddings(t *testing.T) {
	e, prov := newTestEngine(t)

	prov.setFailOn("poison")
	res := mustImport(t, e,
		record(1, "Fine", "Normal content."),
		record(2, "Poisoned", "This text contains poison."),
	)
	if res.Imported != 2 {
		t.Fatalf("Imported = %d, want 2 (embed failure keeps the row)", res.Imported)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want one encode failure", res.Errors)
	}

	st, _ := e.Status()
	if st.AbstractsIndex.Size != 1 {
		t.Fatalf("index size = %d, want 1 before reindex", st.AbstractsIndex.Size)
	}

	prov.setFailOn("")
	report, err := e.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex() error: %v", err)
	}
	if report.AbstractsEncoded != 1 {
		t.Errorf("AbstractsEncoded = %d, want 1", report.AbstractsEncoded)
	}
	if report.AbstractsIndexed != 2 {
		t.Errorf("AbstractsIndexed = %d, want 2", report.AbstractsIndexed)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none", report.Errors)
	}
}

func TestReindex_CollectsPerRecordErrors(t *testing.T) {
	e, prov := newTestEngine(t)

	prov.setFailOn("poison")
	mustImport(t, e,
		record(1, "Poisoned", "Contains poison here."),
		record(2, "Fine", "Normal content."),
	)

	report, err := e.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex() error: %v", err)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v, want exactly one", report.Errors)
	}
	if report.AbstractsIndexed != 1 {
		t.Errorf("AbstractsIndexed = %d, want 1", report.AbstractsIndexed)
	}
}

func TestPersistenceAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	prov := &stubProvider{}
	factory := func(device.Kind) embedding.Provider { return prov }

	e, err := New(cfg, WithProviderFactory(factory))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	mustImport(t, e, record(1, "Persist", "Content survives restart.", "Ada"))
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	e2, err := New(cfg, WithProviderFactory(factory))
	if err != nil {
		t.Fatalf("reopen New() error: %v", err)
	}
	defer e2.Close()

	st, err := e2.Status()
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if st.Abstracts != 1 || st.AbstractsIndex.Size != 1 || st.AuthorsIndex.Size != 1 {
		t.Errorf("restart state = %d abstracts, %d/%d index sizes, want 1, 1/1",
			st.Abstracts, st.AbstractsIndex.Size, st.AuthorsIndex.Size)
	}

	res, err := e2.SearchAbstracts(context.Background(), "Persist. Content survives restart.", nil, 1, 5)
	if err != nil {
		t.Fatalf("SearchAbstracts() after restart error: %v", err)
	}
	if len(res.Items) == 0 || res.Items[0].Abstract.ID != 1 {
		t.Error("loaded index cannot serve the persisted abstract")
	}
}

func TestGetAbstract_Detail(t *testing.T) {
	e, _ := newTestEngine(t)
	rec := record(1, "Detailed", "Full content.", "Ada", "Bob")
	rec.Topics = []TopicRef{{Title: "ML"}}
	mustImport(t, e, rec)

	detail, err := e.GetAbstract(1)
	if err != nil {
		t.Fatalf("GetAbstract() error: %v", err)
	}
	if len(detail.Authors) != 2 || len(detail.Topics) != 1 {
		t.Errorf("detail links = %d authors / %d topics, want 2/1", len(detail.Authors), len(detail.Topics))
	}

	if _, err := e.GetAbstract(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteAuthor(t *testing.T) {
	e, _ := newTestEngine(t)
	mustImport(t, e, record(1, "T", "Content.", "Ada"))

	if err := e.DeleteAuthor(1); err != nil {
		t.Fatalf("DeleteAuthor() error: %v", err)
	}
	if _, err := e.GetAuthor(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	// The abstract itself survives.
	if _, err := e.GetAbstract(1); err != nil {
		t.Errorf("abstract lost with its author: %v", err)
	}

	if err := e.DeleteAuthor(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete error = %v, want ErrNotFound", err)
	}
}

func flexDate(t *testing.T, s string) *FlexDate {
	t.Helper()
	var d FlexDate
	if err := d.UnmarshalJSON([]byte(`"` + s + `"`)); err != nil {
		t.Fatalf("parsing date %s: %v", s, err)
	}
	return &d
}

func TestImport_FlatTopicAndMetadata(t *testing.T) {
	e, _ := newTestEngine(t)

	rec := ImportRecord{
		ID:             i64(10),
		Title:          "Spectral sparsification",
		ContentRaw:     "We sparsify graphs.",
		Content:        str("Formatted body."),
		SubmissionDate: flexDate(t, "2024-01-10"),
		LanguageRef:    i64(1),
		WordCount:      i64(182),
		Keywords:       str("graphs;sparsification"),
		SessionID:      i64(3),
		SessionTitle:   str("Poster Session A"),
		TopicID:        i64(4),
		TopicTitle:     "Graph Theory",
		Authors:        []AuthorRef{{ID: i64(7)}},
	}
	res := mustImport(t, e, rec)
	if res.Imported != 1 || len(res.Errors) != 0 {
		t.Fatalf("import = %d imported, errors %v; want a clean single import", res.Imported, res.Errors)
	}

	detail, err := e.GetAbstract(10)
	if err != nil {
		t.Fatalf("GetAbstract() error: %v", err)
	}
	if len(detail.Topics) != 1 || detail.Topics[0].ID != 4 || detail.Topics[0].Title != "Graph Theory" {
		t.Errorf("Topics = %+v, want the flat topic_id/topic_title pair linked", detail.Topics)
	}
	if len(detail.Authors) != 1 || detail.Authors[0].ID != 7 {
		t.Errorf("Authors = %+v, want the author_id reference linked", detail.Authors)
	}
	if detail.Content == nil || *detail.Content != "Formatted body." {
		t.Errorf("Content = %v, want the secondary body", detail.Content)
	}
	if detail.SubmissionDate == nil || detail.SubmissionDate.Format("2006-01-02") != "2024-01-10" {
		t.Errorf("SubmissionDate = %v, want 2024-01-10", detail.SubmissionDate)
	}
	if detail.WordCount == nil || *detail.WordCount != 182 {
		t.Errorf("WordCount = %v, want 182", detail.WordCount)
	}
	if detail.SessionTitle == nil || *detail.SessionTitle != "Poster Session A" {
		t.Errorf("SessionTitle = %v, want Poster Session A", detail.SessionTitle)
	}

	author, err := e.GetAuthor(7)
	if err != nil {
		t.Fatalf("GetAuthor(7) error: %v", err)
	}
	if !author.HasEmbedding {
		t.Error("author 7 should carry the mean of its one abstract")
	}
}

func TestSearchAbstracts_StaleIndexEntry(t *testing.T) {
	e, _ := newTestEngine(t)

	mustImport(t, e,
		record(1, "Alpha", "Alpha body."),
		record(2, "Beta", "Beta body."),
		record(3, "Gamma", "Gamma body."),
	)

	// Drop row 2 from the store only; the index still holds its vector.
	if err := e.store.DeleteAbstract(2); err != nil {
		t.Fatalf("store delete error: %v", err)
	}

	res, err := e.SearchAbstracts(context.Background(), "Beta. Beta body.", nil, 1, 10)
	if err != nil {
		t.Fatalf("SearchAbstracts() error: %v", err)
	}
	if len(res.Items) == 0 {
		t.Fatal("expected the surviving abstracts in the result")
	}
	for _, item := range res.Items {
		if item.Abstract.ID == 2 {
			t.Error("abstract 2 surfaced despite having no stored row")
		}
		if item.Score == nil {
			t.Errorf("abstract %d has no score", item.Abstract.ID)
			continue
		}
		if *item.Score > 0.999 {
			t.Errorf("abstract %d scored %f; the missing row's score leaked onto it",
				item.Abstract.ID, *item.Score)
		}
	}
}

func TestEncodeErrorTaxonomy(t *testing.T) {
	err := wrapEncodeErr(encoder.ErrEmptyText)
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("error = %v, want ErrEncoding", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Error("empty-text encode failures must not surface as validation errors")
	}
}
