package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/quizdoc/internal/doctree"
	"github.com/dgallion1/quizdoc/internal/parser"
	"github.com/dgallion1/quizdoc/internal/quiz"
)

func doc(id string, created time.Time) *Document {
	return &Document{
		ID:        id,
		Name:      id + ".txt",
		CreatedAt: created,
		Pages:     []parser.Page{{PageNumber: 1, Text: "one"}, {PageNumber: 2, Text: "two"}},
	}
}

func TestDocuments_PutGetDelete(t *testing.T) {
	docs, err := NewDocuments(4, nil)
	require.NoError(t, err)

	d := doc("a", time.Now())
	docs.Put(d)
	require.NotNil(t, d.Picked)

	got, err := docs.Get("a")
	require.NoError(t, err)
	assert.Same(t, d, got)

	require.NoError(t, docs.Delete("a"))
	_, err = docs.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, docs.Delete("a"), ErrNotFound)
}

func TestDocuments_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	docs, err := NewDocuments(2, func(d *Document) { evicted = append(evicted, d.ID) })
	require.NoError(t, err)

	now := time.Now()
	docs.Put(doc("a", now))
	docs.Put(doc("b", now.Add(time.Second)))
	_, _ = docs.Get("a")
	docs.Put(doc("c", now.Add(2*time.Second)))

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, docs.Len())

	list := docs.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[1].ID)
}

func TestDocument_Page(t *testing.T) {
	d := doc("a", time.Now())
	p, err := d.Page(2)
	require.NoError(t, err)
	assert.Equal(t, "two", p.Text)

	_, err = d.Page(3)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = d.Page(0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocument_SetIndexClearsSelection(t *testing.T) {
	docs, err := NewDocuments(2, nil)
	require.NoError(t, err)
	d := doc("a", time.Now())
	docs.Put(d)

	d.Picked.Pick("0")
	idx, err := doctree.Build([]doctree.Node{{Title: "Intro", PageNumber: 1}}, d.PageCount())
	require.NoError(t, err)
	d.SetIndex(idx)

	assert.Same(t, idx, d.Index())
	assert.Empty(t, d.Picked.Paths())
}

func TestQuizzes_DeleteForDocument(t *testing.T) {
	qs, err := NewQuizzes(8)
	require.NoError(t, err)

	for _, id := range []string{"q1", "q2"} {
		s, err := quiz.NewSession(id, "doc-a", nil)
		require.NoError(t, err)
		qs.Put(s)
	}
	other, err := quiz.NewSession("q3", "doc-b", nil)
	require.NoError(t, err)
	qs.Put(other)

	assert.Equal(t, 2, qs.DeleteForDocument("doc-a"))
	_, err = qs.Get("q1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = qs.Get("q3")
	assert.NoError(t, err)
}

func TestMemoryBlobs(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBlobs()

	data := []byte("pdf bytes")
	require.NoError(t, b.Put(ctx, "k", data, "application/pdf"))
	data[0] = 'X'

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(got))

	require.NoError(t, b.Delete(ctx, "k"))
	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryResults_OrderedBySubmission(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryResults()
	now := time.Now()

	require.NoError(t, r.SaveResult(ctx, Result{ID: uuid.New(), QuizID: "q", Attempt: 1, SubmittedAt: now.Add(time.Minute)}))
	require.NoError(t, r.SaveResult(ctx, Result{ID: uuid.New(), QuizID: "q", Attempt: 0, SubmittedAt: now}))
	require.NoError(t, r.SaveResult(ctx, Result{ID: uuid.New(), QuizID: "other", SubmittedAt: now}))

	list, err := r.ListResults(ctx, "q")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 0, list[0].Attempt)
	assert.Equal(t, 1, list[1].Attempt)

	empty, err := r.ListResults(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNewS3Blobs_RequiresConfig(t *testing.T) {
	_, err := NewS3Blobs(S3Config{})
	assert.Error(t, err)
	_, err = NewS3Blobs(S3Config{Endpoint: "localhost:9000", Bucket: "b"})
	assert.Error(t, err)

	s, err := NewS3Blobs(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
	assert.Equal(t, "documents/abc.pdf", objectKey("/abc.pdf"))
}
