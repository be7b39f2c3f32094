package forum

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presensi/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	kv := store.NewMemory()
	s := NewService(kv, nil)
	clock := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s, kv
}

func validPost(title string) NewPost {
	return NewPost{
		Title:      title,
		Content:    "Banyak siswa terlambat",
		Category:   "evaluasi",
		Department: "all",
		Date:       "2024-01-10",
		Author:     " Bu Rina ",
	}
}

func TestCreateAndList(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	first, err := s.Create(ctx, validPost("Pertama"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Bu Rina", first.Author)
	assert.Empty(t, first.Department)

	in := validPost("Kedua")
	in.Department = "Animasi"
	second, err := s.Create(ctx, in)
	require.NoError(t, err)

	posts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, "Animasi", posts[0].Department)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestService(t)
	tests := map[string]func(*NewPost){
		"blank title":  func(p *NewPost) { p.Title = "   " },
		"no author":    func(p *NewPost) { p.Author = "" },
		"bad category": func(p *NewPost) { p.Category = "gosip" },
		"bad date":     func(p *NewPost) { p.Date = "10/01/2024" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := validPost("x")
			mutate(&in)
			_, err := s.Create(context.Background(), in)
			assert.True(t, errors.Is(err, ErrInvalid), err)
		})
	}
}

func TestReplyAndLike(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	post, err := s.Create(ctx, validPost("Diskusi"))
	require.NoError(t, err)

	_, err = s.Reply(ctx, post.ID, NewReply{Author: "Pak Budi", Content: "Setuju"})
	require.NoError(t, err)
	_, err = s.Like(ctx, post.ID)
	require.NoError(t, err)
	got, err := s.Like(ctx, post.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Likes)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, "Setuju", got.Replies[0].Content)

	_, err = s.Reply(ctx, post.ID, NewReply{Author: "x"})
	assert.True(t, errors.Is(err, ErrInvalid))
	_, err = s.Like(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostsPersistAsOneDocument(t *testing.T) {
	s, kv := newTestService(t)
	ctx := context.Background()
	post, err := s.Create(ctx, validPost("Tersimpan"))
	require.NoError(t, err)

	other := NewService(kv, nil)
	got, err := other.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tersimpan", got.Title)

	raw, err := kv.Get(ctx, store.KeyForumPosts)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tanggal":"2024-01-10"`)
}

func TestLegacyDocumentWithoutReplies(t *testing.T) {
	s, kv := newTestService(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, store.KeyForumPosts, []byte(`[{"id":"a","title":"t","content":"c","category":"saran","author":"x","likes":3}]`)))

	posts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.NotNil(t, posts[0].Replies)
	assert.Equal(t, 3, posts[0].Likes)
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "💡 Saran", CategoryLabel(CategorySuggestion))
	assert.Equal(t, "lainnya", CategoryLabel("lainnya"))
}
