package forum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"presensi/internal/logger"
	"presensi/internal/store"
)

var (
	ErrNotFound = errors.New("post not found")
	ErrInvalid  = errors.New("invalid forum input")
)

// Category of a discussion.
type Category string

const (
	CategoryEvaluation  Category = "evaluasi"
	CategoryProblem     Category = "masalah"
	CategorySuggestion  Category = "saran"
	CategoryAchievement Category = "pencapaian"
)

var categoryLabels = map[Category]string{
	CategoryEvaluation:  "📊 Evaluasi",
	CategoryProblem:     "⚠ Masalah",
	CategorySuggestion:  "💡 Saran",
	CategoryAchievement: "🎉 Pencapaian",
}

// CategoryLabel returns the display label, or the raw value when unknown.
func CategoryLabel(c Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Post is one discussion thread. JSON names follow the browser's stored
// layout so existing local data can be imported unchanged.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   Category  `json:"category"`
	Department string    `json:"jurusan,omitempty"`
	Date       string    `json:"tanggal,omitempty"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"date"`
	Likes      int       `json:"likes"`
	Replies    []Reply   `json:"replies"`
}

// Reply is a comment under a post.
type Reply struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"date"`
}

// NewPost is the input of Create.
type NewPost struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required,max=5000"`
	Category string `json:"category" validate:"required,oneof=evaluasi masalah saran pencapaian"`
	// Department "all" or empty addresses every department.
	Department string `json:"jurusan" validate:"max=100"`
	Date       string `json:"tanggal" validate:"omitempty,datetime=2006-01-02"`
	Author     string `json:"author" validate:"required,max=100"`
}

// NewReply is the input of Reply.
type NewReply struct {
	Author  string `json:"author" validate:"required,max=100"`
	Content string `json:"content" validate:"required,max=2000"`
}

// Service keeps forum posts in a KV store as a single document.
type Service struct {
	kv       store.KV
	validate *validator.Validate
	log      *logrus.Entry
	now      func() time.Time

	// mu serializes read-modify-write cycles on the document.
	mu sync.Mutex
}

// NewService creates a forum service on kv.
func NewService(kv store.KV, log *logrus.Logger) *Service {
	return &Service{
		kv:       kv,
		validate: validator.New(),
		log:      logger.Component(log, "forum", "service"),
		now:      time.Now,
	}
}

// List returns all posts, newest first.
func (s *Service) List(ctx context.Context) ([]Post, error) {
	return s.load(ctx)
}

// Get returns one post.
func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	posts, err := s.load(ctx)
	if err != nil {
		return Post{}, err
	}
	i := indexOf(posts, id)
	if i < 0 {
		return Post{}, ErrNotFound
	}
	return posts[i], nil
}

// Create validates in and stores a new post at the top of the list.
func (s *Service) Create(ctx context.Context, in NewPost) (Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Author = strings.TrimSpace(in.Author)
	in.Department = strings.TrimSpace(in.Department)
	in.Date = strings.TrimSpace(in.Date)
	if err := s.check(in); err != nil {
		return Post{}, err
	}
	if strings.EqualFold(in.Department, "all") {
		in.Department = ""
	}

	post := Post{
		ID:         uuid.NewString(),
		Title:      in.Title,
		Content:    in.Content,
		Category:   Category(in.Category),
		Department: in.Department,
		Date:       in.Date,
		Author:     in.Author,
		CreatedAt:  s.now().UTC(),
		Replies:    []Reply{},
	}
	err := s.update(ctx, func(posts []Post) ([]Post, error) {
		return append([]Post{post}, posts...), nil
	})
	if err != nil {
		return Post{}, err
	}
	s.log.WithFields(logrus.Fields{"id": post.ID, "category": post.Category}).Info("post created")
	return post, nil
}

// Reply appends a reply to the post with the given id.
func (s *Service) Reply(ctx context.Context, id string, in NewReply) (Post, error) {
	in.Author = strings.TrimSpace(in.Author)
	in.Content = strings.TrimSpace(in.Content)
	if err := s.check(in); err != nil {
		return Post{}, err
	}
	var out Post
	err := s.update(ctx, func(posts []Post) ([]Post, error) {
		i := indexOf(posts, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		posts[i].Replies = append(posts[i].Replies, Reply{
			Author:    in.Author,
			Content:   in.Content,
			CreatedAt: s.now().UTC(),
		})
		out = posts[i]
		return posts, nil
	})
	return out, err
}

// Like increments the like counter of a post.
func (s *Service) Like(ctx context.Context, id string) (Post, error) {
	var out Post
	err := s.update(ctx, func(posts []Post) ([]Post, error) {
		i := indexOf(posts, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		posts[i].Likes++
		out = posts[i]
		return posts, nil
	})
	return out, err
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %s", ErrInvalid, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (s *Service) update(ctx context.Context, fn func([]Post) ([]Post, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts, err := s.load(ctx)
	if err != nil {
		return err
	}
	posts, err = fn(posts)
	if err != nil {
		return err
	}
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode posts: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyForumPosts, data); err != nil {
		return fmt.Errorf("save posts: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context) ([]Post, error) {
	data, err := s.kv.Get(ctx, store.KeyForumPosts)
	if errors.Is(err, store.ErrNotFound) {
		return []Post{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	var posts []Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	for i := range posts {
		if posts[i].Replies == nil {
			posts[i].Replies = []Reply{}
		}
	}
	return posts, nil
}

func indexOf(posts []Post, id string) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}
