// Package store holds the persistence contract for posts and users together with
// its MongoDB, MySQL (GORM) and in-memory implementations.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/cppla/organizer/models"
)

var (
	// ErrNotFound is returned when a post or user does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

// PostFilter selects posts. TitleContains and AnyTag are OR-ed together;
// an empty filter matches every post.
type PostFilter struct {
	// TitleContains is a case-insensitive literal substring of the title.
	TitleContains *string
	// AnyTag matches posts carrying at least one of these tags.
	AnyTag []string
}

// IsEmpty reports whether the filter matches every post.
func (f PostFilter) IsEmpty() bool {
	return f.TitleContains == nil && len(f.AnyTag) == 0
}

// Matches evaluates the filter in memory.
func (f PostFilter) Matches(p *models.Post) bool {
	if f.IsEmpty() {
		return true
	}
	if f.TitleContains != nil && strings.Contains(strings.ToLower(p.Title), strings.ToLower(*f.TitleContains)) {
		return true
	}
	for _, want := range f.AnyTag {
		for _, have := range p.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

// Page bounds a listing. A zero Limit means no limit.
type Page struct {
	Limit int64
	Skip  int64
}

// PostStore is the data-access contract for posts. Listings are newest first.
type PostStore interface {
	FindPostByID(ctx context.Context, id string) (*models.Post, error)
	FindPosts(ctx context.Context, filter PostFilter, page Page) ([]models.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int64, error)
	// CreatePost assigns p.ID when it is empty.
	CreatePost(ctx context.Context, p *models.Post) error
	// ReplacePost overwrites the stored post with p and returns the stored copy.
	ReplacePost(ctx context.Context, p *models.Post) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// UserStore is the data-access contract for accounts.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser assigns u.ID when it is empty.
	CreateUser(ctx context.Context, u *models.User) error
	ReplaceUser(ctx context.Context, u *models.User) error
}

// Store is a full persistence backend.
type Store interface {
	PostStore
	UserStore
	Close(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*MongoStore)(nil)
	_ Store = (*GormStore)(nil)
)
