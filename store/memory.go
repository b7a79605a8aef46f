package store

import (
	"context"
	"sort"
	"sync"

	"github.com/cppla/organizer/models"
)

// MemoryStore keeps posts and users in process memory. It backs tests and
// STORE_DRIVER=memory for local development.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]*models.Post
	users map[string]*models.User
	// seq breaks CreatedAt ties so listings stay in insertion order.
	seq   uint64
	order map[string]uint64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts: make(map[string]*models.Post),
		users: make(map[string]*models.User),
		order: make(map[string]uint64),
	}
}

func (s *MemoryStore) FindPostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) FindPosts(_ context.Context, filter PostFilter, page Page) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.Matches(p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return s.order[a.ID] > s.order[b.ID]
	})

	start := max(page.Skip, 0)
	if start > int64(len(matched)) {
		start = int64(len(matched))
	}
	end := int64(len(matched))
	if page.Limit > 0 && page.Limit < end-start {
		end = start + page.Limit
	}

	out := make([]models.Post, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, *p.Clone())
	}
	return out, nil
}

func (s *MemoryStore) CountPosts(_ context.Context, filter PostFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.posts {
		if filter.Matches(p) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = models.NewID()
	}
	s.seq++
	s.order[p.ID] = s.seq
	s.posts[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) ReplacePost(_ context.Context, p *models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[p.ID]; !ok {
		return nil, ErrNotFound
	}
	s.posts[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (s *MemoryStore) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	delete(s.order, id)
	return nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = models.NewID()
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) ReplaceUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }
