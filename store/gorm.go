package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/organizer/models"
)

// GormStore persists posts and users in MySQL through GORM. List columns are JSON.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open connection. The connection should be opened with
// TranslateError enabled so unique violations surface as gorm.ErrDuplicatedKey.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates the posts and users tables when they are missing.
func (s *GormStore) AutoMigrate() error {
	for _, model := range []any{&models.User{}, &models.Post{}} {
		if s.db.Migrator().HasTable(model) {
			continue
		}
		if err := s.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) FindPostByID(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return normalizePost(&p), nil
}

func (s *GormStore) FindPosts(ctx context.Context, filter PostFilter, page Page) ([]models.Post, error) {
	q := s.filtered(ctx, filter).Order("created_at DESC").Order("id DESC")
	if page.Limit > 0 {
		q = q.Limit(int(page.Limit))
	}
	if page.Skip > 0 {
		q = q.Offset(int(page.Skip))
	}
	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i] = *normalizePost(&posts[i])
	}
	return posts, nil
}

func (s *GormStore) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	var n int64
	err := s.filtered(ctx, filter).Count(&n).Error
	return n, err
}

func (s *GormStore) filtered(ctx context.Context, f PostFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Post{})
	if f.IsEmpty() {
		return q
	}
	var group *gorm.DB
	or := func(query string, args ...any) {
		if group == nil {
			group = s.db.Where(query, args...)
			return
		}
		group = group.Or(query, args...)
	}
	if f.TitleContains != nil {
		or("LOWER(title) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(*f.TitleContains))+"%")
	}
	for _, tag := range f.AnyTag {
		or("JSON_CONTAINS(tags, JSON_QUOTE(?))", tag)
	}
	return q.Where(group)
}

func (s *GormStore) CreatePost(ctx context.Context, p *models.Post) error {
	if p.ID == "" {
		p.ID = models.NewID()
	}
	return s.db.WithContext(ctx).Create(p.Clone()).Error
}

func (s *GormStore) ReplacePost(ctx context.Context, p *models.Post) (*models.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return tx.Save(p.Clone()).Error
	})
	if err != nil {
		return nil, err
	}
	return s.FindPostByID(ctx, p.ID)
}

func (s *GormStore) DeletePost(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return u.Clone(), nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translateGormErr(err)
	}
	return u.Clone(), nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	if err := s.db.WithContext(ctx).Create(u.Clone()).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *GormStore) ReplaceUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", u.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return tx.Save(u.Clone()).Error
	})
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translateGormErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func normalizePost(p *models.Post) *models.Post {
	c := p.Clone()
	c.CreatedAt = c.CreatedAt.UTC()
	return c
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
