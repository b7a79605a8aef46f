package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/organizer/models"
	"github.com/cppla/organizer/store"
	"github.com/cppla/organizer/utils"
)

const (
	// FeedPageSize is the number of posts per page of the global feed.
	FeedPageSize = 8
	// UserPageSize is the number of posts per page of a user's own listing.
	UserPageSize = 2
)

// PostPage is one page of a listing.
type PostPage struct {
	Data          []models.Post
	CurrentPage   int
	NumberOfPages int
}

// PostOptions tunes content handling.
type PostOptions struct {
	// SanitizeHTML passes titles, messages and comments through the UGC policy.
	SanitizeHTML bool
}

// PostService implements listing, search and the post lifecycle. Ownership is
// checked here before any mutation reaches the store.
//
// Read-modify-write sequences (likes, comments, the owner's post list) are not
// atomic: concurrent requests on the same record may lose an update.
type PostService struct {
	posts store.PostStore
	users store.UserStore
	opts  PostOptions
	log   *zap.Logger
	now   func() time.Time
}

// NewPostService wires the service.
func NewPostService(posts store.PostStore, users store.UserStore, opts PostOptions, log *zap.Logger) *PostService {
	return &PostService{
		posts: posts,
		users: users,
		opts:  opts,
		log:   log,
		// Stores keep millisecond precision; truncate so reads equal writes.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// GetPost returns a single post.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.loadPost(ctx, id)
}

// ListPosts returns a page of every post, newest first.
func (s *PostService) ListPosts(ctx context.Context, page int) (*PostPage, error) {
	page = clampPage(page)
	total, err := s.posts.CountPosts(ctx, store.PostFilter{})
	if err != nil {
		return nil, storeErr("count posts", err)
	}
	pages := ceilDiv(int(total), FeedPageSize)
	res := &PostPage{Data: []models.Post{}, CurrentPage: page, NumberOfPages: pages}
	// Past the last page; also keeps the skip below from overflowing.
	if page > pages {
		return res, nil
	}
	posts, err := s.posts.FindPosts(ctx, store.PostFilter{}, store.Page{
		Limit: FeedPageSize,
		Skip:  int64(page-1) * FeedPageSize,
	})
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	res.Data = nonNil(posts)
	return res, nil
}

// ListPostsByUser pages through the user's own post list starting from the most
// recently appended id. Anonymous callers get an empty page.
func (s *PostService) ListPostsByUser(ctx context.Context, userID string, page int) (*PostPage, error) {
	page = clampPage(page)
	if userID == "" {
		return &PostPage{Data: []models.Post{}, CurrentPage: page, NumberOfPages: 0}, nil
	}

	// Identities without a local account (external tokens, removed users) own nothing.
	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &PostPage{Data: []models.Post{}, CurrentPage: page, NumberOfPages: 0}, nil
	}
	if err != nil {
		return nil, storeErr("find user", err)
	}

	total := len(user.Posts)
	pages := ceilDiv(total, UserPageSize)
	posts := make([]models.Post, 0, UserPageSize)
	if page > pages {
		return &PostPage{Data: posts, CurrentPage: page, NumberOfPages: pages}, nil
	}
	top := total - 1 - (page-1)*UserPageSize
	for idx := top; idx > top-UserPageSize; idx-- {
		if idx < 0 || idx >= total {
			continue
		}
		post, err := s.posts.FindPostByID(ctx, user.Posts[idx])
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("dangling post reference", zap.String("user_id", userID), zap.String("post_id", user.Posts[idx]))
			continue
		}
		if err != nil {
			return nil, storeErr("find post", err)
		}
		posts = append(posts, *post)
	}

	return &PostPage{
		Data:          posts,
		CurrentPage:   page,
		NumberOfPages: pages,
	}, nil
}

// Search returns every post whose title contains query (case-insensitive) or
// whose tags intersect the comma separated tags. A non-empty userID keeps only
// that user's posts.
func (s *PostService) Search(ctx context.Context, query, tags, userID string) ([]models.Post, error) {
	filter := store.PostFilter{TitleContains: &query, AnyTag: splitTags(tags)}
	posts, err := s.posts.FindPosts(ctx, filter, store.Page{})
	if err != nil {
		return nil, storeErr("search posts", err)
	}
	if userID == "" {
		return nonNil(posts), nil
	}
	own := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.Creator == userID {
			own = append(own, p)
		}
	}
	return own, nil
}

// CreatePost stores a new post owned by userID and appends it to the owner's post list.
// If the owner's list cannot be updated the post is removed again.
func (s *PostService) CreatePost(ctx context.Context, userID string, in models.PostInput) (*models.Post, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	// External identities without a local account cannot own posts.
	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, storeErr("find user", err)
	}

	post := &models.Post{
		Creator:   userID,
		CreatedAt: s.now(),
		Tags:      []string{},
		Likes:     []string{},
		Comments:  []string{},
	}
	in.Apply(post)
	s.sanitizePost(post)

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, storeErr("create post", err)
	}

	user.Posts = append(user.Posts, post.ID)
	if err := s.users.ReplaceUser(ctx, user); err != nil {
		s.compensate(ctx, "delete orphaned post", post.ID, func(ctx context.Context) error {
			return s.posts.DeletePost(ctx, post.ID)
		})
		return nil, storeErr("append post to user", err)
	}

	s.log.Info("post created", zap.String("post_id", post.ID), zap.String("user_id", userID))
	return post, nil
}

// UpdatePost overwrites the content fields of a post owned by userID. When the
// submitted creator or the stored creator differs from userID the original is
// returned untouched and applied is false.
func (s *PostService) UpdatePost(ctx context.Context, userID, id string, in models.PostInput) (post *models.Post, applied bool, err error) {
	if userID == "" {
		return nil, false, ErrUnauthenticated
	}
	original, err := s.loadPost(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if in.Creator == nil || *in.Creator != userID || original.Creator != userID {
		return original, false, nil
	}

	updated := original.Clone()
	in.Apply(updated)
	s.sanitizePost(updated)

	stored, err := s.posts.ReplacePost(ctx, updated)
	if err != nil {
		return nil, false, storeErr("update post", err)
	}
	return stored, true, nil
}

// DeletePost removes a post owned by userID and prunes it from the owner's post
// list. deleted is false when userID is not the creator.
func (s *PostService) DeletePost(ctx context.Context, userID, id string) (deleted bool, err error) {
	if userID == "" {
		return false, ErrUnauthenticated
	}
	post, err := s.loadPost(ctx, id)
	if err != nil {
		return false, err
	}
	if post.Creator != userID {
		return false, nil
	}

	if err := s.posts.DeletePost(ctx, id); err != nil {
		return false, storeErr("delete post", err)
	}

	creator, err := s.users.FindUserByID(ctx, post.Creator)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("deleted post has no owner record", zap.String("post_id", id), zap.String("user_id", post.Creator))
		return true, nil
	}
	if err == nil {
		creator.RemovePost(id)
		err = s.users.ReplaceUser(ctx, creator)
	}
	if err != nil {
		s.compensate(ctx, "restore deleted post", id, func(ctx context.Context) error {
			return s.posts.CreatePost(ctx, post)
		})
		return false, storeErr("remove post from user", err)
	}

	s.log.Info("post deleted", zap.String("post_id", id), zap.String("user_id", userID))
	return true, nil
}

// ToggleLike adds userID to the post's likes, or removes it when already present.
func (s *PostService) ToggleLike(ctx context.Context, userID, id string) (*models.Post, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	post, err := s.loadPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.HasLike(userID) {
		kept := make([]string, 0, len(post.Likes))
		for _, liker := range post.Likes {
			if liker != userID {
				kept = append(kept, liker)
			}
		}
		post.Likes = kept
	} else {
		post.Likes = append(post.Likes, userID)
	}

	stored, err := s.posts.ReplacePost(ctx, post)
	if err != nil {
		return nil, storeErr("update likes", err)
	}
	return stored, nil
}

// AddComment appends text to the post's comments.
func (s *PostService) AddComment(ctx context.Context, userID, id, text string) (*models.Post, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	post, err := s.loadPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.opts.SanitizeHTML {
		text = utils.SanitizeUGC(text)
	}
	post.Comments = append(post.Comments, text)

	stored, err := s.posts.ReplacePost(ctx, post)
	if err != nil {
		return nil, storeErr("add comment", err)
	}
	return stored, nil
}

// loadPost validates the identifier before touching the store.
func (s *PostService) loadPost(ctx context.Context, id string) (*models.Post, error) {
	if !models.IsValidID(id) {
		return nil, ErrNotFound
	}
	post, err := s.posts.FindPostByID(ctx, id)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	return post, nil
}

func (s *PostService) sanitizePost(p *models.Post) {
	if !s.opts.SanitizeHTML {
		return
	}
	p.Title = utils.SanitizeUGC(p.Title)
	p.Message = utils.SanitizeUGC(p.Message)
}

// compensate undoes a partial write. It runs even if the request was cancelled.
func (s *PostService) compensate(ctx context.Context, op, postID string, undo func(context.Context) error) {
	if err := undo(context.WithoutCancel(ctx)); err != nil {
		s.log.Error("compensation failed, owner post list is out of sync",
			zap.String("op", op), zap.String("post_id", postID), zap.Error(err))
	}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return utils.UniqueStrings(strings.Split(raw, ","))
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func ceilDiv(n, size int) int {
	return (n + size - 1) / size
}

func nonNil(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}
