package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/organizer/middleware"
	"github.com/cppla/organizer/models"
	"github.com/cppla/organizer/services"
	"github.com/cppla/organizer/utils"
)

const (
	msgUnauthenticated = "Unauthenticated"
	msgPostNotFound    = "No post with that id"
	msgDeleteForbidden = "User does not have permission to delete this post."
	msgPostDeleted     = "Post deleted successfully"
	msgInvalidPayload  = "invalid request payload"
)

// PostController exposes the post service over HTTP.
type PostController struct {
	posts *services.PostService
	log   *zap.Logger
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, log *zap.Logger) *PostController {
	return &PostController{posts: posts, log: log}
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// ListPosts returns a page of the global feed.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, err := p.posts.ListPosts(ctx.Request.Context(), parsePage(ctx.Query("page")))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	utils.Page(ctx, page.Data, page.CurrentPage, page.NumberOfPages)
}

// ListUserPosts returns a page of the caller's own posts; anonymous callers get an empty page.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	page, err := p.posts.ListPostsByUser(ctx.Request.Context(), middleware.UserID(ctx), parsePage(ctx.Query("page")))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	utils.Page(ctx, page.Data, page.CurrentPage, page.NumberOfPages)
}

// SearchPosts matches titles and tags, restricted to the caller's posts when signed in.
func (p *PostController) SearchPosts(ctx *gin.Context) {
	posts, err := p.posts.Search(ctx.Request.Context(), ctx.Query("searchQuery"), ctx.Query("tags"), middleware.UserID(ctx))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"data": posts})
}

// CreatePost stores a post owned by the caller.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	var in models.PostInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Message(ctx, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	post, err := p.posts.CreatePost(ctx.Request.Context(), userID, in)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

// UpdatePost edits a post; a caller that does not own it gets the unchanged post back.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	var in models.PostInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Message(ctx, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	post, applied, err := p.posts.UpdatePost(ctx.Request.Context(), userID, ctx.Param("id"), in)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	if !applied {
		p.log.Info("update ignored, caller does not own post",
			zap.String("post_id", post.ID), zap.String("user_id", userID))
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post owned by the caller.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	deleted, err := p.posts.DeletePost(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	if !deleted {
		utils.Message(ctx, http.StatusOK, msgDeleteForbidden)
		return
	}
	utils.Message(ctx, http.StatusOK, msgPostDeleted)
}

// LikePost toggles the caller's like.
func (p *PostController) LikePost(ctx *gin.Context) {
	userID, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	post, err := p.posts.ToggleLike(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// CommentPost appends a comment.
func (p *PostController) CommentPost(ctx *gin.Context) {
	userID, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	var req struct {
		Value *string `json:"value" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Message(ctx, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	post, err := p.posts.AddComment(ctx.Request.Context(), userID, ctx.Param("id"), *req.Value)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

func (p *PostController) fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		utils.Message(ctx, http.StatusOK, msgUnauthenticated)
	case errors.Is(err, services.ErrNotFound):
		utils.Message(ctx, http.StatusNotFound, msgPostNotFound)
	default:
		_ = ctx.Error(err)
		utils.Message(ctx, http.StatusInternalServerError, err.Error())
	}
}

// requireIdentity answers {"message":"Unauthenticated"} with status 200 for
// anonymous callers, which is what existing clients expect.
func requireIdentity(ctx *gin.Context) (string, bool) {
	userID := middleware.UserID(ctx)
	if userID == "" {
		utils.Message(ctx, http.StatusOK, msgUnauthenticated)
		return "", false
	}
	return userID, true
}

// parsePage reads a 1-based page number, defaulting to 1.
func parsePage(raw string) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return 1
}
