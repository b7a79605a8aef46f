package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/organizer/config"
	"github.com/cppla/organizer/middleware"
	"github.com/cppla/organizer/models"
	"github.com/cppla/organizer/services"
	"github.com/cppla/organizer/store"
	"github.com/cppla/organizer/utils"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := config.AppConfig{
		GinMode:                "test",
		AllowedOrigins:         []string{"*"},
		RateLimitPerMinute:     1000,
		ExternalTokenMinLength: 500,
	}
	log := zap.NewNop()
	st := store.NewMemoryStore()
	tokens := utils.NewTokenSigner("test-secret", time.Hour)
	revoked := utils.NewRevocationList(nil)
	return SetupRouter(Dependencies{
		Config:      cfg,
		Logger:      log,
		Posts:       services.NewPostService(st, st, services.PostOptions{}, log),
		Credentials: services.NewCredentialService(st, tokens, revoked, bcrypt.MinCost, log),
		Verifier:    middleware.NewIdentityVerifier(tokens, revoked, cfg.ExternalTokenMinLength, false, log),
	})
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type authBody struct {
	Result models.User `json:"result"`
	Token  string      `json:"token"`
}

func signup(t *testing.T, r *gin.Engine, email string) authBody {
	t.Helper()
	w := do(t, r, http.MethodPost, "/user/signup", "", gin.H{
		"email": email, "password": "pw123456", "confirmPassword": "pw123456",
		"firstName": "Test", "lastName": "User",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup %s: %d %s", email, w.Code, w.Body.String())
	}
	return decode[authBody](t, w)
}

func TestAnonymousUserListing(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/posts?page=3", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if got := w.Body.String(); got != `{"data":[],"currentPage":3,"numberOfPages":0}` {
		t.Fatalf("body = %s", got)
	}
}

func TestMutationsWithoutIdentity(t *testing.T) {
	r := newTestRouter(t)
	id := models.NewID()
	cases := []struct{ method, path string }{
		{http.MethodPost, "/posts"},
		{http.MethodPatch, "/posts/" + id},
		{http.MethodDelete, "/posts/" + id},
		{http.MethodPatch, "/posts/" + id + "/likePost"},
		{http.MethodPost, "/posts/" + id + "/commentPost"},
	}
	for _, c := range cases {
		w := do(t, r, c.method, c.path, "", gin.H{"value": "x"})
		if w.Code != http.StatusOK || decode[utils.MessageResponse](t, w).Message != "Unauthenticated" {
			t.Fatalf("%s %s: %d %s", c.method, c.path, w.Code, w.Body.String())
		}
	}
}

func TestPostLifecycle(t *testing.T) {
	r := newTestRouter(t)
	alice := signup(t, r, "alice@example.com")
	bob := signup(t, r, "bob@example.com")

	w := do(t, r, http.MethodPost, "/posts", alice.Token, gin.H{"title": "Plan", "message": "m", "tags": []string{"work"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	post := decode[models.Post](t, w)
	if post.Creator != alice.Result.ID {
		t.Fatalf("creator = %q", post.Creator)
	}

	w = do(t, r, http.MethodGet, "/posts/"+post.ID, "", nil)
	if w.Code != http.StatusOK || decode[models.Post](t, w).Title != "Plan" {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPatch, "/posts/"+post.ID, alice.Token, gin.H{"title": "Plan v2", "creator": alice.Result.ID})
	if got := decode[models.Post](t, w); got.Title != "Plan v2" {
		t.Fatalf("owner update: %s", w.Body.String())
	}
	w = do(t, r, http.MethodPatch, "/posts/"+post.ID, bob.Token, gin.H{"title": "hijack", "creator": bob.Result.ID})
	if got := decode[models.Post](t, w); w.Code != http.StatusOK || got.Title != "Plan v2" {
		t.Fatalf("foreign update: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPatch, "/posts/"+post.ID+"/likePost", bob.Token, nil)
	if got := decode[models.Post](t, w); len(got.Likes) != 1 || got.Likes[0] != bob.Result.ID {
		t.Fatalf("like: %s", w.Body.String())
	}
	w = do(t, r, http.MethodPost, "/posts/"+post.ID+"/commentPost", bob.Token, gin.H{"value": "Bob: nice"})
	if got := decode[models.Post](t, w); len(got.Comments) != 1 || got.Comments[0] != "Bob: nice" {
		t.Fatalf("comment: %s", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/posts/search?searchQuery=plan", alice.Token, nil)
	search := decode[struct{ Data []models.Post }](t, w)
	if len(search.Data) != 1 {
		t.Fatalf("search: %s", w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/posts/search?searchQuery=plan", bob.Token, nil)
	if search := decode[struct{ Data []models.Post }](t, w); len(search.Data) != 0 {
		t.Fatalf("search as bob: %s", w.Body.String())
	}

	w = do(t, r, http.MethodDelete, "/posts/"+post.ID, bob.Token, nil)
	if msg := decode[utils.MessageResponse](t, w).Message; msg != "User does not have permission to delete this post." {
		t.Fatalf("foreign delete: %s", msg)
	}
	w = do(t, r, http.MethodDelete, "/posts/"+post.ID, alice.Token, nil)
	if msg := decode[utils.MessageResponse](t, w).Message; msg != "Post deleted successfully" {
		t.Fatalf("owner delete: %s", msg)
	}
	w = do(t, r, http.MethodGet, "/posts/"+post.ID, "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestUserListingAndFeed(t *testing.T) {
	r := newTestRouter(t)
	alice := signup(t, r, "alice@example.com")
	for _, title := range []string{"a", "b", "c"} {
		if w := do(t, r, http.MethodPost, "/posts", alice.Token, gin.H{"title": title}); w.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", title, w.Code)
		}
	}

	w := do(t, r, http.MethodGet, "/posts?page=1", alice.Token, nil)
	page := decode[utils.PageResponse](t, w)
	if page.NumberOfPages != 2 || len(page.Data.([]any)) != 2 {
		t.Fatalf("user page: %s", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/posts/feed", "", nil)
	page = decode[utils.PageResponse](t, w)
	if page.NumberOfPages != 1 || page.CurrentPage != 1 || len(page.Data.([]any)) != 3 {
		t.Fatalf("feed: %s", w.Body.String())
	}
}

func TestFeedPageOutOfRange(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/posts/feed?page=1152921504606846977", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != `{"data":[],"currentPage":1152921504606846977,"numberOfPages":0}` {
		t.Fatalf("body = %s", got)
	}
}

func TestGetPostNotFound(t *testing.T) {
	r := newTestRouter(t)
	for _, id := range []string{"garbage", models.NewID()} {
		w := do(t, r, http.MethodGet, "/posts/"+id, "", nil)
		if w.Code != http.StatusNotFound || decode[utils.MessageResponse](t, w).Message != "No post with that id" {
			t.Fatalf("%s: %d %s", id, w.Code, w.Body.String())
		}
	}
}

func TestAuthEndpoints(t *testing.T) {
	r := newTestRouter(t)
	signup(t, r, "ada@example.com")

	cases := []struct {
		name string
		path string
		body gin.H
		code int
		msg  string
	}{
		{"duplicate", "/user/signup", gin.H{"email": "ada@example.com", "password": "a", "confirmPassword": "b"}, 400, "An account with that email already exists."},
		{"mismatch", "/user/signup", gin.H{"email": "new@example.com", "password": "a", "confirmPassword": "b"}, 400, "Passwords do not match."},
		{"password too long", "/user/signup", gin.H{"email": "long@example.com", "password": strings.Repeat("x", 80), "confirmPassword": strings.Repeat("x", 80)}, 400, "Password must be at most 72 bytes."},
		{"unknown user", "/user/signin", gin.H{"email": "nobody@example.com", "password": "a"}, 404, "User doesn't exist"},
		{"wrong password", "/user/signin", gin.H{"email": "ada@example.com", "password": "wrong"}, 400, "Invalid password."},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, c.path, "", c.body)
			if w.Code != c.code || decode[utils.MessageResponse](t, w).Message != c.msg {
				t.Fatalf("%d %s", w.Code, w.Body.String())
			}
		})
	}

	w := do(t, r, http.MethodPost, "/user/signin", "", gin.H{"email": "ada@example.com", "password": "pw123456"})
	res := decode[authBody](t, w)
	if w.Code != http.StatusOK || res.Token == "" || res.Result.Email != "ada@example.com" {
		t.Fatalf("signin: %d %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Fatalf("password hash leaked: %s", w.Body.String())
	}
}

func TestSignoutRevokesSession(t *testing.T) {
	r := newTestRouter(t)
	alice := signup(t, r, "alice@example.com")

	if w := do(t, r, http.MethodPost, "/user/signout", alice.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("signout: %d %s", w.Code, w.Body.String())
	}
	w := do(t, r, http.MethodPost, "/posts", alice.Token, gin.H{"title": "x"})
	if decode[utils.MessageResponse](t, w).Message != "Unauthenticated" {
		t.Fatalf("revoked token still accepted: %s", w.Body.String())
	}
}

func TestHealthAndNoRoute(t *testing.T) {
	r := newTestRouter(t)
	if w := do(t, r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("no route: %d", w.Code)
	}
}
