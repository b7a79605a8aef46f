package middleware

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/organizer/utils"
)

const externalMinLength = 500

// externalToken builds an unsigned-looking provider token long enough to take the external path.
func externalToken(sub string) string {
	enc := base64.RawURLEncoding.EncodeToString
	payload := `{"sub":"` + sub + `","picture":"` + strings.Repeat("p", 400) + `"}`
	return enc([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + enc([]byte(payload)) + "." + strings.Repeat("s", 100)
}

func newVerifier(strict bool) (*IdentityVerifier, *utils.TokenSigner, *utils.RevocationList) {
	tokens := utils.NewTokenSigner("secret", time.Hour)
	revoked := utils.NewRevocationList(nil)
	return NewIdentityVerifier(tokens, revoked, externalMinLength, strict, zap.NewNop()), tokens, revoked
}

func TestResolve(t *testing.T) {
	v, tokens, _ := newVerifier(false)
	local, _ := tokens.Issue("a@example.com", "local-user")
	ext := externalToken("google-123")
	if len(ext) < externalMinLength {
		t.Fatalf("fixture token too short: %d", len(ext))
	}

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"no header", "", "", false},
		{"local token", "Bearer " + local, "local-user", false},
		{"external token", "Bearer " + ext, "google-123", false},
		{"bad signature", "Bearer " + local + "x", "", true},
		{"missing scheme", local, "", true},
		{"empty bearer", "Bearer ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(context.Background(), tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("user = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveRevoked(t *testing.T) {
	v, tokens, revoked := newVerifier(false)
	tok, _ := tokens.Issue("a@example.com", "u1")
	if err := revoked.Revoke(context.Background(), tok, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Resolve(context.Background(), "Bearer "+tok); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("expected ErrRevokedToken, got %v", err)
	}
}

func runOptionalAuth(v *IdentityVerifier, header string) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var seen string
	r.GET("/", v.OptionalAuth(), func(ctx *gin.Context) {
		seen = UserID(ctx)
		ctx.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestOptionalAuth(t *testing.T) {
	lenient, tokens, _ := newVerifier(false)
	strict, _, _ := newVerifier(true)
	tok, _ := tokens.Issue("a@example.com", "u1")

	w, user := runOptionalAuth(lenient, "Bearer "+tok)
	if w.Code != http.StatusNoContent || user != "u1" {
		t.Fatalf("valid token: code=%d user=%q", w.Code, user)
	}

	w, user = runOptionalAuth(lenient, "Bearer broken")
	if w.Code != http.StatusNoContent || user != "" {
		t.Fatalf("lenient invalid token should continue anonymously: code=%d user=%q", w.Code, user)
	}

	w, _ = runOptionalAuth(strict, "Bearer broken")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("strict invalid token: code=%d", w.Code)
	}

	w, user = runOptionalAuth(strict, "")
	if w.Code != http.StatusNoContent || user != "" {
		t.Fatalf("strict anonymous: code=%d user=%q", w.Code, user)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(2))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestRequestLoggerEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc" {
		t.Fatalf("request id = %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}
