package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopcar/storefront/internal/models"
	"github.com/shopcar/storefront/internal/storage"
)

type stubDirectory struct {
	users map[int64]*models.User
}

func (d *stubDirectory) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, ok := d.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func userEcho() (http.Handler, *int64, *bool) {
	var gotID int64
	var gotOK bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserID(r.Context())
	})
	return handler, &gotID, &gotOK
}

func TestCurrentUserMiddleware_ResolvesHeader(t *testing.T) {
	directory := &stubDirectory{users: map[int64]*models.User{7: {ID: 7}}}
	next, gotID, gotOK := userEcho()
	handler := CurrentUserMiddleware(directory)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-User-ID", "7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !*gotOK || *gotID != 7 {
		t.Fatalf("expected user 7 in context, got %d (ok=%v)", *gotID, *gotOK)
	}
}

func TestCurrentUserMiddleware_QueryFallback(t *testing.T) {
	directory := &stubDirectory{users: map[int64]*models.User{7: {ID: 7}}}
	next, gotID, _ := userEcho()
	handler := CurrentUserMiddleware(directory)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart?user_id=7", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if *gotID != 7 {
		t.Fatalf("expected user 7 from query parameter, got %d", *gotID)
	}
}

func TestCurrentUserMiddleware_UnknownUserIsUnauthorized(t *testing.T) {
	directory := &stubDirectory{users: map[int64]*models.User{}}
	next, _, gotOK := userEcho()
	handler := CurrentUserMiddleware(directory)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-User-ID", "99")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *gotOK {
		t.Fatal("handler must not run for an unknown user")
	}
}

func TestCurrentUserMiddleware_MissingUserPassesThrough(t *testing.T) {
	directory := &stubDirectory{users: map[int64]*models.User{}}
	next, _, gotOK := userEcho()
	handler := CurrentUserMiddleware(directory)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous requests must pass through, got %d", rec.Code)
	}
	if *gotOK {
		t.Fatal("no user id should be set for anonymous requests")
	}
}

func TestCurrentUserMiddleware_MalformedIDIsBadRequest(t *testing.T) {
	directory := &stubDirectory{users: map[int64]*models.User{}}
	next, _, _ := userEcho()
	handler := CurrentUserMiddleware(directory)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-User-ID", "not-a-number")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id to be preserved, got %q", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}
