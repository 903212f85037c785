package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/writersinn/taskhub/internal/domain/user"
	"github.com/writersinn/taskhub/internal/http/handlers"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// Fake repository implementation of the handlers.UserStore interface

type fakeUsersRepo struct {
	createFn             func(ctx context.Context, u user.User) (user.User, error)
	getByEmailFn         func(ctx context.Context, email string) (user.User, error)
	listFn               func(ctx context.Context) ([]user.User, error)
	updateSubscriptionFn func(ctx context.Context, email string, subscribed bool) (user.User, error)
}

func (f *fakeUsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, nil
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return []user.User{}, nil
}

func (f *fakeUsersRepo) UpdateSubscription(ctx context.Context, email string, subscribed bool) (user.User, error) {
	if f.updateSubscriptionFn != nil {
		return f.updateSubscriptionFn(ctx, email, subscribed)
	}
	return user.User{}, nil
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func TestAddUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeUsersRepo)
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name: "success",
			body: `{"name":"Jane Writer","email":"jane@example.com","phone":"0712345678"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					if u.Email != "jane@example.com" {
						t.Fatalf("unexpected email %s", u.Email)
					}
					if u.Role != "user" {
						t.Fatalf("expected default role user, got %s", u.Role)
					}
					return u, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "duplicate email",
			body: `{"name":"Jane Writer","email":"jane@example.com","phone":"0712345678"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantErrCode:    "email_taken",
		},
		{
			name:           "missing fields",
			body:           `{"email":"jane@example.com"}`,
			wantStatusCode: http.StatusBadRequest,
			wantErrCode:    "invalid_request",
		},
		{
			name: "repo failure",
			body: `{"name":"Jane Writer","email":"jane@example.com","phone":"0712345678"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, errors.New("boom")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}
			if tc.repoSetUp != nil {
				tc.repoSetUp(repo)
			}

			h := handlers.NewUsersHandler(repo)
			r := setupRouter(http.MethodPost, "/add-user", h.AddUser)

			req := httptest.NewRequest(http.MethodPost, "/add-user", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.wantStatusCode, w.Body.String())
			}

			if tc.wantErrCode != "" {
				var resp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if resp.Error.Code != tc.wantErrCode {
					t.Fatalf("got error code %q, want %q", resp.Error.Code, tc.wantErrCode)
				}
			}
		})
	}
}

func TestGetUserByEmail(t *testing.T) {
	repo := &fakeUsersRepo{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			if email == "known@example.com" {
				return user.User{ID: newUUID(), Email: email, Name: "Known"}, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	h := handlers.NewUsersHandler(repo)
	r := setupRouter(http.MethodGet, "/user/:email", h.GetByEmail)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/known@example.com", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/unknown@example.com", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

func TestMarkSubscribed(t *testing.T) {
	var gotEmail string
	var gotSubscribed bool

	repo := &fakeUsersRepo{
		updateSubscriptionFn: func(ctx context.Context, email string, subscribed bool) (user.User, error) {
			gotEmail = email
			gotSubscribed = subscribed
			return user.User{Email: email, Subscribed: subscribed}, nil
		},
	}

	h := handlers.NewUsersHandler(repo)
	r := setupRouter(http.MethodPost, "/admin/mark-subscribed", h.MarkSubscribed)

	req := httptest.NewRequest(http.MethodPost, "/admin/mark-subscribed",
		bytes.NewBufferString(`{"email":"jane@example.com"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if gotEmail != "jane@example.com" {
		t.Fatalf("unexpected email %s", gotEmail)
	}
	// omitted subscribed defaults to true
	if !gotSubscribed {
		t.Fatalf("expected subscribed=true by default")
	}
}

func TestListUsers(t *testing.T) {
	repo := &fakeUsersRepo{
		listFn: func(ctx context.Context) ([]user.User, error) {
			return []user.User{
				{ID: newUUID(), Email: "a@example.com"},
				{ID: newUUID(), Email: "b@example.com"},
			}, nil
		},
	}

	h := handlers.NewUsersHandler(repo)
	r := setupRouter(http.MethodGet, "/users", h.List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var resp struct {
		Count int         `json:"count"`
		Users []user.User `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Users) != 2 {
		t.Fatalf("expected 2 users, got count=%d len=%d", resp.Count, len(resp.Users))
	}
}
