package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/timeledger/internal/cache"
	"github.com/geocoder89/timeledger/internal/db"
	"github.com/geocoder89/timeledger/internal/domain/category"
	"github.com/geocoder89/timeledger/internal/domain/entry"
	"github.com/geocoder89/timeledger/internal/domain/user"
	"github.com/geocoder89/timeledger/internal/domain/validation"
	"github.com/geocoder89/timeledger/internal/http/handlers"
	"github.com/geocoder89/timeledger/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

type errorResponse struct {
	Error handlers.APIError `json:"error"`
}

// fakes

type fakeCreds struct {
	registerFn func(ctx context.Context, username, password string) (user.User, error)
	verifyFn   func(ctx context.Context, username, password string) (user.User, error)
}

func (f *fakeCreds) Register(ctx context.Context, username, password string) (user.User, error) {
	return f.registerFn(ctx, username, password)
}

func (f *fakeCreds) Verify(ctx context.Context, username, password string) (user.User, error) {
	return f.verifyFn(ctx, username, password)
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(username string) (string, time.Time, error) {
	return "tok-" + username, time.Now().Add(time.Hour), nil
}

type fakeCategories struct {
	getOrCreateFn func(ctx context.Context, name string) (category.Category, bool, error)
	getFn         func(ctx context.Context, name string) (category.Category, error)
	listFn        func(ctx context.Context) ([]category.Category, error)
}

func (f *fakeCategories) Get(ctx context.Context, name string) (category.Category, error) {
	return f.getFn(ctx, name)
}

func (f *fakeCategories) GetOrCreate(ctx context.Context, name string) (category.Category, bool, error) {
	return f.getOrCreateFn(ctx, name)
}

func (f *fakeCategories) List(ctx context.Context) ([]category.Category, error) {
	return f.listFn(ctx)
}

type fakeEntries struct {
	createFn func(ctx context.Context, username, categoryName, startRaw, endRaw string) (entry.Entry, error)
	updateFn func(ctx context.Context, id int64, caller, categoryName, startRaw, endRaw string) (entry.Entry, error)
	listFn   func(ctx context.Context, username string) ([]entry.Entry, error)
}

func (f *fakeEntries) CreateEntry(ctx context.Context, username, categoryName, startRaw, endRaw string) (entry.Entry, error) {
	return f.createFn(ctx, username, categoryName, startRaw, endRaw)
}

func (f *fakeEntries) UpdateEntry(ctx context.Context, id int64, caller, categoryName, startRaw, endRaw string) (entry.Entry, error) {
	return f.updateFn(ctx, id, caller, categoryName, startRaw, endRaw)
}

func (f *fakeEntries) ListEntriesForUser(ctx context.Context, username string) ([]entry.Entry, error) {
	return f.listFn(ctx, username)
}

// asUser stands in for the auth middleware.
func asUser(username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUsername, username)
		c.Next()
	}
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
	}
}

// auth

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"success", `{"username":"alice","password":"secret1"}`, nil, http.StatusCreated, ""},
		{"duplicate", `{"username":"alice","password":"secret1"}`, user.ErrDuplicateUsername, http.StatusConflict, "username_taken"},
		{"short password", `{"username":"alice","password":"123"}`, validation.New("password", "must be at least 6 characters"), http.StatusBadRequest, "invalid_request"},
		{"missing fields", `{}`, nil, http.StatusBadRequest, "invalid_request"},
		{"store down", `{"username":"alice","password":"secret1"}`, db.ErrTransactionFailure, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := &fakeCreds{registerFn: func(ctx context.Context, username, password string) (user.User, error) {
				if tt.err != nil {
					return user.User{}, tt.err
				}
				return user.User{ID: 1, Username: username}, nil
			}}

			r := gin.New()
			r.POST("/register", handlers.NewAuthHandler(creds, fakeIssuer{}).Register)

			w := do(r, http.MethodPost, "/register", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}

			if tt.wantErr != "" {
				var resp errorResponse
				decode(t, w, &resp)
				if resp.Error.Code != tt.wantErr {
					t.Fatalf("got code %q, want %q", resp.Error.Code, tt.wantErr)
				}
				if tt.err == db.ErrTransactionFailure && resp.Error.Message != "Internal server error" {
					t.Fatalf("internal detail leaked: %q", resp.Error.Message)
				}
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	creds := &fakeCreds{verifyFn: func(ctx context.Context, username, password string) (user.User, error) {
		if password != "secret1" {
			return user.User{}, user.ErrInvalidCredentials
		}
		return user.User{ID: 1, Username: username}, nil
	}}

	r := gin.New()
	r.POST("/login", handlers.NewAuthHandler(creds, fakeIssuer{}).Login)

	w := do(r, http.MethodPost, "/login", `{"username":"alice","password":"secret1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var ok struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
		ExpiresIn   int64  `json:"expiresIn"`
		Username    string `json:"username"`
	}
	decode(t, w, &ok)

	if ok.AccessToken != "tok-alice" || ok.TokenType != "Bearer" || ok.Username != "alice" {
		t.Fatalf("unexpected login response: %+v", ok)
	}
	if ok.ExpiresIn <= 0 || ok.ExpiresIn > 3600 {
		t.Fatalf("unexpected expiresIn %d", ok.ExpiresIn)
	}

	w = do(r, http.MethodPost, "/login", `{"username":"alice","password":"nope"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}

	var resp errorResponse
	decode(t, w, &resp)
	if resp.Error.Message != "Invalid username or password" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}

func TestMeHandler(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeCreds{}, fakeIssuer{})

	r := gin.New()
	r.GET("/me", asUser("alice"), h.Me)

	w := do(r, http.MethodGet, "/me", "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"alice"`)) {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
}

// categories

func TestCategoryGetOrCreateHandler(t *testing.T) {
	existing := map[string]bool{"Work": true}

	svc := &fakeCategories{getOrCreateFn: func(ctx context.Context, name string) (category.Category, bool, error) {
		if existing[name] {
			return category.Category{ID: 1, Name: name}, false, nil
		}
		return category.Category{ID: 2, Name: name}, true, nil
	}}

	r := gin.New()
	r.POST("/categories", handlers.NewCategoriesHandler(svc).GetOrCreate)

	if w := do(r, http.MethodPost, "/categories", `{"name":"Work"}`); w.Code != http.StatusOK {
		t.Fatalf("existing: got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/categories", `{"name":"Admin"}`); w.Code != http.StatusCreated {
		t.Fatalf("new: got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/categories", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing name: got %d", w.Code)
	}
}

func TestCategoryListHandler_ETag(t *testing.T) {
	svc := &fakeCategories{listFn: func(ctx context.Context) ([]category.Category, error) {
		return []category.Category{{ID: 1, Name: "Admin"}, {ID: 2, Name: "Work"}}, nil
	}}

	r := gin.New()
	r.GET("/categories", handlers.NewCategoriesHandler(svc).List)

	w := do(r, http.MethodGet, "/categories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("got %d, want 304", w.Code)
	}
}

func TestCategoryListHandler_CacheHitAndInvalidation(t *testing.T) {
	calls := 0

	svc := &fakeCategories{
		listFn: func(ctx context.Context) ([]category.Category, error) {
			calls++
			return []category.Category{{ID: 1, Name: "Admin"}}, nil
		},
		getOrCreateFn: func(ctx context.Context, name string) (category.Category, bool, error) {
			return category.Category{ID: 2, Name: name}, true, nil
		},
	}

	h := handlers.NewCategoriesHandlerWithCache(svc, cache.New[[]category.Category](30*time.Second))

	r := gin.New()
	r.GET("/categories", h.List)
	r.POST("/categories", h.GetOrCreate)

	do(r, http.MethodGet, "/categories", "")
	do(r, http.MethodGet, "/categories", "")

	if calls != 1 {
		t.Fatalf("expected service calls=1, got %d", calls)
	}

	if w := do(r, http.MethodPost, "/categories", `{"name":"Work"}`); w.Code != http.StatusCreated {
		t.Fatalf("create: got %d", w.Code)
	}

	do(r, http.MethodGet, "/categories", "")

	if calls != 2 {
		t.Fatalf("expected cache to be dropped after create, calls=%d", calls)
	}
}

func TestCategoryListHandler_CreateDuringListIsNotCached(t *testing.T) {
	calls := 0

	var r *gin.Engine

	svc := &fakeCategories{
		listFn: func(ctx context.Context) ([]category.Category, error) {
			calls++
			if calls == 1 {
				// a create commits after this read but before the list is cached
				if w := do(r, http.MethodPost, "/categories", `{"name":"Work"}`); w.Code != http.StatusCreated {
					t.Fatalf("create: got %d", w.Code)
				}
				return []category.Category{{ID: 1, Name: "Admin"}}, nil
			}
			return []category.Category{{ID: 1, Name: "Admin"}, {ID: 2, Name: "Work"}}, nil
		},
		getOrCreateFn: func(ctx context.Context, name string) (category.Category, bool, error) {
			return category.Category{ID: 2, Name: name}, true, nil
		},
	}

	h := handlers.NewCategoriesHandlerWithCache(svc, cache.New[[]category.Category](30*time.Second))

	r = gin.New()
	r.GET("/categories", h.List)
	r.POST("/categories", h.GetOrCreate)

	do(r, http.MethodGet, "/categories", "")

	w := do(r, http.MethodGet, "/categories", "")

	var resp struct {
		Count int `json:"count"`
	}
	decode(t, w, &resp)

	if calls != 2 || resp.Count != 2 {
		t.Fatalf("stale list served: calls=%d count=%d", calls, resp.Count)
	}
}

func TestCategoryGetHandler(t *testing.T) {
	svc := &fakeCategories{getFn: func(ctx context.Context, name string) (category.Category, error) {
		if name == "Work" {
			return category.Category{ID: 2, Name: name}, nil
		}
		return category.Category{}, category.ErrNotFound
	}}

	r := gin.New()
	r.GET("/categories/:name", handlers.NewCategoriesHandler(svc).Get)

	if w := do(r, http.MethodGet, "/categories/Work", ""); w.Code != http.StatusOK {
		t.Fatalf("found: got %d", w.Code)
	}

	w := do(r, http.MethodGet, "/categories/Nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: got %d", w.Code)
	}

	var resp errorResponse
	decode(t, w, &resp)
	if resp.Error.Code != "category_not_found" {
		t.Fatalf("got code %q", resp.Error.Code)
	}
}

// entries

func TestCreateEntryHandler(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"success", `{"category":"Work","startTime":"2024-01-01T09:00:00Z","endTime":"2024-01-01T10:30:00Z"}`, nil, http.StatusCreated, ""},
		{"unknown category", `{"category":"Nope","startTime":"2024-01-01T09:00:00Z","endTime":"2024-01-01T10:30:00Z"}`, category.ErrNotFound, http.StatusNotFound, "category_not_found"},
		{"unknown user", `{"category":"Work","startTime":"2024-01-01T09:00:00Z","endTime":"2024-01-01T10:30:00Z"}`, user.ErrNotFound, http.StatusNotFound, "user_not_found"},
		{"ordering", `{"category":"Work","startTime":"2024-01-01T10:30:00Z","endTime":"2024-01-01T09:00:00Z"}`, validation.New("endTime", "end_time must be after start_time"), http.StatusBadRequest, "invalid_request"},
		{"blank category", `{"category":" ","startTime":"a","endTime":"b"}`, nil, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string

			svc := &fakeEntries{createFn: func(ctx context.Context, username, categoryName, startRaw, endRaw string) (entry.Entry, error) {
				gotUser = username
				if tt.err != nil {
					return entry.Entry{}, tt.err
				}
				return entry.Entry{ID: 7, Username: username, Category: categoryName, StartTime: start, EndTime: start.Add(90 * time.Minute)}.WithDuration(), nil
			}}

			r := gin.New()
			r.POST("/entries", asUser("alice"), handlers.NewEntriesHandler(svc).Create)

			w := do(r, http.MethodPost, "/entries", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}

			if tt.wantErr != "" {
				var resp errorResponse
				decode(t, w, &resp)
				if resp.Error.Code != tt.wantErr {
					t.Fatalf("got code %q, want %q", resp.Error.Code, tt.wantErr)
				}
				return
			}

			if gotUser != "alice" {
				t.Fatalf("username should come from the token, got %q", gotUser)
			}

			var e entry.Entry
			decode(t, w, &e)
			if e.DurationSeconds != 5400 {
				t.Fatalf("got duration %d", e.DurationSeconds)
			}
		})
	}
}

func TestUpdateEntryHandler(t *testing.T) {
	svc := &fakeEntries{updateFn: func(ctx context.Context, id int64, caller, categoryName, startRaw, endRaw string) (entry.Entry, error) {
		if id != 7 || caller != "alice" {
			return entry.Entry{}, entry.ErrNotFoundOrForbidden
		}
		return entry.Entry{ID: id, Username: caller, Category: categoryName}, nil
	}}

	h := handlers.NewEntriesHandler(svc)
	body := `{"category":"Admin","startTime":"2024-01-01T09:00:00Z","endTime":"2024-01-01T10:00:00Z"}`

	for _, tc := range []struct {
		user, path string
		want       int
	}{
		{"alice", "/entries/7", http.StatusOK},
		{"bob", "/entries/7", http.StatusNotFound},
		{"alice", "/entries/999", http.StatusNotFound},
		{"alice", "/entries/abc", http.StatusNotFound},
	} {
		r := gin.New()
		r.PUT("/entries/:id", asUser(tc.user), h.Update)

		w := do(r, http.MethodPut, tc.path, body)
		if w.Code != tc.want {
			t.Fatalf("%s %s: got %d, want %d body=%s", tc.user, tc.path, w.Code, tc.want, w.Body.String())
		}

		if tc.want == http.StatusNotFound {
			var resp errorResponse
			decode(t, w, &resp)
			if resp.Error.Code != "entry_not_found" || resp.Error.Message != "Entry not found or access denied" {
				t.Fatalf("foreign and missing must look alike, got %+v", resp.Error)
			}
		}
	}
}

func TestListEntriesHandler(t *testing.T) {
	svc := &fakeEntries{listFn: func(ctx context.Context, username string) ([]entry.Entry, error) {
		if username != "alice" {
			return nil, errors.New("unexpected user")
		}
		return []entry.Entry{}, nil
	}}

	r := gin.New()
	r.GET("/entries", asUser("alice"), handlers.NewEntriesHandler(svc).List)

	w := do(r, http.MethodGet, "/entries", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"items":[]`)) {
		t.Fatalf("empty list must serialise as [], body=%s", w.Body.String())
	}
}

// health

func TestReadyz(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("dial tcp: refused"), http.StatusServiceUnavailable},
	} {
		h := handlers.NewHealthHandler(map[string]handlers.Check{
			"postgres": func(ctx context.Context) error { return tc.err },
		})

		r := gin.New()
		r.GET("/readyz", h.Readyz)
		r.GET("/healthz", h.Healthz)

		if w := do(r, http.MethodGet, "/readyz", ""); w.Code != tc.want {
			t.Fatalf("readyz: got %d, want %d", w.Code, tc.want)
		}
		if w := do(r, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
			t.Fatalf("healthz: got %d", w.Code)
		}
	}
}
