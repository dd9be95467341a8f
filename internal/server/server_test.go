package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/storypulse-dev/storypulse/internal/config"
	"github.com/storypulse-dev/storypulse/internal/models"
	"github.com/storypulse-dev/storypulse/internal/users"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		HTTP:     config.HTTPConfig{Address: ":0"},
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "test.sqlite")},
		JWT: config.JWTConfig{
			Secret:          "test-secret-at-least-32-characters!",
			Audience:        "localhost:8080",
			Issuer:          "localhost:8080",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return srv
}

func (s *Server) createTestUser(t *testing.T, email string, role models.UserRole) (*models.User, string) {
	t.Helper()

	user, err := s.usersService.SignUp(context.Background(), users.SignUpParams{
		FirstName: "Test",
		Email:     email,
		Password:  "password1234",
	})
	require.NoError(t, err)

	if role != models.RoleUser {
		user.Role = role
		require.NoError(t, s.db.Save(user).Error)
	}

	pair, err := s.issuer.IssuePair(user)
	require.NoError(t, err)
	return user, pair.AccessToken
}

func (s *Server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestPublicRoutesNeedNoToken(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/posts", http.StatusOK},
		{http.MethodGet, "/tags", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := s.do(tt.method, tt.path, "", nil)
			require.Equal(t, tt.want, w.Code)
		})
	}
}

func TestBearerRoutesRejectMissingOrBadTokens(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/auth/me", tt.token, nil)
			require.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestBearerRouteAcceptsValidToken(t *testing.T) {
	s := newTestServer(t)
	user, token := s.createTestUser(t, "jane@example.com", models.RoleUser)

	w := s.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "jane@example.com", got.Email)
}

func TestUnknownRouteIs404NotAuthError(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/no-such-route", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRolesGuard(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.createTestUser(t, "user@example.com", models.RoleUser)
	_, modToken := s.createTestUser(t, "mod@example.com", models.RoleModerator)
	_, adminToken := s.createTestUser(t, "admin@example.com", models.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"user listing users", http.MethodGet, "/users", userToken, http.StatusForbidden},
		{"moderator listing users", http.MethodGet, "/users", modToken, http.StatusOK},
		{"admin listing users", http.MethodGet, "/users", adminToken, http.StatusOK},
		{"anonymous listing users", http.MethodGet, "/users", "", http.StatusUnauthorized},
		{"user deleting tag", http.MethodDelete, "/tags/1", userToken, http.StatusForbidden},
		{"moderator deleting tag", http.MethodDelete, "/tags/1", modToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.token, nil)
			require.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSignUpAndSignInFlow(t *testing.T) {
	s := newTestServer(t)

	body := ginH{"firstName": "Jane", "email": "jane@example.com", "password": "password1234"}

	w := s.do(http.MethodPost, "/auth/sign-up", "", body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotContains(t, w.Body.String(), "password1234")

	// Duplicate email
	w = s.do(http.MethodPost, "/auth/sign-up", "", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/sign-in", "", ginH{"email": "jane@example.com", "password": "password1234"})
	require.Equal(t, http.StatusOK, w.Code)

	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	w = s.do(http.MethodPost, "/auth/sign-in", "", ginH{"email": "jane@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/auth/refresh-tokens", "", ginH{"refreshToken": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/auth/refresh-tokens", "", ginH{"refreshToken": "garbage"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

type ginH = map[string]any

func TestPostLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, authorToken := s.createTestUser(t, "author@example.com", models.RoleUser)
	_, otherToken := s.createTestUser(t, "other@example.com", models.RoleUser)

	w := s.do(http.MethodPost, "/posts", authorToken, ginH{
		"title": "Hello World",
		"slug":  "hello-world",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	// Anonymous creation is rejected
	w = s.do(http.MethodPost, "/posts", "", ginH{"title": "Nope", "slug": "nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Bad slug format
	w = s.do(http.MethodPost, "/posts", authorToken, ginH{"title": "Bad Slug", "slug": "Bad Slug!"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Duplicate slug
	w = s.do(http.MethodPost, "/posts", authorToken, ginH{"title": "Hello Again", "slug": "hello-world"})
	require.Equal(t, http.StatusConflict, w.Code)

	// Public read
	w = s.do(http.MethodGet, fmt.Sprintf("/posts/%d", post.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Only the author may update
	w = s.do(http.MethodPatch, fmt.Sprintf("/posts/%d", post.ID), otherToken, ginH{"title": "Hijacked"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, fmt.Sprintf("/posts/%d", post.ID), authorToken, ginH{"title": "Hello Updated"})
	require.Equal(t, http.StatusOK, w.Code)

	// Only the author may delete
	w = s.do(http.MethodDelete, fmt.Sprintf("/posts/%d", post.ID), otherToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/posts/%d", post.ID), authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/posts/%d", post.ID), "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPostsPagination(t *testing.T) {
	s := newTestServer(t)
	_, token := s.createTestUser(t, "author@example.com", models.RoleUser)

	for i := 0; i < 15; i++ {
		w := s.do(http.MethodPost, "/posts", token, ginH{
			"title": fmt.Sprintf("Post Number %d", i),
			"slug":  fmt.Sprintf("post-%d", i),
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(http.MethodGet, "/posts?limit=10&page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Data []models.Post `json:"data"`
		Meta struct {
			ItemsPerPage int   `json:"itemsPerPage"`
			TotalItems   int64 `json:"totalItems"`
			CurrentPage  int   `json:"currentPage"`
			TotalPages   int   `json:"totalPages"`
		} `json:"meta"`
		Links struct {
			Next string `json:"next"`
			Prev string `json:"prev"`
		} `json:"links"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 5)
	require.EqualValues(t, 15, page.Meta.TotalItems)
	require.Equal(t, 2, page.Meta.CurrentPage)
	require.Equal(t, 2, page.Meta.TotalPages)
	// Last page: next clamps to itself
	require.Contains(t, page.Links.Next, "page=2")
	require.Contains(t, page.Links.Prev, "page=1")
}

func TestCreateManyUsersAdminOnly(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.createTestUser(t, "user@example.com", models.RoleUser)
	_, adminToken := s.createTestUser(t, "admin@example.com", models.RoleAdmin)

	batch := ginH{"users": []ginH{
		{"firstName": "A", "email": "a@example.com", "password": "password1234"},
		{"firstName": "B", "email": "b@example.com", "password": "password1234"},
	}}

	w := s.do(http.MethodPost, "/users/create-many", userToken, batch)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/users/create-many", adminToken, batch)
	require.Equal(t, http.StatusCreated, w.Code)

	// Re-running the same batch hits the unique email and rolls back
	w = s.do(http.MethodPost, "/users/create-many", adminToken, batch)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestTagEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.createTestUser(t, "user@example.com", models.RoleUser)
	_, adminToken := s.createTestUser(t, "admin@example.com", models.RoleAdmin)

	w := s.do(http.MethodPost, "/tags", userToken, ginH{"name": "Go", "slug": "go"})
	require.Equal(t, http.StatusCreated, w.Code)

	var tag models.Tag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tag))

	w = s.do(http.MethodPost, "/tags", userToken, ginH{"name": "Go", "slug": "go-again"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPatch, fmt.Sprintf("/tags/%d", tag.ID), userToken, ginH{"description": "the language"})
	require.Equal(t, http.StatusOK, w.Code)

	// Deletion is admin only; the roles guard rejects before the handler
	w = s.do(http.MethodDelete, fmt.Sprintf("/tags/%d", tag.ID), userToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/tags/%d", tag.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/tags/%d", tag.ID), adminToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlugValidation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.createTestUser(t, "author@example.com", models.RoleUser)

	w := s.do(http.MethodPost, "/posts", token, ginH{"title": "Good Post", "slug": "good-post"})
	require.Equal(t, http.StatusCreated, w.Code)

	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	w = s.do(http.MethodPost, "/tags", token, ginH{"name": "Good", "slug": "good-tag"})
	require.Equal(t, http.StatusCreated, w.Code)

	var tag models.Tag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tag))

	badSlugs := []string{"Has Spaces", "UPPER", "trailing-", "-leading", "sym!bols", "double--dash"}
	for _, slug := range badSlugs {
		t.Run(slug, func(t *testing.T) {
			w := s.do(http.MethodPost, "/posts", token, ginH{"title": "Bad Post", "slug": slug})
			require.Equal(t, http.StatusBadRequest, w.Code)

			w = s.do(http.MethodPatch, fmt.Sprintf("/posts/%d", post.ID), token, ginH{"slug": slug})
			require.Equal(t, http.StatusBadRequest, w.Code)

			w = s.do(http.MethodPost, "/tags", token, ginH{"name": "Bad", "slug": slug})
			require.Equal(t, http.StatusBadRequest, w.Code)

			w = s.do(http.MethodPatch, fmt.Sprintf("/tags/%d", tag.ID), token, ginH{"slug": slug})
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	// Updates without a slug skip the format check
	w = s.do(http.MethodPatch, fmt.Sprintf("/posts/%d", post.ID), token, ginH{"title": "Renamed Post"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetaDataEndpoint(t *testing.T) {
	s := newTestServer(t)
	_, token := s.createTestUser(t, "author@example.com", models.RoleUser)

	w := s.do(http.MethodPost, "/posts", token, ginH{"title": "With Meta", "slug": "with-meta"})
	require.Equal(t, http.StatusCreated, w.Code)

	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	w = s.do(http.MethodPost, "/meta-data", token, ginH{"postId": post.ID, "metaValue": `{"seo":"yes"}`})
	require.Equal(t, http.StatusCreated, w.Code)

	// One metadata record per post
	w = s.do(http.MethodPost, "/meta-data", token, ginH{"postId": post.ID, "metaValue": `{"seo":"again"}`})
	require.Equal(t, http.StatusConflict, w.Code)

	// Unknown post
	w = s.do(http.MethodPost, "/meta-data", token, ginH{"postId": post.ID + 100, "metaValue": `{"seo":"no"}`})
	require.Equal(t, http.StatusNotFound, w.Code)
}
