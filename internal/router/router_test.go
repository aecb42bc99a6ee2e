package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogapi/internal/auth"
	"blogapi/internal/config"
	"blogapi/internal/handler"
	"blogapi/internal/metrics"
	"blogapi/internal/service"
	"blogapi/internal/validation"
)

type testServer struct {
	e     *echo.Echo
	store *memStore
	jwt   *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithImages(t, nil)
}

// newTestServerWithImages enables uploads backed by images.
func newTestServerWithImages(t *testing.T, images service.ImageStore) *testServer {
	t.Helper()

	store := newMemStore()
	jwtService := auth.NewJWTService("test-secret", 5*time.Minute, time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := validation.New()
	media := service.NewMedia(images, 1<<20, log)

	authService := service.NewAuthService(memUsers{store}, jwtService, newMemTokens(), media, v, nil, log)
	profileService := service.NewProfileService(memProfiles{store}, media, v, log)
	postService := service.NewPostService(memPosts{store}, media, v, nil, log)

	e := echo.New()
	Register(e, &config.Config{}, jwtService, Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Profile: handler.NewProfileHandler(profileService),
		Post:    handler.NewPostHandler(postService),
		Media:   handler.NewMediaHandler(media),
	}, metrics.New(), log)

	return &testServer{e: e, store: store, jwt: jwtService}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doRaw(t *testing.T, method, path, token, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, contentType)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username string, extra map[string]interface{}) {
	t.Helper()
	body := map[string]interface{}{
		"username": username,
		"email":    username + "@example.com",
		"password": "pw-" + username,
	}
	for k, v := range extra {
		body[k] = v
	}
	rec := s.do(t, http.MethodPost, "/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) login(t *testing.T, username string) (access, refresh string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": "pw-" + username,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair["access"])
	require.NotEmpty(t, pair["refresh"])
	return pair["access"], pair["refresh"]
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAliceAndBobScenario(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	s.register(t, "bob", nil)
	aliceToken, _ := s.login(t, "alice")
	bobToken, _ := s.login(t, "bob")

	rec := s.do(t, http.MethodPost, "/posts", aliceToken, map[string]string{"title": "Hello", "content": "World"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode(t, rec)
	assert.EqualValues(t, 1, post["id"])
	assert.EqualValues(t, 1, post["author"])
	assert.Equal(t, "alice", post["author_username"])

	rec = s.do(t, http.MethodGet, "/posts/1", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Hello", decode(t, rec)["title"])

	rec = s.do(t, http.MethodPut, "/posts/1", bobToken, map[string]string{"title": "Hijacked", "content": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have permission to edit this post.", decode(t, rec)["detail"])

	rec = s.do(t, http.MethodDelete, "/posts/1", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have permission to delete this post.", decode(t, rec)["detail"])

	rec = s.do(t, http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decodeList(t, rec)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hello", posts[0]["title"])
	assert.Equal(t, "World", posts[0]["content"])

	rec = s.do(t, http.MethodDelete, "/posts/1", aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/posts/1", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found.", decode(t, rec)["detail"])

	rec = s.do(t, http.MethodGet, "/posts", "", nil)
	assert.Empty(t, decodeList(t, rec))
}

func TestRegister_DuplicateUsernamePersistsNothing(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)

	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"username": "alice",
		"email":    "someone-else@example.com",
		"password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"username": []interface{}{"A user with that username already exists."},
	}, decode(t, rec))
	assert.Len(t, s.store.users, 1)
	assert.Len(t, s.store.profiles, 1)
}

func TestRegister_ResponseOmitsPassword(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "pw1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotContains(t, rec.Body.String(), "pw1")
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")
}

func TestRegister_ValidationErrors(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body, "username")
	assert.Contains(t, body, "email")
	assert.Contains(t, body, "password")
}

func TestProfile_CreatedWithRegistrationAndScopedToCaller(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", map[string]interface{}{"bio": "hi", "location": "Lisbon", "birth_date": "1990-04-17"})
	s.register(t, "bob", nil)
	aliceToken, _ := s.login(t, "alice")
	bobToken, _ := s.login(t, "bob")

	rec := s.do(t, http.MethodGet, "/profile", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode(t, rec)
	assert.Equal(t, "hi", profile["bio"])
	assert.Equal(t, "Lisbon", profile["location"])
	assert.Equal(t, "1990-04-17", profile["birth_date"])
	assert.Nil(t, profile["profile_picture"])

	rec = s.do(t, http.MethodGet, "/profile", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile = decode(t, rec)
	assert.Equal(t, "", profile["bio"])
	assert.Equal(t, "", profile["location"])
	assert.Nil(t, profile["birth_date"])

	rec = s.do(t, http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication credentials were not provided.", decode(t, rec)["detail"])
}

func TestProfile_PartialUpdateKeepsOtherFields(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", map[string]interface{}{"bio": "old", "location": "Lisbon", "birth_date": "1990-04-17"})
	token, _ := s.login(t, "alice")

	rec := s.do(t, http.MethodPut, "/profile", token, map[string]string{"bio": "new"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode(t, rec)
	assert.Equal(t, "new", profile["bio"])
	assert.Equal(t, "Lisbon", profile["location"])
	assert.Equal(t, "1990-04-17", profile["birth_date"])

	rec = s.do(t, http.MethodPut, "/profile", token, map[string]interface{}{"birth_date": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["birth_date"])

	rec = s.do(t, http.MethodPut, "/profile", token, map[string]string{"birth_date": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec), "birth_date")
}

func TestLogin_AccessTokenResolvesToIdentity(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	access, refresh := s.login(t, "alice")

	claims, err := s.jwt.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	_, err = s.jwt.ValidateAccessToken(refresh)
	assert.Error(t, err)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "wrong password", body: map[string]string{"username": "alice", "password": "wrong"}},
		{name: "unknown user", body: map[string]string{"username": "mallory", "password": "pw-alice"}},
		{name: "missing password", body: map[string]string{"username": "alice"}},
		{name: "empty body", body: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/login", "", tt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, map[string]interface{}{"detail": "Invalid credentials"}, body)
		})
	}
}

func TestPosts_AuthRequirements(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	access, refresh := s.login(t, "alice")

	rec := s.do(t, http.MethodGet, "/posts", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = s.do(t, http.MethodPost, "/posts", "", map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/posts", refresh, map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Given token not valid for any token type", decode(t, rec)["detail"])

	rec = s.do(t, http.MethodGet, "/posts/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/posts/abc", access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, s.store.posts)
}

func TestPosts_CreateIgnoresClientAuthorAndValidates(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	s.register(t, "bob", nil)
	token, _ := s.login(t, "alice")

	rec := s.do(t, http.MethodPost, "/posts", token, map[string]interface{}{
		"title": "Hello", "content": "World", "author": 2, "tags": []string{"go", "web"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode(t, rec)
	assert.EqualValues(t, 1, post["author"])
	assert.Equal(t, "go,web", post["tags"])

	rec = s.do(t, http.MethodPost, "/posts", token, map[string]string{"content": "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"title": []interface{}{"This field is required."}}, decode(t, rec))
}

func TestPosts_UpdateByAuthor(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	token, _ := s.login(t, "alice")

	rec := s.do(t, http.MethodPost, "/posts", token, map[string]string{"title": "Hello", "content": "World", "tags": "go"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)

	rec = s.do(t, http.MethodPut, "/posts/1", token, map[string]string{"title": "Hello v2", "content": "World v2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)
	assert.Equal(t, "Hello v2", updated["title"])
	assert.Equal(t, "go", updated["tags"])
	assert.Equal(t, created["created_at"], updated["created_at"])

	rec = s.do(t, http.MethodPut, "/posts/1", token, map[string]string{"title": "only title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/posts/42", token, map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPosts_UpdateChecksPostBeforeReadingBody(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	s.register(t, "bob", nil)
	aliceToken, _ := s.login(t, "alice")
	bobToken, _ := s.login(t, "bob")

	rec := s.do(t, http.MethodPost, "/posts", aliceToken, map[string]string{"title": "Hello", "content": "World"})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name        string
		path        string
		token       string
		contentType string
		body        string
		wantStatus  int
	}{
		{name: "malformed JSON for missing post", path: "/posts/999", token: aliceToken,
			contentType: echo.MIMEApplicationJSON, body: "{bad", wantStatus: http.StatusNotFound},
		{name: "malformed JSON from non-author", path: "/posts/1", token: bobToken,
			contentType: echo.MIMEApplicationJSON, body: "{bad", wantStatus: http.StatusForbidden},
		{name: "unsupported media type from non-author", path: "/posts/1", token: bobToken,
			contentType: echo.MIMETextPlain, body: "hello", wantStatus: http.StatusForbidden},
		{name: "wrongly typed fields from non-author", path: "/posts/1", token: bobToken,
			contentType: echo.MIMEApplicationJSON, body: `{"title":{"a":1},"content":true}`, wantStatus: http.StatusForbidden},
		{name: "malformed JSON from author", path: "/posts/1", token: aliceToken,
			contentType: echo.MIMEApplicationJSON, body: "{bad", wantStatus: http.StatusBadRequest},
		{name: "unsupported media type from author", path: "/posts/1", token: aliceToken,
			contentType: echo.MIMETextPlain, body: "hello", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doRaw(t, http.MethodPut, tt.path, tt.token, tt.contentType, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, "Hello", s.store.posts[1].Title)
}

func TestPosts_RejectsNonStringFields(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	token, _ := s.login(t, "alice")

	rec := s.doRaw(t, http.MethodPost, "/posts", token, echo.MIMEApplicationJSON, `{"title":{"a":1},"content":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"title":   []interface{}{"Not a valid string."},
		"content": []interface{}{"Not a valid string."},
	}, decode(t, rec))
	assert.Empty(t, s.store.posts)

	rec = s.do(t, http.MethodPost, "/posts", token, map[string]string{"title": "Hello", "content": "World"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.doRaw(t, http.MethodPut, "/posts/1", token, echo.MIMEApplicationJSON, `{"title":{"a":1},"content":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"title": []interface{}{"Not a valid string."}}, decode(t, rec))
	assert.Equal(t, "Hello", s.store.posts[1].Title)
}

func TestPosts_MultipartForm(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	token, _ := s.login(t, "alice")

	send := func(withImage bool) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("title", "From a form"))
		require.NoError(t, w.WriteField("content", "Body"))
		require.NoError(t, w.WriteField("tags", "a,b"))
		if withImage {
			part, err := w.CreateFormFile("image", "pic.png")
			require.NoError(t, err)
			_, err = part.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/posts/", &buf)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}

	rec := send(false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode(t, rec)
	assert.Equal(t, "From a form", post["title"])
	assert.Equal(t, "a,b", post["tags"])
	assert.Nil(t, post["image"])

	rec = send(true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"image": []interface{}{"Image uploads are not enabled."}}, decode(t, rec))
}

func TestMedia_ServesUploadedImages(t *testing.T) {
	images := newMemImages()
	s := newTestServerWithImages(t, images)
	s.register(t, "alice", nil)
	token, _ := s.login(t, "alice")

	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}, bytes.Repeat([]byte{1}, 64)...)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "With picture"))
	require.NoError(t, w.WriteField("content", "Body"))
	part, err := w.CreateFormFile("image", "pic.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/posts", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	key, ok := decode(t, rec)["image"].(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(key, "blog_images/"), key)
	images.objects["profile_pics/p.jpg"] = []byte("jpeg")
	images.types["profile_pics/p.jpg"] = "image/jpeg"

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantType string
		wantBody []byte
	}{
		{name: "post image", path: "/media/" + key, wantCode: http.StatusOK, wantType: "image/png", wantBody: png},
		{name: "post image under api", path: "/api/media/" + key, wantCode: http.StatusOK, wantType: "image/png", wantBody: png},
		{name: "profile picture", path: "/media/profile_pics/p.jpg", wantCode: http.StatusOK, wantType: "image/jpeg", wantBody: []byte("jpeg")},
		{name: "missing object", path: "/media/blog_images/nope.png", wantCode: http.StatusNotFound},
		{name: "folder outside uploads", path: "/media/secrets/key.pem", wantCode: http.StatusNotFound},
		{name: "bare folder", path: "/media/blog_images", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, "", nil)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, map[string]interface{}{"detail": "Not found."}, decode(t, rec))
				return
			}
			assert.Equal(t, tt.wantType, rec.Header().Get(echo.HeaderContentType))
			assert.Equal(t, tt.wantBody, rec.Body.Bytes())
		})
	}
}

func TestMedia_NotFoundWhenUploadsDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/media/blog_images/a.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]interface{}{"detail": "Not found."}, decode(t, rec))
}

func TestTokenRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice", nil)
	_, refresh := s.login(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access, _ := decode(t, rec)["access"].(string)
	claims, err := s.jwt.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)

	rec = s.do(t, http.MethodPost, "/token/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"refresh": []interface{}{"This field is required."}}, decode(t, rec))

	rec = s.do(t, http.MethodPost, "/logout", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/token/refresh", "", map[string]string{"refresh": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is invalid or expired", decode(t, rec)["detail"])
}

func TestErrorHandler(t *testing.T) {
	var logs bytes.Buffer
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(slog.New(slog.NewJSONHandler(&logs, nil)))
	e.GET("/boom", func(c echo.Context) error {
		return fmt.Errorf("query failed: %w", errors.New("dial tcp 10.0.0.5:3306"))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal server error."}`, rec.Body.String())
	assert.Contains(t, logs.String(), "10.0.0.5")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"detail"`)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	s.do(t, http.MethodGet, "/posts", "", nil)
	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `blogapi_http_requests_total{method="GET",route="/posts",status="200"}`)
}
