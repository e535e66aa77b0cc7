package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"campusfinder/internal/config"
	"campusfinder/internal/pkg/jwt"
	"campusfinder/internal/repository/repotest"
	"campusfinder/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newTestAPI(t *testing.T, secret string) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Auth.JWTSecret = secret
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Auth.InstitutionDomains = []string{"uw.edu"}
	cfg.Storage.LocalDir = t.TempDir()

	store := repotest.NewStore(t)
	images := storage.NewImages(storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL), cfg.Storage.MaxImageBytes)

	router := NewRouter(Deps{
		Config: cfg,
		DB:     store.DB(),
		Store:  store,
		Tokens: jwt.New(secret, time.Hour),
		Images: images,
	})
	return &apiClient{t: t, router: router}
}

func (a *apiClient) do(method, path, token string, body io.Reader, contentType string) (int, envelope) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

// raw returns the response body untouched for byte-level comparisons.
func (a *apiClient) raw(method, path, token, body string) (int, string) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func (a *apiClient) json(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(data)
	}
	return a.do(method, path, token, r, "application/json")
}

// signup creates an account and returns a session token for it.
func (a *apiClient) signup(email string) string {
	a.t.Helper()
	code, _ := a.json(http.MethodPost, "/api/signup", "", map[string]string{
		"email": email, "password": "correct-horse", "name": "Tester",
	})
	require.Equal(a.t, http.StatusCreated, code)

	code, env := a.json(http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": "correct-horse",
	})
	require.Equal(a.t, http.StatusOK, code)
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(a.t, session.Token)
	return session.Token
}

type resourceView struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
	FavoriteCount int64   `json:"favorite_count"`
	IsFavorited   *bool   `json:"is_favorited"`
	Reviews       []struct {
		ID     int64 `json:"id"`
		Rating int   `json:"rating"`
	} `json:"reviews"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAPI_SignupAndLogin(t *testing.T) {
	api := newTestAPI(t, "integration-secret")

	code, env := api.json(http.MethodPost, "/api/signup", "", map[string]string{"email": "ana@gmail.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "institution", env.Error.Details["email"])

	code, env = api.json(http.MethodPost, "/api/signup", "", map[string]string{"email": "ana@uw.edu", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "min", env.Error.Details["password"])

	code, _ = api.json(http.MethodPost, "/api/signup", "", map[string]string{"email": "ana@uw.edu", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, code)

	code, env = api.json(http.MethodPost, "/api/signup", "", map[string]string{"email": "ANA@uw.edu", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "User already exists", env.Error.Message)

	code, wrongPassword := api.json(http.MethodPost, "/api/login", "", map[string]string{"email": "ana@uw.edu", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, code)
	_, unknown := api.json(http.MethodPost, "/api/login", "", map[string]string{"email": "bo@uw.edu", "password": "wrong-horse"})
	assert.Equal(t, wrongPassword.Error, unknown.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", unknown.Error.Code)

	code, env = api.json(http.MethodPost, "/api/login", "", map[string]string{"email": "ana@uw.edu", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, code)
	session := decode[struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}](t, env.Data)
	assert.Equal(t, "ana@uw.edu", session.User.Email)

	code, _ = api.do(http.MethodGet, "/api/session", session.Token, nil, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_MissingSecretIsUnavailable(t *testing.T) {
	api := newTestAPI(t, "")

	code, _ := api.json(http.MethodPost, "/api/signup", "", map[string]string{"email": "ana@uw.edu", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, code)

	code, env := api.json(http.MethodPost, "/api/login", "", map[string]string{"email": "ana@uw.edu", "password": "correct-horse"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)

	code, _ = api.do(http.MethodGet, "/api/session", "some.token.value", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestAPI_ResourceLifecycle(t *testing.T) {
	api := newTestAPI(t, "integration-secret")
	owner := api.signup("owner@uw.edu")
	alice := api.signup("alice@uw.edu")
	bob := api.signup("bob@uw.edu")

	code, env := api.json(http.MethodPost, "/api/resources", "", map[string]string{"name": "Anon"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	code, env = api.json(http.MethodPost, "/api/resources", owner, map[string]any{
		"name":        "Suzzallo Library",
		"category":    "library",
		"coordinates": map[string]float64{"lat": 47.6557, "lng": -122.3078},
	})
	require.Equal(t, http.StatusCreated, code)
	created := decode[struct {
		Resource resourceView `json:"resource"`
	}](t, env.Data).Resource
	path := "/api/resources/" + strconv.FormatInt(created.ID, 10)

	// reviews: 4 then 2 average to 3, removing the 2 leaves 4
	code, _ = api.json(http.MethodPost, path+"/reviews", alice, map[string]any{"rating": 4, "comment": "quiet"})
	require.Equal(t, http.StatusCreated, code)
	code, env = api.json(http.MethodPost, path+"/reviews", bob, map[string]any{"rating": 2})
	require.Equal(t, http.StatusCreated, code)
	bobReview := decode[struct {
		Review struct {
			ID int64 `json:"id"`
		} `json:"review"`
		Resource struct {
			AverageRating float64 `json:"average_rating"`
		} `json:"resource"`
	}](t, env.Data)
	assert.Equal(t, 3.0, bobReview.Resource.AverageRating)

	code, _ = api.json(http.MethodPost, path+"/reviews", bob, map[string]any{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, code)

	reviewPath := "/api/reviews/" + strconv.FormatInt(bobReview.Review.ID, 10)
	code, _ = api.do(http.MethodDelete, reviewPath, alice, nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = api.do(http.MethodDelete, reviewPath, bob, nil, "")
	require.Equal(t, http.StatusOK, code)

	// favorites are idempotent and counted once per user
	for _, tok := range []string{alice, alice, bob} {
		code, _ = api.do(http.MethodPost, path+"/favorite", tok, nil, "")
		require.Equal(t, http.StatusOK, code)
	}
	code, _ = api.do(http.MethodPost, "/api/favorites?id="+strconv.FormatInt(created.ID, 10)+"&action=unfavorite", bob, nil, "")
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/resources", alice, nil, "")
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Resources []resourceView `json:"resources"`
	}](t, env.Data).Resources
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, 4.0, got.AverageRating)
	assert.Equal(t, int64(1), got.ReviewCount)
	assert.Equal(t, int64(1), got.FavoriteCount)
	require.NotNil(t, got.IsFavorited)
	assert.True(t, *got.IsFavorited)
	require.Len(t, got.Reviews, 1)
	assert.Equal(t, 4, got.Reviews[0].Rating)

	code, env = api.do(http.MethodGet, "/api/resources", "", nil, "")
	require.Equal(t, http.StatusOK, code)
	anon := decode[struct {
		Resources []resourceView `json:"resources"`
	}](t, env.Data).Resources
	assert.Nil(t, anon[0].IsFavorited)

	// ownership
	code, _ = api.json(http.MethodPut, path, alice, map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = api.do(http.MethodDelete, path, alice, nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = api.json(http.MethodPut, path, owner, map[string]string{"hours": "24h"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Suzzallo Library", decode[struct {
		Resource resourceView `json:"resource"`
	}](t, env.Data).Resource.Name)

	code, _ = api.do(http.MethodDelete, path, owner, nil, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodGet, path, "", nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, env = api.do(http.MethodGet, "/api/favorites", alice, nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[struct {
		Resources []resourceView `json:"resources"`
	}](t, env.Data).Resources)
}

func TestAPI_ForeignCallerLooksAnonymous(t *testing.T) {
	api := newTestAPI(t, "integration-secret")
	owner := api.signup("owner@uw.edu")
	author := api.signup("author@uw.edu")
	stranger := api.signup("stranger@uw.edu")

	code, env := api.json(http.MethodPost, "/api/resources", owner, map[string]string{"name": "Gym"})
	require.Equal(t, http.StatusCreated, code)
	path := "/api/resources/" + strconv.FormatInt(decode[struct {
		Resource resourceView `json:"resource"`
	}](t, env.Data).Resource.ID, 10)

	code, env = api.json(http.MethodPost, path+"/reviews", author, map[string]any{"rating": 5})
	require.Equal(t, http.StatusCreated, code)
	reviewPath := "/api/reviews/" + strconv.FormatInt(decode[struct {
		Review struct {
			ID int64 `json:"id"`
		} `json:"review"`
	}](t, env.Data).Review.ID, 10)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPut, path, `{"name":"Taken"}`},
		{http.MethodDelete, path, ""},
		{http.MethodDelete, reviewPath, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			anonCode, anonBody := api.raw(tt.method, tt.path, "", tt.body)
			badCode, badBody := api.raw(tt.method, tt.path, "not-a-token", tt.body)
			foreignCode, foreignBody := api.raw(tt.method, tt.path, stranger, tt.body)

			assert.Equal(t, http.StatusUnauthorized, anonCode)
			assert.Equal(t, anonCode, badCode)
			assert.Equal(t, anonCode, foreignCode)
			assert.JSONEq(t, anonBody, badBody)
			assert.JSONEq(t, anonBody, foreignBody)
		})
	}

	code, _ = api.do(http.MethodGet, path, "", nil, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_Settings(t *testing.T) {
	api := newTestAPI(t, "integration-secret")
	ana := api.signup("ana@uw.edu")
	api.signup("taken@uw.edu")

	code, env := api.json(http.MethodPut, "/api/settings/update", ana, map[string]any{})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "No changes to update")

	code, env = api.json(http.MethodPut, "/api/settings/update", ana, map[string]any{"email": "taken@uw.edu"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Email already in use", env.Error.Message)

	code, env = api.json(http.MethodPut, "/api/settings/update", ana, map[string]any{
		"current_password": "nope-nope", "new_password": "another-horse",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_PASSWORD", env.Error.Code)

	code, _ = api.json(http.MethodPut, "/api/settings/update", ana, map[string]any{
		"current_password": "correct-horse", "new_password": "another-horse", "push_notifications": true,
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = api.json(http.MethodPost, "/api/login", "", map[string]string{"email": "ana@uw.edu", "password": "another-horse"})
	assert.Equal(t, http.StatusOK, code)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 300, 120))))
	for _, route := range []string{"/api/settings/upload-image", "/api/profilePicture"} {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("image", "me.png")
		require.NoError(t, err)
		_, err = fw.Write(img.Bytes())
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		code, env = api.do(http.MethodPost, route, ana, &body, mw.FormDataContentType())
		require.Equal(t, http.StatusOK, code, route)
		res := decode[struct {
			ImageURL string `json:"image_url"`
		}](t, env.Data)
		assert.Contains(t, res.ImageURL, "/uploads/avatars/")
	}

	code, env = api.do(http.MethodPost, "/api/profilePicture", ana, nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "required", env.Error.Details["image"])
}

func TestAPI_NotificationsWithoutMailer(t *testing.T) {
	api := newTestAPI(t, "integration-secret")
	ana := api.signup("ana@uw.edu")

	code, _ := api.json(http.MethodPost, "/api/notifications", "", map[string]string{"email": "kim@uw.edu"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := api.json(http.MethodPost, "/api/notifications", ana, map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "email", env.Error.Details["email"])

	code, env = api.json(http.MethodPost, "/api/notifications", ana, map[string]string{"email": "kim@uw.edu"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
}

func TestAPI_Health(t *testing.T) {
	api := newTestAPI(t, "integration-secret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
