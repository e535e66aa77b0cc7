package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfinder/internal/middleware"
	"campusfinder/internal/repository"
	"campusfinder/internal/repository/repotest"
	"campusfinder/internal/storage"
)

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		Resource struct {
			ID       int64   `json:"id"`
			Name     string  `json:"name"`
			ImageURL *string `json:"image_url"`
		} `json:"resource"`
	} `json:"data"`
	Error struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

// newTestRouter trusts an X-User header instead of a token.
func newTestRouter(t *testing.T) (*gin.Engine, *repository.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repotest.NewStore(t)
	images := storage.NewImages(storage.NewLocalStore(t.TempDir(), "/uploads"), 5<<20)
	h := NewHandler(NewService(store, images, nil, nil))

	r := gin.New()
	caller := func(c *gin.Context) {
		if id, err := strconv.ParseInt(c.GetHeader("X-User"), 10, 64); err == nil {
			c.Set(middleware.ContextUserID, id)
		}
		c.Next()
	}
	api := r.Group("/api", caller)
	h.RegisterRoutes(api, api)
	return r, store
}

func do(r http.Handler, req *http.Request, userID int64) (*httptest.ResponseRecorder, envelope) {
	if userID > 0 {
		req.Header.Set("X-User", strconv.FormatInt(userID, 10))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func jsonRequest(method, path string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_CreateMultipartWithImage(t *testing.T) {
	r, store := newTestRouter(t)
	owner := repotest.User(t, store, "owner@uw.edu")

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 32, 32))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Makerspace"))
	require.NoError(t, mw.WriteField("coordinates", `{"lat":47.65,"lng":-122.30}`))
	fw, err := mw.CreateFormFile("image", "space.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/resources", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w, env := do(r, req, owner.ID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Makerspace", env.Data.Resource.Name)
	require.NotNil(t, env.Data.Resource.ImageURL)
	assert.Contains(t, *env.Data.Resource.ImageURL, "/uploads/resources/")
}

func TestHandler_CreateRejectsNonImage(t *testing.T) {
	r, store := newTestRouter(t)
	owner := repotest.User(t, store, "owner@uw.edu")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Makerspace"))
	fw, err := mw.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("just some text, not a picture"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/resources", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w, env := do(r, req, owner.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "image", env.Error.Details["image"])
}

func TestHandler_CreateJSONValidation(t *testing.T) {
	r, store := newTestRouter(t)
	owner := repotest.User(t, store, "owner@uw.edu")

	w, env := do(r, jsonRequest(http.MethodPost, "/api/resources", map[string]any{"description": "no name"}), owner.ID)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "required", env.Error.Details["name"])
}

func TestHandler_CreateWithoutCaller(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(r, jsonRequest(http.MethodPost, "/api/resources", map[string]any{"name": "x"}), 0)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestHandler_UpdateAndDeleteOwnership(t *testing.T) {
	r, store := newTestRouter(t)
	owner := repotest.User(t, store, "owner@uw.edu")
	stranger := repotest.User(t, store, "stranger@uw.edu")
	res := repotest.Resource(t, store, owner.ID, "Cafe")
	path := "/api/resources/" + strconv.FormatInt(res.ID, 10)

	w, env := do(r, jsonRequest(http.MethodPut, path, map[string]any{"name": "Mine now"}), stranger.ID)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	w, env = do(r, jsonRequest(http.MethodPut, path, map[string]any{"hours": "24/7"}), owner.ID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Cafe", env.Data.Resource.Name)

	w, _ = do(r, httptest.NewRequest(http.MethodDelete, path, nil), stranger.ID)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(r, httptest.NewRequest(http.MethodDelete, path, nil), owner.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(r, httptest.NewRequest(http.MethodGet, path, nil), 0)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHandler_UpdateFormClearsCoordinates(t *testing.T) {
	r, store := newTestRouter(t)
	owner := repotest.User(t, store, "owner@uw.edu")
	w, env := do(r, jsonRequest(http.MethodPost, "/api/resources", map[string]any{
		"name":        "Quad",
		"coordinates": map[string]float64{"lat": 47.65, "lng": -122.31},
	}), owner.ID)
	require.Equal(t, http.StatusCreated, w.Code)
	id := env.Data.Resource.ID
	path := "/api/resources/" + strconv.FormatInt(id, 10)

	form := func(fields map[string]string) *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for k, v := range fields {
			require.NoError(t, mw.WriteField(k, v))
		}
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPut, path, &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	w, _ = do(r, form(map[string]string{"hours": "24h"}), owner.ID)
	require.Equal(t, http.StatusOK, w.Code)
	stored, err := store.Resources.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, stored.Coordinates)

	w, _ = do(r, form(map[string]string{"coordinates": ""}), owner.ID)
	require.Equal(t, http.StatusOK, w.Code)
	stored, err = store.Resources.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, stored.Coordinates)
	assert.Equal(t, "24h", stored.Hours)
}

func TestHandler_BadID(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(r, httptest.NewRequest(http.MethodGet, "/api/resources/abc", nil), 0)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "number", env.Error.Details["id"])
}
