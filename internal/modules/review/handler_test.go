package review

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfinder/internal/middleware"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/repository/repotest"
)

func TestHandler_CreateValidatesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator.UseTagNames()
	store := repotest.NewStore(t)
	owner := repotest.User(t, store, "owner@uw.edu")
	res := repotest.Resource(t, store, owner.ID, "Library")

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, owner.ID)
	})
	NewHandler(NewService(store, nil, nil)).RegisterRoutes(api, api)

	cases := []struct {
		name   string
		body   string
		status int
		rule   string
	}{
		{"missing rating", `{"comment":"nice"}`, http.StatusBadRequest, "required"},
		{"too high", `{"rating":6}`, http.StatusBadRequest, "max"},
		{"too low", `{"rating":0}`, http.StatusBadRequest, "min"},
		{"fractional", `{"rating":4.5}`, http.StatusBadRequest, "type"},
		{"ok", `{"rating":5,"comment":"great"}`, http.StatusCreated, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/resources/"+strconv.FormatInt(res.ID, 10)+"/reviews", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.rule == "" {
				return
			}
			var env struct {
				Error struct {
					Details map[string]string `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, tc.rule, env.Error.Details["rating"])
		})
	}
}
