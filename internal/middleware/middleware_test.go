package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"memeup_backend/internal/model"
	"memeup_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret-middleware"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NoCache(), AuthMiddleware(secret))
	r.GET("/me", func(c *gin.Context) {
		id, err := util.CurrentUserID(c)
		if err != nil {
			c.Status(http.StatusPreconditionFailed)
			return
		}
		c.String(http.StatusOK, id)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	userID := model.GenerateUUID()
	valid, err := util.GenerateJWT(userID, model.Player, secret, time.Hour)
	require.NoError(t, err)
	foreign, err := util.GenerateJWT(userID, model.Player, "someone-elses-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"wrong signature", "Bearer " + foreign, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID, w.Body.String())
			}
		})
	}
}

func TestNoCacheHeaders(t *testing.T) {
	r := newRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, "no-store, no-cache, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Contains(t, w.Header().Values("Vary"), "Authorization")
}
