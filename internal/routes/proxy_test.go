package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/authfetch/internal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newBackend serves /api/households/ to "Bearer good" and rejects everything
// else, including every refresh attempt.
func newBackend(t *testing.T) *httptest.Server {
	r := gin.New()
	r.POST(internal.DefaultRefreshPath, func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired"})
	})
	r.Any("/api/households/", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer good" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "not authenticated"})
			return
		}
		body, _ := io.ReadAll(c.Request.Body)
		c.Header("X-Upstream", "yes")
		c.JSON(http.StatusCreated, gin.H{
			"method":       c.Request.Method,
			"query":        c.Request.URL.RawQuery,
			"body":         string(body),
			"content_type": c.GetHeader("Content-Type"),
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, access, refresh string) (*gin.Engine, internal.SessionStore) {
	backend := newBackend(t)
	store := internal.NewMemoryStore()
	if access != "" {
		require.NoError(t, internal.SaveSession(context.Background(), store, access, refresh))
	}
	client := internal.NewAuthClient(store, internal.StaticOrigin(backend.URL), internal.ClientConfig{})

	r := gin.New()
	r.GET("/session", SessionStatus(store))
	r.PUT("/session", StoreSession(store))
	r.DELETE("/session", ClearSession(store))
	r.Any("/api/*path", Forward(client))
	return r, store
}

func TestForwardRelaysResponse(t *testing.T) {
	r, _ := newGateway(t, "good", "r1")

	req := httptest.NewRequest(http.MethodPost, "/api/households/?page=2", strings.NewReader(`{"name":"Ali"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "yes", w.Header().Get("X-Upstream"))
	assert.JSONEq(t, `{"method":"POST","query":"page=2","body":"{\"name\":\"Ali\"}","content_type":"application/json"}`, w.Body.String())
}

func TestForwardSessionExpiredAPIClient(t *testing.T) {
	r, store := newGateway(t, "stale", "r1")

	req := httptest.NewRequest(http.MethodGet, "/api/households/", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"session expired","login":"/auth/login"}`, w.Body.String())

	authenticated, err := internal.IsAuthenticated(context.Background(), store)
	require.NoError(t, err)
	assert.False(t, authenticated)
}

func TestForwardSessionExpiredBrowserIsRedirected(t *testing.T) {
	r, _ := newGateway(t, "stale", "")

	req := httptest.NewRequest(http.MethodGet, "/api/households/", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))
}

func TestForwardUpstreamUnavailable(t *testing.T) {
	store := internal.NewMemoryStore()
	backend := newBackend(t)
	backend.Close()
	client := internal.NewAuthClient(store, internal.StaticOrigin(backend.URL), internal.ClientConfig{})

	r := gin.New()
	r.Any("/api/*path", Forward(client))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/households/", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSessionRoutes(t *testing.T) {
	r, store := newGateway(t, "", "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false,"has_refresh":false}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/session", strings.NewReader(`{"refresh":"r1"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code, "access is required")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/session", strings.NewReader(`{"access":"good","refresh":"r1"}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	assert.JSONEq(t, `{"authenticated":true,"has_refresh":true,"access":{"opaque":true}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/households/", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/session", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	refresh, err := store.Get(context.Background(), internal.RefreshSlot)
	require.NoError(t, err)
	assert.Empty(t, refresh)
}
