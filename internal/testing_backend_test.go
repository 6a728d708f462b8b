package internal

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rm-hull/authfetch/internal/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type seenRequest struct {
	Method        string
	Authorization string
	ContentType   string
	Body          string
}

// fakeBackend accepts requests carrying validAccess and hands out new
// credentials for currentRefresh, rotating it when rotate is set.
type fakeBackend struct {
	mu sync.Mutex

	validAccess    string
	currentRefresh string
	issueAccess    string
	rotateTo       string
	refreshStatus  int
	refreshBody    string
	refreshDelay   time.Duration

	refreshCalls  int
	refreshAuth   []string
	refreshTokens []string
	resourceCalls []seenRequest
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{refreshStatus: http.StatusOK}

	r := gin.New()
	r.POST(DefaultRefreshPath, fb.refresh)
	r.Any("/x", fb.resource)
	r.GET("/teapot", func(c *gin.Context) {
		fb.record(c)
		c.String(http.StatusTeapot, "short and stout")
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) refresh(c *gin.Context) {
	fb.mu.Lock()
	fb.refreshCalls++
	fb.refreshAuth = append(fb.refreshAuth, c.GetHeader("Authorization"))
	delay := fb.refreshDelay
	fb.mu.Unlock()

	time.Sleep(delay)

	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.refreshTokens = append(fb.refreshTokens, req.Refresh)

	if fb.refreshStatus != http.StatusOK || req.Refresh != fb.currentRefresh {
		status := fb.refreshStatus
		if status == http.StatusOK {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"detail": "Token is invalid or expired"})
		return
	}
	if fb.refreshBody != "" {
		c.Data(http.StatusOK, "application/json", []byte(fb.refreshBody))
		return
	}

	fb.validAccess = fb.issueAccess
	resp := models.RefreshResponse{Access: fb.issueAccess}
	if fb.rotateTo != "" {
		fb.currentRefresh = fb.rotateTo
		resp.Refresh = fb.rotateTo
	}
	c.JSON(http.StatusOK, resp)
}

func (fb *fakeBackend) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.resourceCalls = append(fb.resourceCalls, seenRequest{
		Method:        c.Request.Method,
		Authorization: c.GetHeader("Authorization"),
		ContentType:   c.GetHeader("Content-Type"),
		Body:          string(body),
	})
}

func (fb *fakeBackend) resource(c *gin.Context) {
	fb.record(c)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if c.GetHeader("Authorization") != "Bearer "+fb.validAccess {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (fb *fakeBackend) calls() (int, []seenRequest) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.refreshCalls, append([]seenRequest(nil), fb.resourceCalls...)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
