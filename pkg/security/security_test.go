package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/sessions", ok)
	r.GET("/api/health", ok)
	r.GET("/metrics", ok)
	return r
}

func doRequest(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSWhitelist(t *testing.T) {
	r := newRouter(CORS([]string{"http://localhost:5173"}))

	w := doRequest(r, http.MethodGet, "/api/sessions", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	// 非白名单 Origin 不回显
	w = doRequest(r, http.MethodGet, "/api/sessions", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	// 预检直接放行
	w = doRequest(r, http.MethodOptions, "/api/sessions", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecureHeaders(t *testing.T) {
	r := newRouter(Secure())

	w := doRequest(r, http.MethodGet, "/api/sessions", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
}

func TestRateLimiterBlocksOverflow(t *testing.T) {
	r := newRouter(RateLimiter(1, time.Minute))

	w := doRequest(r, http.MethodGet, "/api/sessions", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterExemptsProbes(t *testing.T) {
	r := newRouter(RateLimiter(1, time.Minute))

	// 探活与抓取不受限流影响
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/api/health", nil).Code)
		assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/metrics", nil).Code)
	}

	// 业务路径的配额不因探活请求放宽
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/api/sessions", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, http.MethodGet, "/api/sessions", nil).Code)
}
