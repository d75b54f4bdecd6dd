package middlewares

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/periodic-tables/cache"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/utils"
	"golang.org/x/time/rate"
)

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	utils.ConfigureTokens("middleware-secret", time.Hour)
	token, err := utils.GenerateToken(5, models.RoleHost)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": c.MustGet(CtxUserID), "role": c.GetString(CtxRole)}})
	})

	w := get(r, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authorization token missing", errorOf(t, w))

	w = get(r, "/me", map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid authorization header format", errorOf(t, w))

	w = get(r, "/me", map[string]string{"Authorization": "Bearer nonsense"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/me", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"user_id":5,"role":"host"}}`, w.Body.String())

	w = get(r, "/me?token="+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	withRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != "" {
				c.Set(CtxRole, role)
			}
		}
	}
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/admin-as-admin", withRole(models.RoleAdmin), RequireRole(models.RoleAdmin), ok)
	r.GET("/admin-as-host", withRole(models.RoleHost), RequireRole(models.RoleAdmin), ok)
	r.GET("/host-as-admin", withRole(models.RoleAdmin), RequireRole(models.RoleHost), ok)
	r.GET("/anonymous", withRole(""), RequireRole(models.RoleHost), ok)

	assert.Equal(t, http.StatusNoContent, get(r, "/admin-as-admin", nil).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/host-as-admin", nil).Code)

	w := get(r, "/admin-as-host", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "admin access required", errorOf(t, w))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/anonymous", nil).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := get(r, "/", nil)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = get(r, "/", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORSMiddlewares(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddlewares([]string{"http://localhost:3000"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	handler := func(c *gin.Context) { c.Status(http.StatusOK) }

	dev := gin.New()
	dev.Use(SecurityHeaders(false))
	dev.GET("/app/index.html", handler)
	dev.GET("/admin/users", handler)

	w := get(dev, "/app/index.html", nil)
	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "connect-src 'self' ws: wss:")
	assert.Contains(t, csp, "frame-ancestors 'none'")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Empty(t, w.Header().Get("Cache-Control"))

	w = get(dev, "/admin/users", nil)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	prod := gin.New()
	prod.Use(SecurityHeaders(true))
	prod.GET("/tables", handler)
	w = get(prod, "/tables", nil)
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Every(time.Hour), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
	w := get(r, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests, please wait a moment", errorOf(t, w))

	limiter := NewIPRateLimiter(1, 1)
	assert.Same(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.1"))
	assert.NotSame(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.2"))
}

func TestCacheAndInvalidate(t *testing.T) {
	store := cache.NewMemoryCache(time.Minute)
	var hits int32

	r := gin.New()
	r.Use(InvalidateCache(store))
	r.GET("/tables", Cache(store, time.Minute), func(c *gin.Context) {
		n := atomic.AddInt32(&hits, 1)
		c.JSON(http.StatusOK, gin.H{"data": n})
	})
	r.GET("/missing", Cache(store, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	r.POST("/tables", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/broken", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := get(r, "/tables", nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"data":1}`, w.Body.String())

	w = get(r, "/tables", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"data":1}`, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	get(r, "/missing", nil)
	get(r, "/missing", nil)
	assert.Equal(t, 1, store.ItemCount(), "error responses are not cached")

	send(r, http.MethodPost, "/broken", nil)
	assert.Equal(t, 1, store.ItemCount(), "failed writes keep the cache")

	send(r, http.MethodPost, "/tables", nil)
	assert.Equal(t, 0, store.ItemCount())

	w = get(r, "/tables", nil)
	assert.JSONEq(t, `{"data":2}`, w.Body.String())
}

func TestCache_NilStore(t *testing.T) {
	r := gin.New()
	r.Use(InvalidateCache(nil))
	r.GET("/", Cache(nil, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Equal(t, http.StatusOK, send(r, http.MethodPost, "/", nil).Code)
}
