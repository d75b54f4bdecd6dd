package middlewares

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/cache"
	"github.com/yeremiapane/periodic-tables/utils"
)

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GET requests from store. Only 200 responses are kept.
// A nil store disables caching.
func Cache(store cache.ResponseCache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if cached, found := store.Get(c.Request.Context(), key); found {
			for k, v := range cached.Header {
				if k == "Content-Length" {
					continue
				}
				c.Writer.Header()[k] = v
			}
			c.Header("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.Status)
			_, _ = c.Writer.Write(cached.Body)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if blw.Status() == http.StatusOK {
			header := blw.Header().Clone()
			header.Del("X-Cache")
			header.Del(RequestIDHeader)
			store.Set(c.Request.Context(), key, &cache.CachedResponse{
				Status: blw.Status(),
				Header: header,
				Body:   blw.body.Bytes(),
			}, ttl)
		}
	}
}

// InvalidateCache flushes store after every successful non-GET request.
func InvalidateCache(store cache.ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if store == nil || c.Request.Method == http.MethodGet {
			return
		}
		if c.Writer.Status() < http.StatusBadRequest {
			if err := store.Flush(c.Request.Context()); err != nil {
				utils.ErrorLogger.Warnf("response cache flush failed: %v", err)
			}
		}
	}
}
