package cache

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// cacheable reports whether a request path is one of the public pages
// worth caching: the home page, the unfiltered blog listing, and post
// detail pages.
func cacheable(path string) bool {
	if path == "/" || path == "/blog" {
		return true
	}
	if strings.HasPrefix(path, "/posts/") && !strings.Contains(path[len("/posts/"):], "/") {
		return true
	}
	return false
}

// Middleware serves cached HTML for anonymous GETs of public pages and
// captures cache misses on the way out. Requests with a session user or
// a query string are never cached; those pages vary per viewer.
func Middleware(maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if !cacheable(path) || c.Request.URL.RawQuery != "" {
			c.Next()
			return
		}

		session := sessions.Default(c)
		if session.Get("user_id") != nil {
			c.Next()
			return
		}

		if cached, found := Read(path, maxAge); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK &&
			c.Writer.Header().Get("Content-Type") == "text/html; charset=utf-8" {
			Write(path, writer.body.String())
		}
	}
}
