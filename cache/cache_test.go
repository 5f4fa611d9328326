package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Cleanup(func() { ClearAll() })

	assert.NoError(t, Write("/posts/some-slug", "<html>cached</html>"))

	content, found := Read("/posts/some-slug", time.Minute)
	assert.True(t, found)
	assert.Equal(t, "<html>cached</html>", content)
}

func TestRead_MissingRoute(t *testing.T) {
	t.Cleanup(func() { ClearAll() })

	_, found := Read("/never-cached", time.Minute)
	assert.False(t, found)
}

func TestRead_Expired(t *testing.T) {
	t.Cleanup(func() { ClearAll() })

	assert.NoError(t, Write("/", "<html>stale</html>"))

	_, found := Read("/", 0)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	t.Cleanup(func() { ClearAll() })

	assert.NoError(t, Write("/blog", "<html>listing</html>"))

	Invalidate("/blog", "/never-cached")

	_, found := Read("/blog", time.Minute)
	assert.False(t, found)
}

func TestCacheable(t *testing.T) {
	assert.True(t, cacheable("/"))
	assert.True(t, cacheable("/blog"))
	assert.True(t, cacheable("/posts/some-slug"))
	assert.False(t, cacheable("/posts/some-slug/comments"))
	assert.False(t, cacheable("/admin"))
	assert.False(t, cacheable("/subscribe"))
}

func setupTestRouter(hits *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))
	router.Use(Middleware(time.Minute))

	router.GET("/blog", func(c *gin.Context) {
		*hits++
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<html>listing</html>"))
	})

	return router
}

func TestMiddleware_SecondRequestIsHit(t *testing.T) {
	t.Cleanup(func() { ClearAll() })

	hits := 0
	router := setupTestRouter(&hits)

	req, _ := http.NewRequest("GET", "/blog", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "<html>listing</html>", w.Body.String())
	assert.Equal(t, 1, hits)
}

func TestMiddleware_QueryStringBypasses(t *testing.T) {
	t.Cleanup(func() { ClearAll() })

	hits := 0
	router := setupTestRouter(&hits)

	req, _ := http.NewRequest("GET", "/blog?sort=oldest", nil)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("X-Cache"))
	}

	assert.Equal(t, 2, hits)
}
