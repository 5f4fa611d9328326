package blog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"helpcenter/content"
	"helpcenter/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{},
		&models.Review{}, &models.Subscription{}, &models.SiteSetting{})
	return db
}

func setupTestRouter(blogModule *BlogModule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))

	// Test-only login endpoint to mint a session cookie.
	router.GET("/testlogin", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set("user_id", 1)
		session.Set("user_role", models.RoleUser)
		session.Save()
		c.Status(http.StatusOK)
	})

	blogModule.RegisterRoutes(router)
	return router
}

func createTestUser(db *gorm.DB) *models.User {
	user := &models.User{
		Name:         "Test Reader",
		Email:        "reader@example.com",
		PasswordHash: "hashedpassword",
		Role:         models.RoleUser,
	}
	db.Create(user)
	return user
}

func createTestPost(db *gorm.DB, published bool) *models.Post {
	post := &models.Post{
		Title:     "Test Post",
		Slug:      "test-post",
		Excerpt:   "A short excerpt for tests.",
		Content:   "# Test Content\n\nThis is a **test** post.",
		Published: published,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	db.Create(post)
	return post
}

func loginCookie(t *testing.T, router *gin.Engine) string {
	t.Helper()

	req, _ := http.NewRequest("GET", "/testlogin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	cookieHeader := w.Header().Get("Set-Cookie")
	assert.NotEmpty(t, cookieHeader)
	return cookieHeader
}

func postForm(router *gin.Engine, path, form, sessionCookie string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sessionCookie != "" {
		req.Header.Set("Cookie", sessionCookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitComment_InvalidBodyRedirects(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewBlogModule(db, nil))

	post := createTestPost(db, true)

	w := postForm(router, "/posts/test-post/comments", "postId=1&body=nope", "")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/posts/test-post?comment=invalid", w.Header().Get("Location"))

	var count int64
	db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSubmitComment_AnonymousRedirectsToLogin(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewBlogModule(db, nil))

	createTestPost(db, true)

	w := postForm(router, "/posts/test-post/comments",
		"postId=1&body=This+comment+is+long+enough.", "")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?callbackUrl=%2Fposts%2Ftest-post", w.Header().Get("Location"))
}

func TestSubmitComment_LoggedInCreatesPending(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewBlogModule(db, nil))

	createTestUser(db)
	post := createTestPost(db, true)
	session := loginCookie(t, router)

	w := postForm(router, "/posts/test-post/comments",
		"postId=1&body=This+comment+is+long+enough.", session)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/posts/test-post?comment=submitted", w.Header().Get("Location"))

	var comment models.Comment
	assert.NoError(t, db.First(&comment, "post_id = ?", post.ID).Error)
	assert.Equal(t, models.StatusPending, comment.Status)
}

func TestSubmitReview_WithoutSubscriptionRedirects(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewBlogModule(db, nil))

	createTestUser(db)
	createTestPost(db, true)
	session := loginCookie(t, router)

	w := postForm(router, "/posts/test-post/reviews",
		"postId=1&rating=5&body=Great+article+worth+reading.", session)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/subscribe?next=%2Fposts%2Ftest-post", w.Header().Get("Location"))
}

func TestSubmitReview_SubscriberCreatesPending(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewBlogModule(db, nil))

	user := createTestUser(db)
	post := createTestPost(db, true)
	db.Create(&models.Subscription{UserID: user.ID, Tier: content.FreeTier, Active: true})
	session := loginCookie(t, router)

	w := postForm(router, "/posts/test-post/reviews",
		"postId=1&rating=4&body=Great+article+worth+reading.", session)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/posts/test-post?review=submitted", w.Header().Get("Location"))

	var review models.Review
	assert.NoError(t, db.First(&review, "post_id = ?", post.ID).Error)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, models.StatusPending, review.Status)
}

func TestActivateSubscription(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewBlogModule(db, nil))

	user := createTestUser(db)
	session := loginCookie(t, router)

	w := postForm(router, "/subscribe/activate", "", session)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/subscribe?status=active", w.Header().Get("Location"))

	var subscription models.Subscription
	assert.NoError(t, db.First(&subscription, "user_id = ?", user.ID).Error)
	assert.True(t, subscription.Active)
}

func TestCancelSubscription_Anonymous(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewBlogModule(db, nil))

	w := postForm(router, "/subscribe/cancel", "", "")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?callbackUrl=%2Fsubscribe", w.Header().Get("Location"))
}

func TestSitemap(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(NewBlogModule(db, nil))

	createTestPost(db, true)
	draft := &models.Post{
		Title: "Draft Post", Slug: "draft-post",
		Published: false, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	db.Create(draft)

	req, _ := http.NewRequest("GET", "/sitemap.xml", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "<loc>http://localhost:8080/blog</loc>")
	assert.Contains(t, w.Body.String(), "/posts/test-post</loc>")
	assert.NotContains(t, w.Body.String(), "draft-post")
}

func TestRenderMarkdown_Headers(t *testing.T) {
	result := renderMarkdown("# Header 1\n\n## Header 2")

	assert.Contains(t, result, "<h1>Header 1</h1>")
	assert.Contains(t, result, "<h2>Header 2</h2>")
}

func TestRenderMarkdown_Emphasis(t *testing.T) {
	result := renderMarkdown("This is **bold** and *italic* text")

	assert.Contains(t, result, "<strong>bold</strong>")
	assert.Contains(t, result, "<em>italic</em>")
}

func TestRenderMarkdown_GFMTable(t *testing.T) {
	input := "| A | B |\n|---|---|\n| 1 | 2 |"
	result := renderMarkdown(input)

	assert.Contains(t, result, "<table>")
	assert.Contains(t, result, "<td>1</td>")
}

func TestRenderMarkdown_AutoLink(t *testing.T) {
	result := renderMarkdown("Visit https://example.com for more")

	assert.Contains(t, result, `<a href="https://example.com"`)
}

func TestRenderMarkdown_RawHTMLPreserved(t *testing.T) {
	result := renderMarkdown(`<div class="callout">note</div>`)

	assert.Contains(t, result, `<div class="callout">note</div>`)
}
