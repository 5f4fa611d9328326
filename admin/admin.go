package admin

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"helpcenter/analytics"
	"helpcenter/auth"
	"helpcenter/cache"
	"helpcenter/common"
	"helpcenter/content"
	"helpcenter/models"
	"helpcenter/uploads"
)

type AdminModule struct {
	db        *gorm.DB
	workflow  *content.Workflow
	analytics *analytics.AnalyticsModule
}

func NewAdminModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule) *AdminModule {
	return &AdminModule{
		db:        db,
		workflow:  content.NewWorkflow(db),
		analytics: analyticsModule,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine, authModule *auth.AuthModule) {
	adminGroup := router.Group("/admin")
	adminGroup.Use(authModule.RequireAuth, authModule.RequireAdmin)
	{
		adminGroup.GET("", a.dashboard)
		adminGroup.GET("/posts", a.listPosts)
		adminGroup.GET("/posts/new", a.newPost)
		adminGroup.POST("/posts", a.createPost)
		adminGroup.POST("/posts/toggle", a.togglePublish)
		adminGroup.GET("/moderation", a.moderation)
		adminGroup.POST("/moderation/comments", a.setCommentStatus)
		adminGroup.POST("/moderation/reviews", a.setReviewStatus)
		adminGroup.GET("/settings", a.settings)
		adminGroup.POST("/settings", a.updateSettings)
	}
}

func (a *AdminModule) currentActor(c *gin.Context) content.Actor {
	return content.Actor{
		ID:   c.GetInt("user_id"),
		Role: c.GetString("user_role"),
	}
}

// Structs for analytics chart data with precomputed percentages
type DayVisitChart struct {
	Date       string
	Count      int64
	Percentage float64
}

type PostVisitChart struct {
	PostID     int
	PostTitle  string
	Count      int64
	Percentage float64
}

func (a *AdminModule) dashboard(c *gin.Context) {
	var postCount, publishedCount, pendingComments, pendingReviews, userCount int64
	a.db.Model(&models.Post{}).Count(&postCount)
	a.db.Model(&models.Post{}).Where("published = ?", true).Count(&publishedCount)
	a.db.Model(&models.Comment{}).Where("status = ?", models.StatusPending).Count(&pendingComments)
	a.db.Model(&models.Review{}).Where("status = ?", models.StatusPending).Count(&pendingReviews)
	a.db.Model(&models.User{}).Count(&userCount)

	data := gin.H{
		"postCount":        postCount,
		"publishedCount":   publishedCount,
		"pendingComments":  pendingComments,
		"pendingReviews":   pendingReviews,
		"userCount":        userCount,
		"analyticsEnabled": a.analytics != nil,
	}

	if a.analytics != nil {
		visitsByDay := a.analytics.GetVisitsByDay(15)
		topPosts := a.analytics.GetTopPosts(30, 10)

		for i := range topPosts {
			var post models.Post
			if err := a.db.First(&post, topPosts[i].PostID).Error; err == nil {
				topPosts[i].PostTitle = post.Title
			} else {
				topPosts[i].PostTitle = "Post not found"
			}
		}

		maxVisitsPerDay := int64(1)
		for _, day := range visitsByDay {
			if day.Count > maxVisitsPerDay {
				maxVisitsPerDay = day.Count
			}
		}

		maxVisitsPerPost := int64(1)
		for _, post := range topPosts {
			if post.Count > maxVisitsPerPost {
				maxVisitsPerPost = post.Count
			}
		}

		dayCharts := make([]DayVisitChart, len(visitsByDay))
		for i, day := range visitsByDay {
			dayCharts[i] = DayVisitChart{
				Date:       day.Date,
				Count:      day.Count,
				Percentage: float64(day.Count) / float64(maxVisitsPerDay) * 100,
			}
		}

		postCharts := make([]PostVisitChart, len(topPosts))
		for i, post := range topPosts {
			postCharts[i] = PostVisitChart{
				PostID:     post.PostID,
				PostTitle:  post.PostTitle,
				Count:      post.Count,
				Percentage: float64(post.Count) / float64(maxVisitsPerPost) * 100,
			}
		}

		data["visitsByDay"] = dayCharts
		data["topPosts"] = postCharts
	}

	c.HTML(http.StatusOK, "admin_dashboard.html", data)
}

func (a *AdminModule) listPosts(c *gin.Context) {
	var posts []models.Post
	if err := a.db.Order("created_at DESC").Find(&posts).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Error loading posts",
		})
		return
	}

	c.HTML(http.StatusOK, "admin_posts.html", gin.H{
		"posts":  posts,
		"status": c.Query("status"),
	})
}

func (a *AdminModule) newPost(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_new_post.html", gin.H{
		"status": c.Query("error"),
	})
}

// Post field bounds, in runes.
const (
	titleMin   = 8
	titleMax   = 160
	excerptMin = 16
	excerptMax = 220
	contentMin = 80
)

// isPathOrURL accepts root-relative paths and absolute URLs, the two
// forms an image reference may take.
func isPathOrURL(value string) bool {
	if strings.HasPrefix(value, "/") {
		return true
	}
	parsed, err := url.Parse(value)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

func validPostFields(title, excerpt, body string) bool {
	titleLen := utf8.RuneCountInString(title)
	excerptLen := utf8.RuneCountInString(excerpt)
	contentLen := utf8.RuneCountInString(body)

	return titleLen >= titleMin && titleLen <= titleMax &&
		excerptLen >= excerptMin && excerptLen <= excerptMax &&
		contentLen >= contentMin
}

func (a *AdminModule) createPost(c *gin.Context) {
	title := c.PostForm("title")
	excerpt := c.PostForm("excerpt")
	body := c.PostForm("content")
	coverImageURL := strings.TrimSpace(c.PostForm("coverImageUrl"))
	galleryField := c.PostForm("galleryImageUrls")
	published := c.PostForm("published") == "on"

	if !validPostFields(title, excerpt, body) {
		c.Redirect(http.StatusFound, "/admin/posts/new?error=invalid")
		return
	}

	if coverImageURL != "" && !isPathOrURL(coverImageURL) {
		c.Redirect(http.StatusFound, "/admin/posts/new?error=invalid")
		return
	}

	galleryURLs := content.ParseImageURLs(galleryField)
	for _, u := range galleryURLs {
		if !isPathOrURL(u) {
			c.Redirect(http.StatusFound, "/admin/posts/new?error=invalid")
			return
		}
	}

	// Uploaded files win over pasted URLs for the cover; gallery uploads
	// are appended after pasted gallery URLs.
	if file, err := c.FormFile("coverImageFile"); err == nil && file.Size > 0 {
		saved, err := uploads.SaveImage(file, "articles/cover")
		if err != nil {
			c.Redirect(http.StatusFound, "/admin/posts/new?error=invalid")
			return
		}
		coverImageURL = saved
	}

	if form, err := c.MultipartForm(); err == nil {
		files := form.File["galleryImageFiles"]
		for _, file := range files {
			if file.Size == 0 {
				continue
			}
			saved, err := uploads.SaveImage(file, "articles/gallery")
			if err != nil {
				c.Redirect(http.StatusFound, "/admin/posts/new?error=invalid")
				return
			}
			galleryURLs = append(galleryURLs, saved)
		}
	}

	post := models.Post{
		Title:            title,
		Slug:             content.UniqueSlug(a.db, title),
		Excerpt:          excerpt,
		Content:          body,
		CoverImageURL:    coverImageURL,
		GalleryImageURLs: strings.Join(galleryURLs, "\n"),
		Published:        published,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := a.db.Create(&post).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Error creating post",
		})
		return
	}

	cache.Invalidate("/", "/blog")
	c.Redirect(http.StatusFound, "/admin/posts?status=created")
}

func (a *AdminModule) togglePublish(c *gin.Context) {
	postID, err := strconv.Atoi(c.PostForm("postId"))
	publish := c.PostForm("publish")
	if err != nil || postID <= 0 || (publish != "true" && publish != "false") {
		c.Redirect(http.StatusFound, "/admin/posts?status=invalid")
		return
	}

	var post models.Post
	if err := a.db.First(&post, postID).Error; err != nil {
		c.Redirect(http.StatusFound, "/admin/posts?status=invalid")
		return
	}

	post.Published = publish == "true"
	post.UpdatedAt = time.Now()

	if err := a.db.Save(&post).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Error updating post",
		})
		return
	}

	cache.Invalidate("/", "/blog", "/posts/"+post.Slug)
	c.Redirect(http.StatusFound, "/admin/posts?status=updated")
}

func (a *AdminModule) moderation(c *gin.Context) {
	comments, reviews, err := a.workflow.PendingQueue()
	if err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Error loading moderation queue",
		})
		return
	}

	c.HTML(http.StatusOK, "admin_moderation.html", gin.H{
		"comments": comments,
		"reviews":  reviews,
		"status":   c.Query("status"),
	})
}

func (a *AdminModule) setCommentStatus(c *gin.Context) {
	id, _ := strconv.Atoi(c.PostForm("id"))
	status := c.PostForm("status")

	outcome, err := a.workflow.SetCommentStatus(a.currentActor(c), uint(id), status)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Error updating comment",
		})
		return
	}

	switch outcome {
	case content.OutcomeForbidden:
		c.Redirect(http.StatusFound, "/")
	case content.OutcomeInvalid:
		c.Redirect(http.StatusFound, "/admin/moderation?status=invalid")
	default:
		a.invalidateForComment(uint(id))
		c.Redirect(http.StatusFound, "/admin/moderation?status=updated")
	}
}

func (a *AdminModule) setReviewStatus(c *gin.Context) {
	id, _ := strconv.Atoi(c.PostForm("id"))
	status := c.PostForm("status")

	outcome, err := a.workflow.SetReviewStatus(a.currentActor(c), uint(id), status)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Error updating review",
		})
		return
	}

	switch outcome {
	case content.OutcomeForbidden:
		c.Redirect(http.StatusFound, "/")
	case content.OutcomeInvalid:
		c.Redirect(http.StatusFound, "/admin/moderation?status=invalid")
	default:
		a.invalidateForReview(uint(id))
		c.Redirect(http.StatusFound, "/admin/moderation?status=updated")
	}
}

// invalidateForComment drops the cached pages a comment decision can
// change.
func (a *AdminModule) invalidateForComment(id uint) {
	var comment models.Comment
	if err := a.db.First(&comment, id).Error; err != nil {
		cache.Invalidate("/", "/blog")
		return
	}

	var post models.Post
	if err := a.db.First(&post, comment.PostID).Error; err != nil {
		cache.Invalidate("/", "/blog")
		return
	}

	cache.Invalidate("/", "/blog", "/posts/"+post.Slug)
}

func (a *AdminModule) invalidateForReview(id uint) {
	var review models.Review
	if err := a.db.First(&review, id).Error; err != nil {
		cache.Invalidate("/", "/blog")
		return
	}

	var post models.Post
	if err := a.db.First(&post, review.PostID).Error; err != nil {
		cache.Invalidate("/", "/blog")
		return
	}

	cache.Invalidate("/", "/blog", "/posts/"+post.Slug)
}

func (a *AdminModule) settings(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_settings.html", gin.H{
		"settings": common.LoadSiteSettings(a.db),
		"status":   c.Query("status"),
	})
}

// Banner field bounds, in runes.
const (
	bannerTextMin = 4
	bannerTextMax = 180
	ctaLabelMin   = 2
	ctaLabelMax   = 40
)

func validBannerMode(mode string) bool {
	return mode == models.BannerModeCover ||
		mode == models.BannerModeContain ||
		mode == models.BannerModeFill
}

func (a *AdminModule) updateSettings(c *gin.Context) {
	bannerText := strings.TrimSpace(c.PostForm("bannerText"))
	bannerCtaLabel := strings.TrimSpace(c.PostForm("bannerCtaLabel"))
	bannerImageURL := strings.TrimSpace(c.PostForm("bannerImageUrl"))
	bannerImageMode := c.PostForm("bannerImageMode")
	logoImageURL := strings.TrimSpace(c.PostForm("logoImageUrl"))
	buyMeACoffeeURL := strings.TrimSpace(c.PostForm("buyMeACoffeeUrl"))
	bannerEnabled := c.PostForm("bannerEnabled") == "on"

	textLen := utf8.RuneCountInString(bannerText)
	ctaLen := utf8.RuneCountInString(bannerCtaLabel)

	if textLen < bannerTextMin || textLen > bannerTextMax ||
		ctaLen < ctaLabelMin || ctaLen > ctaLabelMax ||
		!validBannerMode(bannerImageMode) {
		c.Redirect(http.StatusFound, "/admin/settings?status=invalid")
		return
	}

	if bannerImageURL != "" && !isPathOrURL(bannerImageURL) {
		c.Redirect(http.StatusFound, "/admin/settings?status=invalid")
		return
	}
	if logoImageURL != "" && !isPathOrURL(logoImageURL) {
		c.Redirect(http.StatusFound, "/admin/settings?status=invalid")
		return
	}
	if buyMeACoffeeURL != "" && !isAbsoluteURL(buyMeACoffeeURL) {
		c.Redirect(http.StatusFound, "/admin/settings?status=invalid")
		return
	}

	if file, err := c.FormFile("bannerImageFile"); err == nil && file.Size > 0 {
		saved, err := uploads.SaveImage(file, "branding")
		if err != nil {
			c.Redirect(http.StatusFound, "/admin/settings?status=invalid")
			return
		}
		bannerImageURL = saved
	}

	if file, err := c.FormFile("logoImageFile"); err == nil && file.Size > 0 {
		saved, err := uploads.SaveImage(file, "branding")
		if err != nil {
			c.Redirect(http.StatusFound, "/admin/settings?status=invalid")
			return
		}
		logoImageURL = saved
	}

	settings := models.SiteSetting{
		ID:              models.SiteSettingID,
		BannerEnabled:   bannerEnabled,
		BannerText:      bannerText,
		BannerCtaLabel:  bannerCtaLabel,
		BannerImageURL:  bannerImageURL,
		BannerImageMode: bannerImageMode,
		LogoImageURL:    logoImageURL,
		BuyMeACoffeeURL: buyMeACoffeeURL,
		UpdatedAt:       time.Now(),
	}

	if err := a.db.Save(&settings).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Error saving settings",
		})
		return
	}

	cache.Invalidate("/", "/blog", "/subscribe")
	c.Redirect(http.StatusFound, "/admin/settings?status=saved")
}

func isAbsoluteURL(value string) bool {
	parsed, err := url.Parse(value)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}
