package blog

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"helpcenter/analytics"
	"helpcenter/auth"
	"helpcenter/cache"
	"helpcenter/common"
	"helpcenter/content"
	"helpcenter/models"
)

type BlogModule struct {
	db        *gorm.DB
	workflow  *content.Workflow
	analytics *analytics.AnalyticsModule
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

func NewBlogModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule) *BlogModule {
	return &BlogModule{
		db:        db,
		workflow:  content.NewWorkflow(db),
		analytics: analyticsModule,
	}
}

func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", b.home)
	router.GET("/blog", b.list)
	router.GET("/posts/:slug", b.post)
	router.POST("/posts/:slug/comments", b.submitComment)
	router.POST("/posts/:slug/reviews", b.submitReview)
	router.GET("/subscribe", b.subscribePage)
	router.POST("/subscribe/activate", b.activateSubscription)
	router.POST("/subscribe/cancel", b.cancelSubscription)
	router.GET("/sitemap.xml", b.sitemap)
}

func (b *BlogModule) home(c *gin.Context) {
	articles, err := b.workflow.PublishedArticles()
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Error loading articles",
		})
		return
	}

	newest, featured, mostReviewed := content.Highlights(articles)
	settings := common.LoadSiteSettings(b.db)

	b.analytics.TrackVisit(c, nil)

	c.HTML(http.StatusOK, "home.html", gin.H{
		"settings":     settings,
		"newest":       newest,
		"featured":     featured,
		"mostReviewed": mostReviewed,
	})
}

func (b *BlogModule) list(c *gin.Context) {
	articles, err := b.workflow.PublishedArticles()
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Error loading articles",
		})
		return
	}

	q := c.Query("q")
	sortOrder := c.DefaultQuery("sort", content.SortNewest)
	minRating, _ := strconv.ParseFloat(c.DefaultQuery("minRating", "0"), 64)
	withImages := c.Query("withImages") == "1"

	filtered := content.FilterArticles(articles, content.ListFilter{
		Query:      q,
		MinRating:  minRating,
		WithImages: withImages,
	})
	sorted := content.SortArticles(filtered, sortOrder)

	c.HTML(http.StatusOK, "blog_index.html", gin.H{
		"articles":   sorted,
		"q":          q,
		"sort":       sortOrder,
		"minRating":  minRating,
		"withImages": withImages,
	})
}

// approvedComment / approvedReview carry the submitter name for the
// public post page.
type approvedComment struct {
	ID        uint
	Body      string
	UserName  string
	CreatedAt time.Time
}

type approvedReview struct {
	ID        uint
	Rating    int
	Body      string
	UserName  string
	CreatedAt time.Time
}

func (b *BlogModule) post(c *gin.Context) {
	slug := c.Param("slug")

	var post models.Post
	if err := b.db.Where("slug = ? AND published = ?", slug, true).First(&post).Error; err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"error": "Article not found",
		})
		return
	}

	var comments []approvedComment
	err := b.db.Table("comments").
		Select("comments.id, comments.body, comments.created_at, users.name AS user_name").
		Joins("INNER JOIN users ON users.id = comments.user_id").
		Where("comments.post_id = ? AND comments.status = ?", post.ID, models.StatusApproved).
		Order("comments.created_at DESC").
		Scan(&comments).Error
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Error loading comments",
		})
		return
	}

	var reviews []approvedReview
	err = b.db.Table("reviews").
		Select("reviews.id, reviews.rating, reviews.body, reviews.created_at, users.name AS user_name").
		Joins("INNER JOIN users ON users.id = reviews.user_id").
		Where("reviews.post_id = ? AND reviews.status = ?", post.ID, models.StatusApproved).
		Order("reviews.created_at DESC").
		Scan(&reviews).Error
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Error loading reviews",
		})
		return
	}

	ratings := make([]int, len(reviews))
	for i, review := range reviews {
		ratings[i] = review.Rating
	}

	actor := auth.CurrentActor(c)
	subscribed := false
	if !actor.Anonymous() {
		subscribed, _ = b.workflow.HasActiveSubscription(actor.ID)
	}

	postID := int(post.ID)
	b.analytics.TrackVisit(c, &postID)

	c.HTML(http.StatusOK, "post.html", gin.H{
		"post":          post,
		"contentHTML":   template.HTML(renderMarkdown(post.Content)),
		"gallery":       content.ParseImageURLs(post.GalleryImageURLs),
		"comments":      comments,
		"reviews":       reviews,
		"averageRating": content.Average(ratings),
		"loggedIn":      !actor.Anonymous(),
		"subscribed":    subscribed,
		"commentStatus": c.Query("comment"),
		"reviewStatus":  c.Query("review"),
		"settings":      common.LoadSiteSettings(b.db),
	})
}

func (b *BlogModule) submitComment(c *gin.Context) {
	slug := c.Param("slug")
	postID, _ := strconv.Atoi(c.PostForm("postId"))

	actor := auth.CurrentActor(c)
	outcome, err := b.workflow.SubmitComment(actor, content.CommentInput{
		PostID: uint(postID),
		Body:   c.PostForm("body"),
	})
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Error saving comment",
		})
		return
	}

	switch outcome {
	case content.OutcomeInvalid:
		c.Redirect(http.StatusFound, "/posts/"+slug+"?comment=invalid")
	case content.OutcomeLoginRequired:
		c.Redirect(http.StatusFound, "/login?callbackUrl="+url.QueryEscape("/posts/"+slug))
	default:
		cache.Invalidate("/posts/" + slug)
		c.Redirect(http.StatusFound, "/posts/"+slug+"?comment=submitted")
	}
}

func (b *BlogModule) submitReview(c *gin.Context) {
	slug := c.Param("slug")
	postID, _ := strconv.Atoi(c.PostForm("postId"))
	rating, _ := strconv.Atoi(c.PostForm("rating"))

	actor := auth.CurrentActor(c)
	outcome, err := b.workflow.SubmitReview(actor, content.ReviewInput{
		PostID: uint(postID),
		Rating: rating,
		Body:   c.PostForm("body"),
	})
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Error saving review",
		})
		return
	}

	switch outcome {
	case content.OutcomeInvalid:
		c.Redirect(http.StatusFound, "/posts/"+slug+"?review=invalid")
	case content.OutcomeLoginRequired:
		c.Redirect(http.StatusFound, "/login?callbackUrl="+url.QueryEscape("/posts/"+slug))
	case content.OutcomeSubscriptionRequired:
		c.Redirect(http.StatusFound, "/subscribe?next="+url.QueryEscape("/posts/"+slug))
	default:
		cache.Invalidate("/posts/"+slug, "/", "/blog")
		c.Redirect(http.StatusFound, "/posts/"+slug+"?review=submitted")
	}
}

func (b *BlogModule) subscribePage(c *gin.Context) {
	actor := auth.CurrentActor(c)
	settings := common.LoadSiteSettings(b.db)

	if actor.Anonymous() {
		c.HTML(http.StatusOK, "subscribe.html", gin.H{
			"loggedIn": false,
			"next":     c.Query("next"),
			"settings": settings,
		})
		return
	}

	var subscription models.Subscription
	active := false
	if err := b.db.Where("user_id = ?", actor.ID).First(&subscription).Error; err == nil {
		active = subscription.Active
	}

	c.HTML(http.StatusOK, "subscribe.html", gin.H{
		"loggedIn":     true,
		"active":       active,
		"subscription": subscription,
		"status":       c.Query("status"),
		"next":         c.Query("next"),
		"settings":     settings,
	})
}

func (b *BlogModule) activateSubscription(c *gin.Context) {
	actor := auth.CurrentActor(c)

	outcome, err := b.workflow.Activate(actor)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Error activating membership",
		})
		return
	}

	if outcome == content.OutcomeLoginRequired {
		c.Redirect(http.StatusFound, "/login?callbackUrl="+url.QueryEscape("/subscribe"))
		return
	}

	cache.Invalidate("/", "/subscribe")
	c.Redirect(http.StatusFound, "/subscribe?status=active")
}

func (b *BlogModule) cancelSubscription(c *gin.Context) {
	actor := auth.CurrentActor(c)

	outcome, err := b.workflow.Deactivate(actor)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Error pausing membership",
		})
		return
	}

	if outcome == content.OutcomeLoginRequired {
		c.Redirect(http.StatusFound, "/login?callbackUrl="+url.QueryEscape("/subscribe"))
		return
	}

	cache.Invalidate("/subscribe")
	c.Redirect(http.StatusFound, "/subscribe?status=paused")
}

func renderMarkdown(value string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(value), &buf); err != nil {
		// On conversion errors, fall back to the raw content.
		return value
	}
	return buf.String()
}
