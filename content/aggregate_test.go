package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"helpcenter/models"
)

func TestAverage_EmptyIsNil(t *testing.T) {
	assert.Nil(t, Average(nil))
	assert.Nil(t, Average([]int{}))
}

func TestAverage(t *testing.T) {
	avg := Average([]int{5, 4, 3})
	assert.NotNil(t, avg)
	assert.InDelta(t, 4.0, *avg, 0.0001)
}

func TestParseImageURLs(t *testing.T) {
	urls := ParseImageURLs("/uploads/a.jpg\n\n  /uploads/b.jpg  \n")
	assert.Equal(t, []string{"/uploads/a.jpg", "/uploads/b.jpg"}, urls)

	assert.Nil(t, ParseImageURLs(""))
}

func TestPublishedArticles_ApprovedOnly(t *testing.T) {
	db := setupTestDB()
	workflow := NewWorkflow(db)

	user := createTestUser(db, "reader@example.com")
	post := createTestPost(db, "Counted Post", true)
	createTestPost(db, "Draft Post", false)

	db.Create(&models.Comment{PostID: post.ID, UserID: user.ID,
		Body: "Approved comment here.", Status: models.StatusApproved})
	db.Create(&models.Comment{PostID: post.ID, UserID: user.ID,
		Body: "Pending comment here.", Status: models.StatusPending})
	db.Create(&models.Review{PostID: post.ID, UserID: user.ID,
		Rating: 4, Body: "Approved review body.", Status: models.StatusApproved})

	articles, err := workflow.PublishedArticles()

	assert.NoError(t, err)
	assert.Equal(t, 1, len(articles))
	assert.Equal(t, "Counted Post", articles[0].Title)
	assert.Equal(t, 1, articles[0].CommentsCount)
	assert.Equal(t, 1, articles[0].ReviewsCount)
	assert.NotNil(t, articles[0].AverageRating)
	assert.InDelta(t, 4.0, *articles[0].AverageRating, 0.0001)
}

func TestPublishedArticles_NoApprovedReviewsHasNilAverage(t *testing.T) {
	db := setupTestDB()
	workflow := NewWorkflow(db)

	user := createTestUser(db, "reader@example.com")
	post := createTestPost(db, "Unrated Post", true)

	db.Create(&models.Review{PostID: post.ID, UserID: user.ID,
		Rating: 5, Body: "Still pending review body.", Status: models.StatusPending})

	articles, err := workflow.PublishedArticles()

	assert.NoError(t, err)
	assert.Equal(t, 1, len(articles))
	assert.Equal(t, 0, articles[0].ReviewsCount)
	assert.Nil(t, articles[0].AverageRating)
}

func rated(id uint, rating float64, reviews int, createdAt time.Time) Article {
	return Article{
		ID:            id,
		Title:         "Post",
		CreatedAt:     createdAt,
		ReviewsCount:  reviews,
		AverageRating: &rating,
	}
}

func unrated(id uint, createdAt time.Time) Article {
	return Article{ID: id, Title: "Post", CreatedAt: createdAt}
}

func TestFilterArticles_Query(t *testing.T) {
	articles := []Article{
		{ID: 1, Title: "Prompt Engineering", Excerpt: "patterns", Content: "body"},
		{ID: 2, Title: "Something Else", Excerpt: "unrelated", Content: "reliable workflows"},
		{ID: 3, Title: "Third", Excerpt: "nothing", Content: "nothing"},
	}

	filtered := FilterArticles(articles, ListFilter{Query: "WORKFLOWS"})

	assert.Equal(t, 1, len(filtered))
	assert.Equal(t, uint(2), filtered[0].ID)
}

func TestFilterArticles_MinRatingExcludesUnrated(t *testing.T) {
	now := time.Now()
	articles := []Article{
		rated(1, 4.5, 2, now),
		rated(2, 3.0, 1, now),
		unrated(3, now),
	}

	filtered := FilterArticles(articles, ListFilter{MinRating: 4})

	assert.Equal(t, 1, len(filtered))
	assert.Equal(t, uint(1), filtered[0].ID)
}

func TestFilterArticles_WithImages(t *testing.T) {
	articles := []Article{
		{ID: 1, CoverImageURL: "/uploads/cover.jpg"},
		{ID: 2, GalleryImageURLs: "/uploads/a.jpg\n/uploads/b.jpg"},
		{ID: 3},
	}

	filtered := FilterArticles(articles, ListFilter{WithImages: true})

	assert.Equal(t, 2, len(filtered))
	assert.Equal(t, uint(1), filtered[0].ID)
	assert.Equal(t, uint(2), filtered[1].ID)
}

func TestSortArticles_TopRated(t *testing.T) {
	now := time.Now()
	articles := []Article{
		unrated(1, now),
		rated(2, 3.5, 4, now),
		rated(3, 5.0, 1, now),
	}

	sorted := SortArticles(articles, SortTopRated)

	assert.Equal(t, uint(3), sorted[0].ID)
	assert.Equal(t, uint(2), sorted[1].ID)
	assert.Equal(t, uint(1), sorted[2].ID)

	// Input order untouched.
	assert.Equal(t, uint(1), articles[0].ID)
}

func TestSortArticles_MostReviewedTiesBreakByNewest(t *testing.T) {
	now := time.Now()
	articles := []Article{
		rated(1, 4.0, 2, now.Add(-2*time.Hour)),
		rated(2, 3.0, 2, now),
		rated(3, 5.0, 5, now.Add(-time.Hour)),
	}

	sorted := SortArticles(articles, SortMostReviewed)

	assert.Equal(t, uint(3), sorted[0].ID)
	assert.Equal(t, uint(2), sorted[1].ID)
	assert.Equal(t, uint(1), sorted[2].ID)
}

func TestSortArticles_UnknownOrderFallsBackToNewest(t *testing.T) {
	now := time.Now()
	articles := []Article{
		unrated(1, now.Add(-time.Hour)),
		unrated(2, now),
	}

	sorted := SortArticles(articles, "bogus")

	assert.Equal(t, uint(2), sorted[0].ID)
	assert.Equal(t, uint(1), sorted[1].ID)
}

func TestHighlights_NoDuplicatesAcrossBuckets(t *testing.T) {
	now := time.Now()
	articles := make([]Article, 0, 9)
	for i := 1; i <= 9; i++ {
		articles = append(articles,
			rated(uint(i), float64(i%5)+0.5, i, now.Add(-time.Duration(i)*time.Hour)))
	}

	newest, featured, mostReviewed := Highlights(articles)

	assert.Equal(t, HighlightSize, len(newest))
	assert.Equal(t, HighlightSize, len(featured))
	assert.Equal(t, HighlightSize, len(mostReviewed))

	seen := make(map[uint]bool)
	for _, bucket := range [][]Article{newest, featured, mostReviewed} {
		for _, a := range bucket {
			assert.False(t, seen[a.ID], "article %d appears in two buckets", a.ID)
			seen[a.ID] = true
		}
	}
}

func TestHighlights_SmallCatalogReusesPosts(t *testing.T) {
	now := time.Now()
	articles := []Article{
		rated(1, 4.0, 2, now),
		rated(2, 3.0, 1, now.Add(-time.Hour)),
	}

	newest, featured, mostReviewed := Highlights(articles)

	// Two posts cannot fill three distinct buckets of three; the
	// fallback refills buckets, never duplicating inside one bucket.
	for _, bucket := range [][]Article{newest, featured, mostReviewed} {
		inBucket := make(map[uint]bool)
		for _, a := range bucket {
			assert.False(t, inBucket[a.ID])
			inBucket[a.ID] = true
		}
		assert.LessOrEqual(t, len(bucket), 2)
	}

	assert.Equal(t, 2, len(newest))
}
