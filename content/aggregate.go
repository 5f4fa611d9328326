package content

import (
	"sort"
	"strings"
	"time"

	"helpcenter/models"
)

// Article is a published post enriched with its approved-only metrics,
// as shown on the home and blog listing pages.
type Article struct {
	ID               uint
	Title            string
	Slug             string
	Excerpt          string
	Content          string
	CoverImageURL    string
	GalleryImageURLs string
	CreatedAt        time.Time
	CommentsCount    int
	ReviewsCount     int
	AverageRating    *float64 // nil when the post has no approved reviews
}

// Average returns the arithmetic mean of ratings, or nil for an empty
// slice. Never treats a missing rating as zero.
func Average(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return &avg
}

// ParseImageURLs splits a newline-delimited gallery field into trimmed,
// non-empty URLs.
func ParseImageURLs(value string) []string {
	if value == "" {
		return nil
	}

	var urls []string
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

// PublishedArticles loads every published post with its approved
// comment count, approved review count, and average rating.
func (w *Workflow) PublishedArticles() ([]Article, error) {
	var posts []models.Post
	err := w.db.Where("published = ?", true).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(posts))
	for _, post := range posts {
		var commentsCount int64
		err := w.db.Model(&models.Comment{}).
			Where("post_id = ? AND status = ?", post.ID, models.StatusApproved).
			Count(&commentsCount).Error
		if err != nil {
			return nil, err
		}

		var ratings []int
		err = w.db.Model(&models.Review{}).
			Where("post_id = ? AND status = ?", post.ID, models.StatusApproved).
			Pluck("rating", &ratings).Error
		if err != nil {
			return nil, err
		}

		articles = append(articles, Article{
			ID:               post.ID,
			Title:            post.Title,
			Slug:             post.Slug,
			Excerpt:          post.Excerpt,
			Content:          post.Content,
			CoverImageURL:    post.CoverImageURL,
			GalleryImageURLs: post.GalleryImageURLs,
			CreatedAt:        post.CreatedAt,
			CommentsCount:    int(commentsCount),
			ReviewsCount:     len(ratings),
			AverageRating:    Average(ratings),
		})
	}

	return articles, nil
}

// ListFilter holds the blog listing query parameters.
type ListFilter struct {
	Query      string
	MinRating  float64
	WithImages bool
}

// FilterArticles applies the search, minimum-rating, and has-images
// filters. A nil average never passes a positive rating threshold.
func FilterArticles(articles []Article, f ListFilter) []Article {
	needle := strings.ToLower(strings.TrimSpace(f.Query))

	var filtered []Article
	for _, a := range articles {
		if needle != "" {
			haystack := strings.ToLower(a.Title + " " + a.Excerpt + " " + a.Content)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}

		if f.MinRating > 0 {
			if a.AverageRating == nil || *a.AverageRating < f.MinRating {
				continue
			}
		}

		if f.WithImages {
			if a.CoverImageURL == "" && len(ParseImageURLs(a.GalleryImageURLs)) == 0 {
				continue
			}
		}

		filtered = append(filtered, a)
	}

	return filtered
}

// Sort orders accepted by the blog listing.
const (
	SortNewest       = "newest"
	SortOldest       = "oldest"
	SortTopRated     = "top-rated"
	SortMostReviewed = "most-reviewed"
)

func ratingOrNegative(a Article) float64 {
	if a.AverageRating == nil {
		return -1
	}
	return *a.AverageRating
}

// SortArticles returns a new slice sorted by the given order; unknown
// orders fall back to newest.
func SortArticles(articles []Article, order string) []Article {
	sorted := make([]Article, len(articles))
	copy(sorted, articles)

	switch order {
	case SortOldest:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
	case SortTopRated:
		sort.SliceStable(sorted, func(i, j int) bool {
			ri, rj := ratingOrNegative(sorted[i]), ratingOrNegative(sorted[j])
			if ri != rj {
				return ri > rj
			}
			return sorted[i].ReviewsCount > sorted[j].ReviewsCount
		})
	case SortMostReviewed:
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].ReviewsCount != sorted[j].ReviewsCount {
				return sorted[i].ReviewsCount > sorted[j].ReviewsCount
			}
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
	}

	return sorted
}

func sortFeatured(articles []Article) []Article {
	sorted := make([]Article, len(articles))
	copy(sorted, articles)

	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := ratingOrNegative(sorted[i]), ratingOrNegative(sorted[j])
		if ri != rj {
			return ri > rj
		}
		if sorted[i].ReviewsCount != sorted[j].ReviewsCount {
			return sorted[i].ReviewsCount > sorted[j].ReviewsCount
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	return sorted
}

// HighlightSize is the number of posts in each home-page bucket.
const HighlightSize = 3

// PickDistinct walks the sorted list claiming ids not already used by
// an earlier bucket, then pads from fallback. Fallback entries are
// deduped only against this bucket's own selection, so cross-bucket
// duplicates can appear as a last resort.
func PickDistinct(sorted []Article, used map[uint]bool, count int, fallback []Article) []Article {
	selected := make([]Article, 0, count)

	for _, a := range sorted {
		if used[a.ID] {
			continue
		}
		selected = append(selected, a)
		used[a.ID] = true
		if len(selected) == count {
			return selected
		}
	}

	for _, a := range fallback {
		duplicate := false
		for _, s := range selected {
			if s.ID == a.ID {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		selected = append(selected, a)
		if len(selected) == count {
			return selected
		}
	}

	return selected
}

// Highlights fills the three home-page buckets: newest, featured by
// rating, and most reviewed.
func Highlights(articles []Article) (newest, featured, mostReviewed []Article) {
	byNewest := SortArticles(articles, SortNewest)
	byFeatured := sortFeatured(articles)
	byMostReviewed := SortArticles(articles, SortMostReviewed)

	used := make(map[uint]bool)

	newest = PickDistinct(byNewest, used, HighlightSize, byNewest)
	featured = PickDistinct(byFeatured, used, HighlightSize, byNewest)
	mostReviewed = PickDistinct(byMostReviewed, used, HighlightSize, byNewest)
	return newest, featured, mostReviewed
}
