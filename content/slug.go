package content

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"helpcenter/models"
)

// Slugify converts a post title into a URL slug: lowercase, punctuation
// stripped, whitespace runs collapsed to single hyphens.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))

	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' || r == '\t' || r == '\n' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}

// UniqueSlug resolves a slug collision by appending a 6-digit fragment
// of the current time to the base slug.
func UniqueSlug(db *gorm.DB, title string) string {
	slug := Slugify(title)

	var existing models.Post
	if err := db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		slug = fmt.Sprintf("%s-%06d", slug, time.Now().UnixMilli()%1000000)
	}

	return slug
}
