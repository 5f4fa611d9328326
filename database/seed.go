package database

import (
	"log"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"helpcenter/common"
	"helpcenter/content"
	"helpcenter/models"
)

const (
	adminEmail    = "admin@aihelpcenter.dev"
	adminPassword = "admin123"
	demoReaders   = 6
)

// Seed fills an empty database with an admin account, site settings and
// demo content. Running it again on a populated database is a no-op.
func Seed(db *gorm.DB) error {
	if err := seedAdmin(db); err != nil {
		return err
	}
	if err := seedSettings(db); err != nil {
		return err
	}

	var postCount int64
	db.Model(&models.Post{}).Count(&postCount)
	if postCount > 0 {
		log.Println("Database already seeded, skipping demo content")
		return nil
	}

	posts, err := seedPosts(db)
	if err != nil {
		return err
	}

	readers, err := seedReaders(db)
	if err != nil {
		return err
	}

	if err := seedFeedback(db, posts, readers); err != nil {
		return err
	}

	log.Println("Database seeded")
	return nil
}

func seedAdmin(db *gorm.DB) error {
	var admin models.User
	err := db.Where("email = ?", adminEmail).First(&admin).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), 14)
	if err != nil {
		return err
	}

	admin = models.User{
		Name:         "Site Admin",
		Email:        adminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	subscription := models.Subscription{
		UserID:    admin.ID,
		Tier:      content.FreeTier,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(&subscription).Error; err != nil {
		return err
	}

	log.Println("Seeded admin user:", adminEmail)
	return nil
}

func seedSettings(db *gorm.DB) error {
	var settings models.SiteSetting
	err := db.First(&settings, "id = ?", models.SiteSettingID).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	defaults := common.DefaultSiteSettings()
	return db.Create(&defaults).Error
}

func seedPosts(db *gorm.DB) ([]models.Post, error) {
	titles := []string{
		"How To Build Reliable AI Workflows",
		"Prompt Engineering Patterns That Actually Scale",
	}

	posts := make([]models.Post, 0, len(titles))
	for _, title := range titles {
		paragraphs := make([]string, 4)
		for i := range paragraphs {
			paragraphs[i] = gofakeit.Paragraph(1, 4, 18, " ")
		}

		post := models.Post{
			Title:     title,
			Slug:      content.UniqueSlug(db, title),
			Excerpt:   gofakeit.Sentence(14),
			Content:   "## " + title + "\n\n" + strings.Join(paragraphs, "\n\n"),
			Published: true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, nil
}

func seedReaders(db *gorm.DB) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("reader123"), 14)
	if err != nil {
		return nil, err
	}

	readers := make([]models.User, 0, demoReaders)
	for i := 0; i < demoReaders; i++ {
		reader := models.User{
			Name:         gofakeit.Name(),
			Email:        gofakeit.Email(),
			PasswordHash: string(hash),
			Role:         models.RoleUser,
			CreatedAt:    time.Now(),
		}
		if err := db.Create(&reader).Error; err != nil {
			return nil, err
		}

		// Half the demo readers hold an active free subscription so
		// seeded reviews pass the subscription gate.
		subscription := models.Subscription{
			UserID:    reader.ID,
			Tier:      content.FreeTier,
			Active:    i%2 == 0,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := db.Create(&subscription).Error; err != nil {
			return nil, err
		}

		readers = append(readers, reader)
	}

	return readers, nil
}

func seedFeedback(db *gorm.DB, posts []models.Post, readers []models.User) error {
	statuses := []string{models.StatusApproved, models.StatusApproved, models.StatusPending}

	for _, post := range posts {
		for i, reader := range readers {
			comment := models.Comment{
				PostID:    post.ID,
				UserID:    reader.ID,
				Body:      gofakeit.Sentence(gofakeit.Number(8, 20)),
				Status:    statuses[i%len(statuses)],
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := db.Create(&comment).Error; err != nil {
				return err
			}

			// One review per reader per post at most.
			if i%2 != 0 {
				continue
			}

			review := models.Review{
				PostID:    post.ID,
				UserID:    reader.ID,
				Rating:    gofakeit.Number(3, 5),
				Body:      gofakeit.Sentence(gofakeit.Number(10, 24)),
				Status:    statuses[i%len(statuses)],
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := db.Create(&review).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
