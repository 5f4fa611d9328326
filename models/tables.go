package models

import "time"

// Moderation statuses for comments and reviews.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// User roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// SiteSettingID is the fixed id of the singleton settings row.
const SiteSettingID = "main"

// Banner image display modes.
const (
	BannerModeCover   = "COVER"
	BannerModeContain = "CONTAIN"
	BannerModeFill    = "FILL"
)

type User struct {
	ID           int       `gorm:"primary_key;autoIncrement" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	Role         string    `gorm:"not null;default:USER" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Post struct {
	ID               uint      `gorm:"primary_key"`
	Title            string    `gorm:"not null" json:"title"`
	Slug             string    `gorm:"unique;not null;index" json:"slug"`
	Excerpt          string    `gorm:"type:text" json:"excerpt"`
	Content          string    `gorm:"type:text" json:"content"`
	CoverImageURL    string    `json:"cover_image_url"`
	GalleryImageURLs string    `gorm:"type:text" json:"gallery_image_urls"` // newline-delimited list
	Published        bool      `gorm:"default:false;index" json:"published"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Comment struct {
	ID        uint      `gorm:"primary_key"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Status    string    `gorm:"not null;default:PENDING;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Review struct {
	ID        uint      `gorm:"primary_key"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_reviews_post_user" json:"post_id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_reviews_post_user" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"` // 1..5
	Body      string    `gorm:"type:text;not null" json:"body"`
	Status    string    `gorm:"not null;default:PENDING;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Subscription struct {
	ID        uint      `gorm:"primary_key"`
	UserID    int       `gorm:"not null;uniqueIndex" json:"user_id"`
	Tier      string    `gorm:"not null;default:'Free Member'" json:"tier"`
	Active    bool      `gorm:"default:false" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SiteSetting struct {
	ID              string    `gorm:"primary_key" json:"id"` // always "main"
	BannerEnabled   bool      `gorm:"default:true" json:"banner_enabled"`
	BannerText      string    `json:"banner_text"`
	BannerCtaLabel  string    `json:"banner_cta_label"`
	BannerImageURL  string    `json:"banner_image_url"`
	BannerImageMode string    `gorm:"not null;default:COVER" json:"banner_image_mode"`
	LogoImageURL    string    `json:"logo_image_url"`
	BuyMeACoffeeURL string    `json:"buy_me_a_coffee_url"`
	UpdatedAt       time.Time `json:"updated_at"`
}
