package common

import (
	"gorm.io/gorm"

	"helpcenter/models"
)

// DefaultSiteSettings is what public pages render before an admin has
// saved the singleton settings row.
func DefaultSiteSettings() models.SiteSetting {
	return models.SiteSetting{
		ID:              models.SiteSettingID,
		BannerEnabled:   true,
		BannerText:      "Welcome to AI Help Center",
		BannerCtaLabel:  "Buy me a coffee",
		BannerImageMode: models.BannerModeCover,
	}
}

// LoadSiteSettings returns the singleton settings row, falling back to
// defaults when the row does not exist or the read fails.
func LoadSiteSettings(db *gorm.DB) models.SiteSetting {
	var settings models.SiteSetting
	if err := db.Where("id = ?", models.SiteSettingID).First(&settings).Error; err != nil {
		return DefaultSiteSettings()
	}
	return settings
}
