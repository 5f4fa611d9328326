package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"helpcenter/admin"
	"helpcenter/analytics"
	"helpcenter/auth"
	"helpcenter/blog"
	"helpcenter/cache"
	"helpcenter/common"
	"helpcenter/database"
	"helpcenter/email"
)

const pageCacheMaxAge = 10 * time.Minute

func main() {
	seed := flag.Bool("seed", false, "seed the database with demo content and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if *seed {
		if err := database.Seed(db); err != nil {
			log.Fatal("Failed to seed database:", err)
		}
		return
	}

	analyticsDb := common.ConnectAnalyticsDb()
	analyticsModule := analytics.NewAnalyticsModule(analyticsDb)

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("helpcenter-session", store))
	router.Use(cache.Middleware(pageCacheMaxAge))

	router.SetFuncMap(map[string]interface{}{
		"now": func() time.Time {
			return time.Now()
		},
		"domain": func() string {
			d := os.Getenv("DOMAIN")
			if d == "" {
				return "http://localhost:8080"
			}
			return d
		},
	})

	router.LoadHTMLGlob("*/views/*.html")

	router.Static("/public", "./public")

	mail := email.NewEmailService()

	authModule := auth.NewAuthModule(db, mail)
	authModule.RegisterRoutes(router)

	blogModule := blog.NewBlogModule(db, analyticsModule)
	blogModule.RegisterRoutes(router)

	adminModule := admin.NewAdminModule(db, analyticsModule)
	adminModule.RegisterRoutes(router, authModule)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 30m", func() {
		cache.ClearExpired(pageCacheMaxAge)
	}); err != nil {
		log.Fatal("Failed to schedule cache sweep:", err)
	}
	scheduler.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
