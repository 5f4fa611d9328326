package auth

import (
	"log"
	"net/http"
	"net/mail"
	"net/url"
	"unicode/utf8"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"helpcenter/content"
	emailpkg "helpcenter/email"
	"helpcenter/models"
)

type AuthModule struct {
	db   *gorm.DB
	mail *emailpkg.EmailService
}

func NewAuthModule(db *gorm.DB, mailService *emailpkg.EmailService) *AuthModule {
	return &AuthModule{
		db:   db,
		mail: mailService,
	}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", a.loginPage)
	router.POST("/login", a.loginPost)
	router.GET("/logout", a.logout)
	router.GET("/signup", a.signupPage)
	router.POST("/api/register", a.registerAPI)
}

// RequireAuth redirects anonymous requests to the login page, keeping
// the original path so login can return the user where they were.
func (a *AuthModule) RequireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")

	if userID == nil {
		c.Redirect(http.StatusFound, "/login?callbackUrl="+url.QueryEscape(c.Request.URL.Path))
		c.Abort()
		return
	}

	c.Set("user_id", userID)
	if role := session.Get("user_role"); role != nil {
		c.Set("user_role", role)
	}
	c.Next()
}

// RequireAdmin sends non-admins back to the home page. Must run after
// RequireAuth.
func (a *AuthModule) RequireAdmin(c *gin.Context) {
	role, _ := c.Get("user_role")
	if role != models.RoleAdmin {
		c.Redirect(http.StatusFound, "/")
		c.Abort()
		return
	}
	c.Next()
}

// CurrentActor reads the session into a workflow actor. Anonymous
// requests yield the zero actor; public handlers pass it through and
// let the workflow decide.
func CurrentActor(c *gin.Context) content.Actor {
	session := sessions.Default(c)

	userID, ok := session.Get("user_id").(int)
	if !ok {
		return content.Actor{}
	}

	role, _ := session.Get("user_role").(string)
	return content.Actor{ID: userID, Role: role}
}

func (a *AuthModule) loginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "login.html", gin.H{
		"callbackUrl": c.Query("callbackUrl"),
	})
}

func (a *AuthModule) loginPost(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	callbackUrl := c.PostForm("callbackUrl")

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"error":       "Incorrect email or password",
			"email":       email,
			"callbackUrl": callbackUrl,
		})
		return
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"error":       "Incorrect email or password",
			"email":       email,
			"callbackUrl": callbackUrl,
		})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Set("user_role", user.Role)
	session.Save()

	target := safeCallback(callbackUrl)
	c.Redirect(http.StatusFound, target)
}

// safeCallback only honors site-relative return paths.
func safeCallback(callbackUrl string) string {
	if callbackUrl == "" || callbackUrl[0] != '/' {
		return "/"
	}
	if len(callbackUrl) > 1 && callbackUrl[1] == '/' {
		return "/"
	}
	return callbackUrl
}

func (a *AuthModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (a *AuthModule) signupPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "signup.html", gin.H{})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r registerRequest) valid() bool {
	nameLen := utf8.RuneCountInString(r.Name)
	passwordLen := utf8.RuneCountInString(r.Password)

	if nameLen < 2 || nameLen > 80 {
		return false
	}
	if passwordLen < 8 || passwordLen > 100 {
		return false
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return false
	}
	return true
}

// registerAPI is the one JSON endpoint: 201 on success, 400 on
// validation failure, 409 on duplicate email, 500 otherwise.
func (a *AuthModule) registerAPI(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil || !body.valid() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide valid registration details."})
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", body.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"message": "This email is already registered."})
		return
	}

	passwordHash, err := hashPassword(body.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Unexpected error while creating account."})
		return
	}

	user := models.User{
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
	}

	if err := a.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Unexpected error while creating account."})
		return
	}

	// New accounts start with an active free membership.
	subscription := models.Subscription{
		UserID: user.ID,
		Tier:   content.FreeTier,
		Active: true,
	}
	if err := a.db.Create(&subscription).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Unexpected error while creating account."})
		return
	}

	if a.mail != nil && a.mail.Configured() {
		go func(to, name string) {
			if err := a.mail.SendWelcomeEmail(to, name); err != nil {
				log.Printf("Error sending welcome email to %s: %v", to, err)
			}
		}(user.Email, user.Name)
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    user.ID,
		"email": user.Email,
	})
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
