package content

import (
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"helpcenter/models"
)

// Actor identifies who is performing a workflow operation. A zero ID
// means the request is anonymous.
type Actor struct {
	ID   int
	Role string
}

func (a Actor) Anonymous() bool {
	return a.ID == 0
}

func (a Actor) Admin() bool {
	return a.Role == models.RoleAdmin
}

// Outcome is the tagged result of a workflow operation. The HTTP layer
// maps each variant to a redirect; the workflow itself never knows
// about routes.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInvalid
	OutcomeLoginRequired
	OutcomeSubscriptionRequired
	OutcomeForbidden
)

// Comment body bounds, in runes.
const (
	CommentBodyMin = 6
	CommentBodyMax = 1200
)

// Review bounds.
const (
	ReviewBodyMin = 8
	ReviewBodyMax = 1200
	RatingMin     = 1
	RatingMax     = 5
)

// FreeTier is the tier label applied by self-service activation.
const FreeTier = "Free Member"

type Workflow struct {
	db *gorm.DB
}

func NewWorkflow(db *gorm.DB) *Workflow {
	return &Workflow{db: db}
}

type CommentInput struct {
	PostID uint
	Body   string
}

// SubmitComment records a comment in PENDING state. Validation runs
// before the authentication check and before any write, so an Invalid
// outcome guarantees nothing was stored.
func (w *Workflow) SubmitComment(actor Actor, in CommentInput) (Outcome, error) {
	length := utf8.RuneCountInString(in.Body)
	if in.PostID == 0 || length < CommentBodyMin || length > CommentBodyMax {
		return OutcomeInvalid, nil
	}

	if actor.Anonymous() {
		return OutcomeLoginRequired, nil
	}

	comment := models.Comment{
		PostID: in.PostID,
		UserID: actor.ID,
		Body:   in.Body,
		Status: models.StatusPending,
	}

	if err := w.db.Create(&comment).Error; err != nil {
		return OutcomeOK, err
	}

	return OutcomeOK, nil
}

type ReviewInput struct {
	PostID uint
	Rating int
	Body   string
}

// SubmitReview upserts the actor's review for a post. A resubmission
// overwrites the previous rating and body and forces the status back to
// PENDING, even if a moderator had already approved or rejected it.
func (w *Workflow) SubmitReview(actor Actor, in ReviewInput) (Outcome, error) {
	length := utf8.RuneCountInString(in.Body)
	if in.PostID == 0 ||
		in.Rating < RatingMin || in.Rating > RatingMax ||
		length < ReviewBodyMin || length > ReviewBodyMax {
		return OutcomeInvalid, nil
	}

	if actor.Anonymous() {
		return OutcomeLoginRequired, nil
	}

	subscribed, err := w.HasActiveSubscription(actor.ID)
	if err != nil {
		return OutcomeOK, err
	}
	if !subscribed {
		return OutcomeSubscriptionRequired, nil
	}

	review := models.Review{
		PostID: in.PostID,
		UserID: actor.ID,
		Rating: in.Rating,
		Body:   in.Body,
		Status: models.StatusPending,
	}

	// The store's atomic upsert on (post_id, user_id) decides the winner
	// between concurrent submissions; no application-level lock.
	err = w.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"rating":     in.Rating,
			"body":       in.Body,
			"status":     models.StatusPending,
			"updated_at": time.Now(),
		}),
	}).Create(&review).Error
	if err != nil {
		return OutcomeOK, err
	}

	return OutcomeOK, nil
}

// HasActiveSubscription is the sole authorization predicate for review
// submission. It is re-checked on every attempt, never cached.
func (w *Workflow) HasActiveSubscription(userID int) (bool, error) {
	var subscription models.Subscription
	err := w.db.Where("user_id = ?", userID).First(&subscription).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return subscription.Active, nil
}

// Activate upserts the actor's subscription row to the active free
// tier. Idempotent.
func (w *Workflow) Activate(actor Actor) (Outcome, error) {
	if actor.Anonymous() {
		return OutcomeLoginRequired, nil
	}

	subscription := models.Subscription{
		UserID: actor.ID,
		Tier:   FreeTier,
		Active: true,
	}

	err := w.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"active":     true,
			"tier":       FreeTier,
			"updated_at": time.Now(),
		}),
	}).Create(&subscription).Error
	if err != nil {
		return OutcomeOK, err
	}

	return OutcomeOK, nil
}

// Deactivate pauses the actor's subscription. A user with no
// subscription row is a no-op; no row is created.
func (w *Workflow) Deactivate(actor Actor) (Outcome, error) {
	if actor.Anonymous() {
		return OutcomeLoginRequired, nil
	}

	err := w.db.Model(&models.Subscription{}).
		Where("user_id = ?", actor.ID).
		Update("active", false).Error
	if err != nil {
		return OutcomeOK, err
	}

	return OutcomeOK, nil
}

// PendingComment is a queue entry joined with the submitter's name and
// the parent post.
type PendingComment struct {
	ID        uint
	PostID    uint
	Body      string
	UserName  string
	PostTitle string
	PostSlug  string
	CreatedAt time.Time
}

type PendingReview struct {
	ID        uint
	PostID    uint
	Rating    int
	Body      string
	UserName  string
	PostTitle string
	PostSlug  string
	CreatedAt time.Time
}

// PendingQueue returns every PENDING comment and review, newest first,
// for the admin moderation page.
func (w *Workflow) PendingQueue() ([]PendingComment, []PendingReview, error) {
	var comments []PendingComment
	err := w.db.Table("comments").
		Select("comments.id, comments.post_id, comments.body, comments.created_at, " +
			"users.name AS user_name, posts.title AS post_title, posts.slug AS post_slug").
		Joins("INNER JOIN users ON users.id = comments.user_id").
		Joins("INNER JOIN posts ON posts.id = comments.post_id").
		Where("comments.status = ?", models.StatusPending).
		Order("comments.created_at DESC").
		Scan(&comments).Error
	if err != nil {
		return nil, nil, err
	}

	var reviews []PendingReview
	err = w.db.Table("reviews").
		Select("reviews.id, reviews.post_id, reviews.rating, reviews.body, reviews.created_at, " +
			"users.name AS user_name, posts.title AS post_title, posts.slug AS post_slug").
		Joins("INNER JOIN users ON users.id = reviews.user_id").
		Joins("INNER JOIN posts ON posts.id = reviews.post_id").
		Where("reviews.status = ?", models.StatusPending).
		Order("reviews.created_at DESC").
		Scan(&reviews).Error
	if err != nil {
		return nil, nil, err
	}

	return comments, reviews, nil
}

func moderationStatusValid(status string) bool {
	return status == models.StatusApproved || status == models.StatusRejected
}

// SetCommentStatus transitions a comment to APPROVED or REJECTED.
// Admin only; a single-row update with no other side effects.
func (w *Workflow) SetCommentStatus(actor Actor, id uint, status string) (Outcome, error) {
	if !actor.Admin() {
		return OutcomeForbidden, nil
	}
	if id == 0 || !moderationStatusValid(status) {
		return OutcomeInvalid, nil
	}

	result := w.db.Model(&models.Comment{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return OutcomeOK, result.Error
	}
	if result.RowsAffected == 0 {
		return OutcomeInvalid, nil
	}

	return OutcomeOK, nil
}

// SetReviewStatus transitions a review to APPROVED or REJECTED.
func (w *Workflow) SetReviewStatus(actor Actor, id uint, status string) (Outcome, error) {
	if !actor.Admin() {
		return OutcomeForbidden, nil
	}
	if id == 0 || !moderationStatusValid(status) {
		return OutcomeInvalid, nil
	}

	result := w.db.Model(&models.Review{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return OutcomeOK, result.Error
	}
	if result.RowsAffected == 0 {
		return OutcomeInvalid, nil
	}

	return OutcomeOK, nil
}
