package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole is the coarse-grained permission tier of a user account
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
)

// PostStatus tracks a post through its publishing lifecycle
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusReviewed  PostStatus = "reviewed"
	PostStatusPublished PostStatus = "published"
	PostStatusPending   PostStatus = "pending"
)

// User represents a local user account. Accounts created through Google
// sign-in carry a GoogleID and no password hash.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	FirstName    string     `json:"first_name" gorm:"type:varchar(20);not null"`
	LastName     string     `json:"last_name" gorm:"type:varchar(20)"`
	Email        string     `json:"email" gorm:"type:varchar(64);unique;not null"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role" gorm:"type:varchar(16);not null;default:user"`
	GoogleID     *string    `json:"-" gorm:"uniqueIndex"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Bio          string     `json:"bio,omitempty" gorm:"type:varchar(256)"`
	ProfileImage string     `json:"profile_image,omitempty" gorm:"type:varchar(1024)"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Posts []Post `json:"posts,omitempty" gorm:"foreignKey:AuthorID"`
}

// Post represents a blog post
type Post struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	Title         string     `json:"title" gorm:"type:varchar(96);not null"`
	Slug          string     `json:"slug" gorm:"type:varchar(192);unique;not null"`
	Status        PostStatus `json:"status" gorm:"type:varchar(16);not null;default:draft"`
	Content       string     `json:"content" gorm:"type:text;not null"`
	CoverImageURL string     `json:"cover_image_url,omitempty" gorm:"type:varchar(1024)"`
	PublishedOn   *time.Time `json:"published_on"`
	AuthorID      uint       `json:"author_id" gorm:"not null"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Author   *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Tags     []Tag     `json:"tags,omitempty" gorm:"many2many:post_tags"`
	MetaData *MetaData `json:"meta_data,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// Tag categorizes posts. Tags are soft-deleted so posts referencing a
// removed tag keep their history.
type Tag struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Name             string         `json:"name" gorm:"type:varchar(256);unique;not null"`
	Slug             string         `json:"slug" gorm:"type:varchar(256);unique;not null"`
	Description      string         `json:"description,omitempty" gorm:"type:text"`
	Schema           string         `json:"schema,omitempty" gorm:"type:text"`
	FeaturedImageURL string         `json:"featured_image_url,omitempty" gorm:"type:varchar(1024)"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Posts []Post `json:"posts,omitempty" gorm:"many2many:post_tags"`
}

// MetaData holds the JSON metadata blob attached to a post
type MetaData struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MetaValue string    `json:"meta_value" gorm:"type:json;not null"`
	PostID    uint      `json:"post_id" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// PasswordReset is a one-shot token minted by the forgot-password flow.
// The token itself is a ULID; delivery happens out of band.
type PasswordReset struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Token     string    `json:"token" gorm:"type:varchar(26);uniqueIndex;not null"`
	UserID    uint      `json:"user_id" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Post{}, &Tag{}, &MetaData{}, &PasswordReset{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by numeric ID
func FindByID[T any](db *gorm.DB, id uint, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id uint, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
