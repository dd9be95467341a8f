package scheduler

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storypulse-dev/storypulse/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createPost(t *testing.T, db *gorm.DB, slug string, status models.PostStatus, publishedOn *time.Time) *models.Post {
	t.Helper()

	author := models.User{FirstName: "A", Email: slug + "@example.com", Role: models.RoleUser}
	require.NoError(t, db.Create(&author).Error)

	post := models.Post{
		Title:       "Post " + slug,
		Slug:        slug,
		Status:      status,
		AuthorID:    author.ID,
		PublishedOn: publishedOn,
	}
	require.NoError(t, db.Create(&post).Error)
	return &post
}

func TestPublishDuePosts(t *testing.T) {
	db := newTestDB(t)
	p := NewPublisher(db, zerolog.Nop())

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	due := createPost(t, db, "due", models.PostStatusScheduled, &past)
	notYet := createPost(t, db, "not-yet", models.PostStatusScheduled, &future)
	unscheduled := createPost(t, db, "unscheduled", models.PostStatusScheduled, nil)
	draft := createPost(t, db, "draft", models.PostStatusDraft, &past)

	p.publishDuePosts()

	status := func(id uint) models.PostStatus {
		var post models.Post
		require.NoError(t, db.First(&post, id).Error)
		return post.Status
	}

	require.Equal(t, models.PostStatusPublished, status(due.ID))
	require.Equal(t, models.PostStatusScheduled, status(notYet.ID))
	require.Equal(t, models.PostStatusScheduled, status(unscheduled.ID))
	require.Equal(t, models.PostStatusDraft, status(draft.ID))
}

func TestPublishDuePostsIdempotent(t *testing.T) {
	db := newTestDB(t)
	p := NewPublisher(db, zerolog.Nop())

	past := time.Now().Add(-time.Hour)
	due := createPost(t, db, "due", models.PostStatusScheduled, &past)

	p.publishDuePosts()
	p.publishDuePosts()

	var post models.Post
	require.NoError(t, db.First(&post, due.ID).Error)
	require.Equal(t, models.PostStatusPublished, post.Status)
}
