package service

import (
	"context"
	"fmt"
	"testing"

	"devsocial.app/backend/internal/entity"
	statsRepo "devsocial.app/backend/internal/modules/leaderboard/repository"
	postDto "devsocial.app/backend/internal/modules/post/dto"
	postRepo "devsocial.app/backend/internal/modules/post/repository"
	xpRepo "devsocial.app/backend/internal/modules/xp/repository"
	xp "devsocial.app/backend/internal/modules/xp/service"
	"devsocial.app/backend/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*gorm.DB, PostService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pool connection would see its own empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.Profile{},
		&entity.Post{},
		&entity.Comment{},
		&entity.XPTransaction{},
		&entity.UserStats{},
		&entity.Notification{},
	))

	stats := statsRepo.NewStatsRepository(db)
	xpSvc := xp.NewXPService(xpRepo.NewXPRepository(db), nil)
	svc := NewPostService(postRepo.NewPostRepository(db), stats, xpSvc, nil)

	return db, svc
}

func createUser(t *testing.T, db *gorm.DB) *entity.User {
	t.Helper()

	name := uuid.NewString()[:8]
	user := &entity.User{
		Username: fmt.Sprintf("user-%s", name),
		Email:    fmt.Sprintf("%s@example.com", name),
		Level:    1,
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&entity.Profile{UserID: user.ID, DisplayName: "Test User"}).Error)
	return user
}

func xpCount(t *testing.T, db *gorm.DB, userID uuid.UUID, txType string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&entity.XPTransaction{}).
		Where("user_id = ? AND type = ?", userID, txType).
		Count(&count).Error)
	return count
}

func TestCreatePostAwardsFirstPostBonusOnce(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db)

	first, err := svc.CreatePost(context.Background(), user.ID, postDto.CreatePostInput{Content: "hello world"})
	require.NoError(t, err)
	require.Equal(t, "hello world", first.Content)
	require.Equal(t, user.Username, first.Author.Username)

	_, err = svc.CreatePost(context.Background(), user.ID, postDto.CreatePostInput{Content: "second post"})
	require.NoError(t, err)

	require.Equal(t, int64(2), xpCount(t, db, user.ID, xp.ActionCreatePost))
	require.Equal(t, int64(1), xpCount(t, db, user.ID, xp.ActionFirstPost))

	stats := statsRepo.NewStatsRepository(db)
	row, err := stats.GetByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, row.TotalPosts)
}

func TestCreatePostSanitizesMarkup(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db)

	post, err := svc.CreatePost(context.Background(), user.ID, postDto.CreatePostInput{
		Content: `hi <script>alert("xss")</script>there`,
	})
	require.NoError(t, err)
	require.NotContains(t, post.Content, "<script>")
	require.Contains(t, post.Content, "hi")
}

func TestCreatePostRejectsEmptyAfterSanitizing(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db)

	_, err := svc.CreatePost(context.Background(), user.ID, postDto.CreatePostInput{
		Content: `<script>alert("xss")</script>`,
	})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestCreateCommentAwardsXPAndStats(t *testing.T) {
	db, svc := newTestService(t)
	author := createUser(t, db)
	commenter := createUser(t, db)

	post, err := svc.CreatePost(context.Background(), author.ID, postDto.CreatePostInput{Content: "a post"})
	require.NoError(t, err)

	comment, err := svc.CreateComment(context.Background(), commenter.ID, post.ID, postDto.CreateCommentInput{Content: "nice"})
	require.NoError(t, err)
	require.Equal(t, post.ID, comment.PostID)
	require.Equal(t, commenter.Username, comment.Author.Username)

	require.Equal(t, int64(1), xpCount(t, db, commenter.ID, xp.ActionCreateComment))
	require.Equal(t, int64(1), xpCount(t, db, commenter.ID, xp.ActionFirstComment))

	stats := statsRepo.NewStatsRepository(db)
	row, err := stats.GetByUserID(context.Background(), commenter.ID)
	require.NoError(t, err)
	require.Equal(t, 1, row.TotalComments)
}

func TestCreateCommentOnMissingPost(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db)

	_, err := svc.CreateComment(context.Background(), user.ID, uuid.New(), postDto.CreateCommentInput{Content: "hello"})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeletePostPermissions(t *testing.T) {
	db, svc := newTestService(t)
	author := createUser(t, db)
	other := createUser(t, db)

	post, err := svc.CreatePost(context.Background(), author.ID, postDto.CreatePostInput{Content: "mine"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeletePost(context.Background(), post.ID, other.ID, false), apperror.ErrForbidden)
	require.NoError(t, svc.DeletePost(context.Background(), post.ID, author.ID, false))

	_, err = svc.GetPost(context.Background(), post.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetFeedPagination(t *testing.T) {
	db, svc := newTestService(t)
	user := createUser(t, db)

	for i := 0; i < 5; i++ {
		_, err := svc.CreatePost(context.Background(), user.ID, postDto.CreatePostInput{
			Content: fmt.Sprintf("post %d", i),
		})
		require.NoError(t, err)
	}

	feed, err := svc.GetFeed(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 2)
	require.Equal(t, int64(5), feed.Meta.TotalItems)
	require.Equal(t, 3, feed.Meta.TotalPages)
}
