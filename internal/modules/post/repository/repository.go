package repository

import (
	"context"

	"devsocial.app/backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostRepository interface {
	Create(ctx context.Context, post *entity.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error)
	FindPage(ctx context.Context, offset, limit int) ([]entity.Post, int64, error)
	FindByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.Post, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateComment(ctx context.Context, comment *entity.Comment) error
	FindCommentByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	FindComments(ctx context.Context, postID uuid.UUID, offset, limit int) ([]entity.Comment, int64, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *entity.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	var post entity.Post
	if err := r.db.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Preload("User.Profile").
		Where("id = ?", id).
		First(&post).Error; err != nil {
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) FindPage(ctx context.Context, offset, limit int) ([]entity.Post, int64, error) {
	return r.findPosts(ctx, r.db.WithContext(ctx).Model(&entity.Post{}), offset, limit)
}

func (r *postRepository) FindByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Post{}).Where("user_id = ?", userID)
	return r.findPosts(ctx, query, offset, limit)
}

func (r *postRepository) findPosts(ctx context.Context, query *gorm.DB, offset, limit int) ([]entity.Post, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []entity.Post
	if err := query.
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Preload("User.Profile").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Post{}).Error
}

func (r *postRepository) CreateComment(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *postRepository) FindCommentByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	if err := r.db.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Preload("User.Profile").
		Where("id = ?", id).
		First(&comment).Error; err != nil {
		return nil, err
	}

	return &comment, nil
}

func (r *postRepository) FindComments(ctx context.Context, postID uuid.UUID, offset, limit int) ([]entity.Comment, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Comment{}).Where("post_id = ?", postID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []entity.Comment
	if err := query.
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Preload("User.Profile").
		Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}
