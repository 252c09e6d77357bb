package dto

import (
	"time"

	"devsocial.app/backend/internal/entity"
	"devsocial.app/backend/pkg/dto"
	"github.com/google/uuid"
)

type CreatePostInput struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

type CreateCommentInput struct {
	Content string `json:"content" binding:"required,min=1,max=2000"`
}

type PostResponse struct {
	ID        uuid.UUID          `json:"id"`
	Content   string             `json:"content"`
	Author    dto.AuthorResponse `json:"author"`
	CreatedAt time.Time          `json:"created_at"`
}

type CommentResponse struct {
	ID        uuid.UUID          `json:"id"`
	PostID    uuid.UUID          `json:"post_id"`
	Content   string             `json:"content"`
	Author    dto.AuthorResponse `json:"author"`
	CreatedAt time.Time          `json:"created_at"`
}

type PostListResponse struct {
	Posts []PostResponse     `json:"posts"`
	Meta  dto.PaginationMeta `json:"meta"`
}

type CommentListResponse struct {
	Comments []CommentResponse  `json:"comments"`
	Meta     dto.PaginationMeta `json:"meta"`
}

func ToPostResponse(post *entity.Post) PostResponse {
	return PostResponse{
		ID:        post.ID,
		Content:   post.Content,
		Author:    toAuthor(&post.User),
		CreatedAt: post.CreatedAt,
	}
}

func ToCommentResponse(comment *entity.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		Content:   comment.Content,
		Author:    toAuthor(&comment.User),
		CreatedAt: comment.CreatedAt,
	}
}

func toAuthor(user *entity.User) dto.AuthorResponse {
	author := dto.AuthorResponse{
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
	}
	if user.Profile != nil {
		author.DisplayName = user.Profile.DisplayName
	}
	return author
}
