package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"devsocial.app/backend/internal/entity"
	statsRepo "devsocial.app/backend/internal/modules/leaderboard/repository"
	notifService "devsocial.app/backend/internal/modules/notification/service"
	postDto "devsocial.app/backend/internal/modules/post/dto"
	postRepo "devsocial.app/backend/internal/modules/post/repository"
	xp "devsocial.app/backend/internal/modules/xp/service"
	"devsocial.app/backend/pkg/apperror"
	pkgDto "devsocial.app/backend/pkg/dto"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type PostService interface {
	CreatePost(ctx context.Context, userID uuid.UUID, input postDto.CreatePostInput) (*postDto.PostResponse, error)
	GetPost(ctx context.Context, id uuid.UUID) (*postDto.PostResponse, error)
	GetFeed(ctx context.Context, page, limit int) (*postDto.PostListResponse, error)
	GetUserPosts(ctx context.Context, userID uuid.UUID, page, limit int) (*postDto.PostListResponse, error)
	DeletePost(ctx context.Context, postID, actorID uuid.UUID, isAdmin bool) error

	CreateComment(ctx context.Context, userID, postID uuid.UUID, input postDto.CreateCommentInput) (*postDto.CommentResponse, error)
	GetComments(ctx context.Context, postID uuid.UUID, page, limit int) (*postDto.CommentListResponse, error)
}

type postService struct {
	repo                postRepo.PostRepository
	statsRepo           statsRepo.StatsRepository
	xpService           xp.XPService
	notificationService notifService.NotificationService
	sanitizer           *bluemonday.Policy
}

func NewPostService(
	repo postRepo.PostRepository,
	statsRepo statsRepo.StatsRepository,
	xpService xp.XPService,
	notificationService notifService.NotificationService,
) PostService {
	return &postService{
		repo:                repo,
		statsRepo:           statsRepo,
		xpService:           xpService,
		notificationService: notificationService,
		sanitizer:           bluemonday.UGCPolicy(),
	}
}

func (s *postService) CreatePost(ctx context.Context, userID uuid.UUID, input postDto.CreatePostInput) (*postDto.PostResponse, error) {
	content := strings.TrimSpace(s.sanitizer.Sanitize(input.Content))
	if content == "" {
		return nil, apperror.ErrInvalidInput
	}

	post := &entity.Post{
		UserID:  userID,
		Content: content,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.awardContentXP(ctx, userID, xp.ActionCreatePost, xp.ActionFirstPost, post.ID.String())

	if err := s.statsRepo.IncrementPosts(ctx, userID); err != nil {
		log.Printf("Failed to increment post count for user %s: %v", userID, err)
	}

	fresh, err := s.repo.FindByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	resp := postDto.ToPostResponse(fresh)
	return &resp, nil
}

// awardContentXP grants the regular action XP plus the one-time first-action
// bonus. Failures are logged; content creation never fails because of XP.
func (s *postService) awardContentXP(ctx context.Context, userID uuid.UUID, action, firstAction, relatedID string) {
	earnedFirst, err := s.xpService.HasEarned(ctx, userID, firstAction)
	if err != nil {
		log.Printf("Failed to check %s bonus for user %s: %v", firstAction, userID, err)
		earnedFirst = true // skip the bonus rather than risk granting it twice
	}

	if err := s.xpService.AwardXP(ctx, userID, action, relatedID); err != nil {
		log.Printf("Failed to award %s XP to user %s: %v", action, userID, err)
	}
	if !earnedFirst {
		if err := s.xpService.AwardXP(ctx, userID, firstAction, relatedID); err != nil {
			log.Printf("Failed to award %s XP to user %s: %v", firstAction, userID, err)
		}
	}
}

func (s *postService) GetPost(ctx context.Context, id uuid.UUID) (*postDto.PostResponse, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	resp := postDto.ToPostResponse(post)
	return &resp, nil
}

func (s *postService) GetFeed(ctx context.Context, page, limit int) (*postDto.PostListResponse, error) {
	offset, limit := normalizePage(page, limit)

	posts, total, err := s.repo.FindPage(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	return buildPostList(posts, total, page, limit), nil
}

func (s *postService) GetUserPosts(ctx context.Context, userID uuid.UUID, page, limit int) (*postDto.PostListResponse, error) {
	offset, limit := normalizePage(page, limit)

	posts, total, err := s.repo.FindByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}

	return buildPostList(posts, total, page, limit), nil
}

func (s *postService) DeletePost(ctx context.Context, postID, actorID uuid.UUID, isAdmin bool) error {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if post.UserID != actorID && !isAdmin {
		return apperror.ErrForbidden
	}

	return s.repo.Delete(ctx, postID)
}

func (s *postService) CreateComment(ctx context.Context, userID, postID uuid.UUID, input postDto.CreateCommentInput) (*postDto.CommentResponse, error) {
	content := strings.TrimSpace(s.sanitizer.Sanitize(input.Content))
	if content == "" {
		return nil, apperror.ErrInvalidInput
	}

	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	comment := &entity.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.awardContentXP(ctx, userID, xp.ActionCreateComment, xp.ActionFirstComment, comment.ID.String())

	if err := s.statsRepo.IncrementComments(ctx, userID); err != nil {
		log.Printf("Failed to increment comment count for user %s: %v", userID, err)
	}

	s.notifyPostAuthor(ctx, post, userID, comment.ID)

	fresh, err := s.repo.FindCommentByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	resp := postDto.ToCommentResponse(fresh)
	return &resp, nil
}

func (s *postService) notifyPostAuthor(ctx context.Context, post *entity.Post, commenterID, commentID uuid.UUID) {
	if s.notificationService == nil || post.UserID == commenterID {
		return
	}

	notif := &entity.Notification{
		UserID:     post.UserID,
		ActorID:    commenterID,
		EntityID:   commentID,
		EntityType: "comment",
		Type:       "post_commented",
		Message:    "Someone commented on your post",
	}
	if err := s.notificationService.CreateNotification(ctx, notif); err != nil {
		log.Printf("Failed to notify post author %s: %v", post.UserID, err)
	}
}

func (s *postService) GetComments(ctx context.Context, postID uuid.UUID, page, limit int) (*postDto.CommentListResponse, error) {
	offset, limit := normalizePage(page, limit)

	comments, total, err := s.repo.FindComments(ctx, postID, offset, limit)
	if err != nil {
		return nil, err
	}

	items := make([]postDto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, postDto.ToCommentResponse(&comments[i]))
	}

	return &postDto.CommentListResponse{
		Comments: items,
		Meta:     paginationMeta(total, page, limit),
	}, nil
}

func normalizePage(page, limit int) (offset, normalized int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	return (page - 1) * limit, limit
}

func buildPostList(posts []entity.Post, total int64, page, limit int) *postDto.PostListResponse {
	items := make([]postDto.PostResponse, 0, len(posts))
	for i := range posts {
		items = append(items, postDto.ToPostResponse(&posts[i]))
	}

	return &postDto.PostListResponse{
		Posts: items,
		Meta:  paginationMeta(total, page, limit),
	}
}

func paginationMeta(total int64, page, limit int) pkgDto.PaginationMeta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return pkgDto.PaginationMeta{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		Limit:       limit,
	}
}
