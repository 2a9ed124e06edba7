package service

import (
	"context"
	"mime/multipart"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const (
	maxTitleLen   = 300
	maxContentLen = 50000
)

// PostService implements post lifecycle logic including attachment handling.
type PostService struct {
	postRepo    repository.PostRepository
	imageRepo   repository.ImageRepository
	attachments *AttachmentService
}

type CreatePostInput struct {
	UserID  uint
	Title   string
	Content string
	Files   []*multipart.FileHeader
}

// UpdatePostInput carries a partial update: nil fields are left unchanged.
// DeleteImageIDs and NewFiles adjust the post's attachments.
type UpdatePostInput struct {
	UserID         uint
	PostID         uint
	Title          *string
	Content        *string
	DeleteImageIDs []uint
	NewFiles       []*multipart.FileHeader
}

type ListPostsInput struct {
	Limit  int
	Offset int
}

func NewPostService(
	postRepo repository.PostRepository,
	imageRepo repository.ImageRepository,
	attachments *AttachmentService,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		imageRepo:   imageRepo,
		attachments: attachments,
	}
}

func validatePostFields(title, content string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if content == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	return nil
}

// CreatePost validates the fields and every file before anything touches
// disk, then writes the files and persists the post with its image rows in
// one create. If persistence fails the just-written files are removed.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}
	if err := s.attachments.ValidateAll(in.Files); err != nil {
		return nil, err
	}

	paths, err := s.attachments.SaveAll(in.Files)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:   in.Title,
		Slug:    validation.Slugify(in.Title),
		Content: in.Content,
		UserID:  in.UserID,
	}
	for _, p := range paths {
		post.Images = append(post.Images, models.PostImage{FilePath: p})
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.attachments.Cleanup(paths)
		return nil, err
	}

	cache.InvalidatePostList(ctx)
	middleware.Logger.InfoContext(ctx, "Post created",
		"post_id", post.ID,
		"slug", post.Slug,
		"images", len(paths),
	)
	return s.postRepo.GetByID(ctx, post.ID)
}

// ListPosts returns the newest posts first. The default front page (offset 0,
// default limit) is served through the cache.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	limit := in.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if in.Offset == 0 && limit == 20 {
		var posts []*models.Post
		err := cache.Aside(ctx, cache.PostListKey(), &posts, cache.PostListTTL, func() error {
			var fetchErr error
			posts, fetchErr = s.postRepo.List(ctx, limit, 0)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}
		return posts, nil
	}

	return s.postRepo.List(ctx, limit, in.Offset)
}

// GetPostBySlug returns a post with its author and images.
func (s *PostService) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	if slug == "" {
		return nil, models.NewValidationError("Slug is required")
	}
	return s.postRepo.GetBySlug(ctx, slug)
}

// UpdatePost applies a partial update for the post's owner. New files are
// validated before any change is made; then deletions run first, new files
// second, and the post's own fields last. A changed title recomputes the
// slug. Image IDs that do not belong to the post are skipped silently.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	title := post.Title
	content := post.Content
	if in.Title != nil {
		title = *in.Title
	}
	if in.Content != nil {
		content = *in.Content
	}
	if err := validatePostFields(title, content); err != nil {
		return nil, err
	}
	if err := s.attachments.ValidateAll(in.NewFiles); err != nil {
		return nil, err
	}

	owned := make(map[uint]string, len(post.Images))
	for _, img := range post.Images {
		owned[img.ID] = img.FilePath
	}
	for _, id := range in.DeleteImageIDs {
		path, ok := owned[id]
		if !ok {
			continue
		}
		if err := s.imageRepo.Delete(ctx, id); err != nil {
			return nil, err
		}
		s.attachments.Remove(path)
	}

	if len(in.NewFiles) > 0 {
		paths, err := s.attachments.SaveAll(in.NewFiles)
		if err != nil {
			return nil, err
		}
		if _, err := s.imageRepo.CreateBatch(ctx, post.ID, paths); err != nil {
			s.attachments.Cleanup(paths)
			return nil, err
		}
	}

	post.Title = title
	post.Content = content
	if in.Title != nil {
		post.Slug = validation.Slugify(title)
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	cache.InvalidatePostList(ctx)
	return s.postRepo.GetByID(ctx, in.PostID)
}

// DeletePost removes the post, its image rows and their backing files. File
// removal is best-effort and runs before the rows go away so the paths are
// still known.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	for _, img := range post.Images {
		s.attachments.Remove(img.FilePath)
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	cache.InvalidatePostList(ctx)
	middleware.Logger.InfoContext(ctx, "Post deleted",
		"post_id", postID,
		"images", len(post.Images),
	)
	return nil
}
