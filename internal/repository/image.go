package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines persistence operations for post image rows.
type ImageRepository interface {
	CreateBatch(ctx context.Context, postID uint, paths []string) ([]models.PostImage, error)
	GetByID(ctx context.Context, id uint) (*models.PostImage, error)
	ListByPost(ctx context.Context, postID uint) ([]models.PostImage, error)
	Delete(ctx context.Context, id uint) error
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a repository implementation for post images.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) CreateBatch(ctx context.Context, postID uint, paths []string) ([]models.PostImage, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	images := make([]models.PostImage, 0, len(paths))
	for _, p := range paths {
		images = append(images, models.PostImage{FilePath: p, PostID: postID})
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

func (r *imageRepository) GetByID(ctx context.Context, id uint) (*models.PostImage, error) {
	var image models.PostImage
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &image, nil
}

func (r *imageRepository) ListByPost(ctx context.Context, postID uint) ([]models.PostImage, error) {
	var images []models.PostImage
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

func (r *imageRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.PostImage{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
