package repository

import (
	"context"

	"gorm.io/gorm"

	"blogapi/internal/model"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Post, error)
	List(ctx context.Context) ([]model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository builds a GORM-backed repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the post and reloads it so author_username is populated.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Preload("Author").First(post, post.ID).Error
}

// Update writes every column of an existing row and refreshes updated_at.
// A row deleted in the meantime yields gorm.ErrRecordNotFound rather than being recreated.
func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	result := r.db.WithContext(ctx).Model(post).Select("*").Omit("Author", "CreatedAt").Updates(post)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).Preload("Author").First(post, post.ID).Error
}

// Delete removes the row permanently.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Post{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns every post in primary key order.
func (r *postRepository) List(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := r.db.WithContext(ctx).Preload("Author").Order("id").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
