package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Page is one slice of a newest-first post listing, with the metadata the
// pagination controls need.
type Page struct {
	Posts      []*models.Post
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
}

func (p *Page) HasPrev() bool { return p.Page > 1 }
func (p *Page) HasNext() bool { return p.Page < p.TotalPages }
func (p *Page) PrevPage() int { return p.Page - 1 }
func (p *Page) NextPage() int { return p.Page + 1 }

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	ListPage(ctx context.Context, page, perPage int) (*Page, error)
	ListByAuthorPage(ctx context.Context, userID uint, page, perPage int) (*Page, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// Update persists title and content only; CreatedAt is the immutable
// publication timestamp.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"title":   post.Title,
			"content": post.Content,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) ListPage(ctx context.Context, page, perPage int) (*Page, error) {
	return r.paginate(ctx, r.db.WithContext(ctx).Model(&models.Post{}), page, perPage)
}

func (r *postRepository) ListByAuthorPage(ctx context.Context, userID uint, page, perPage int) (*Page, error) {
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID)
	return r.paginate(ctx, q, page, perPage)
}

func (r *postRepository) paginate(ctx context.Context, q *gorm.DB, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 5
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := q.Session(&gorm.Session{}).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Page{
		Posts:      posts,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
