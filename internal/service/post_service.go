package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// PostsPerPage is the feed page size.
const PostsPerPage = 5

// PostService handles post CRUD and feeds, enforcing author-only mutation.
type PostService struct {
	posts repository.PostRepository
}

// NewPostService creates a PostService.
func NewPostService(posts repository.PostRepository) *PostService {
	return &PostService{posts: posts}
}

// Create stores a new post authored by the given user.
func (s *PostService) Create(ctx context.Context, author *models.User, title, content string) (*models.Post, error) {
	post := &models.Post{
		Title:   title,
		Content: content,
		UserID:  author.ID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get returns a post or a not-found error.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// GetOwned returns the post only if actorID is its author: not-found when the
// post is missing, forbidden when it belongs to someone else.
func (s *PostService) GetOwned(ctx context.Context, actorID, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != actorID {
		return nil, models.NewForbiddenError("You can only modify your own posts.")
	}
	return post, nil
}

// Update edits title and content, author only.
func (s *PostService) Update(ctx context.Context, actorID, postID uint, title, content string) (*models.Post, error) {
	post, err := s.GetOwned(ctx, actorID, postID)
	if err != nil {
		return nil, err
	}
	post.Title = title
	post.Content = content
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post, author only.
func (s *PostService) Delete(ctx context.Context, actorID, postID uint) error {
	post, err := s.GetOwned(ctx, actorID, postID)
	if err != nil {
		return err
	}
	return s.posts.Delete(ctx, post.ID)
}

// HomeFeed returns one page of all posts, newest first.
func (s *PostService) HomeFeed(ctx context.Context, page int) (*repository.Page, error) {
	return s.posts.ListPage(ctx, page, PostsPerPage)
}

// AuthorFeed returns one page of a single author's posts, newest first.
func (s *PostService) AuthorFeed(ctx context.Context, userID uint, page int) (*repository.Page, error) {
	return s.posts.ListByAuthorPage(ctx, userID, page, PostsPerPage)
}
