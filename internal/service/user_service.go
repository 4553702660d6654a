// Package service contains the application's business logic.
package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserService handles registration, authentication and account updates.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewUserService creates a UserService. bcryptCost outside bcrypt's valid
// range falls back to the library default.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// Register hashes the password and creates the account. Field-level
// uniqueness is validated by the registration form; the store's unique
// constraints are the backstop for concurrent identical submissions.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  string(hash),
		ImageFile: models.DefaultImageFile,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies credentials. Missing account and wrong password both
// yield the same generic failure so the response does not leak which emails
// are registered.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Login unsuccessful. Please check email and password.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Login unsuccessful. Please check email and password.")
	}
	return user, nil
}

// UpdateAccount persists a profile edit. imageFile is the stored avatar
// filename; empty keeps the current one.
func (s *UserService) UpdateAccount(ctx context.Context, userID uint, username, email, imageFile string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = email
	if imageFile != "" {
		user.ImageFile = imageFile
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
