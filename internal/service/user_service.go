package service

import (
	"database/sql"
	"errors"
	"fmt"

	"cinematch-api/internal/models"
	"cinematch-api/internal/repository"
)

// ErrUserNotFound is returned for operations on a nonexistent user.
var ErrUserNotFound = errors.New("user not found")

// UserService handles user account logic.
type UserService struct {
	repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) CreateUser(req models.CreateUserRequest) (*models.User, error) {
	if req.Username == "" || req.Email == "" {
		return nil, fmt.Errorf("username and email are required")
	}
	return s.repo.CreateUser(req)
}

func (s *UserService) GetUser(id int) (*models.User, error) {
	user, err := s.repo.GetUser(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user and, through cascade, all their ratings,
// watchlist entries and recommendations.
func (s *UserService) DeleteUser(id int) error {
	if err := s.repo.DeleteUser(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
