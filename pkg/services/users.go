package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/repositories"
)

// MaxUserSearchResults bounds the user search used for invites and mentions.
const MaxUserSearchResults = 8

// UserService looks up accounts.
type UserService interface {
	// Search finds users whose username starts with or contains query.
	// An empty query returns no users.
	Search(ctx context.Context, query string) ([]models.UserSummary, error)
}

type userService struct {
	userRepo repositories.UserRepository
	logger   *zap.Logger
}

var _ UserService = (*userService)(nil)

// NewUserService creates a UserService.
func NewUserService(userRepo repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{userRepo: userRepo, logger: logger}
}

func (s *userService) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	query = strings.TrimPrefix(strings.TrimSpace(query), "@")
	if query == "" {
		return []models.UserSummary{}, nil
	}

	users, err := s.userRepo.Search(ctx, query, MaxUserSearchResults)
	if err != nil {
		return nil, err
	}

	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}
