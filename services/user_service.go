package services

import (
	"context"
	"fmt"

	"tweetube/models"
	"tweetube/repositories"

	"gorm.io/gorm"
)

type UserService interface {
	GetProfile(ctx context.Context, userID string) (models.User, error)
	RecalculateCounters(ctx context.Context, userID string) (models.User, error)
}

type userService struct {
	txManager TxManager
	users     repositories.UserRepository
}

func NewUserService(txManager TxManager, users repositories.UserRepository) UserService {
	return &userService{txManager: txManager, users: users}
}

func (s *userService) GetProfile(ctx context.Context, userID string) (models.User, error) {
	if userID == "" {
		return models.User{}, newValidation("user id is required")
	}
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return models.User{}, translateStorageError(err, "user not found", "failed to query user")
	}
	return user, nil
}

// RecalculateCounters rebuilds every cached counter on the user from the
// source tables.
func (s *userService) RecalculateCounters(ctx context.Context, userID string) (models.User, error) {
	if userID == "" {
		return models.User{}, newValidation("user id is required")
	}

	var user models.User
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.users.GetByID(ctx, tx, userID); err != nil {
			return err
		}
		ids := []string{userID}
		if err := s.users.RecountSubscribers(ctx, tx, ids); err != nil {
			return fmt.Errorf("recount subscribers: %w", err)
		}
		if err := s.users.RecountSubscriptions(ctx, tx, ids); err != nil {
			return fmt.Errorf("recount subscriptions: %w", err)
		}
		if err := s.users.RecountContent(ctx, tx, userID); err != nil {
			return fmt.Errorf("recount content: %w", err)
		}
		var err error
		user, err = s.users.GetByID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return models.User{}, translateStorageError(err, "user not found", "failed to recalculate counters")
	}
	return user, nil
}
