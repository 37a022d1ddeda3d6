package service

import (
	"context"
	"errors"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/policy"
	"github.com/Baaaki/flavorshare/internal/repository"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FavoriteService struct {
	users   *repository.UserRepository
	recipes *repository.RecipeRepository
}

func NewFavoriteService(users *repository.UserRepository, recipes *repository.RecipeRepository) *FavoriteService {
	return &FavoriteService{users: users, recipes: recipes}
}

// Add puts a recipe on the caller's favorites list. Adding twice is a no-op.
// It returns the favorite ids in the order they were added.
func (s *FavoriteService) Add(ctx context.Context, caller *policy.Caller, rawRecipeID string) ([]uuid.UUID, error) {
	recipeID, err := parseID(rawRecipeID, recipeResource)
	if err != nil {
		return nil, err
	}

	exists, err := s.recipes.Exists(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound(recipeResource)
	}
	if err := policy.Authorize(caller, policy.ActionFavorite, nil).Error(); err != nil {
		return nil, err
	}
	if err := requireAccount(ctx, s.users, caller); err != nil {
		return nil, err
	}

	if err := s.users.AddFavorite(ctx, caller.UserID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperror.NotFound(recipeResource)
		}
		logger.Log.Error("Failed to add favorite",
			zap.String("user_id", caller.UserID.String()),
			zap.String("recipe_id", recipeID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("Favorite added",
		zap.String("user_id", caller.UserID.String()),
		zap.String("recipe_id", recipeID.String()),
	)
	return s.users.ListFavoriteIDs(ctx, caller.UserID)
}

// Remove takes a recipe off the caller's favorites. Removing a recipe that is
// not a favorite is a no-op.
func (s *FavoriteService) Remove(ctx context.Context, caller *policy.Caller, rawRecipeID string) ([]uuid.UUID, error) {
	recipeID, err := parseID(rawRecipeID, recipeResource)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(caller, policy.ActionFavorite, nil).Error(); err != nil {
		return nil, err
	}
	if err := requireAccount(ctx, s.users, caller); err != nil {
		return nil, err
	}

	if err := s.users.RemoveFavorite(ctx, caller.UserID, recipeID); err != nil {
		logger.Log.Error("Failed to remove favorite",
			zap.String("user_id", caller.UserID.String()),
			zap.String("recipe_id", recipeID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return s.users.ListFavoriteIDs(ctx, caller.UserID)
}

// List returns the caller's favorite recipes in the order they were added.
func (s *FavoriteService) List(ctx context.Context, caller *policy.Caller) ([]models.Recipe, error) {
	if err := policy.Authorize(caller, policy.ActionFavorite, nil).Error(); err != nil {
		return nil, err
	}
	if err := requireAccount(ctx, s.users, caller); err != nil {
		return nil, err
	}
	return s.users.ListFavoriteRecipes(ctx, caller.UserID)
}
