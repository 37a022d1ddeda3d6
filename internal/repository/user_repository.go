package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// Exists reports whether a user with id is stored.
func (r *UserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Count(&count).Error
	return count > 0, err
}

// first returns (nil, nil) when no user matches.
func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile writes the given columns and refreshes user from the store.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(user).Updates(fields).Error; err != nil {
		return err
	}
	return db.First(user, "id = ?", user.ID).Error
}

// AddFavorite is idempotent: re-adding keeps the original position.
func (r *UserRepository) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	fav := &models.Favorite{UserID: userID, RecipeID: recipeID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(fav).Error
}

func (r *UserRepository) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.Favorite{}).Error
}

// ListFavoriteIDs returns favorite recipe ids in the order they were added.
func (r *UserRepository) ListFavoriteIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("recipe_id").
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

// ListFavoriteRecipes returns the user's favorite recipes with author and
// likes loaded, in the order they were added.
func (r *UserRepository) ListFavoriteRecipes(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at ASC").
		Order("recipes.id").
		Scopes(withAuthorAndLikes).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return recipes, nil
}
