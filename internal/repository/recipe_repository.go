package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/query"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// withAuthorAndLikes loads the author row and likes (oldest first).
func withAuthorAndLikes(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Likes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("user_id")
		})
}

func (r *RecipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(recipe).Error
}

// GetByID returns (nil, nil) when the recipe does not exist.
func (r *RecipeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).
		Scopes(withAuthorAndLikes).
		Where("recipes.id = ?", id).
		First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recipe, nil
}

func (r *RecipeRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List runs q against the store. The search prefilter is re-checked exactly
// in Go, so the result is exactly the set of recipes q matches.
func (r *RecipeRepository) List(ctx context.Context, q query.RecipeQuery) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Scopes(q.Scope, withAuthorAndLikes).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return q.Filter(recipes), nil
}

// Update writes fields on the recipe only when owner still owns it. It
// reports whether a row was changed.
func (r *RecipeRepository) Update(ctx context.Context, id, owner uuid.UUID, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("id = ? AND created_by = ?", id, owner).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

// Delete removes the recipe with its comments, likes and favorite entries in
// one transaction. It reports whether the recipe was deleted.
func (r *RecipeRepository) Delete(ctx context.Context, id, owner uuid.UUID) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND created_by = ?", id, owner).Delete(&models.Recipe{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true

		if err := tx.Where("recipe_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeLike{}).Error; err != nil {
			return err
		}
		return tx.Where("recipe_id = ?", id).Delete(&models.Favorite{}).Error
	})
	return deleted, err
}

// AddLike is idempotent per (recipe, user). It reports whether a like was
// recorded.
func (r *RecipeRepository) AddLike(ctx context.Context, recipeID, userID uuid.UUID) (bool, error) {
	like := &models.RecipeLike{RecipeID: recipeID, UserID: userID}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	return result.RowsAffected > 0, result.Error
}

// RemoveLike reports whether a like was removed.
func (r *RecipeRepository) RemoveLike(ctx context.Context, recipeID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("recipe_id = ? AND user_id = ?", recipeID, userID).
		Delete(&models.RecipeLike{})
	return result.RowsAffected > 0, result.Error
}

func (r *RecipeRepository) CountLikes(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RecipeLike{}).Where("recipe_id = ?", recipeID).Count(&count).Error
	return count, err
}

// AppendImage adds url to the end of the recipe's images if owner still owns
// it. It reports whether the recipe was updated.
func (r *RecipeRepository) AppendImage(ctx context.Context, id, owner uuid.UUID, url string) (bool, error) {
	updated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "images").
			Where("id = ? AND created_by = ?", id, owner).
			First(&recipe).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		images := append(models.StringList{}, recipe.Images...)
		images = append(images, url)
		if err := tx.Model(&models.Recipe{}).Where("id = ?", id).Update("images", images).Error; err != nil {
			return err
		}
		updated = true
		return nil
	})
	return updated, err
}
