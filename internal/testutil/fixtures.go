package testutil

import (
	"testing"
	"time"

	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/utils"
	"gorm.io/gorm"
)

// DefaultPassword is the plaintext password of every fixture user.
const DefaultPassword = "Test123456"

// CreateTestUser inserts a user whose password is DefaultPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(DefaultPassword)
	if err != nil {
		t.Fatalf("Failed to hash fixture password: %v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user %s: %v", username, err)
	}
	return user
}

// RecipeOption customizes a fixture recipe before it is inserted.
type RecipeOption func(*models.Recipe)

func WithCuisine(cuisine string) RecipeOption {
	return func(r *models.Recipe) { r.Cuisine = cuisine }
}

func WithDietaryType(dt models.DietaryType) RecipeOption {
	return func(r *models.Recipe) { r.DietaryType = dt }
}

func WithPrepTime(minutes int) RecipeOption {
	return func(r *models.Recipe) { r.PrepTime = minutes }
}

func WithRating(rating float64) RecipeOption {
	return func(r *models.Recipe) { r.Rating = rating }
}

func WithDescription(description string) RecipeOption {
	return func(r *models.Recipe) { r.Description = description }
}

func WithIngredients(ingredients ...string) RecipeOption {
	return func(r *models.Recipe) { r.Ingredients = ingredients }
}

// WithCreatedAt pins the creation time so ordering tests are deterministic.
func WithCreatedAt(at time.Time) RecipeOption {
	return func(r *models.Recipe) { r.CreatedAt = at }
}

// CreateTestRecipe inserts a valid recipe owned by owner.
func CreateTestRecipe(t *testing.T, db *gorm.DB, owner *models.User, title string, opts ...RecipeOption) *models.Recipe {
	t.Helper()

	recipe := &models.Recipe{
		Title:       title,
		Description: "A tasty test recipe",
		Ingredients: models.StringList{"salt", "water"},
		Steps:       models.StringList{"Mix", "Serve"},
		Images:      models.StringList{},
		Cuisine:     "Italian",
		DietaryType: models.DietaryNone,
		PrepTime:    30,
		CreatedBy:   owner.ID,
	}
	for _, opt := range opts {
		opt(recipe)
	}

	if err := db.Omit("Author", "Likes").Create(recipe).Error; err != nil {
		t.Fatalf("Failed to create test recipe %s: %v", title, err)
	}
	return recipe
}

// LikeRecipe records likes on recipe from each user.
func LikeRecipe(t *testing.T, db *gorm.DB, recipe *models.Recipe, users ...*models.User) {
	t.Helper()

	for _, u := range users {
		like := &models.RecipeLike{RecipeID: recipe.ID, UserID: u.ID}
		if err := db.Create(like).Error; err != nil {
			t.Fatalf("Failed to like recipe: %v", err)
		}
	}
}
