package models

import (
	"time"

	"github.com/google/uuid"
)

// RecipeLike records that a user likes a recipe. The composite key keeps one
// like per user per recipe.
type RecipeLike struct {
	RecipeID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"recipeId"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (RecipeLike) TableName() string {
	return "recipe_likes"
}

// Favorite is an entry in a user's favorites list, ordered by CreatedAt.
type Favorite struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	RecipeID  uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"recipeId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Favorite) TableName() string {
	return "favorites"
}
