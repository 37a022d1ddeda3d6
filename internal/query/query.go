// Package query turns catalog request parameters into a recipe filter and
// ordering, and applies them to the store or to loaded recipes.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/models"
)

type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortRating     SortKey = "rating"
	SortPrepTime   SortKey = "prepTime"
	SortPopularity SortKey = "popularity"
)

// ParseSortKey maps a client value to a sort key. Unrecognized or empty
// values fall back to SortNewest.
func ParseSortKey(raw string) SortKey {
	switch key := SortKey(raw); key {
	case SortNewest, SortOldest, SortRating, SortPrepTime, SortPopularity:
		return key
	}
	return SortNewest
}

// RecipeQuery is a conjunction of optional filters plus a sort key.
// Zero-valued filters are absent.
type RecipeQuery struct {
	Search      string
	Cuisine     string
	DietaryType models.DietaryType
	MaxPrepTime *int
	Sort        SortKey
}

// Parse reads search, cuisine, dietaryType, prepTime and sortBy from values.
// Empty parameters are treated as absent. The search term is kept verbatim,
// surrounding whitespace included.
func Parse(values url.Values) (RecipeQuery, error) {
	q := RecipeQuery{
		Search:  values.Get("search"),
		Cuisine: values.Get("cuisine"),
		Sort:    ParseSortKey(values.Get("sortBy")),
	}

	if raw := values.Get("dietaryType"); raw != "" {
		dt := models.DietaryType(raw)
		if !dt.Valid() {
			return RecipeQuery{}, apperror.ValidationFailed("dietaryType",
				"dietaryType must be one of Vegan, Vegetarian, Gluten-Free, None")
		}
		q.DietaryType = dt
	}

	if raw := strings.TrimSpace(values.Get("prepTime")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 0 {
			return RecipeQuery{}, apperror.ValidationFailed("prepTime",
				"prepTime must be a non-negative whole number of minutes")
		}
		q.MaxPrepTime = &minutes
	}

	return q, nil
}

// Matches reports whether recipe satisfies every present filter.
func (q RecipeQuery) Matches(recipe *models.Recipe) bool {
	if q.Cuisine != "" && recipe.Cuisine != q.Cuisine {
		return false
	}
	if q.DietaryType != "" && recipe.DietaryType != q.DietaryType {
		return false
	}
	if q.MaxPrepTime != nil && recipe.PrepTime > *q.MaxPrepTime {
		return false
	}
	if q.Search != "" && !matchesSearch(recipe, strings.ToLower(q.Search)) {
		return false
	}
	return true
}

// matchesSearch expects a lower-cased term.
func matchesSearch(recipe *models.Recipe, term string) bool {
	if strings.Contains(strings.ToLower(recipe.Title), term) ||
		strings.Contains(strings.ToLower(recipe.Description), term) {
		return true
	}
	for _, ingredient := range recipe.Ingredients {
		if strings.Contains(strings.ToLower(ingredient), term) {
			return true
		}
	}
	return false
}

// Filter keeps the recipes that match, preserving order.
func (q RecipeQuery) Filter(recipes []models.Recipe) []models.Recipe {
	if q.Search == "" && q.Cuisine == "" && q.DietaryType == "" && q.MaxPrepTime == nil {
		return recipes
	}
	matched := make([]models.Recipe, 0, len(recipes))
	for i := range recipes {
		if q.Matches(&recipes[i]) {
			matched = append(matched, recipes[i])
		}
	}
	return matched
}
