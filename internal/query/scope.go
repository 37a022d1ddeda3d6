package query

import (
	"strings"

	"gorm.io/gorm"
)

const likeCountExpr = "(SELECT COUNT(*) FROM recipe_likes WHERE recipe_likes.recipe_id = recipes.id)"

// orderings lists ORDER BY terms per sort key. Every ordering ends on a
// unique column so pages are stable.
var orderings = map[SortKey][]string{
	SortNewest:     {"recipes.created_at DESC", "recipes.id"},
	SortOldest:     {"recipes.created_at ASC", "recipes.id"},
	SortRating:     {"recipes.rating DESC", "recipes.created_at DESC", "recipes.id"},
	SortPrepTime:   {"recipes.prep_time ASC", "recipes.created_at DESC", "recipes.id"},
	SortPopularity: {likeCountExpr + " DESC", "recipes.created_at DESC", "recipes.id"},
}

// Scope applies the structured filters, a search prefilter and the ordering
// to a query over the recipes table. Callers must still run Filter on the
// results: the search prefilter may admit rows the exact predicate rejects.
func (q RecipeQuery) Scope(db *gorm.DB) *gorm.DB {
	if q.Cuisine != "" {
		db = db.Where("recipes.cuisine = ?", q.Cuisine)
	}
	if q.DietaryType != "" {
		db = db.Where("recipes.dietary_type = ?", string(q.DietaryType))
	}
	if q.MaxPrepTime != nil {
		db = db.Where("recipes.prep_time <= ?", *q.MaxPrepTime)
	}
	if pattern, ok := likePattern(q.Search); ok {
		db = db.Where(
			"(LOWER(recipes.title) LIKE ? ESCAPE '\\' OR LOWER(recipes.description) LIKE ? ESCAPE '\\' OR LOWER(recipes.ingredients) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern,
		)
	}

	for _, term := range orderings[ParseSortKey(string(q.Sort))] {
		db = db.Order(term)
	}
	return db
}

// likePattern builds a LIKE pattern for search terms that the store can
// prefilter safely: printable ASCII without quote or backslash, which the
// JSON-encoded ingredients column stores verbatim. Other terms are matched
// only in Go.
func likePattern(term string) (string, bool) {
	if term == "" {
		return "", false
	}
	for i := 0; i < len(term); i++ {
		c := term[i]
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			return "", false
		}
	}
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(strings.ToLower(term))
	return "%" + escaped + "%", true
}
