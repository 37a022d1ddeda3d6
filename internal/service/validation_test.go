package service

import (
	"strings"
	"testing"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecipeInput() RecipeInput {
	return RecipeInput{
		Title:       "Soup",
		Description: "Warm",
		Ingredients: []string{"water"},
		Steps:       []string{"Boil"},
		Cuisine:     "French",
		PrepTime:    10,
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*RecipeInput)
		wantField string
		wantMsg   string
	}{
		{"blank", func(in *RecipeInput) { in.Title = "  " }, "title", "title is required"},
		{"too long", func(in *RecipeInput) { in.Title = strings.Repeat("x", 201) }, "title", "title must be at most 200 characters"},
		{"empty list", func(in *RecipeInput) { in.Steps = nil }, "steps", "steps must contain at least 1 item(s)"},
		{"blank element", func(in *RecipeInput) { in.Steps = []string{"Boil", " "} }, "steps[1]", "steps[1] is required"},
		{"not positive", func(in *RecipeInput) { in.PrepTime = 0 }, "prepTime", "prepTime must be greater than 0"},
		{"bad url", func(in *RecipeInput) { in.Images = []string{"not a url"} }, "images[0]", "images[0] must be a valid URL"},
		{"bad dietary type", func(in *RecipeInput) { in.DietaryType = "Keto" }, "dietaryType",
			"dietaryType must be one of Vegan, Vegetarian, Gluten-Free, None"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := validRecipeInput()
			tc.mutate(&in)

			err := validateStruct(in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.wantField, appErr.Field)
			assert.Equal(t, tc.wantMsg, appErr.Message)
		})
	}

	assert.NoError(t, validateStruct(validRecipeInput()))
}

func TestValidateStruct_UnknownRuleFallsBack(t *testing.T) {
	type contact struct {
		Address string `json:"address" validate:"email"`
	}

	err := validateStruct(contact{Address: "nope"})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "address is invalid", appErr.Message)
}
