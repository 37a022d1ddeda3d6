package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/Baaaki/flavorshare/internal/database"
	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/repository"
	"github.com/Baaaki/flavorshare/internal/utils"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	databaseURL string
	password    string
	reset       bool

	rootCmd = &cobra.Command{
		Use:   "seed",
		Short: "Fill the FlavorShare database with sample users and recipes",
		RunE:  runSeed,
	}
)

type seedUser struct {
	username string
	email    string
}

type seedRecipe struct {
	owner       int
	title       string
	description string
	ingredients []string
	steps       []string
	cuisine     string
	dietaryType models.DietaryType
	prepTime    int
	rating      float64
	likedBy     []int
}

var sampleUsers = []seedUser{
	{"chef_maria", "maria@flavorshare.dev"},
	{"homecook_tom", "tom@flavorshare.dev"},
	{"veggie_lena", "lena@flavorshare.dev"},
}

var sampleRecipes = []seedRecipe{
	{
		owner:       0,
		title:       "Spaghetti Carbonara",
		description: "Roman classic with eggs, pecorino and guanciale.",
		ingredients: []string{"200g spaghetti", "100g guanciale", "2 eggs", "50g pecorino romano", "black pepper"},
		steps:       []string{"Boil the pasta.", "Crisp the guanciale.", "Whisk eggs with cheese.", "Toss everything off the heat."},
		cuisine:     "Italian",
		dietaryType: models.DietaryNone,
		prepTime:    25,
		rating:      4.8,
		likedBy:     []int{1, 2},
	},
	{
		owner:       2,
		title:       "Chickpea Curry",
		description: "Creamy coconut curry that comes together in one pot.",
		ingredients: []string{"1 can chickpeas", "1 can coconut milk", "1 onion", "2 tbsp curry paste", "spinach"},
		steps:       []string{"Soften the onion.", "Fry the curry paste.", "Add chickpeas and coconut milk.", "Stir in spinach."},
		cuisine:     "Indian",
		dietaryType: models.DietaryVegan,
		prepTime:    30,
		rating:      4.5,
		likedBy:     []int{0},
	},
	{
		owner:       1,
		title:       "Caprese Salad",
		description: "Tomatoes, mozzarella & basil with good olive oil.",
		ingredients: []string{"3 tomatoes", "1 ball mozzarella", "fresh basil", "olive oil", "flaky salt"},
		steps:       []string{"Slice tomatoes and mozzarella.", "Layer with basil.", "Dress and season."},
		cuisine:     "Italian",
		dietaryType: models.DietaryVegetarian,
		prepTime:    10,
		rating:      4.2,
	},
	{
		owner:       2,
		title:       "Flourless Chocolate Cake",
		description: "Dense, fudgy and naturally gluten free.",
		ingredients: []string{"200g dark chocolate", "150g butter", "4 eggs", "150g sugar", "cocoa powder"},
		steps:       []string{"Melt chocolate with butter.", "Whisk eggs and sugar until pale.", "Fold together and bake 25 minutes."},
		cuisine:     "French",
		dietaryType: models.DietaryGlutenFree,
		prepTime:    45,
		rating:      4.9,
		likedBy:     []int{0, 1, 2},
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}

func init() {
	// Containers pass variables directly; a missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to parse .env file: %v", err)
	}

	rootCmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "database DSN (postgres:// URL or sqlite file)")
	rootCmd.Flags().StringVar(&password, "password", "Password123", "password for every sample user")
	rootCmd.Flags().BoolVar(&reset, "reset", false, "delete all existing rows before seeding")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL or --database-url is required")
	}
	if err := logger.Init(true); err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(databaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	if reset {
		if err := database.Reset(db); err != nil {
			return err
		}
		logger.Log.Info("Existing data removed")
	}

	ctx := cmd.Context()
	users, created, err := seedUsers(ctx, repository.NewUserRepository(db))
	if err != nil {
		return err
	}
	if !created && !reset {
		logger.Log.Info("Sample users already exist, skipping recipes")
		return nil
	}

	if err := seedRecipes(ctx, repository.NewRecipeRepository(db), repository.NewCommentRepository(db), users); err != nil {
		return err
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(users)),
		zap.Int("recipes", len(sampleRecipes)),
	)
	return nil
}

// seedUsers creates the sample users, reusing any that already exist. created
// reports whether at least one user was new.
func seedUsers(ctx context.Context, repo *repository.UserRepository) ([]*models.User, bool, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	users := make([]*models.User, 0, len(sampleUsers))
	created := false
	for _, su := range sampleUsers {
		existing, err := repo.GetUserByEmail(ctx, su.email)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			logger.Log.Info("User already exists", zap.String("username", existing.Username))
			users = append(users, existing)
			continue
		}

		user := &models.User{
			Username:     su.username,
			Email:        su.email,
			PasswordHash: hash,
		}
		if err := repo.CreateUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("create user %s: %w", su.username, err)
		}
		logger.Log.Info("User created", zap.String("username", user.Username))
		users = append(users, user)
		created = true
	}
	return users, created, nil
}

func seedRecipes(ctx context.Context, recipes *repository.RecipeRepository, comments *repository.CommentRepository, users []*models.User) error {
	for _, sr := range sampleRecipes {
		owner := users[sr.owner]
		recipe := &models.Recipe{
			Title:       sr.title,
			Description: sr.description,
			Ingredients: sr.ingredients,
			Steps:       sr.steps,
			Images:      models.StringList{},
			Cuisine:     sr.cuisine,
			DietaryType: sr.dietaryType,
			PrepTime:    sr.prepTime,
			Rating:      sr.rating,
			CreatedBy:   owner.ID,
		}
		if err := recipes.Create(ctx, recipe); err != nil {
			return fmt.Errorf("create recipe %q: %w", sr.title, err)
		}

		for _, i := range sr.likedBy {
			if _, err := recipes.AddLike(ctx, recipe.ID, users[i].ID); err != nil {
				return fmt.Errorf("like recipe %q: %w", sr.title, err)
			}
		}

		for _, i := range sr.likedBy {
			if users[i].ID == owner.ID {
				continue
			}
			comment := &models.Comment{
				RecipeID: recipe.ID,
				UserID:   users[i].ID,
				Text:     "Made this last night, it was a hit!",
			}
			if err := comments.Create(ctx, comment); err != nil {
				return fmt.Errorf("comment on %q: %w", sr.title, err)
			}
		}

		logger.Log.Info("Recipe created",
			zap.String("title", recipe.Title),
			zap.String("owner", owner.Username),
		)
	}
	return nil
}
