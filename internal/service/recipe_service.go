package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/internal/metrics"
	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/policy"
	"github.com/Baaaki/flavorshare/internal/query"
	"github.com/Baaaki/flavorshare/internal/repository"
	"github.com/Baaaki/flavorshare/internal/storage"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recipeResource = "Recipe"

// RecipeInput is the body of a recipe create request.
type RecipeInput struct {
	Title       string   `json:"title" validate:"notblank,max=200"`
	Description string   `json:"description" validate:"notblank"`
	Ingredients []string `json:"ingredients" validate:"min=1,max=100,dive,notblank"`
	Steps       []string `json:"steps" validate:"min=1,max=100,dive,notblank"`
	Images      []string `json:"images" validate:"max=20,dive,url"`
	Cuisine     string   `json:"cuisine" validate:"notblank,max=100"`
	DietaryType string   `json:"dietaryType" validate:"omitempty,dietarytype"`
	PrepTime    int      `json:"prepTime" validate:"gt=0"`
}

// RecipePatch is a partial update; nil fields are left unchanged.
type RecipePatch struct {
	Title       *string   `json:"title" validate:"omitnil,notblank,max=200"`
	Description *string   `json:"description" validate:"omitnil,notblank"`
	Ingredients *[]string `json:"ingredients" validate:"omitnil,min=1,max=100,dive,notblank"`
	Steps       *[]string `json:"steps" validate:"omitnil,min=1,max=100,dive,notblank"`
	Images      *[]string `json:"images" validate:"omitnil,max=20,dive,url"`
	Cuisine     *string   `json:"cuisine" validate:"omitnil,notblank,max=100"`
	DietaryType *string   `json:"dietaryType" validate:"omitnil,dietarytype"`
	PrepTime    *int      `json:"prepTime" validate:"omitnil,gt=0"`
}

// columns maps the present fields to their column values.
func (p RecipePatch) columns() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Ingredients != nil {
		fields["ingredients"] = models.StringList(*p.Ingredients)
	}
	if p.Steps != nil {
		fields["steps"] = models.StringList(*p.Steps)
	}
	if p.Images != nil {
		fields["images"] = models.StringList(*p.Images)
	}
	if p.Cuisine != nil {
		fields["cuisine"] = *p.Cuisine
	}
	if p.DietaryType != nil {
		fields["dietary_type"] = models.DietaryType(*p.DietaryType)
	}
	if p.PrepTime != nil {
		fields["prep_time"] = *p.PrepTime
	}
	return fields
}

// LikeState is the caller's like status after a like or unlike.
type LikeState struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

type RecipeService struct {
	recipes        *repository.RecipeRepository
	users          *repository.UserRepository
	events         broker.EventBroker
	images         storage.ImageStore
	maxUploadBytes int64
}

func NewRecipeService(recipes *repository.RecipeRepository, users *repository.UserRepository, events broker.EventBroker) *RecipeService {
	if events == nil {
		events = broker.NopBroker{}
	}
	return &RecipeService{recipes: recipes, users: users, events: events}
}

// WithImageStore enables image uploads of at most maxBytes.
func (s *RecipeService) WithImageStore(images storage.ImageStore, maxBytes int64) *RecipeService {
	s.images = images
	s.maxUploadBytes = maxBytes
	return s
}

func (s *RecipeService) Create(ctx context.Context, caller *policy.Caller, in RecipeInput) (*models.Recipe, error) {
	if err := policy.Authorize(caller, policy.ActionCreateRecipe, nil).Error(); err != nil {
		return nil, err
	}
	if err := requireAccount(ctx, s.users, caller); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		logger.Log.Warn("Recipe validation failed",
			zap.String("user_id", caller.UserID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	recipe := &models.Recipe{
		Title:       in.Title,
		Description: in.Description,
		Ingredients: models.StringList(in.Ingredients),
		Steps:       models.StringList(in.Steps),
		Images:      models.StringList(in.Images),
		Cuisine:     in.Cuisine,
		DietaryType: models.DietaryType(in.DietaryType),
		PrepTime:    in.PrepTime,
		CreatedBy:   caller.UserID,
	}
	if recipe.Images == nil {
		recipe.Images = models.StringList{}
	}

	if err := s.recipes.Create(ctx, recipe); err != nil {
		logger.Log.Error("Failed to create recipe",
			zap.String("user_id", caller.UserID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	created, err := s.load(ctx, recipe.ID)
	if err != nil {
		return nil, err
	}

	metrics.RecipesCreated.Inc()
	logger.Log.Info("Recipe created",
		zap.String("recipe_id", created.ID.String()),
		zap.String("user_id", caller.UserID.String()),
	)
	publish(ctx, s.events, broker.NewEvent(broker.EventRecipeCreated, created.ID, caller.UserID, map[string]string{
		"title": created.Title,
	}))

	return created, nil
}

func (s *RecipeService) List(ctx context.Context, q query.RecipeQuery) ([]models.Recipe, error) {
	start := time.Now()

	recipes, err := s.recipes.List(ctx, q)
	if err != nil {
		logger.Log.Error("Failed to list recipes", zap.Error(err))
		return nil, err
	}

	logger.Log.Debug("Listed recipes",
		zap.Int("count", len(recipes)),
		zap.String("sort", string(q.Sort)),
		zap.Duration("duration", time.Since(start)),
	)
	return recipes, nil
}

func (s *RecipeService) Get(ctx context.Context, rawID string) (*models.Recipe, error) {
	id, err := parseID(rawID, recipeResource)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// load fetches a recipe with author and likes, or NotFound.
func (s *RecipeService) load(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to load recipe",
			zap.String("recipe_id", id.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if recipe == nil {
		return nil, apperror.NotFound(recipeResource)
	}
	return recipe, nil
}

// authorizeOn resolves the recipe, then checks action against its owner.
// Existence is checked first so a missing recipe is NotFound for everyone.
func (s *RecipeService) authorizeOn(ctx context.Context, caller *policy.Caller, action policy.Action, rawID string) (*models.Recipe, error) {
	id, err := parseID(rawID, recipeResource)
	if err != nil {
		return nil, err
	}
	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(caller, action, policy.Owned(recipe.CreatedBy)).Error(); err != nil {
		logger.Log.Warn("Recipe action denied",
			zap.String("recipe_id", id.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return nil, err
	}
	if err := requireAccount(ctx, s.users, caller); err != nil {
		return nil, err
	}
	return recipe, nil
}

// CheckAccess reports whether caller may perform action on the recipe, with
// the same error precedence the action itself applies.
func (s *RecipeService) CheckAccess(ctx context.Context, caller *policy.Caller, action policy.Action, rawID string) error {
	_, err := s.authorizeOn(ctx, caller, action, rawID)
	return err
}

// ownershipLost explains why a guarded write touched no row: the recipe was
// deleted or changed hands after it was read.
func (s *RecipeService) ownershipLost(ctx context.Context, caller *policy.Caller, id uuid.UUID, action policy.Action) error {
	exists, err := s.recipes.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NotFound(recipeResource)
	}
	// No resource: the policy reports the caller as a non-owner.
	return policy.Authorize(caller, action, nil).Error()
}

func (s *RecipeService) Update(ctx context.Context, caller *policy.Caller, rawID string, patch RecipePatch) (*models.Recipe, error) {
	recipe, err := s.authorizeOn(ctx, caller, policy.ActionUpdateRecipe, rawID)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	if fields := patch.columns(); len(fields) > 0 {
		updated, err := s.recipes.Update(ctx, recipe.ID, caller.UserID, fields)
		if err != nil {
			logger.Log.Error("Failed to update recipe",
				zap.String("recipe_id", recipe.ID.String()),
				zap.Error(err),
			)
			return nil, err
		}
		if !updated {
			return nil, s.ownershipLost(ctx, caller, recipe.ID, policy.ActionUpdateRecipe)
		}
	}

	result, err := s.load(ctx, recipe.ID)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Recipe updated",
		zap.String("recipe_id", recipe.ID.String()),
		zap.String("user_id", caller.UserID.String()),
	)
	publish(ctx, s.events, broker.NewEvent(broker.EventRecipeUpdated, recipe.ID, caller.UserID, nil))

	return result, nil
}

func (s *RecipeService) Delete(ctx context.Context, caller *policy.Caller, rawID string) error {
	recipe, err := s.authorizeOn(ctx, caller, policy.ActionDeleteRecipe, rawID)
	if err != nil {
		return err
	}

	deleted, err := s.recipes.Delete(ctx, recipe.ID, caller.UserID)
	if err != nil {
		logger.Log.Error("Failed to delete recipe",
			zap.String("recipe_id", recipe.ID.String()),
			zap.Error(err),
		)
		return err
	}
	if !deleted {
		return s.ownershipLost(ctx, caller, recipe.ID, policy.ActionDeleteRecipe)
	}

	metrics.RecipesDeleted.Inc()
	logger.Log.Info("Recipe deleted",
		zap.String("recipe_id", recipe.ID.String()),
		zap.String("user_id", caller.UserID.String()),
	)
	publish(ctx, s.events, broker.NewEvent(broker.EventRecipeDeleted, recipe.ID, caller.UserID, nil))

	return nil
}

func (s *RecipeService) Like(ctx context.Context, caller *policy.Caller, rawID string) (*LikeState, error) {
	recipe, err := s.authorizeOn(ctx, caller, policy.ActionLikeRecipe, rawID)
	if err != nil {
		return nil, err
	}

	changed, err := s.recipes.AddLike(ctx, recipe.ID, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperror.NotFound(recipeResource)
		}
		logger.Log.Error("Failed to like recipe",
			zap.String("recipe_id", recipe.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	return s.likeState(ctx, recipe.ID, caller.UserID, true, changed, broker.EventRecipeLiked)
}

func (s *RecipeService) Unlike(ctx context.Context, caller *policy.Caller, rawID string) (*LikeState, error) {
	recipe, err := s.authorizeOn(ctx, caller, policy.ActionLikeRecipe, rawID)
	if err != nil {
		return nil, err
	}

	changed, err := s.recipes.RemoveLike(ctx, recipe.ID, caller.UserID)
	if err != nil {
		logger.Log.Error("Failed to unlike recipe",
			zap.String("recipe_id", recipe.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	return s.likeState(ctx, recipe.ID, caller.UserID, false, changed, broker.EventRecipeUnliked)
}

// likeState reports the caller's like status. Only a like or unlike that
// changed a row is counted and published.
func (s *RecipeService) likeState(ctx context.Context, recipeID, userID uuid.UUID, liked, changed bool, eventType broker.EventType) (*LikeState, error) {
	count, err := s.recipes.CountLikes(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	state := &LikeState{Liked: liked, LikesCount: count}
	if !changed {
		return state, nil
	}

	action := "unlike"
	if liked {
		action = "like"
	}
	metrics.LikesTotal.WithLabelValues(action).Inc()
	publish(ctx, s.events, broker.NewEvent(eventType, recipeID, userID, state))
	return state, nil
}

// UploadsEnabled reports whether an image store is configured.
func (s *RecipeService) UploadsEnabled() bool {
	return s.images != nil
}

// AddImage stores an uploaded image and appends its URL to the recipe.
// Only the owner may add images.
func (s *RecipeService) AddImage(ctx context.Context, caller *policy.Caller, rawID string, data []byte) (*models.Recipe, error) {
	recipe, err := s.authorizeOn(ctx, caller, policy.ActionUpdateRecipe, rawID)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, errors.New("image uploads are not configured")
	}

	if len(data) == 0 {
		return nil, apperror.ValidationFailed("image", "image is required")
	}
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return nil, apperror.ValidationFailed("image", fmt.Sprintf("image must be at most %d bytes", s.maxUploadBytes))
	}
	contentType, ext, err := storage.DetectImage(data)
	if err != nil {
		return nil, apperror.ValidationFailed("image", "image must be a JPEG, PNG, WebP or GIF file")
	}

	key := fmt.Sprintf("recipes/%s/%s%s", recipe.ID, uuid.New(), ext)
	url, err := s.images.Put(ctx, key, contentType, data)
	if err != nil {
		logger.Log.Error("Failed to store recipe image",
			zap.String("recipe_id", recipe.ID.String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, err
	}

	appended, err := s.recipes.AppendImage(ctx, recipe.ID, caller.UserID, url)
	if err != nil {
		logger.Log.Error("Failed to attach recipe image",
			zap.String("recipe_id", recipe.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if !appended {
		return nil, s.ownershipLost(ctx, caller, recipe.ID, policy.ActionUpdateRecipe)
	}

	metrics.ImagesUploaded.Inc()
	logger.Log.Info("Recipe image added",
		zap.String("recipe_id", recipe.ID.String()),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
	)

	result, err := s.load(ctx, recipe.ID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, broker.NewEvent(broker.EventRecipeUpdated, recipe.ID, caller.UserID, map[string]string{
		"image": url,
	}))
	return result, nil
}
