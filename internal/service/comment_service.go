package service

import (
	"context"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/internal/metrics"
	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/policy"
	"github.com/Baaaki/flavorshare/internal/repository"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"go.uber.org/zap"
)

// CommentInput is the body of an add-comment request.
type CommentInput struct {
	Text string `json:"text" validate:"notblank,max=2000"`
}

type CommentService struct {
	comments *repository.CommentRepository
	recipes  *repository.RecipeRepository
	users    *repository.UserRepository
	events   broker.EventBroker
}

func NewCommentService(comments *repository.CommentRepository, recipes *repository.RecipeRepository, users *repository.UserRepository, events broker.EventBroker) *CommentService {
	if events == nil {
		events = broker.NopBroker{}
	}
	return &CommentService{comments: comments, recipes: recipes, users: users, events: events}
}

// Add checks the recipe exists, then that the caller is signed in, then
// validates and stores the comment.
func (s *CommentService) Add(ctx context.Context, caller *policy.Caller, rawRecipeID string, in CommentInput) (*models.Comment, error) {
	recipeID, err := parseID(rawRecipeID, recipeResource)
	if err != nil {
		return nil, err
	}

	exists, err := s.recipes.Exists(ctx, recipeID)
	if err != nil {
		logger.Log.Error("Failed to check recipe existence",
			zap.String("recipe_id", recipeID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound(recipeResource)
	}

	if err := policy.Authorize(caller, policy.ActionAddComment, nil).Error(); err != nil {
		return nil, err
	}
	if err := requireAccount(ctx, s.users, caller); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		RecipeID: recipeID,
		UserID:   caller.UserID,
		Text:     in.Text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		logger.Log.Error("Failed to create comment",
			zap.String("recipe_id", recipeID.String()),
			zap.String("user_id", caller.UserID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.CommentsAdded.Inc()
	logger.Log.Info("Comment added",
		zap.String("comment_id", comment.ID.String()),
		zap.String("recipe_id", recipeID.String()),
		zap.String("user_id", caller.UserID.String()),
	)
	publish(ctx, s.events, broker.NewEvent(broker.EventCommentAdded, recipeID, caller.UserID, map[string]string{
		"commentId": comment.ID.String(),
		"username":  comment.User.Username,
		"text":      comment.Text,
	}))

	return comment, nil
}

// List returns a recipe's comments newest first, or NotFound for a missing
// recipe.
func (s *CommentService) List(ctx context.Context, rawRecipeID string) ([]models.Comment, error) {
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

	comments, err := s.comments.ListByRecipe(ctx, recipeID)
	if err != nil {
		logger.Log.Error("Failed to list comments",
			zap.String("recipe_id", recipeID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return comments, nil
}
