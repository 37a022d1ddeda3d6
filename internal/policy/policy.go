// Package policy decides whether a caller may perform an action on a recipe.
//
// Decisions are pure: the caller identity and the target resource must already
// be resolved (and the resource's existence established) before Authorize runs.
package policy

import (
	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/google/uuid"
)

type Action string

const (
	ActionListRecipes  Action = "recipes:list"
	ActionReadRecipe   Action = "recipes:read"
	ActionReadComments Action = "comments:list"

	ActionCreateRecipe Action = "recipes:create"
	ActionAddComment   Action = "comments:create"
	ActionLikeRecipe   Action = "recipes:like"
	ActionFavorite     Action = "favorites:write"

	ActionUpdateRecipe Action = "recipes:update"
	ActionDeleteRecipe Action = "recipes:delete"
)

// Caller is the identity resolved from a request credential. A nil *Caller is
// an anonymous request.
type Caller struct {
	UserID   uuid.UUID
	Username string
}

// Resource carries the ownership facts of an already-fetched target.
type Resource struct {
	OwnerID uuid.UUID
}

// Owned describes a resource created by ownerID.
func Owned(ownerID uuid.UUID) *Resource {
	return &Resource{OwnerID: ownerID}
}

// Decision is the outcome of Authorize. Err is set iff Allowed is false.
type Decision struct {
	Allowed bool
	Err     *apperror.AppError
}

var allow = Decision{Allowed: true}

func deny(err *apperror.AppError) Decision {
	return Decision{Err: err}
}

const (
	msgAuthRequired = "Authentication required"
	msgEditOwn      = "You can only edit your own recipes"
	msgDeleteOwn    = "You can only delete your own recipes"
)

// Authorize evaluates action for caller against resource.
func Authorize(caller *Caller, action Action, resource *Resource) Decision {
	switch action {
	case ActionListRecipes, ActionReadRecipe, ActionReadComments:
		return allow

	case ActionCreateRecipe, ActionAddComment, ActionLikeRecipe, ActionFavorite:
		if !authenticated(caller) {
			return deny(apperror.Unauthorized(msgAuthRequired))
		}
		return allow

	case ActionUpdateRecipe, ActionDeleteRecipe:
		if !authenticated(caller) {
			return deny(apperror.Unauthorized(msgAuthRequired))
		}
		if resource == nil || resource.OwnerID != caller.UserID {
			if action == ActionDeleteRecipe {
				return deny(apperror.Forbidden(msgDeleteOwn))
			}
			return deny(apperror.Forbidden(msgEditOwn))
		}
		return allow
	}

	// Unknown actions fail closed.
	return deny(apperror.Forbidden("Action not permitted"))
}

func authenticated(caller *Caller) bool {
	return caller != nil && caller.UserID != uuid.Nil
}

// Error returns the denial as an error, or nil when allowed.
func (d Decision) Error() error {
	if d.Allowed {
		return nil
	}
	return d.Err
}
