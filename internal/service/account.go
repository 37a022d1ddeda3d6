package service

import (
	"context"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/policy"
	"github.com/Baaaki/flavorshare/internal/repository"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"go.uber.org/zap"
)

// requireAccount rejects a caller whose user row is gone. Tokens outlive
// their accounts, so a valid signature alone does not prove the author
// still exists. A nil caller is left to the policy.
func requireAccount(ctx context.Context, users *repository.UserRepository, caller *policy.Caller) error {
	if caller == nil {
		return nil
	}
	exists, err := users.Exists(ctx, caller.UserID)
	if err != nil {
		logger.Log.Error("Failed to check caller account",
			zap.String("user_id", caller.UserID.String()),
			zap.Error(err),
		)
		return err
	}
	if !exists {
		logger.Log.Warn("Caller account no longer exists",
			zap.String("user_id", caller.UserID.String()),
		)
		return apperror.Unauthorized("User no longer exists")
	}
	return nil
}
