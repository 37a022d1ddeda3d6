package service

import (
	"context"

	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/internal/metrics"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"go.uber.org/zap"
)

// publish sends event after a committed mutation. Failures are logged and
// never fail the mutation.
func publish(ctx context.Context, events broker.EventBroker, event broker.Event) {
	if events == nil {
		return
	}
	// The request may finish before the broker answers.
	if err := events.Publish(context.WithoutCancel(ctx), event); err != nil {
		metrics.EventPublishFailures.Inc()
		logger.Log.Warn("Failed to publish event",
			zap.String("type", string(event.Type)),
			zap.String("recipe_id", event.RecipeID.String()),
			zap.Error(err),
		)
	}
}
