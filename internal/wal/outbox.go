package wal

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/internal/metrics"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"go.uber.org/zap"
)

// Outbox wraps a broker so events that fail to publish are spooled to the
// log and retried later. Subscribe and Close go straight to the inner broker.
type Outbox struct {
	broker.EventBroker
	log *WAL
}

func NewOutbox(inner broker.EventBroker, log *WAL) *Outbox {
	return &Outbox{EventBroker: inner, log: log}
}

// Publish returns the broker error even when the event was spooled.
func (o *Outbox) Publish(ctx context.Context, event broker.Event) error {
	err := o.EventBroker.Publish(ctx, event)
	if err == nil {
		return nil
	}
	if _, spoolErr := o.log.Append(event); spoolErr != nil {
		return errors.Join(err, spoolErr)
	}
	metrics.EventsSpooled.Inc()
	return err
}

// Replay republishes spooled events in order and stops at the first failure
// so delivery order is kept. It returns how many were delivered.
func (o *Outbox) Replay(ctx context.Context) (int, error) {
	entries, err := o.log.Entries()
	if err != nil {
		return 0, err
	}

	delivered := make([]string, 0, len(entries))
	var publishErr error
	for _, entry := range entries {
		if publishErr = o.EventBroker.Publish(ctx, entry.Event); publishErr != nil {
			break
		}
		delivered = append(delivered, entry.ID)
	}

	if err := o.log.Remove(delivered); err != nil {
		return 0, err
	}
	if len(delivered) > 0 {
		metrics.EventsReplayed.Add(float64(len(delivered)))
		logger.Log.Info("Spooled events delivered",
			zap.Int("delivered", len(delivered)),
			zap.Int("pending", len(entries)-len(delivered)),
		)
	}
	return len(delivered), publishErr
}

// Run replays the spool every interval until ctx is done.
func (o *Outbox) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.Replay(ctx); err != nil {
				logger.Log.Warn("Event replay incomplete", zap.Error(err))
			}
		}
	}
}
