package pipeline

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/replaylab/replay-ingest/internal/tenant"
)

// retryOnDependencyUnavailable runs one message's processing, retrying in
// place while it fails with a transient dependency error. Any other error is
// permanent and propagates immediately; exhausting the attempt budget
// escalates the transient error. This is the single seam separating
// "infrastructure is flaky, try again" from "code or data is wrong, stop".
func retryOnDependencyUnavailable(ctx context.Context, cfg RetryConfig, log *zap.Logger, fn func() ([]*Delivery, error)) ([]*Delivery, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.Interval), uint64(cfg.MaxAttempts-1)),
		ctx,
	)

	var deliveries []*Delivery
	operation := func() error {
		var err error
		deliveries, err = fn()
		if err == nil {
			return nil
		}
		if tenant.IsDependencyUnavailable(err) {
			log.Warn("dependency unavailable, retrying message", zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return deliveries, nil
}
