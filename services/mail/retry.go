package mail

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
)

// RetrySender retries transport failures with exponential backoff. Invalid
// messages and context cancellation are not retried.
type RetrySender struct {
	next       Sender
	maxRetries uint64
	delay      time.Duration
	logger     *logging.Service
}

func NewRetrySender(next Sender, maxRetries uint64, delay time.Duration, logger *logging.Service) *RetrySender {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &RetrySender{
		next:       next,
		maxRetries: maxRetries,
		delay:      delay,
		logger:     logger.Named("mail"),
	}
}

func (r *RetrySender) Send(ctx context.Context, msg *Message) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.delay
	policy.MaxInterval = 10 * r.delay
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		err := r.next.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrInvalidMessage) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("retrying email delivery",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait))
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx), notify)
	if err != nil {
		if errors.Is(err, ErrInvalidMessage) {
			return err
		}
		return transportError(err)
	}
	return nil
}
