package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"accreditation/internal/model"
	"accreditation/internal/wizard"
)

// RetrySubmitter bounds every attempt with a timeout and retries transient
// failures with exponential backoff. PermanentErrors are returned at once.
type RetrySubmitter struct {
	next       wizard.Submitter
	timeout    time.Duration
	retries    uint64
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

var _ wizard.Submitter = (*RetrySubmitter)(nil)

func NewRetrySubmitter(next wizard.Submitter, timeout time.Duration, retries uint64, logger *zap.Logger) *RetrySubmitter {
	return &RetrySubmitter{
		next:    next,
		timeout: timeout,
		retries: retries,
		logger:  logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

func (r *RetrySubmitter) Submit(ctx context.Context, payload model.SubmissionPayload) (string, error) {
	var id string
	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		var err error
		id, err = r.next.Submit(attemptCtx, payload)
		var perm *PermanentError
		if errors.As(err, &perm) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("submission attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.retries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return "", err
	}
	return id, nil
}
