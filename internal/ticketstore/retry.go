package ticketstore

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/ticketboard/internal/model"
)

// RetryOptions configures WithRetry.
type RetryOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff step; it doubles per attempt.
	BaseDelay time.Duration

	// MaxDelay caps a single wait, including server Retry-After values.
	MaxDelay time.Duration

	Logger log.FieldLogger

	// sleep waits for d or until ctx is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// retryStore decorates a TicketStore with retries on temporary failures.
type retryStore struct {
	next TicketStore
	opts RetryOptions
}

// WithRetry wraps store so that calls failing with a temporary
// RemoteError (transport error, 429, 5xx) are retried with exponential
// backoff, honouring Retry-After.
func WithRetry(store TicketStore, opts RetryOptions) TicketStore {
	if opts.MaxRetries <= 0 {
		return store
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.sleep == nil {
		opts.sleep = sleepCtx
	}
	return &retryStore{next: store, opts: opts}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// newBackOff returns the wait policy for one call: exponential steps
// from BaseDelay capped at MaxDelay, without jitter, stopping after
// MaxRetries waits or when ctx is done.
func (r *retryStore) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.opts.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = r.opts.MaxDelay
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.opts.MaxRetries)), ctx)
}

// retry runs fn until it succeeds, fails permanently or runs out of
// attempts. Calls that are not idempotent are only retried on 429, where
// the server is known not to have acted.
func retry[T any](ctx context.Context, r *retryStore, op string, idempotent bool, fn func() (T, error)) (T, error) {
	var zero T
	b := r.newBackOff(ctx)
	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}

		var remote *RemoteError
		if !errors.As(err, &remote) || !remote.Temporary() {
			return zero, err
		}
		if !idempotent && remote.StatusCode != http.StatusTooManyRequests {
			return zero, err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return zero, err
		}
		if remote.RetryAfter > 0 {
			wait = min(remote.RetryAfter, r.opts.MaxDelay)
		}
		r.opts.Logger.WithFields(log.Fields{
			"op":      op,
			"attempt": attempt,
			"status":  remote.StatusCode,
			"wait":    wait.String(),
		}).Warn("retrying ticket API call")

		if err := r.opts.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

type none struct{}

func (r *retryStore) CreateTask(ctx context.Context, status string, in model.TaskInput) (model.Task, error) {
	return retry(ctx, r, "create_task", false, func() (model.Task, error) {
		return r.next.CreateTask(ctx, status, in)
	})
}

func (r *retryStore) UpdateTask(ctx context.Context, externalID int64, patch model.TaskPatch) (model.Task, error) {
	return retry(ctx, r, "update_task", true, func() (model.Task, error) {
		return r.next.UpdateTask(ctx, externalID, patch)
	})
}

func (r *retryStore) DeleteTask(ctx context.Context, externalID int64) error {
	_, err := retry(ctx, r, "delete_task", true, func() (none, error) {
		return none{}, r.next.DeleteTask(ctx, externalID)
	})
	return err
}

func (r *retryStore) UpdateStatus(ctx context.Context, externalID int64, status string) (model.Task, error) {
	return retry(ctx, r, "update_status", true, func() (model.Task, error) {
		return r.next.UpdateStatus(ctx, externalID, status)
	})
}

func (r *retryStore) FetchAll(ctx context.Context) (map[string][]model.Task, error) {
	return retry(ctx, r, "fetch_all", true, func() (map[string][]model.Task, error) {
		return r.next.FetchAll(ctx)
	})
}

func (r *retryStore) ListComments(ctx context.Context, externalID int64) ([]model.Comment, error) {
	return retry(ctx, r, "list_comments", true, func() ([]model.Comment, error) {
		return r.next.ListComments(ctx, externalID)
	})
}

func (r *retryStore) AddComment(ctx context.Context, externalID int64, text string) (model.Comment, error) {
	return retry(ctx, r, "add_comment", false, func() (model.Comment, error) {
		return r.next.AddComment(ctx, externalID, text)
	})
}

func (r *retryStore) Ping(ctx context.Context) error {
	_, err := retry(ctx, r, "ping", true, func() (none, error) {
		return none{}, r.next.Ping(ctx)
	})
	return err
}
