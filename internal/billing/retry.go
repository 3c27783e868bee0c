package billing

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Category classifies gateway failures for the retry policy.
type Category string

const (
	CategoryNetwork         Category = "network"
	CategoryConnection      Category = "connection"
	CategoryTimeout         Category = "timeout"
	CategoryProductNotFound Category = "product-not-found"
	CategoryUserCancelled   Category = "user-cancelled"
	CategoryAlreadyOwned    Category = "already-owned"
	CategoryInvalid         Category = "invalid"
	CategoryUnknown         Category = "unknown"
)

// Error is a gateway failure tagged with its category.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return string(e.Category) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether c is worth another attempt.
func (c Category) Retryable() bool {
	switch c {
	case CategoryNetwork, CategoryConnection, CategoryTimeout, CategoryProductNotFound:
		return true
	}
	return false
}

// Classify maps err to a Category.
func Classify(err error) Category {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return CategoryConnection
	}
	return CategoryUnknown
}

// RetryPolicy bounds gateway retries.
type RetryPolicy struct {
	Attempts          int
	InitialInterval   time.Duration
	PerAttemptTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:          3,
		InitialInterval:   500 * time.Millisecond,
		PerAttemptTimeout: 15 * time.Second,
	}
}

// Do runs op until it succeeds, fails with a non-retryable category, or
// the attempts are used up. Each attempt gets its own timeout.
func (p RetryPolicy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	log := logrus.WithField("component", "billing").WithField("op", name)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		attemptCtx := ctx
		if p.PerAttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.PerAttemptTimeout)
			defer cancel()
		}
		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		category := Classify(err)
		if !category.Retryable() {
			return backoff.Permanent(err)
		}
		log.WithError(err).WithField("attempt", attempt).WithField("category", category).Warn("gateway call failed, retrying")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx))
}
