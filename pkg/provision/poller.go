package provision

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// CheckFunc reports whether the awaited remote state is visible yet
type CheckFunc func(ctx context.Context) (bool, error)

// errNotVisible makes the backoff retry a check that came back false
var errNotVisible = errors.New("not visible yet")

// Poller waits for a freshly created entity to become visible. It sleeps
// SettleDelay, then runs the check up to Attempts times, Interval apart.
type Poller struct {
	SettleDelay time.Duration
	Interval    time.Duration
	Attempts    int
}

// DefaultPoller returns the poller used when none is configured
func DefaultPoller() Poller {
	return Poller{
		SettleDelay: 200 * time.Millisecond,
		Interval:    200 * time.Millisecond,
		Attempts:    5,
	}
}

// Poll returns true once check succeeds and false when attempts run out.
// A check error or context cancellation ends the poll with that error.
func (p Poller) Poll(ctx context.Context, check CheckFunc) (bool, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	if err := settle(ctx, p.SettleDelay); err != nil {
		return false, err
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		ok, err := check(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !ok {
			return struct{}{}, errNotVisible
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Interval)),
		backoff.WithMaxTries(uint(attempts)),
		// attempts bound the poll, not elapsed time
		backoff.WithMaxElapsedTime(time.Duration(attempts)*(p.Interval+time.Minute)),
	)

	var permanent *backoff.PermanentError
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotVisible):
		return false, nil
	case errors.As(err, &permanent):
		return false, permanent.Unwrap()
	default:
		return false, err
	}
}

// settle waits d unless ctx ends first
func settle(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
