// Package wait polls the Web API until records reach an expected state.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// ErrTimeout indicates the condition was not met before the timeout
var ErrTimeout = errors.New("timed out waiting")

// Getter reads a single record. *webapi.Gateway satisfies it.
type Getter interface {
	GetOne(ctx context.Context, collection, id string, selects ...string) (webapi.Row, error)
}

// ConditionFunc reports whether polling can stop. A non-nil error stops polling.
type ConditionFunc func(ctx context.Context) (bool, error)

// ForCondition checks cond immediately and then every interval until it
// returns true, returns an error, the timeout passes or ctx is done.
func ForCondition(ctx context.Context, timeout, interval time.Duration, cond ConditionFunc) error {
	if interval <= 0 {
		interval = time.Second
	}

	done, err := cond(ctx)
	if err != nil || done {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w after %v", ErrTimeout, timeout)
		case <-ticker.C:
			done, err := cond(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// ForRecord waits until the record can be read and returns it.
// Not-found answers are retried; any other error is returned at once.
func ForRecord(ctx context.Context, g Getter, collection, id string, timeout, interval time.Duration, selects ...string) (webapi.Row, error) {
	var row webapi.Row
	err := ForCondition(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		r, err := g.GetOne(ctx, collection, id, selects...)
		if webapi.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		row = r
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("record %s(%s) not readable: %w", collection, id, err)
	}
	return row, nil
}

// ForRecordMatching waits until the record can be read and match returns true for it.
func ForRecordMatching(ctx context.Context, g Getter, collection, id string, timeout, interval time.Duration, match func(webapi.Row) bool) (webapi.Row, error) {
	var row webapi.Row
	err := ForCondition(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		r, err := g.GetOne(ctx, collection, id)
		if webapi.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		row = r
		return match(r), nil
	})
	if err != nil {
		return row, fmt.Errorf("record %s(%s) did not reach the expected state: %w", collection, id, err)
	}
	return row, nil
}

// ForRecordDeleted waits until reading the record answers 404
func ForRecordDeleted(ctx context.Context, g Getter, collection, id string, timeout, interval time.Duration) error {
	err := ForCondition(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		_, err := g.GetOne(ctx, collection, id)
		if webapi.IsNotFound(err) {
			return true, nil
		}
		return false, err
	})
	if err != nil {
		return fmt.Errorf("record %s(%s) still present: %w", collection, id, err)
	}
	return nil
}
