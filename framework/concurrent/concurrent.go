// Package concurrent runs Web API calls for batches of records with bounded
// parallelism. Every item is processed even when some fail; failures are
// aggregated with errors.Join.
//
//	err := concurrent.ForEachWithLimit(ctx, tracked, 5, func(ctx context.Context, r TrackedRecord) error {
//	    _, err := gw.Delete(ctx, r.Collection, r.ID)
//	    return err
//	})
//
//	ids, err := concurrent.MapWithLimit(ctx, contacts, 3, func(ctx context.Context, c record.Contact) (string, error) {
//	    return gw.Post(ctx, c.Collection(), webapi.WriteRequest{Data: c.Fields()})
//	})
package concurrent

import (
	"context"
	"errors"
	"sync"
)

// ForEachWithLimit executes fn for each item with at most limit calls in flight.
// Items not started before ctx is cancelled report ctx.Err().
func ForEachWithLimit[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	_, err := MapWithLimit(ctx, items, limit, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}

// MapWithLimit applies fn to each item with at most limit calls in flight.
// Order of results matches order of items; a failed item leaves the zero value.
func MapWithLimit[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	if limit <= 0 {
		limit = 1
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, item := range items {
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = fn(ctx, item)
		}(i, item)
	}

	wg.Wait()

	// Collect errors
	var allErrs []error
	for _, err := range errs {
		if err != nil {
			allErrs = append(allErrs, err)
		}
	}

	if len(allErrs) > 0 {
		return results, errors.Join(allErrs...)
	}

	return results, nil
}
