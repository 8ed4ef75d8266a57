package framework

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/modeldriven/crm-e2e/test/framework/concurrent"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// Cleanup deletes every tracked record and closes the browser
func (f *Framework) Cleanup() error {
	var errs []error

	// 1. Delete tracked records
	if err := f.cleanupRecords(); err != nil {
		errs = append(errs, err)
	}

	// 2. Close the browser, if one was started
	f.mu.Lock()
	browser := f.browser
	f.browser = nil
	f.mu.Unlock()
	if browser != nil {
		if err := browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// cleanupRecords deletes tracked records in parallel and waits until the
// Web API no longer returns them. Records that could not be deleted stay tracked.
func (f *Framework) cleanupRecords() error {
	records := f.GetTrackedRecords()
	if len(records) == 0 {
		return nil
	}

	gw, err := f.api()
	if err != nil {
		return NewCleanupError("record deletion", err)
	}

	f.logger.Info("deleting tracked records", "count", len(records))

	deleted, err := f.deleteRecords(gw, records)
	f.clearTracked(deleted)
	if err != nil {
		return err
	}

	if err := f.waitForRecordsDeletion(gw, deleted); err != nil {
		return err
	}

	f.logger.Info("cleanup completed", "records", len(deleted))
	return nil
}

// deleteRecords deletes records with bounded concurrency. A record that is
// already gone counts as deleted.
func (f *Framework) deleteRecords(gw *webapi.Gateway, records []TrackedRecord) ([]TrackedRecord, error) {
	var (
		mu      sync.Mutex
		deleted = make([]TrackedRecord, 0, len(records))
	)

	err := concurrent.ForEachWithLimit(f.ctx, records, f.config.MaxConcurrentDeletes, func(ctx context.Context, r TrackedRecord) error {
		f.logger.Debug("deleting record", "collection", r.Collection, "id", r.ID)
		_, err := gw.Delete(ctx, r.Collection, r.ID)
		if err != nil && !webapi.IsNotFound(err) {
			return NewRecordError(r.Collection, r.ID, err)
		}
		mu.Lock()
		deleted = append(deleted, r)
		mu.Unlock()
		return nil
	})
	if err != nil {
		if f.ctx.Err() != nil {
			err = errors.Join(ErrContextCancelled, err)
		}
		return deleted, NewCleanupError("record deletion", err)
	}
	return deleted, nil
}

// waitForRecordsDeletion polls until every record reads as 404
func (f *Framework) waitForRecordsDeletion(gw *webapi.Gateway, records []TrackedRecord) error {
	if len(records) == 0 {
		return nil
	}

	timeout := f.config.CleanupTimeout
	f.logger.Debug("waiting for records to be deleted", "count", len(records), "timeout", timeout)

	pending := make([]TrackedRecord, len(records))
	copy(pending, records)

	ticker := time.NewTicker(f.config.CleanupPollInterval)
	defer ticker.Stop()

	deadline := time.After(timeout)

	for {
		select {
		case <-f.ctx.Done():
			return fmt.Errorf("%w while waiting for record deletion: %v", ErrContextCancelled, f.ctx.Err())
		case <-deadline:
			remaining := make([]string, len(pending))
			for i, r := range pending {
				remaining[i] = r.String()
			}
			return NewTimeoutError("record deletion", timeout.String(), fmt.Sprint(remaining))
		case <-ticker.C:
			var stillPending []TrackedRecord

			for _, r := range pending {
				_, err := gw.GetOne(f.ctx, r.Collection, r.ID)
				if webapi.IsNotFound(err) {
					continue
				}
				if err != nil {
					f.logger.Warn("error checking record", "record", r.String(), "error", err)
				}
				stillPending = append(stillPending, r)
			}

			if len(stillPending) == 0 {
				return nil
			}

			pending = stillPending
			f.logger.Debug("waiting for records to be deleted", "remaining", len(pending))
		}
	}
}
