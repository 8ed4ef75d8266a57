// Package retry repeats Web API and browser setup calls that fail for
// transient reasons, doubling the wait between attempts.
//
// Retry a read while the organization is throttling:
//
//	row, err := retry.DoWithData(ctx, func(ctx context.Context) (webapi.Row, error) {
//	    return gw.GetOne(ctx, "contacts", id)
//	}, retry.WithMaxAttempts(4), retry.WithRetryIf(retry.IsTransient))
//
// IsTransient accepts transport failures and the 429, 502, 503 and 504
// statuses. Anything else (a 400 from a bad payload, a 401 from an expired
// session) is returned after the first attempt.
//
// A create is not idempotent: a timeout or a gateway error may arrive after
// the row was committed. Retry creates with IsUnprocessed, which only accepts
// 429, 503 and connections that failed before the request was sent:
//
//	id, err := retry.DoWithData(ctx, func(ctx context.Context) (string, error) {
//	    return gw.Post(ctx, "contacts", webapi.WriteRequest{Data: c.Fields()})
//	}, retry.WithRetryIf(retry.IsUnprocessed))
//
// Wrap an error with Permanent to stop retrying from inside fn:
//
//	if webapi.StatusCode(err) == http.StatusForbidden {
//	    return retry.Permanent(err)
//	}
//
// WithOnRetry is the hook for logging:
//
//	retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
//	    logger.Warn("request failed, retrying", "attempt", attempt, "delay", delay, "error", err)
//	})
package retry
