// Package retry runs an operation again when it fails with a retryable error.
//
// Only errors typed as transient by zonerama/pkg/errors are retried by
// default. Callers that need a different policy pass RetryIf.
//
//	err := retry.Do(func(attempt int) error {
//		return openAndDownload(ctx, album)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: 2 * time.Second},
//		Context:     ctx,
//	})
package retry
