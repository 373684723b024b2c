// Package retry wraps every network call the sync makes in one classify-and-retry policy.
//
// # Error Kinds
//
// Classify maps any error onto a Kind:
//   - auth: missing or rejected credentials (401/403). Never retried.
//   - network: DNS, connect, reset, timeout and transient 5xx. Retried.
//   - rate_limited: 429 or quota wording. Retried, honouring Retry-After.
//   - data: malformed or unexpected payloads. Never retried.
//   - unknown: everything else. Never retried.
//
// # Executor
//
// Executor.Run and the generic Do attempt an operation up to Policy.MaxAttempts
// times. Between attempts they sleep for Policy.Delay: exponential backoff from
// the attempt number, raised to any server-provided Retry-After, plus up to
// Policy.Jitter random jitter, capped at Policy.MaxDelay.
//
// The caller only ever sees the final outcome: the result, or the
// error of the last attempt, unchanged.
//
// # Usage
//
//	exec := retry.NewExecutor(retry.DefaultPolicy(), log)
//	url, err := retry.Do(ctx, exec, "micropub.create", func(ctx context.Context) (string, error) {
//	    return client.Create(ctx, entry)
//	})
package retry
