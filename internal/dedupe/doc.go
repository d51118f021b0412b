// Package dedupe remembers recent results by key for a bounded time, so a
// retried request can be answered with the original result instead of
// repeating its side effects.
package dedupe
