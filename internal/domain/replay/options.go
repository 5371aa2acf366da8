// Package replay tracks seen nonces and per-server counters.
package replay

// Option applies a configuration option to the in-memory ledger.
type Option func(*inMemoryLedger)

// WithMaxSize bounds the nonce set. maxSize <= 0 disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(l *inMemoryLedger) {
		l.maxSize = maxSize
	}
}
