package omnibridge

import (
	"context"

	"omnibridge/internal/respond"
)

// Bridge hands a built automation script to the external application and
// returns its normalized result. Execute is the sole blocking point of an
// invocation and must honor the context deadline. An error return indicates
// a connectivity or timeout failure, distinct from an application-level
// script error (which is reported through Result.Kind).
type Bridge interface {
	Execute(ctx context.Context, script string) (Result, error)
}

// Cache provides the namespaced, process-lifetime result store consulted
// before read operations and invalidated after mutations.
type Cache interface {
	// Get returns the cached value for (namespace, key), or false when the
	// entry is absent or expired.
	Get(ctx context.Context, namespace, key string) (interface{}, bool)

	// Set unconditionally overwrites the entry, refreshing its TTL.
	Set(ctx context.Context, namespace, key string, value interface{})

	// Invalidate drops all entries in each given namespace. It completes
	// synchronously: a read issued after Invalidate returns cannot observe
	// pre-invalidation data.
	Invalidate(namespaces ...string)

	// InvalidateForTaskChange performs the conservative cross-namespace
	// invalidation a task mutation requires.
	InvalidateForTaskChange(change TaskChange)
}

// Tool is a per-entity dispatcher: it validates input, consults the cache,
// builds and executes scripts, invalidates affected namespaces on mutation,
// and assembles the outward response envelope.
type Tool interface {
	// Name returns the tool's registered name (the entity kind it serves).
	Name() string

	// Description returns a human-readable summary for transport discovery.
	Description() string

	// Operations returns the operation discriminator values the tool accepts.
	Operations() []string

	// Dispatch runs one invocation end to end and always returns an
	// envelope; failures are carried inside it, never as a Go error.
	Dispatch(ctx context.Context, params map[string]interface{}) respond.Envelope
}
