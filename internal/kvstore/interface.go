// Package kvstore provides the durable key-value slot the cart persists
// into. Implementations cover local memory and file storage plus the remote
// backends the deployment may already run (Redis, PostgreSQL, DynamoDB).
package kvstore

import "context"

// Store is a single durable string slot per key. Callers treat both absence
// and failure as non-fatal: in-memory state stays authoritative for the
// session when the slot is unreachable.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value for key. Last writer wins; concurrent
	// writers (two tabs, two replicas) are not coordinated.
	Set(ctx context.Context, key, value string) error
}
