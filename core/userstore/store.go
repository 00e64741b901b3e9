// Package userstore persists the set of user ids known to the bot. The set
// is appended to on every inbound event and read before every broadcast; it
// is the only state that survives a restart.
package userstore

import "context"

// Store is the durable known-user set.
type Store interface {
	// Add records the user id; adding an existing id is a no-op.
	Add(ctx context.Context, userID int64) error
	// List returns all known ids in ascending order.
	List(ctx context.Context) ([]int64, error)
}
