// Package alert owns alert records and their visibility descriptors.
//
// The Store is in-memory only. Every mutation is applied under the store's
// write lock and the matching lifecycle Event is published after the lock is
// released, so subscribers never see an alert before it is queryable.
package alert
