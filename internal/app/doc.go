// Package app wires alertcast together:
// config -> logging -> audit storage -> core service -> reminder scheduler,
// plus the config watcher that applies live settings on reload.
package app
