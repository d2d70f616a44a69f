// Package notifier turns alert lifecycle events into deliveries and runs the
// periodic reminder sweep.
//
// # Fan-out
//
// Dispatcher.Handle is subscribed to the event bus. A created alert is sent
// once to every eligible user (the initial delivery skips the throttle); an
// updated alert is re-sent to eligible users whose throttle window has
// elapsed; an archived alert is only logged.
//
// # Throttled delivery
//
// Every non-initial send goes through State.ShouldRemind while holding the
// (user, alert) record lock, and the lock stays held until the channel
// returns. A sweep and an event fan-out touching the same pair therefore
// cannot both send.
//
// Channel calls are paced by a shared token bucket and bounded by
// SendTimeout. A channel that ignores its context is abandoned when the
// timeout fires and the send counts as failed. Failures leave the record
// untouched so the next sweep retries.
package notifier
