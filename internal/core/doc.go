// Package core is the public face of alertcast: admin alert management,
// per-user queries and state commands, the reminder sweep and counters.
//
// Every method takes a context. Time-dependent checks read the clock carried
// by it (see internal/clock), so callers and tests can pin "now".
package core
