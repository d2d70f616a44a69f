// Package delivery transmits a rendered alert to one user.
//
// Channels are looked up by alert.DeliveryTag in a Registry that is built
// once at startup, frozen, and then injected wherever deliveries happen.
package delivery
