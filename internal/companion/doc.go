// Package companion publishes compact printer status to a companion display.
//
// The display accepts a limited number of updates per day, so the webhook
// channel spends from a token bucket sized to the configured daily budget and
// drops updates once it is empty.
package companion
