// Package notifications delivers "print complete" notifications and companion
// updates chosen by the reconcile engine.
//
// The Dispatcher builds the notification content (localized body, optional
// camera snapshot attachment) and hands it to a Notifier. The default Notifier
// publishes to ntfy using the topic configured in config.toml and degrades to
// a no-op when notifications are disabled. Companion updates are forwarded to
// the companion channel, which enforces its own daily budget. Every dispatched
// action is written to the journal.
package notifications
