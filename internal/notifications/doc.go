// Package notifications delivers conversion events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled or no
// topic is set. A disabled configuration stands in for a notification
// permission the user has not granted.
//
// Callers depend only on the Service interface.
package notifications
