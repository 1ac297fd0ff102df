// Package pubsub provides the in-memory topic broker that backs graphd's
// subscription sources.
//
// Subscriptions are context-scoped: cancelling the context passed to
// Subscribe ends the subscription and closes its channel, which maps
// directly onto the cancellation model of a GraphQL subscription source.
// Publishing never blocks; subscribers that fall behind their buffer miss
// values instead of stalling publishers.
package pubsub
