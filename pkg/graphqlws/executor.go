package graphqlws

import (
	"context"

	"github.com/getgraphd/graphd/pkg/graphql"
)

// Operation is one decoded subscribe request handed to the executor.
type Operation struct {
	Query         string
	OperationName string
	Variables     map[string]interface{}
	Extensions    map[string]interface{}
}

// Result is the normalized outcome of dispatching one operation: exactly one
// of Single or Stream is set. Single captures query/mutation semantics; a
// Stream delivers subscription results until it is closed.
type Result struct {
	Single *graphql.Response
	Stream <-chan *graphql.Response
}

// Executor dispatches decoded operations to an execution engine. Execution
// failures must surface as the Errors field of a result, not as a returned
// error; a returned error is treated the same way, as a terminal error
// result for the operation, and never closes the connection.
type Executor interface {
	Execute(ctx context.Context, op *Operation) (*Result, error)
}

// ConnectionInfo describes the transport the operation arrived on. It is
// available to executors and interceptors through the operation context.
type ConnectionInfo struct {
	// ID is the opaque connection identifier.
	ID string
	// RemoteAddr is the peer address of the underlying transport.
	RemoteAddr string
	// Subprotocol is the negotiated WebSocket sub-protocol.
	Subprotocol string
}

type contextKey int

const (
	initPayloadKey contextKey = iota
	connectionInfoKey
)

// WithInitPayload attaches a connection_init payload to a context.
func WithInitPayload(ctx context.Context, payload map[string]interface{}) context.Context {
	return context.WithValue(ctx, initPayloadKey, payload)
}

// InitPayloadFromContext returns the connection_init payload of the
// connection an operation arrived on, or nil outside a connection.
func InitPayloadFromContext(ctx context.Context) map[string]interface{} {
	payload, _ := ctx.Value(initPayloadKey).(map[string]interface{})
	return payload
}

// WithConnectionInfo attaches transport metadata to a context.
func WithConnectionInfo(ctx context.Context, info ConnectionInfo) context.Context {
	return context.WithValue(ctx, connectionInfoKey, info)
}

// ConnectionInfoFromContext returns the transport metadata of the connection
// an operation arrived on. ok is false outside a connection.
func ConnectionInfoFromContext(ctx context.Context) (ConnectionInfo, bool) {
	info, ok := ctx.Value(connectionInfoKey).(ConnectionInfo)
	return info, ok
}
