package graphqlws

import "context"

// Interceptor observes and influences the lifecycle of a connection.
// Implementations are shared by all connections and must be safe for
// concurrent use. Embed NopInterceptor to implement only the hooks you need.
type Interceptor interface {
	// OnConnectionInit is invoked with the connection_init payload before
	// the connection is acknowledged. Returning an error rejects the
	// connection (closed with 4401 Unauthorized). The returned map, if any,
	// is merged into the connection_ack payload.
	OnConnectionInit(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)

	// OnSubscriptionCancelled is invoked when the client cancels an
	// operation with a complete message. It is not invoked for operations
	// that finish on their own.
	OnSubscriptionCancelled(ctx context.Context, id string)

	// OnConnectionClosed is invoked exactly once per connection after it
	// reaches the closed state, with the final close code and the
	// connection_init payload (empty if none was received).
	OnConnectionClosed(ctx context.Context, code CloseCode, initPayload map[string]interface{})
}

// NopInterceptor implements Interceptor with no-op hooks.
type NopInterceptor struct{}

// OnConnectionInit accepts every connection with no ack payload.
func (NopInterceptor) OnConnectionInit(context.Context, map[string]interface{}) (map[string]interface{}, error) {
	return nil, nil
}

// OnSubscriptionCancelled does nothing.
func (NopInterceptor) OnSubscriptionCancelled(context.Context, string) {}

// OnConnectionClosed does nothing.
func (NopInterceptor) OnConnectionClosed(context.Context, CloseCode, map[string]interface{}) {}

// Chain runs a list of interceptors in order.
//
// For OnConnectionInit the first rejection wins; ack payloads returned by
// later interceptors overwrite same-keyed entries from earlier ones. The
// notification hooks fan out to every interceptor.
type Chain []Interceptor

// OnConnectionInit runs every init hook in order.
func (c Chain) OnConnectionInit(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	var ack map[string]interface{}
	for _, i := range c {
		part, err := i.OnConnectionInit(ctx, payload)
		if err != nil {
			return nil, err
		}
		if len(part) > 0 {
			if ack == nil {
				ack = make(map[string]interface{}, len(part))
			}
			for k, v := range part {
				ack[k] = v
			}
		}
	}
	return ack, nil
}

// OnSubscriptionCancelled notifies every interceptor.
func (c Chain) OnSubscriptionCancelled(ctx context.Context, id string) {
	for _, i := range c {
		i.OnSubscriptionCancelled(ctx, id)
	}
}

// OnConnectionClosed notifies every interceptor.
func (c Chain) OnConnectionClosed(ctx context.Context, code CloseCode, initPayload map[string]interface{}) {
	for _, i := range c {
		i.OnConnectionClosed(ctx, code, initPayload)
	}
}
