// Package graphqlws implements the server side of the graphql-transport-ws
// WebSocket sub-protocol: multiplexing concurrent queries, mutations, and
// subscriptions over a single duplex connection.
//
// One session exists per connection and owns its protocol state machine
// (AwaitingInit -> Initialized -> Closed), its subscription registry, and
// the single-writer funnel all outbound messages pass through. Execution is
// delegated to an Executor; graphd's engine is adapted via NewEngineAdapter,
// but any engine that can normalize its output into a single result or a
// result stream can be plugged in.
//
// Usage:
//
//	engine := graphql.NewEngine(schema)
//	// register resolvers and sources...
//
//	handler := graphqlws.NewHandler(graphqlws.NewEngineAdapter(engine), &graphqlws.Options{
//	    InitTimeout:  3 * time.Second,
//	    Interceptors: []graphqlws.Interceptor{auth.NewTokenInterceptor(secret)},
//	})
//	mux.Handle("/graphql", handler)
//
// Protocol violations close the connection with the close codes defined by
// the sub-protocol (4400, 4401, 4408, 4409, 4429). Execution failures are
// never fatal: they are delivered as error messages scoped to the operation
// id, and the connection and its other operations continue.
//
// The legacy graphql-ws and subscriptions-transport-ws dialects are
// negotiated at the handshake and then rejected with a 4400 close; legacy
// protocol support is explicitly not provided.
package graphqlws
