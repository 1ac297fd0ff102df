// Package auth provides connection authentication for graphd's WebSocket
// transport.
//
// TokenInterceptor plugs into the graphqlws interceptor chain and validates
// a JWT carried in the connection_init payload under the "token" key.
// Rejected connections are closed with 4401 Unauthorized by the protocol
// engine.
package auth
