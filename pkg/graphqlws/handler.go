package graphqlws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/getgraphd/graphd/pkg/logging"
)

// Default session parameters.
const (
	// DefaultInitTimeout is how long a connection may stay unacknowledged
	// before it is closed with 4408.
	DefaultInitTimeout = 3 * time.Second
	// DefaultWriteTimeout bounds a single outbound frame write.
	DefaultWriteTimeout = 10 * time.Second
)

// Options configures a Handler.
type Options struct {
	// InitTimeout is the connection initialisation deadline.
	// Defaults to DefaultInitTimeout.
	InitTimeout time.Duration

	// WriteTimeout bounds a single outbound write under backpressure.
	// Defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration

	// Interceptors observe the connection lifecycle, in order.
	Interceptors []Interceptor

	// Logger receives session-level debug logging. Defaults to a no-op logger.
	Logger *slog.Logger

	// InsecureSkipVerify disables Origin verification during the upgrade.
	InsecureSkipVerify bool

	// OriginPatterns lists additional authorized origins for the upgrade.
	OriginPatterns []string
}

// Handler upgrades HTTP requests to graphql-transport-ws connections and
// runs one session per connection.
type Handler struct {
	exec  Executor
	chain Chain
	opts  Options
	log   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewHandler creates a handler dispatching operations to exec.
func NewHandler(exec Executor, opts *Options) *Handler {
	h := &Handler{
		exec:     exec,
		sessions: make(map[string]*session),
	}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.InitTimeout <= 0 {
		h.opts.InitTimeout = DefaultInitTimeout
	}
	if h.opts.WriteTimeout <= 0 {
		h.opts.WriteTimeout = DefaultWriteTimeout
	}
	h.chain = Chain(h.opts.Interceptors)
	h.log = h.opts.Logger
	if h.log == nil {
		h.log = logging.Nop()
	}
	return h
}

// ServeHTTP upgrades the request and handles the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		// Legacy sub-protocols are negotiated so Handle can reject them
		// with a protocol-level close instead of a failed handshake.
		Subprotocols:       []string{Protocol, legacyProtocolGraphQLWS, legacyProtocolApollo},
		InsecureSkipVerify: h.opts.InsecureSkipVerify,
		OriginPatterns:     h.opts.OriginPatterns,
	})
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.Handle(r, conn)
}

// Handle runs the protocol on an accepted connection and blocks until the
// connection reaches its terminal state. It is the single entry point for
// transports that perform their own upgrade; r supplies transport metadata
// and the base context and may be nil.
func (h *Handler) Handle(r *http.Request, conn *ws.Conn) {
	if conn.Subprotocol() != Protocol {
		// Legacy dialects (graphql-ws / subscriptions-transport-ws) and
		// unnegotiated connections are not spoken here.
		_ = conn.Close(ws.StatusCode(CloseInvalidMessage), ReasonInvalidMessage)
		return
	}

	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}
	s := newSession(ctx, conn, r, h)

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.sessions, s.id)
		h.mu.Unlock()
	}()

	h.log.Debug("session started", "conn_id", s.id)
	s.run()
}

// ConnectionCount returns the number of active connections.
func (h *Handler) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// SubscriptionCount returns the total number of active operations across all
// connections.
func (h *Handler) SubscriptionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, s := range h.sessions {
		count += s.subs.Len()
	}
	return count
}
