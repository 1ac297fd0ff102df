package graphqlws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/getgraphd/graphd/pkg/graphql"
)

// session owns the protocol state of one connection. It is the sole writer
// to the connection's outbound stream: every producer goroutine funnels its
// messages through send, which serializes writes under writeMu.
//
// The state progression is AwaitingInit -> Initialized -> Closed, tracked by
// initClaimed (the init slot, raced by the watchdog), acked (set once the
// init hook accepts), and closed (terminal, idempotent).
type session struct {
	id           string
	conn         *ws.Conn
	exec         Executor
	chain        Chain
	log          *slog.Logger
	initTimeout  time.Duration
	writeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	initClaimed atomic.Bool
	acked       atomic.Bool
	closed      atomic.Bool

	payloadMu   sync.Mutex
	initPayload map[string]interface{}

	subs *Registry
	wg   sync.WaitGroup
}

func newSession(ctx context.Context, conn *ws.Conn, r *http.Request, h *Handler) *session {
	s := &session{
		id:           uuid.NewString(),
		conn:         conn,
		exec:         h.exec,
		chain:        h.chain,
		initTimeout:  h.opts.InitTimeout,
		writeTimeout: h.opts.WriteTimeout,
		subs:         NewRegistry(),
	}

	info := ConnectionInfo{ID: s.id, Subprotocol: conn.Subprotocol()}
	if r != nil {
		info.RemoteAddr = r.RemoteAddr
	}

	s.ctx, s.cancel = context.WithCancel(WithConnectionInfo(ctx, info))
	s.log = h.log.With("conn_id", s.id)
	return s
}

// run reads frames until the connection terminates, dispatching each message
// and arming the init watchdog. It blocks until every producer goroutine has
// finished.
func (s *session) run() {
	watchdog := s.armWatchdog()
	defer watchdog.Stop()

	for {
		typ, data, err := s.conn.Read(s.ctx)
		if err != nil {
			s.closeOnReadError(err)
			break
		}
		if typ != ws.MessageText {
			s.close(CloseInvalidMessage, ReasonInvalidMessage)
			break
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			s.closeOnViolation(err)
			break
		}

		if !s.dispatch(msg) {
			break
		}
	}

	s.wg.Wait()
}

// armWatchdog starts the one-shot init timer. The timer races connection_init
// for the same atomic claim; whichever side wins acts, the loser is a no-op.
// Resolving the race through the claim rather than timestamps avoids a
// lost-close/lost-ack window under scheduling jitter.
func (s *session) armWatchdog() *time.Timer {
	return time.AfterFunc(s.initTimeout, func() {
		if s.initClaimed.CompareAndSwap(false, true) {
			s.log.Debug("connection init timeout")
			s.close(CloseInitTimeout, ReasonInitTimeout)
		}
	})
}

// dispatch handles one decoded message. It returns false once the connection
// is closed and reading should stop.
func (s *session) dispatch(msg *Message) bool {
	switch msg.Type {
	case MessageConnectionInit:
		return s.handleConnectionInit(msg)

	case MessagePing:
		if err := s.send(&Message{Type: MessagePong, Payload: msg.Payload}); err != nil {
			s.log.Debug("pong write failed", "error", err)
		}
		return true

	case MessagePong:
		return true

	case MessageSubscribe:
		return s.handleSubscribe(msg)

	case MessageComplete:
		s.handleComplete(msg.ID)
		return true

	default:
		s.close(CloseInvalidMessage, ReasonInvalidMessage)
		return false
	}
}

// handleConnectionInit claims the init slot and runs the interceptor chain's
// init hook off the read loop; the hook may call out for token validation.
func (s *session) handleConnectionInit(msg *Message) bool {
	payload, err := decodeInitPayload(msg.Payload)
	if err != nil {
		s.closeOnViolation(err)
		return false
	}

	if !s.initClaimed.CompareAndSwap(false, true) {
		s.close(CloseTooManyInitRequests, ReasonTooManyInitRequests)
		return false
	}

	s.payloadMu.Lock()
	s.initPayload = payload
	s.payloadMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ack, err := s.chain.OnConnectionInit(s.ctx, payload)
		if err != nil {
			s.log.Debug("connection init rejected", "error", err)
			s.close(CloseUnauthorized, ReasonUnauthorized)
			return
		}

		var raw json.RawMessage
		if len(ack) > 0 {
			raw, err = json.Marshal(ack)
			if err != nil {
				s.log.Warn("ack payload not serializable, sending empty ack", "error", err)
				raw = nil
			}
		}

		s.acked.Store(true)
		if err := s.send(&Message{Type: MessageConnectionAck, Payload: raw}); err != nil {
			s.log.Debug("ack write failed", "error", err)
		}
	}()

	return true
}

// handleSubscribe registers the operation id and starts its producer. The
// registry insert happens before the producer goroutine exists, so a client
// complete can never miss an operation whose results it might still receive.
func (s *session) handleSubscribe(msg *Message) bool {
	if !s.acked.Load() {
		s.close(CloseUnauthorized, ReasonUnauthorized)
		return false
	}

	var payload SubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.close(CloseInvalidMessage, ReasonInvalidMessage)
		return false
	}

	opCtx, cancelOp := context.WithCancel(WithInitPayload(s.ctx, s.initPayloadSnapshot()))
	if !s.subs.TryInsert(msg.ID, cancelOp) {
		cancelOp()
		s.close(CloseSubscriberExists, subscriberExistsReason(msg.ID))
		return false
	}

	op := &Operation{
		Query:         payload.Query,
		OperationName: payload.OperationName,
		Variables:     payload.Variables,
		Extensions:    payload.Extensions,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOperation(opCtx, msg.ID, op)
	}()

	return true
}

// handleComplete cancels a client-stopped operation. A missing registry
// entry means the operation already finished; that is a no-op, not an error.
func (s *session) handleComplete(id string) {
	if !s.acked.Load() {
		return
	}

	cancelOp, ok := s.subs.Remove(id)
	if !ok {
		return
	}
	cancelOp()
	s.chain.OnSubscriptionCancelled(s.ctx, id)
}

// runOperation dispatches one operation to the executor and relays its
// results. Executor failures are reported on the operation's error path and
// never terminate the connection.
func (s *session) runOperation(ctx context.Context, id string, op *Operation) {
	res, err := s.exec.Execute(ctx, op)
	if err != nil {
		res = &Result{Single: graphql.ErrorResponse(err.Error())}
	}

	if res.Stream != nil {
		s.streamResults(ctx, id, res.Stream)
		return
	}
	s.finishSingle(ctx, id, res.Single)
}

// finishSingle emits the terminal messages for a query/mutation result.
func (s *session) finishSingle(ctx context.Context, id string, resp *graphql.Response) {
	defer s.releaseOperation(id)

	if ctx.Err() != nil {
		return
	}

	if len(resp.Errors) > 0 {
		s.sendError(id, resp.Errors)
		return
	}

	if !s.sendNext(id, resp) {
		return
	}
	if ctx.Err() == nil {
		s.sendComplete(id)
	}
}

// streamResults relays a subscription stream until it completes, errors, or
// is cancelled. Cancellation suppresses all further messages for the id; the
// registry entry is removed on every exit path, idempotently.
func (s *session) streamResults(ctx context.Context, id string, stream <-chan *graphql.Response) {
	defer s.releaseOperation(id)

	for {
		select {
		case <-ctx.Done():
			return

		case resp, open := <-stream:
			if !open {
				if ctx.Err() == nil {
					s.sendComplete(id)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			if resp.Data == nil && len(resp.Errors) > 0 {
				s.sendError(id, resp.Errors)
				return
			}
			if !s.sendNext(id, resp) {
				return
			}
		}
	}
}

// releaseOperation removes the registry entry for id and cancels its
// operation context, so a naturally finished operation does not pin its
// context (and anything parked on it) for the rest of the connection.
func (s *session) releaseOperation(id string) {
	if cancelOp, ok := s.subs.Remove(id); ok {
		cancelOp()
	}
}

// initPayloadSnapshot returns the stored connection_init payload.
func (s *session) initPayloadSnapshot() map[string]interface{} {
	s.payloadMu.Lock()
	defer s.payloadMu.Unlock()
	return s.initPayload
}

// send serializes one outbound message onto the transport. All writers for
// this connection go through here.
func (s *session) send(msg *Message) error {
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, ws.MessageText, data)
}

// sendNext emits one next message for id. It reports false when the result
// could not be serialized; the error message emitted in that case is terminal
// for the id, so the caller must stop producing messages for it.
func (s *session) sendNext(id string, resp *graphql.Response) bool {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("result not serializable", "op_id", id, "error", err)
		s.sendError(id, []graphql.Error{{Message: "result not serializable"}})
		return false
	}
	if err := s.send(&Message{ID: id, Type: MessageNext, Payload: payload}); err != nil {
		s.log.Debug("next write failed", "op_id", id, "error", err)
	}
	return true
}

func (s *session) sendError(id string, errs []graphql.Error) {
	payload, err := json.Marshal(errs)
	if err != nil {
		payload = []byte(`[{"message":"internal error"}]`)
	}
	if err := s.send(&Message{ID: id, Type: MessageError, Payload: payload}); err != nil {
		s.log.Debug("error write failed", "op_id", id, "error", err)
	}
}

func (s *session) sendComplete(id string) {
	if err := s.send(&Message{ID: id, Type: MessageComplete}); err != nil {
		s.log.Debug("complete write failed", "op_id", id, "error", err)
	}
}

// closeOnViolation closes the connection for a protocol violation reported
// by the codec.
func (s *session) closeOnViolation(err error) {
	var ce *CloseError
	if errors.As(err, &ce) {
		s.close(ce.Code, ce.Reason)
		return
	}
	s.close(CloseInvalidMessage, ReasonInvalidMessage)
}

// closeOnReadError records a transport-initiated close. The peer's close
// code, if any, is what the closed hook observes.
func (s *session) closeOnReadError(err error) {
	code := CloseCode(ws.CloseStatus(err))
	if code < 0 {
		code = CloseCode(ws.StatusAbnormalClosure)
	}
	var reason string
	var ce ws.CloseError
	if errors.As(err, &ce) {
		reason = ce.Reason
	}
	s.close(code, reason)
}

// close transitions the session to its terminal state: exactly one caller
// wins, cancels every outstanding operation, closes the transport, and fires
// the closed hook once.
func (s *session) close(code CloseCode, reason string) {
	if s.closed.Swap(true) {
		return
	}

	for _, cancelOp := range s.subs.RemoveAll() {
		cancelOp()
	}
	s.cancel()

	if err := s.conn.Close(ws.StatusCode(code), reason); err != nil {
		s.log.Debug("transport close", "code", int(code), "error", err)
	}

	payload := s.initPayloadSnapshot()
	if payload == nil {
		payload = map[string]interface{}{}
	}
	s.chain.OnConnectionClosed(context.WithoutCancel(s.ctx), code, payload)
	s.log.Debug("session closed", "code", int(code), "reason", reason)
}
