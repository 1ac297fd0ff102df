package graphqlws

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Protocol is the WebSocket sub-protocol this package implements.
const Protocol = "graphql-transport-ws"

// Legacy sub-protocol names. Connections negotiating these are accepted at
// the handshake and then closed with CloseInvalidMessage; the legacy message
// dialect is not supported.
const (
	legacyProtocolGraphQLWS = "graphql-ws"
	legacyProtocolApollo    = "subscriptions-transport-ws"
)

// Message types of the graphql-transport-ws protocol.
// https://github.com/enisdenjo/graphql-ws/blob/master/PROTOCOL.md
const (
	MessageConnectionInit = "connection_init"
	MessageConnectionAck  = "connection_ack"
	MessagePing           = "ping"
	MessagePong           = "pong"
	MessageSubscribe      = "subscribe"
	MessageNext           = "next"
	MessageError          = "error"
	MessageComplete       = "complete"
)

// CloseCode is a WebSocket close status code used by the protocol.
type CloseCode int

// Protocol close codes. The numeric values and reason strings are part of
// the wire contract and must not change.
const (
	CloseInvalidMessage      CloseCode = 4400
	CloseUnauthorized        CloseCode = 4401
	CloseInitTimeout         CloseCode = 4408
	CloseSubscriberExists    CloseCode = 4409
	CloseTooManyInitRequests CloseCode = 4429
)

// Close reasons paired with the codes above.
const (
	ReasonInvalidMessage      = "Invalid message"
	ReasonUnauthorized        = "Unauthorized"
	ReasonInitTimeout         = "Connection initialisation timeout"
	ReasonTooManyInitRequests = "Too many initialisation requests"
)

// subscriberExistsReason builds the close reason for a duplicate operation id.
func subscriberExistsReason(id string) string {
	return fmt.Sprintf("Subscriber for %s already exists", id)
}

// CloseError describes a fatal protocol condition that terminates the
// connection with a specific close code.
type CloseError struct {
	Code   CloseCode
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed with %d: %s", e.Code, e.Reason)
}

// Message is one protocol frame, symmetric for inbound and outbound traffic.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload is the payload of a subscribe message.
type SubscribePayload struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	Extensions    map[string]interface{} `json:"extensions,omitempty"`
}

// jsonNull matches a literal JSON null payload.
var jsonNull = []byte("null")

// payloadPresent reports whether a raw payload carries a value.
func payloadPresent(p json.RawMessage) bool {
	return len(p) > 0 && !bytes.Equal(bytes.TrimSpace(p), jsonNull)
}

// DecodeMessage decodes and validates one inbound text frame. Any violation
// of the message shape is returned as a *CloseError with code 4400.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &CloseError{Code: CloseInvalidMessage, Reason: ReasonInvalidMessage}
	}

	switch msg.Type {
	case MessageConnectionInit, MessagePing, MessagePong:
		// Payload is optional for these.
	case MessageSubscribe:
		if msg.ID == "" {
			return nil, &CloseError{Code: CloseInvalidMessage, Reason: ReasonInvalidMessage}
		}
		if !payloadPresent(msg.Payload) {
			return nil, &CloseError{Code: CloseInvalidMessage, Reason: ReasonInvalidMessage}
		}
	case MessageComplete:
		if msg.ID == "" {
			return nil, &CloseError{Code: CloseInvalidMessage, Reason: ReasonInvalidMessage}
		}
	default:
		// Unrecognized or absent type, or a server-to-client type arriving
		// from the client (connection_ack, next, error).
		return nil, &CloseError{Code: CloseInvalidMessage, Reason: ReasonInvalidMessage}
	}

	return &msg, nil
}

// EncodeMessage encodes one outbound message to a text frame.
func EncodeMessage(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	return data, nil
}

// decodeInitPayload decodes a connection_init payload into a map. A missing
// or null payload decodes to nil; anything other than a JSON object is a
// protocol violation.
func decodeInitPayload(raw json.RawMessage) (map[string]interface{}, error) {
	if !payloadPresent(raw) {
		return nil, nil
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &CloseError{Code: CloseInvalidMessage, Reason: ReasonInvalidMessage}
	}
	return payload, nil
}
