// Package protocol defines the messages exchanged between the browser client
// and a live form over the socket.
package protocol

import "time"

// Event names understood by the runtime. Anything else is a user event and
// is dispatched to the component.
const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventHeartbeat = "heartbeat"
	EventRender    = "render"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is one frame on the wire.
type Message struct {
	// Ref correlates a reply with the request that caused it.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic identifies the live view the message belongs to.
	Topic string `json:"topic" msgpack:"topic"`

	Event   string         `json:"event" msgpack:"event"`
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp in Unix milliseconds.
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(topic, event string, payload map[string]any) *Message {
	return &Message{
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRef sets the correlation reference.
func (m *Message) WithRef(ref string) *Message {
	m.Ref = ref
	return m
}

// String returns a payload value as a string. Non-string values yield "".
func (m *Message) String(key string) string {
	if m.Payload == nil {
		return ""
	}
	v, _ := m.Payload[key].(string)
	return v
}

// IsUserEvent reports whether the message should be handed to the component.
func (m *Message) IsUserEvent() bool {
	switch m.Event {
	case EventJoin, EventLeave, EventReply, EventHeartbeat, "phx_heartbeat", EventRender:
		return false
	}
	return m.Event != ""
}

// Reply builds a phx_reply for ref.
func Reply(ref, topic, status string, response map[string]any) *Message {
	return NewMessage(topic, EventReply, map[string]any{
		"status":   status,
		"response": response,
	}).WithRef(ref)
}

// OkReply builds a successful reply.
func OkReply(ref, topic string, response map[string]any) *Message {
	return Reply(ref, topic, StatusOK, response)
}

// ErrorReply builds a failed reply carrying reason.
func ErrorReply(ref, topic, reason string) *Message {
	return Reply(ref, topic, StatusError, map[string]any{"reason": reason})
}

// RenderMessage pushes freshly rendered HTML for the live root.
func RenderMessage(topic, html string, version uint64) *Message {
	return NewMessage(topic, EventRender, map[string]any{
		"html":    html,
		"version": version,
	})
}
