package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "github.com/abase/abase-manager/internal/errors"
)

// Event is one inbound message. It is consumed by dispatch and not kept.
type Event struct {
	Type      string
	Data      json.RawMessage
	Timestamp string
	SubjectID string
	Channel   string
}

type wireEvent struct {
	Type      string          `json:"type"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp json.RawMessage `json:"timestamp"`
	SubjectID json.RawMessage `json:"subjectId"`
	UserID    json.RawMessage `json:"user_id"`
	Channel   string          `json:"channel"`
}

// ParseEvent decodes a text frame. Both the event-stream form
// ({"type","data","timestamp","user_id"}) and the socket form
// ({"channel","event","data"}) are accepted. A frame that is not a JSON
// object or carries no type returns ErrMalformedEvent.
func ParseEvent(frame []byte) (Event, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 || frame[0] != '{' {
		return Event{}, fmt.Errorf("not a JSON object: %w", apperrors.ErrMalformedEvent)
	}

	var w wireEvent
	if err := json.Unmarshal(frame, &w); err != nil {
		return Event{}, apperrors.Join(apperrors.ErrMalformedEvent, err)
	}

	ev := Event{
		Type:      w.Type,
		Data:      w.Data,
		Timestamp: scalar(w.Timestamp),
		SubjectID: scalar(w.SubjectID),
		Channel:   w.Channel,
	}
	if ev.Type == "" {
		ev.Type = w.Event
	}
	if ev.SubjectID == "" {
		ev.SubjectID = scalar(w.UserID)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("missing type: %w", apperrors.ErrMalformedEvent)
	}
	return ev, nil
}

// scalar renders a JSON string or number as text; anything else is empty.
func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	}
	if raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return string(raw)
}
