// Package telemetry carries auth and request events to OpenTelemetry logs and Kafka.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event types emitted by the server.
const (
	EventHTTPRequest    = "http_request"
	EventOTPIssued      = "otp_issued"
	EventOTPRedeemed    = "otp_redeemed"
	EventSignInSuccess  = "signin_success"
	EventSignInFailure  = "signin_failure"
	EventSignOut        = "signout"
	EventMFAEnabled     = "mfa_enabled"
	EventUserTerminated = "user_terminated"
)

// Event is one telemetry record. Metadata is a JSON object.
type Event struct {
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent returns an event stamped with the current time. meta is marshaled to JSON; nil leaves it empty.
func NewEvent(eventType, source, userID, sessionID string, meta any) *Event {
	e := &Event{
		EventType: eventType,
		Source:    source,
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = b
		}
	}
	return e
}

// EventEmitter emits telemetry events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Fanout sends every event to each emitter and joins their errors. Nil emitters are skipped.
type Fanout []EventEmitter

func (f Fanout) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range f {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
