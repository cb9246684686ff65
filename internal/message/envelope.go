package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrMalformedEnvelope = errors.New("malformed message envelope")

// Envelope is the wire form of every message.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{
		ID:         uuid.New().String(),
		Type:       msg.Type(),
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	})
}

func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return &env, nil
}

func (e *Envelope) Unmarshal(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return Fatal(fmt.Errorf("%w: %s payload: %v", ErrMalformedEnvelope, e.Type, err))
	}
	return nil
}
