package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledgerbot/internal/core"
)

// ErrMalformed marks a payload that can never be processed; it is rejected
// without requeue.
var ErrMalformed = errors.New("malformed message")

// InboundMessage is a chat message delivered through the inbound queue.
type InboundMessage struct {
	MessageID string `json:"message_id"`
	AuthorID  string `json:"author_id"`
	ChannelID string `json:"channel_id,omitempty"`
	Text      string `json:"text"`
}

// InboundMessageFromJSON decodes an inbound payload. author_id is required
// since rate limiting and replies are keyed on it.
func InboundMessageFromJSON(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(msg.AuthorID) == "" {
		return nil, fmt.Errorf("%w: missing author_id", ErrMalformed)
	}
	return &msg, nil
}

// ReplyMessage carries the bot's answer to an InboundMessage.
type ReplyMessage struct {
	CorrelationID string `json:"correlation_id"`
	ChannelID     string `json:"channel_id,omitempty"`
	Text          string `json:"text"`
}

func (m *ReplyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedEvent is published after every successful append.
type ExpenseRecordedEvent struct {
	EventID     string    `json:"event_id"`
	Ref         string    `json:"ref"`
	Date        string    `json:"date"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// NewExpenseRecordedEvent builds the event for a stored entry with a fresh id.
func NewExpenseRecordedEvent(e core.Entry) *ExpenseRecordedEvent {
	return &ExpenseRecordedEvent{
		EventID:     uuid.NewString(),
		Ref:         e.Ref,
		Date:        e.Date.String(),
		Amount:      e.Amount.Value(),
		Currency:    string(e.Amount.Currency),
		Category:    e.Category,
		Description: e.Description,
		RecordedAt:  e.RecordedAt.UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseRecordedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseRecordedEventFromJSON is used by consumers of the event stream and
// by tests.
func ExpenseRecordedEventFromJSON(data []byte) (*ExpenseRecordedEvent, error) {
	var ev ExpenseRecordedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
