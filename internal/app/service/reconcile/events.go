package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/lendery/backend/pkg/types"
)

type EventType string

const (
	EventPaymentSucceeded EventType = "payment.succeeded"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentCancelled EventType = "payment.cancelled"
)

// PaymentEventData is the provider payload of one payment event.
type PaymentEventData struct {
	IntentID       string               `json:"intent_id"`
	Purpose        types.PaymentPurpose `json:"purpose"`
	ListingID      string               `json:"listing_id,omitempty"`
	AccountID      string               `json:"account_id"`
	Amount         int64                `json:"amount"`
	Currency       string               `json:"currency"`
	FailureCode    string               `json:"failure_code,omitempty"`
	FailureMessage string               `json:"failure_message,omitempty"`
}

// PaymentEvent is the signed envelope delivered by the payment processor.
// ID is the provider-assigned, globally unique event identifier and is the
// key the replay guard dedupes on.
type PaymentEvent struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	CreatedAt int64            `json:"created_at"`
	Data      PaymentEventData `json:"data"`
}

// ParsePaymentEvent decodes and minimally validates an already-verified body.
func ParsePaymentEvent(raw []byte) (*PaymentEvent, error) {
	var ev PaymentEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode payment event: %w", err)
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("payment event missing id")
	}
	switch ev.Type {
	case EventPaymentSucceeded, EventPaymentFailed, EventPaymentCancelled:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	if ev.Data.IntentID == "" {
		return nil, fmt.Errorf("payment event missing intent_id")
	}
	return &ev, nil
}
