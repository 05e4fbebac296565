package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/lendery/backend/pkg/types"
)

// PaymentRecordExtra holds provider payload details kept for audit/debugging.
type PaymentRecordExtra struct {
	ProviderEventID string `json:"provider_event_id,omitempty"`
	FailureCode     string `json:"failure_code,omitempty"`
	FailureMessage  string `json:"failure_message,omitempty"`
}

// PaymentRecord is one payment attempt against the external processor.
// The most recent record per listing is authoritative. Terminal statuses
// are immutable; transitions always go through a conditional update on
// status = pending.
type PaymentRecord struct {
	ID               string                                  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ListingID        *string                                 `gorm:"column:listing_id;type:varchar(64);index" json:"listing_id"`
	AccountID        string                                  `gorm:"column:account_id;type:varchar(64);not null;index" json:"account_id"`
	ExternalIntentID string                                  `gorm:"column:external_intent_id;type:varchar(128);not null;uniqueIndex:unique_external_intent_id" json:"external_intent_id"`
	Amount           int64                                   `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency         string                                  `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Purpose          types.PaymentPurpose                    `gorm:"column:purpose;type:varchar(32);not null" json:"purpose"`
	Status           types.PaymentRecordStatus               `gorm:"column:status;type:varchar(32);not null" json:"status"`
	Extra            datatypes.JSONType[*PaymentRecordExtra] `gorm:"column:extra" json:"extra"`
	CreatedAt        time.Time                               `json:"created_at"`
	UpdatedAt        time.Time                               `json:"updated_at"`
}

func (PaymentRecord) TableName() string { return "payment_record" }
