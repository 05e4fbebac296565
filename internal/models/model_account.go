package models

import (
	"time"
)

// Account mirrors the identity provider's user record. It is synchronized by
// the identity webhook and never carries payment state.
type Account struct {
	ID          string     `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ExternalID  string     `gorm:"column:external_id;type:varchar(128);not null;uniqueIndex:unique_external_id" json:"external_id"`
	Email       string     `gorm:"column:email;type:varchar(255)" json:"email"`
	DisplayName string     `gorm:"column:display_name;type:varchar(255)" json:"display_name"`
	Subscriber  bool       `gorm:"column:subscriber;not null;default:false" json:"subscriber"`
	Suspended   bool       `gorm:"column:suspended;not null;default:false" json:"suspended"`
	DeletedAt   *time.Time `gorm:"column:deleted_at;default:null" json:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Account) TableName() string { return "account" }

// Active reports whether the account may act on the marketplace.
func (a *Account) Active() bool {
	return a != nil && !a.Suspended && a.DeletedAt == nil
}
