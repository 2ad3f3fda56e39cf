package models

import "time"

// DispatchRequest is the ledger row for a single SMS dispatch.
type DispatchRequest struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	RequestID         string         `json:"requestId,omitempty" gorm:"size:64;index"`
	PhoneNumber       string         `json:"phoneNumber" gorm:"size:20;not null;index:idx_dispatch_phone_created,priority:1"`
	Message           string         `json:"message" gorm:"type:text;not null"`
	Status            DispatchStatus `json:"status" gorm:"size:16;not null;index"`
	ExternalMessageID *string        `json:"externalMessageId,omitempty" gorm:"size:128"`
	FailureCode       *string        `json:"failureCode,omitempty" gorm:"size:64"`
	FailureComments   *string        `json:"failureComments,omitempty" gorm:"type:text"`
	CreatedAt         time.Time      `json:"createdAt" gorm:"not null;index:idx_dispatch_phone_created,priority:2"`
	UpdatedAt         time.Time      `json:"updatedAt" gorm:"not null"`
}

// TableName pins the ledger table name.
func (DispatchRequest) TableName() string { return "sms_requests" }

// BlacklistEntry marks a phone number as blocked. Presence of a row is the block.
type BlacklistEntry struct {
	PhoneNumber string    `json:"phoneNumber" gorm:"primaryKey;size:20"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName pins the blacklist table name.
func (BlacklistEntry) TableName() string { return "blacklisted_numbers" }

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
