package models

import (
	"strconv"
	"time"
)

// SearchDocument is the denormalised projection of a DispatchRequest kept in
// the search store. It is never authoritative.
type SearchDocument struct {
	ID                string         `json:"id" gorm:"primaryKey;size:32"`
	RequestID         string         `json:"requestId,omitempty" gorm:"size:64"`
	PhoneNumber       string         `json:"phoneNumber" gorm:"size:20;index"`
	Message           string         `json:"message" gorm:"type:text"`
	Status            DispatchStatus `json:"status" gorm:"size:16"`
	ExternalMessageID string         `json:"externalMessageId,omitempty" gorm:"size:128"`
	FailureCode       string         `json:"failureCode,omitempty" gorm:"size:64"`
	FailureComments   string         `json:"failureComments,omitempty" gorm:"type:text"`
	CreatedAt         time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// TableName pins the fallback search table name.
func (SearchDocument) TableName() string { return "search_documents" }

// NewSearchDocument projects a ledger row. Timestamps are stored in UTC.
func NewSearchDocument(r *DispatchRequest) SearchDocument {
	return SearchDocument{
		ID:                strconv.FormatUint(uint64(r.ID), 10),
		RequestID:         r.RequestID,
		PhoneNumber:       r.PhoneNumber,
		Message:           r.Message,
		Status:            r.Status,
		ExternalMessageID: Deref(r.ExternalMessageID),
		FailureCode:       Deref(r.FailureCode),
		FailureComments:   Deref(r.FailureComments),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

// ToDispatchRequest converts a search hit back into the ledger shape returned
// by search endpoints. Documents with a non-numeric id yield ID 0.
func (d SearchDocument) ToDispatchRequest() DispatchRequest {
	id, _ := strconv.ParseUint(d.ID, 10, 64)
	return DispatchRequest{
		ID:                uint(id),
		RequestID:         d.RequestID,
		PhoneNumber:       d.PhoneNumber,
		Message:           d.Message,
		Status:            d.Status,
		ExternalMessageID: StringPtr(d.ExternalMessageID),
		FailureCode:       StringPtr(d.FailureCode),
		FailureComments:   StringPtr(d.FailureComments),
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}
