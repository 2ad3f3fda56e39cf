package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
	"github.com/ajayykmr/sms-dispatch-service/internal/notification"
	"github.com/ajayykmr/sms-dispatch-service/internal/search"
	"github.com/ajayykmr/sms-dispatch-service/internal/util"
)

const queuedMessage = "SMS request received and queued for processing"

// SendRequest is the body of POST /v1/sms/send.
type SendRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
	RequestID   string `json:"requestId,omitempty"`
}

// SendResponse acknowledges a queued request.
type SendResponse struct {
	ID        uint                  `json:"id"`
	RequestID string                `json:"requestId"`
	Status    models.DispatchStatus `json:"status"`
	Message   string                `json:"message"`
}

// PageInfo describes one page of search results.
type PageInfo struct {
	CurrentPage   int   `json:"currentPage"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	HasNext       bool  `json:"hasNext"`
	HasPrevious   bool  `json:"hasPrevious"`
}

// SearchResponse is the body of GET /v1/sms/search.
type SearchResponse struct {
	Success  bool                     `json:"success"`
	Data     []models.DispatchRequest `json:"data"`
	PageInfo PageInfo                 `json:"pageInfo"`
}

// SendSMS handles POST /v1/sms/send.
func (h *Handler) SendSMS(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := "invalid JSON body"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			msg = "request body too large"
		case errors.Is(err, io.EOF):
			msg = "request body is required"
		}
		Fail(c, http.StatusBadRequest, apperr.CodeInvalidRequest, msg)
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), notification.SubmitCommand{
		PhoneNumber: req.PhoneNumber,
		Message:     req.Message,
		RequestID:   req.RequestID,
	})
	if err != nil {
		failErr(c, err)
		return
	}

	ok(c, SendResponse{
		ID:        res.LedgerID,
		RequestID: res.RequestID,
		Status:    res.Status,
		Message:   queuedMessage,
	})
}

// GetSMS handles GET /v1/sms/:id.
func (h *Handler) GetSMS(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Fail(c, http.StatusBadRequest, apperr.CodeInvalidRequest, "id must be a positive integer")
		return
	}

	row, err := h.svc.Lookup(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			Fail(c, http.StatusNotFound, apperr.CodeNotFound, "SMS request not found: "+c.Param("id"))
			return
		}
		failErr(c, err)
		return
	}
	ok(c, row)
}

// SearchSMS handles GET /v1/sms/search.
func (h *Handler) SearchSMS(c *gin.Context) {
	criteria := search.Criteria{
		Text:        c.Query("text"),
		PhoneNumber: c.Query("phoneNumber"),
	}

	var err error
	if criteria.From, err = optionalTime(c.Query("startTime")); err != nil {
		Fail(c, http.StatusBadRequest, apperr.CodeInvalidRequest, "startTime must be an RFC3339 timestamp")
		return
	}
	if criteria.To, err = optionalTime(c.Query("endTime")); err != nil {
		Fail(c, http.StatusBadRequest, apperr.CodeInvalidRequest, "endTime must be an RFC3339 timestamp")
		return
	}
	page, err := optionalInt(c.Query("page"), 0)
	if err != nil || page < 0 {
		Fail(c, http.StatusBadRequest, apperr.CodeInvalidRequest, "page must be a non-negative integer")
		return
	}
	size, err := optionalInt(c.Query("size"), search.DefaultPageSize)
	if err != nil || size < 1 {
		Fail(c, http.StatusBadRequest, apperr.CodeInvalidRequest, "size must be a positive integer")
		return
	}

	result, err := h.svc.Search(c.Request.Context(), criteria, page, size)
	if err != nil {
		failErr(c, err)
		return
	}

	data := result.Items
	if data == nil {
		data = []models.DispatchRequest{}
	}
	ok(c, SearchResponse{
		Success: true,
		Data:    data,
		PageInfo: PageInfo{
			CurrentPage:   result.Page,
			PageSize:      result.PageSize,
			TotalElements: result.Total,
			TotalPages:    result.TotalPages,
			HasNext:       result.HasNext,
			HasPrevious:   result.HasPrevious,
		},
	})
}

func optionalTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := util.ParseRFC3339(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func optionalInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
