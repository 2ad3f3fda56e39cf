package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
)

// BlacklistRequest is the body of POST and DELETE /v1/blacklist.
type BlacklistRequest struct {
	PhoneNumbers []string `json:"phoneNumbers"`
}

// BlacklistChangeResponse acknowledges an add or remove.
type BlacklistChangeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// BlacklistListResponse is the body of GET /v1/blacklist.
type BlacklistListResponse struct {
	Success bool     `json:"success"`
	Data    []string `json:"data"`
	Count   int      `json:"count"`
}

// AddToBlacklist handles POST /v1/blacklist.
func (h *Handler) AddToBlacklist(c *gin.Context) {
	phones, good := bindPhones(c)
	if !good {
		return
	}
	n, err := h.svc.AddToBlacklist(c.Request.Context(), phones)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, BlacklistChangeResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully blacklisted %d phone numbers", n),
		Count:   n,
	})
}

// RemoveFromBlacklist handles DELETE /v1/blacklist.
func (h *Handler) RemoveFromBlacklist(c *gin.Context) {
	phones, good := bindPhones(c)
	if !good {
		return
	}
	n, err := h.svc.RemoveFromBlacklist(c.Request.Context(), phones)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, BlacklistChangeResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully removed %d phone numbers from blacklist", n),
		Count:   n,
	})
}

// ListBlacklist handles GET /v1/blacklist.
func (h *Handler) ListBlacklist(c *gin.Context) {
	phones, err := h.svc.ListBlacklist(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	if phones == nil {
		phones = []string{}
	}
	ok(c, BlacklistListResponse{Success: true, Data: phones, Count: len(phones)})
}

func bindPhones(c *gin.Context) ([]string, bool) {
	var req BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, apperr.CodeInvalidRequest, "invalid JSON body")
		return nil, false
	}
	if len(req.PhoneNumbers) == 0 {
		Fail(c, http.StatusBadRequest, apperr.CodeInvalidRequest, "Phone numbers list cannot be empty")
		return nil, false
	}
	return req.PhoneNumbers, true
}
