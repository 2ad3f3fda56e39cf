package handlers

import (
	"context"

	"github.com/ajayykmr/sms-dispatch-service/internal/models"
	"github.com/ajayykmr/sms-dispatch-service/internal/notification"
	"github.com/ajayykmr/sms-dispatch-service/internal/search"
)

// Service is the ingress core the handlers call into.
type Service interface {
	Submit(ctx context.Context, cmd notification.SubmitCommand) (notification.SubmitResult, error)
	Lookup(ctx context.Context, id uint) (*models.DispatchRequest, error)
	Search(ctx context.Context, c search.Criteria, page, pageSize int) (search.Page, error)
	AddToBlacklist(ctx context.Context, phones []string) (int, error)
	RemoveFromBlacklist(ctx context.Context, phones []string) (int, error)
	ListBlacklist(ctx context.Context) ([]string, error)
}

// Handler groups the HTTP endpoints.
type Handler struct {
	svc Service
}

// New builds a Handler over svc.
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}
