package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	httpapi "github.com/ajayykmr/sms-dispatch-service/internal/http"
	"github.com/ajayykmr/sms-dispatch-service/internal/http/handlers"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
	"github.com/ajayykmr/sms-dispatch-service/internal/notification"
	"github.com/ajayykmr/sms-dispatch-service/internal/search"
)

type fakeService struct {
	submitted  []notification.SubmitCommand
	submitErr  error
	rows       map[uint]*models.DispatchRequest
	criteria   search.Criteria
	page, size int
	searchErr  error
	added      []string
	removed    []string
	list       []string
	panicOn    string
}

func (f *fakeService) Submit(_ context.Context, cmd notification.SubmitCommand) (notification.SubmitResult, error) {
	if f.panicOn == "submit" {
		panic("boom")
	}
	f.submitted = append(f.submitted, cmd)
	if f.submitErr != nil {
		return notification.SubmitResult{}, f.submitErr
	}
	rid := cmd.RequestID
	if rid == "" {
		rid = "req-1-abcdef01"
	}
	return notification.SubmitResult{LedgerID: 7, RequestID: rid, Status: models.StatusPending}, nil
}

func (f *fakeService) Lookup(_ context.Context, id uint) (*models.DispatchRequest, error) {
	if row, ok := f.rows[id]; ok {
		return row, nil
	}
	return nil, apperr.NotFound("sms request %d", id)
}

func (f *fakeService) Search(_ context.Context, c search.Criteria, page, size int) (search.Page, error) {
	f.criteria, f.page, f.size = c, page, size
	if f.searchErr != nil {
		return search.Page{}, f.searchErr
	}
	return search.Page{
		Items:      []models.DispatchRequest{{ID: 1, PhoneNumber: "+919876543210", Message: "hi", Status: models.StatusSent}},
		Page:       page,
		PageSize:   size,
		Total:      21,
		TotalPages: 3,
		HasNext:    true,
	}, nil
}

func (f *fakeService) AddToBlacklist(_ context.Context, phones []string) (int, error) {
	f.added = append(f.added, phones...)
	return len(phones), nil
}

func (f *fakeService) RemoveFromBlacklist(_ context.Context, phones []string) (int, error) {
	f.removed = append(f.removed, phones...)
	return len(phones), nil
}

func (f *fakeService) ListBlacklist(context.Context) ([]string, error) {
	return f.list, nil
}

func newRouter(t *testing.T, svc *fakeService, checks map[string]handlers.Check) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return httpapi.NewRouter(httpapi.Options{
		Service:      svc,
		Logger:       zerolog.Nop(),
		ServiceName:  "sms-dispatch-service",
		MaxBodyBytes: 4096,
		HealthChecks: checks,
	})
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSendQueuesRequest(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(t, svc, nil)

	w := do(r, http.MethodPost, "/v1/sms/send", `{"phoneNumber":"9876543210","message":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 7, body["id"])
	assert.Equal(t, "req-1-abcdef01", body["requestId"])
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, "SMS request received and queued for processing", body["message"])

	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "9876543210", svc.submitted[0].PhoneNumber)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSendMapsErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.Validation("invalid phone number format: 123"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"queue", &apperr.Coded{Kind: apperr.ErrProcessing, Code: apperr.CodeQueueError, Message: "Failed to queue SMS request"}, http.StatusServiceUnavailable, "QUEUE_ERROR"},
		{"unexpected", errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(t, &fakeService{submitErr: tc.err}, nil)
			w := do(r, http.MethodPost, "/v1/sms/send", `{"phoneNumber":"123","message":"hi"}`)
			require.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, body["message"], "db exploded")
		})
	}
}

func TestSendRejectsMalformedBodies(t *testing.T) {
	r := newRouter(t, &fakeService{}, nil)

	w := do(r, http.MethodPost, "/v1/sms/send", `{"phoneNumber":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])

	w = do(r, http.MethodPost, "/v1/sms/send", `{"phoneNumber":"9876543210","message":"`+strings.Repeat("x", 8192)+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request body too large", decode(t, w)["message"])
}

func TestGetSMS(t *testing.T) {
	svc := &fakeService{rows: map[uint]*models.DispatchRequest{
		5: {ID: 5, RequestID: "req-5", PhoneNumber: "+919876543210", Message: "hi", Status: models.StatusSent, CreatedAt: time.Unix(0, 0).UTC()},
	}}
	r := newRouter(t, svc, nil)

	w := do(r, http.MethodGet, "/v1/sms/5", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SENT", body["status"])
	assert.Equal(t, "req-5", body["requestId"])

	w = do(r, http.MethodGet, "/v1/sms/99", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "REQUEST_NOT_FOUND", decode(t, w)["code"])

	w = do(r, http.MethodGet, "/v1/sms/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchSMS(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(t, svc, nil)

	w := do(r, http.MethodGet, "/v1/sms/search?text=hello&phoneNumber=9876543210&startTime=2025-01-01T00:00:00Z&endTime=2025-01-02T00:00:00Z&page=1&size=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "hello", svc.criteria.Text)
	assert.Equal(t, "9876543210", svc.criteria.PhoneNumber)
	assert.True(t, svc.criteria.From.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, svc.criteria.To.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, svc.page)
	assert.Equal(t, 10, svc.size)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	info, ok := body["pageInfo"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, info["currentPage"])
	assert.EqualValues(t, 21, info["totalElements"])
	assert.Equal(t, true, info["hasNext"])
	assert.Len(t, body["data"], 1)
}

func TestSearchSMSValidation(t *testing.T) {
	r := newRouter(t, &fakeService{}, nil)

	for _, path := range []string{
		"/v1/sms/search?text=x&startTime=yesterday",
		"/v1/sms/search?text=x&page=-1",
		"/v1/sms/search?text=x&size=zero",
	} {
		w := do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	svc := &fakeService{searchErr: apperr.Validation("at least one of text, phoneNumber or date range is required")}
	r = newRouter(t, svc, nil)
	w := do(r, http.MethodGet, "/v1/sms/search", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
}

func TestBlacklistEndpoints(t *testing.T) {
	svc := &fakeService{list: []string{"+919876543210"}}
	r := newRouter(t, svc, nil)

	w := do(r, http.MethodPost, "/v1/blacklist", `{"phoneNumbers":["+919876543210","+14155552671"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "Successfully blacklisted 2 phone numbers", body["message"])

	w = do(r, http.MethodDelete, "/v1/blacklist", `{"phoneNumbers":["+14155552671"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"+14155552671"}, svc.removed)

	w = do(r, http.MethodGet, "/v1/blacklist", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 1, body["count"])

	w = do(r, http.MethodPost, "/v1/blacklist", `{"phoneNumbers":[]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Phone numbers list cannot be empty", decode(t, w)["message"])
}

func TestHealthReportsComponents(t *testing.T) {
	r := newRouter(t, &fakeService{}, map[string]handlers.Check{
		"database": func(context.Context) error { return nil },
	})
	w := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UP", decode(t, w)["status"])

	r = newRouter(t, &fakeService{}, map[string]handlers.Check{
		"kafka": func(context.Context) error { return errors.New("no brokers") },
	})
	w = do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DOWN", decode(t, w)["status"])
}

func TestFallbacksMetricsAndRecovery(t *testing.T) {
	r := newRouter(t, &fakeService{panicOn: "submit"}, nil)

	w := do(r, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = do(r, http.MethodPut, "/v1/sms/send", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sms_dispatch_http_requests_total")

	w = do(r, http.MethodPost, "/v1/sms/send", `{"phoneNumber":"9876543210","message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", decode(t, w)["code"])
}
