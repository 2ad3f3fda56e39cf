package notification_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/ledger"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
	"github.com/ajayykmr/sms-dispatch-service/internal/notification"
	"github.com/ajayykmr/sms-dispatch-service/internal/search"
)

type ledgerStub struct {
	nextID  uint
	created []*models.DispatchRequest
	updates map[uint]ledger.StatusUpdate
	rows    map[uint]*models.DispatchRequest
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{nextID: 1, updates: map[uint]ledger.StatusUpdate{}, rows: map[uint]*models.DispatchRequest{}}
}

func (l *ledgerStub) Create(_ context.Context, phone, message, requestID string) (*models.DispatchRequest, error) {
	row := &models.DispatchRequest{ID: l.nextID, PhoneNumber: phone, Message: message, RequestID: requestID, Status: models.StatusPending}
	l.nextID++
	l.created = append(l.created, row)
	l.rows[row.ID] = row
	return row, nil
}

func (l *ledgerStub) GetByID(_ context.Context, id uint) (*models.DispatchRequest, error) {
	if row, ok := l.rows[id]; ok {
		return row, nil
	}
	return nil, apperr.NotFound("SMS request not found: %d", id)
}

func (l *ledgerStub) UpdateStatus(_ context.Context, id uint, upd ledger.StatusUpdate) (*models.DispatchRequest, error) {
	l.updates[id] = upd
	return l.rows[id], nil
}

type publisherStub struct {
	err  error
	msgs []models.RequestMessage
}

func (p *publisherStub) PublishRequest(_ context.Context, msg models.RequestMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

type searcherStub struct {
	criteria search.Criteria
	page     int
	size     int
}

func (s *searcherStub) Search(_ context.Context, c search.Criteria, page, pageSize int) (search.Page, error) {
	s.criteria, s.page, s.size = c, page, pageSize
	return search.Page{Page: page, PageSize: pageSize}, nil
}

type blacklistStub struct {
	added   []string
	removed []string
	list    []string
}

func (b *blacklistStub) Add(_ context.Context, phones []string) error {
	b.added = append(b.added, phones...)
	return nil
}

func (b *blacklistStub) Remove(_ context.Context, phones []string) error {
	b.removed = append(b.removed, phones...)
	return nil
}

func (b *blacklistStub) ListAll(context.Context) ([]string, error) {
	return b.list, nil
}

type fixture struct {
	svc       *notification.Service
	ledger    *ledgerStub
	publisher *publisherStub
	searcher  *searcherStub
	blacklist *blacklistStub
}

func newFixture(t *testing.T, opts ...notification.Option) *fixture {
	t.Helper()
	f := &fixture{
		ledger:    newLedgerStub(),
		publisher: &publisherStub{},
		searcher:  &searcherStub{},
		blacklist: &blacklistStub{},
	}
	svc, err := notification.NewService(f.ledger, f.publisher, f.searcher, f.blacklist, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	f.svc = svc
	return f
}

func TestSubmitGeneratesRequestIDAndQueues(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)
	f := newFixture(t,
		notification.WithClock(func() time.Time { return fixed }),
		notification.WithIDSuffix(func() string { return "deadbeef" }),
	)

	res, err := f.svc.Submit(context.Background(), notification.SubmitCommand{PhoneNumber: "9876543210", Message: "hello"})
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if res.RequestID != "req-1700000000123-deadbeef" {
		t.Fatalf("unexpected request id %q", res.RequestID)
	}
	if res.LedgerID != 1 || res.Status != models.StatusPending {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.publisher.msgs) != 1 {
		t.Fatalf("expected one queued message, got %d", len(f.publisher.msgs))
	}
	msg := f.publisher.msgs[0]
	if msg.PhoneNumber != "+919876543210" || msg.RequestID != res.RequestID || msg.Message != "hello" {
		t.Fatalf("unexpected queued message %+v", msg)
	}
	if f.ledger.created[0].PhoneNumber != "+919876543210" {
		t.Fatalf("expected normalized phone in ledger, got %s", f.ledger.created[0].PhoneNumber)
	}
}

func TestSubmitDefaultRequestIDFormat(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Submit(context.Background(), notification.SubmitCommand{PhoneNumber: "+14155552671", Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^req-\d+-[0-9a-f]{8}$`).MatchString(res.RequestID) {
		t.Fatalf("unexpected generated id %q", res.RequestID)
	}
}

func TestSubmitKeepsCallerRequestID(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Submit(context.Background(), notification.SubmitCommand{PhoneNumber: "+14155552671", Message: "hi", RequestID: " client-1 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RequestID != "client-1" {
		t.Fatalf("expected caller id to be kept, got %q", res.RequestID)
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	f := newFixture(t)
	cases := []notification.SubmitCommand{
		{PhoneNumber: "123", Message: "hi"},
		{PhoneNumber: "+14155552671", Message: "   "},
		{PhoneNumber: "+14155552671", Message: strings.Repeat("a", notification.MaxMessageRunes+1)},
	}
	for _, cmd := range cases {
		if _, err := f.svc.Submit(context.Background(), cmd); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", cmd.PhoneNumber, err)
		}
	}
	if len(f.ledger.created) != 0 || len(f.publisher.msgs) != 0 {
		t.Fatalf("invalid requests must not reach the ledger or queue")
	}
}

func TestSubmitMarksRowFailedWhenQueueFails(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.Submit(context.Background(), notification.SubmitCommand{PhoneNumber: "+14155552671", Message: "hi"})
	if err == nil {
		t.Fatalf("expected queue error")
	}
	if apperr.CodeOf(err) != apperr.CodeQueueError {
		t.Fatalf("expected QUEUE_ERROR code, got %s", apperr.CodeOf(err))
	}
	upd, ok := f.ledger.updates[1]
	if !ok || upd.Status != models.StatusFailed || upd.FailureCode != apperr.CodeQueueError {
		t.Fatalf("expected FAILED/QUEUE_ERROR update, got %+v", upd)
	}
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Lookup(context.Background(), 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for zero id, got %v", err)
	}
	if _, err := f.svc.Lookup(context.Background(), 99); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	res, err := f.svc.Submit(context.Background(), notification.SubmitCommand{PhoneNumber: "+14155552671", Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row, err := f.svc.Lookup(context.Background(), res.LedgerID)
	if err != nil || row.RequestID != res.RequestID {
		t.Fatalf("unexpected lookup result %+v, %v", row, err)
	}
}

func TestSearchNormalizesPhone(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Search(context.Background(), search.Criteria{PhoneNumber: "9876543210"}, 2, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.searcher.criteria.PhoneNumber != "+919876543210" || f.searcher.page != 2 || f.searcher.size != 10 {
		t.Fatalf("unexpected forwarded query %+v page=%d size=%d", f.searcher.criteria, f.searcher.page, f.searcher.size)
	}
	if _, err := f.svc.Search(context.Background(), search.Criteria{PhoneNumber: "abc"}, 0, 10); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBlacklistDelegation(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.AddToBlacklist(context.Background(), []string{"9876543210", "+919876543210", "+14155552671"})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 distinct numbers added, got %d (%v)", n, err)
	}
	if len(f.blacklist.added) != 2 || f.blacklist.added[0] != "+919876543210" {
		t.Fatalf("unexpected forwarded numbers %v", f.blacklist.added)
	}

	n, err = f.svc.RemoveFromBlacklist(context.Background(), []string{"+14155552671"})
	if err != nil || n != 1 || f.blacklist.removed[0] != "+14155552671" {
		t.Fatalf("unexpected remove result %d %v %v", n, err, f.blacklist.removed)
	}

	if _, err := f.svc.AddToBlacklist(context.Background(), nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for empty list, got %v", err)
	}
	if _, err := f.svc.RemoveFromBlacklist(context.Background(), []string{"nope"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for bad number, got %v", err)
	}

	f.blacklist.list = []string{"+14155552671"}
	list, err := f.svc.ListBlacklist(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %v %v", list, err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := notification.NewService(nil, &publisherStub{}, &searcherStub{}, &blacklistStub{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing ledger")
	}
	if _, err := notification.NewService(newLedgerStub(), nil, &searcherStub{}, &blacklistStub{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing publisher")
	}
}
