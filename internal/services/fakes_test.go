package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
)

type memOTPStore struct {
	mu      sync.Mutex
	records map[string]models.OTPRecord
	err     error
}

func newMemOTPStore() *memOTPStore {
	return &memOTPStore{records: map[string]models.OTPRecord{}}
}

func otpKey(identifier string, channel models.OTPChannel) string {
	return string(channel) + ":" + identifier
}

func (m *memOTPStore) Upsert(_ context.Context, rec *models.OTPRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records[otpKey(rec.Identifier, rec.Channel)] = *rec
	return nil
}

func (m *memOTPStore) MarkVerified(_ context.Context, identifier string, channel models.OTPChannel, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	rec, ok := m.records[otpKey(identifier, channel)]
	if !ok || rec.Code != code || rec.Verified || !rec.Active(now) {
		return false, nil
	}
	rec.Verified = true
	m.records[otpKey(identifier, channel)] = rec
	return true, nil
}

func (m *memOTPStore) IsVerified(_ context.Context, identifier string, channel models.OTPChannel, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	rec, ok := m.records[otpKey(identifier, channel)]
	return ok && rec.Verified && rec.Active(now), nil
}

func (m *memOTPStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, rec := range m.records {
		if !rec.Active(now) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *memOTPStore) get(identifier string, channel models.OTPChannel) (models.OTPRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[otpKey(identifier, channel)]
	return rec, ok
}

type sentMessage struct {
	to, subject, body string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{to: to, subject: subject, body: body})
	return r.err
}

type recordingSMS struct {
	recordingSender
}

func (r *recordingSMS) Send(ctx context.Context, to, body string) error {
	return r.recordingSender.Send(ctx, to, "", body)
}

type memOrderStore struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	createErr error
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: map[string]*models.Order{}}
}

func (m *memOrderStore) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *order
	m.orders[order.OrderID] = &cp
	return nil
}

func (m *memOrderStore) FindByOrderID(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderStore) ListByShop(_ context.Context, shopIDs []string, status models.OrderStatus, limit, offset int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := map[string]bool{}
	for _, id := range shopIDs {
		keys[id] = true
	}
	var out []models.Order
	for _, o := range m.orders {
		if keys[o.ShopID] && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (m *memOrderStore) UpdateStatus(_ context.Context, orderID string, status models.OrderStatus, now time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = now
	cp := *o
	return &cp, nil
}

type stubDirectory struct {
	lookup *services.ShopLookup
	err    error
	// block makes ValidateShop wait for the context to be cancelled.
	block bool
	calls int
}

func (s *stubDirectory) ValidateShop(ctx context.Context, _ string) (*services.ShopLookup, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.lookup, s.err
}

type stubVerifier struct {
	verified map[string]bool
	err      error
	asked    []string
}

func (s *stubVerifier) IsVerified(_ context.Context, identifier string, channel models.OTPChannel) (bool, error) {
	s.asked = append(s.asked, string(channel)+":"+identifier)
	if s.err != nil {
		return false, s.err
	}
	return s.verified[string(channel)+":"+identifier], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []services.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt services.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

var errBoom = errors.New("boom")

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
