package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// ErrOrderNotFound is returned by OrderStore implementations on a miss.
var ErrOrderNotFound = errors.New("order not found")

// OrderStore persists orders.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	// ListByShop matches orders whose shop_id is any of shopIDs.
	ListByShop(ctx context.Context, shopIDs []string, status models.OrderStatus, limit, offset int) ([]models.Order, int64, error)
	// UpdateStatus sets status and updated_at=now and returns the fresh row.
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, now time.Time) (*models.Order, error)
}

// VerificationChecker answers whether a contact currently holds a verified OTP.
type VerificationChecker interface {
	IsVerified(ctx context.Context, identifier string, channel models.OTPChannel) (bool, error)
}

type OrderItemInput struct {
	ProductID   string  `json:"product_id" validate:"required,max=64"`
	ProductName string  `json:"product_name" validate:"required,max=255"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gte=1"`
	// Total is accepted for client convenience and always recomputed.
	Total float64 `json:"total"`
}

type CreateOrderInput struct {
	ShopID         string           `json:"shop_id" validate:"required,max=64"`
	CustomerEmail  string           `json:"customer_email" validate:"omitempty,email"`
	CustomerMobile string           `json:"customer_mobile" validate:"omitempty,mobile"`
	CustomerName   string           `json:"customer_name" validate:"max=255"`
	Items          []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	Subtotal       float64          `json:"subtotal" validate:"gte=0"`
	TaxAmount      float64          `json:"tax_amount" validate:"gte=0"`
	TotalAmount    float64          `json:"total_amount" validate:"gte=0"`
	Notes          string           `json:"notes" validate:"max=2000"`
}

// OrderService admits, reads and transitions orders.
type OrderService struct {
	store         OrderStore
	verifier      VerificationChecker
	shops         ShopDirectory
	events        EventPublisher
	lookupTimeout time.Duration
	now           func() time.Time
	newOrderID    func(time.Time) (string, error)
}

type OrderOption func(*OrderService)

func WithOrderClock(now func() time.Time) OrderOption { return func(s *OrderService) { s.now = now } }

func WithEventPublisher(p EventPublisher) OrderOption {
	return func(s *OrderService) { s.events = p }
}

// WithShopLookupTimeout bounds the remote shop check.
func WithShopLookupTimeout(d time.Duration) OrderOption {
	return func(s *OrderService) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

func WithOrderIDGenerator(gen func(time.Time) (string, error)) OrderOption {
	return func(s *OrderService) { s.newOrderID = gen }
}

// NewOrderService constructs OrderService. shops may be nil to skip the
// remote shop check entirely.
func NewOrderService(store OrderStore, verifier VerificationChecker, shops ShopDirectory, opts ...OrderOption) *OrderService {
	s := &OrderService{
		store:         store,
		verifier:      verifier,
		shops:         shops,
		events:        NoopEventPublisher{},
		lookupTimeout: DefaultShopLookupTimeout,
		now:           time.Now,
		newOrderID:    utils.GenerateOrderID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateOrder runs the admission gates in order and persists the order when
// all of them pass. No OTP is consumed.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (order *models.Order, err error) {
	defer func() {
		if err != nil {
			metrics.OrderAdmissions.WithLabelValues(string(KindOf(err))).Inc()
			return
		}
		metrics.OrderAdmissions.WithLabelValues("admitted").Inc()
	}()

	in.ShopID = strings.TrimSpace(in.ShopID)
	in.CustomerEmail = utils.NormalizeEmail(in.CustomerEmail)
	in.CustomerMobile = utils.NormalizeMobile(in.CustomerMobile)
	in.CustomerName = strings.TrimSpace(in.CustomerName)

	if err := utils.Validate.Struct(in); err != nil {
		return nil, ValidationError(utils.ValidationMessage(err))
	}

	if in.CustomerEmail == "" && in.CustomerMobile == "" {
		return nil, ErrMissingContact
	}

	verified, err := s.contactVerified(ctx, in.CustomerEmail, in.CustomerMobile)
	if err != nil {
		return nil, internalError(fmt.Errorf("check otp verification: %w", err))
	}
	if !verified {
		return nil, ErrUnverifiedContact
	}

	shopID, err := s.checkShop(ctx, in.ShopID)
	if err != nil {
		return nil, err
	}

	lines := make([]LineInput, len(in.Items))
	for i, it := range in.Items {
		lines[i] = LineInput{Price: it.Price, Quantity: it.Quantity}
	}
	totals := ComputeTotals(lines, in.TaxAmount)

	if !WithinTolerance(totals.Subtotal, in.Subtotal) {
		return nil, ErrSubtotalMismatch
	}
	if !WithinTolerance(totals.Total, in.TotalAmount) {
		return nil, ErrTotalMismatch
	}

	now := s.now()
	orderID, err := s.newOrderID(now)
	if err != nil {
		return nil, internalError(fmt.Errorf("generate order id: %w", err))
	}

	order = &models.Order{
		OrderID:        orderID,
		ShopID:         shopID,
		CustomerEmail:  in.CustomerEmail,
		CustomerMobile: in.CustomerMobile,
		CustomerName:   in.CustomerName,
		Subtotal:       totals.Subtotal.InexactFloat64(),
		TaxAmount:      totals.Tax.InexactFloat64(),
		TotalAmount:    totals.Total.InexactFloat64(),
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
		Notes:          strings.TrimSpace(in.Notes),
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	for i, it := range in.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price,
			Quantity:    it.Quantity,
			LineTotal:   totals.Lines[i].InexactFloat64(),
		})
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, internalError(fmt.Errorf("persist order: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.OrderID,
		"shop_id":  order.ShopID,
		"total":    order.TotalAmount,
	}).Info("order created")

	s.publish(ctx, EventOrderCreated, order)
	return order, nil
}

// contactVerified checks each supplied identifier on its own channel; one
// verified channel is enough.
func (s *OrderService) contactVerified(ctx context.Context, email, mobile string) (bool, error) {
	if email != "" {
		ok, err := s.verifier.IsVerified(ctx, email, models.ChannelEmail)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	if mobile != "" {
		return s.verifier.IsVerified(ctx, mobile, models.ChannelMobile)
	}
	return false, nil
}

// checkShop fails only when the directory explicitly reports the shop as
// absent. Timeouts and transport errors are logged and ignored. It returns
// the key the order is stored under: the shop's id when the directory knows
// it, the submitted value otherwise.
func (s *OrderService) checkShop(ctx context.Context, shopID string) (string, error) {
	if s.shops == nil {
		return shopID, nil
	}

	lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	lookup, err := s.shops.ValidateShop(lctx, shopID)
	if err != nil {
		metrics.ShopLookups.WithLabelValues("unavailable").Inc()
		logrus.WithError(err).WithField("shop_id", shopID).Warn("shop lookup failed, continuing without shop validation")
		return shopID, nil
	}
	if lookup == nil || !lookup.Exists {
		metrics.ShopLookups.WithLabelValues("not_found").Inc()
		return "", ErrShopNotFound
	}

	metrics.ShopLookups.WithLabelValues("found").Inc()
	if lookup.Shop != nil && lookup.Shop.ID != "" {
		return lookup.Shop.ID, nil
	}
	return shopID, nil
}

// shopKeys lists every value a shop's orders may be stored under: the
// requested one plus the id and code the directory reports for it. Orders
// admitted while the directory was unreachable keep the submitted value.
func (s *OrderService) shopKeys(ctx context.Context, shopID string) []string {
	keys := []string{shopID}
	if s.shops == nil {
		return keys
	}

	lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	lookup, err := s.shops.ValidateShop(lctx, shopID)
	if err != nil {
		logrus.WithError(err).WithField("shop_id", shopID).Warn("shop lookup failed, listing by the given id only")
		return keys
	}
	if lookup == nil || lookup.Shop == nil {
		return keys
	}
	for _, k := range []string{lookup.Shop.ID, lookup.Shop.Code} {
		if k != "" && k != shopID {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	if err := s.events.Publish(ctx, newOrderEvent(eventType, order, s.now())); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"order_id": order.OrderID,
			"event":    eventType,
		}).Error("failed to publish order event")
	}
}

// GetOrder returns the order with the given public id.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ValidationError("order id is required")
	}

	order, err := s.store.FindByOrderID(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("find order: %w", err))
	}
	return order, nil
}

// ListShopOrders pages through a shop's orders, newest first, optionally
// filtered by status.
func (s *OrderService) ListShopOrders(ctx context.Context, shopID, status string, pg utils.Pagination) ([]models.Order, int64, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, 0, ValidationError("shop id is required")
	}

	filter := models.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if filter != "" && !filter.Valid() {
		return nil, 0, ValidationError(statusHint())
	}

	orders, total, err := s.store.ListByShop(ctx, s.shopKeys(ctx, shopID), filter, pg.Limit, pg.Offset)
	if err != nil {
		return nil, 0, internalError(fmt.Errorf("list orders: %w", err))
	}
	return orders, total, nil
}

// UpdateStatus moves an order to any of the known statuses. There is no
// transition graph: staff may correct any state, including reopening a
// cancelled order.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	next := models.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, ValidationError(statusHint())
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ValidationError("order id is required")
	}

	order, err := s.store.UpdateStatus(ctx, orderID, next, s.now())
	if errors.Is(err, ErrOrderNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internalError(fmt.Errorf("update order status: %w", err))
	}

	metrics.OrderStatusUpdates.WithLabelValues(string(next)).Inc()
	logrus.WithFields(logrus.Fields{"order_id": orderID, "status": next}).Info("order status updated")

	s.publish(ctx, EventOrderStatusChanged, order)
	return order, nil
}

func statusHint() string {
	names := make([]string, len(models.OrderStatuses))
	for i, st := range models.OrderStatuses {
		names[i] = string(st)
	}
	return "status must be one of [" + strings.Join(names, " ") + "]"
}
