package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders   *services.OrderService
	telegram *services.TelegramService
}

// NewOrderHandler constructs OrderHandler. telegram may be nil.
func NewOrderHandler(orders *services.OrderService, telegram *services.TelegramService) *OrderHandler {
	return &OrderHandler{orders: orders, telegram: telegram}
}

// CreateOrder admits an order from a customer whose contact has been
// verified with an OTP.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.orders.CreateOrder(c.UserContext(), req)
	if err != nil {
		return err
	}

	if h.telegram.Enabled() {
		go h.telegram.NotifyNewOrder(*order)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Order created successfully", fiber.Map{
		"order_id":     order.OrderID,
		"status":       order.Status,
		"total_amount": order.TotalAmount,
		"created_at":   order.CreatedAt,
	})
}

// GetOrder returns a single order by its public id.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.orders.GetOrder(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// ListShopOrders returns a shop's orders for authenticated staff.
func (h *OrderHandler) ListShopOrders(c *fiber.Ctx) error {
	if _, ok := middleware.GetCurrentStaff(c); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListShopOrders(c.UserContext(), c.Params("shopId"), c.Query("status"), pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves an order to another status.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	staff, ok := middleware.GetCurrentStaff(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), c.Params("orderId"), req.Status)
	if err != nil {
		return err
	}

	logOrderAction(c, staff, order.OrderID, "status updated to "+string(order.Status))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order status updated", order)
}

func logOrderAction(c *fiber.Ctx, staff *utils.StaffClaims, orderID, action string) {
	logrus.WithFields(logrus.Fields{
		"order_id": orderID,
		"staff_id": staff.UserID,
		"ip":       c.IP(),
	}).Info(action)
}
