package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// CatalogHandler manages categories and shops.
type CatalogHandler struct {
	shops *services.ShopService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(shops *services.ShopService) *CatalogHandler {
	return &CatalogHandler{shops: shops}
}

func paginated(c *fiber.Ctx, data interface{}, pg utils.Pagination, total int64) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// ListCategories returns paginated categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	categories, total, err := h.shops.ListCategories(c.UserContext(), pg)
	if err != nil {
		return err
	}
	return paginated(c, categories, pg, total)
}

// CreateCategory persists a new category.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req services.CreateCategoryInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	category, err := h.shops.CreateCategory(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": category})
}

// ListShops returns paginated shops, optionally filtered by category_id.
func (h *CatalogHandler) ListShops(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	shops, total, err := h.shops.ListShops(c.UserContext(), c.Query("category_id"), pg)
	if err != nil {
		return err
	}
	return paginated(c, shops, pg, total)
}

// GetShop returns a single shop by ID.
func (h *CatalogHandler) GetShop(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	shop, err := h.shops.GetShop(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": shop})
}

// CreateShop registers a new shop.
func (h *CatalogHandler) CreateShop(c *fiber.Ctx) error {
	var req services.CreateShopInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	shop, err := h.shops.CreateShop(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": shop})
}

// ValidateShop answers the orders service's shop lookups.
func (h *CatalogHandler) ValidateShop(c *fiber.Ctx) error {
	var req services.ShopValidationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	shop, err := h.shops.ValidateShopCode(c.UserContext(), req.ShopCode)
	if errors.Is(err, services.ErrShopNotFound) {
		logrus.WithField("shop_code", req.ShopCode).Debug("shop validation miss")
		return c.Status(fiber.StatusNotFound).JSON(services.ShopValidationResponse{
			Success: false,
			Message: "Shop not found",
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(services.ShopValidationResponse{
		Success: true,
		Message: "Shop is valid",
		Shop:    shopInfo(shop),
	})
}

func shopInfo(shop *models.Shop) *services.ShopInfo {
	info := &services.ShopInfo{
		ID:        shop.ID.String(),
		Code:      shop.Code,
		Name:      shop.Name,
		CreatedAt: shop.CreatedAt,
		UpdatedAt: shop.UpdatedAt,
	}
	if shop.CategoryID != nil {
		info.CategoryID = shop.CategoryID.String()
	}
	return info
}
