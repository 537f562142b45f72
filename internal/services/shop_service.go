package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// ShopService manages the shop registry owned by the auth service.
type ShopService struct {
	db *gorm.DB
}

// NewShopService constructs ShopService.
func NewShopService(db *gorm.DB) *ShopService {
	return &ShopService{db: db}
}

// ValidateShopCode resolves a shop by its code, or by id when code is a UUID.
func (s *ShopService) ValidateShopCode(ctx context.Context, code string) (*models.Shop, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ValidationError("shop_code is required")
	}

	query := s.db.WithContext(ctx).Where("code = ?", code)
	if id, err := uuid.Parse(code); err == nil {
		query = s.db.WithContext(ctx).Where("code = ? OR id = ?", code, id)
	}

	var shop models.Shop
	if err := query.First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, internalError(fmt.Errorf("find shop: %w", err))
	}
	return &shop, nil
}

type CreateShopInput struct {
	Code       string `json:"code" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=255"`
	CategoryID string `json:"category_id" validate:"omitempty,uuid"`
}

// CreateShop registers a shop. Codes are unique.
func (s *ShopService) CreateShop(ctx context.Context, in CreateShopInput) (*models.Shop, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if err := utils.Validate.Struct(in); err != nil {
		return nil, ValidationError(utils.ValidationMessage(err))
	}

	db := s.db.WithContext(ctx)
	shop := models.Shop{Code: in.Code, Name: in.Name}

	if in.CategoryID != "" {
		id := uuid.MustParse(in.CategoryID)
		var count int64
		if err := db.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, internalError(fmt.Errorf("find category: %w", err))
		}
		if count == 0 {
			return nil, ValidationError("category not found")
		}
		shop.CategoryID = &id
	}

	var existing int64
	if err := db.Model(&models.Shop{}).Where("code = ?", in.Code).Count(&existing).Error; err != nil {
		return nil, internalError(fmt.Errorf("check shop code: %w", err))
	}
	if existing > 0 {
		return nil, newError(KindConflict, "shop code already exists")
	}

	if err := db.Create(&shop).Error; err != nil {
		return nil, internalError(fmt.Errorf("create shop: %w", err))
	}
	return &shop, nil
}

// GetShop returns one shop with its category.
func (s *ShopService) GetShop(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.WithContext(ctx).Preload("Category").First(&shop, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, internalError(fmt.Errorf("find shop: %w", err))
	}
	return &shop, nil
}

// ListShops pages through shops, newest first, optionally within a category.
func (s *ShopService) ListShops(ctx context.Context, categoryID string, pg utils.Pagination) ([]models.Shop, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Shop{})
	if categoryID = strings.TrimSpace(categoryID); categoryID != "" {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			return nil, 0, ValidationError("category_id must be a valid uuid")
		}
		query = query.Where("category_id = ?", id)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internalError(fmt.Errorf("count shops: %w", err))
	}

	var shops []models.Shop
	if err := query.Preload("Category").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&shops).Error; err != nil {
		return nil, 0, internalError(fmt.Errorf("list shops: %w", err))
	}
	return shops, total, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

type CreateCategoryInput struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"max=255"`
}

// CreateCategory persists a category, deriving the slug from the name when
// none is given.
func (s *ShopService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.Validate.Struct(in); err != nil {
		return nil, ValidationError(utils.ValidationMessage(err))
	}

	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if slug == "" {
		return nil, ValidationError("slug must contain letters or digits")
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.Category{}).Where("slug = ?", slug).Count(&existing).Error; err != nil {
		return nil, internalError(fmt.Errorf("check category slug: %w", err))
	}
	if existing > 0 {
		return nil, newError(KindConflict, "category slug already exists")
	}

	category := models.Category{Name: in.Name, Slug: slug}
	if err := db.Create(&category).Error; err != nil {
		return nil, internalError(fmt.Errorf("create category: %w", err))
	}
	return &category, nil
}

// ListCategories pages through categories, newest first.
func (s *ShopService) ListCategories(ctx context.Context, pg utils.Pagination) ([]models.Category, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Category{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internalError(fmt.Errorf("count categories: %w", err))
	}

	var categories []models.Category
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&categories).Error; err != nil {
		return nil, 0, internalError(fmt.Errorf("list categories: %w", err))
	}
	return categories, total, nil
}
