package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ShopInfo is the subset of shop metadata returned by the directory.
type ShopInfo struct {
	ID         string    `json:"id"`
	Code       string    `json:"code,omitempty"`
	Name       string    `json:"name"`
	CategoryID string    `json:"category_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ShopLookup is the answer of the directory for one shop identifier.
type ShopLookup struct {
	Exists  bool
	Shop    *ShopInfo
	Message string
}

// ShopDirectory resolves shop identifiers against the auth service.
// A non-nil error means the answer is unknown; Exists=false with a nil
// error means the directory explicitly reported the shop as absent.
type ShopDirectory interface {
	ValidateShop(ctx context.Context, shopID string) (*ShopLookup, error)
}

// ShopValidationRequest is the body of the internal validation call.
type ShopValidationRequest struct {
	ShopCode string `json:"shop_code"`
}

// ShopValidationResponse is the body returned by the internal validation call.
type ShopValidationResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Shop    *ShopInfo `json:"shop,omitempty"`
}

// ServiceKeyHeader carries the shared secret on internal calls.
const ServiceKeyHeader = "X-Service-Key"

// DefaultShopLookupTimeout bounds a single directory call.
const DefaultShopLookupTimeout = 2 * time.Second

// ShopDirectoryClient calls the auth service over HTTP.
type ShopDirectoryClient struct {
	client *resty.Client
}

// NewShopDirectoryClient builds a client for the auth service at baseURL.
func NewShopDirectoryClient(baseURL, serviceKey string, timeout time.Duration) *ShopDirectoryClient {
	if timeout <= 0 {
		timeout = DefaultShopLookupTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader(ServiceKeyHeader, serviceKey)

	return &ShopDirectoryClient{client: client}
}

func (c *ShopDirectoryClient) ValidateShop(ctx context.Context, shopID string) (*ShopLookup, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, ValidationError("shop_id is required")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(ShopValidationRequest{ShopCode: shopID}).
		Post("/internal/shops/validate")
	if err != nil {
		return nil, fmt.Errorf("shop directory request: %w", err)
	}

	var body ShopValidationResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	switch {
	case resp.IsSuccess() && decodeErr != nil:
		return nil, fmt.Errorf("decode shop directory response: %w", decodeErr)
	case resp.IsSuccess() && body.Success:
		return &ShopLookup{Exists: true, Shop: body.Shop, Message: body.Message}, nil
	case resp.IsSuccess(), resp.StatusCode() == http.StatusNotFound && decodeErr == nil && !body.Success:
		return &ShopLookup{Exists: false, Message: body.Message}, nil
	default:
		return nil, fmt.Errorf("shop directory returned status %d", resp.StatusCode())
	}
}
