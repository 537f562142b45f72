package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/store"
	"github.com/example/storefront/internal/utils"
)

const (
	testSecret     = "test-secret"
	testServiceKey = "test-service-key"
)

func openDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, models...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type outbox struct {
	mu   sync.Mutex
	sent []string
}

func (o *outbox) Send(_ context.Context, to, _, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, to)
	return nil
}

type ordersApp struct {
	app    *fiber.App
	outbox *outbox
}

func newOrdersApp(t *testing.T, rateLimit int, shops services.ShopDirectory) *ordersApp {
	t.Helper()

	db := openDB(t, database.OrdersModels...)
	cfg := &config.OrdersConfig{OTPRateLimit: rateLimit}
	cfg.JWTSecret = testSecret

	mail := &outbox{}
	otp := services.NewOTPService(store.NewOTPStore(db), mail, nil,
		services.WithCodeGenerator(func() (string, error) { return "123456", nil }),
	)
	orders := services.NewOrderService(store.NewOrderStore(db), otp, shops,
		services.WithShopLookupTimeout(time.Second),
	)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	routes.RegisterOrders(app, routes.OrdersDeps{DB: db, Config: cfg, OTP: otp, Orders: orders})
	return &ordersApp{app: app, outbox: mail}
}

func newAuthApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := &config.AuthConfig{TokenExpires: time.Hour}
	cfg.JWTSecret = testSecret
	cfg.ServiceKey = testServiceKey

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	routes.RegisterAuth(app, openDB(t, database.AuthModels...), cfg)
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func staffHeader(t *testing.T) map[string]string {
	t.Helper()
	token, err := utils.GenerateToken(testSecret, uuid.New(), "staff@shop.io", "", time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func orderBody(shopID string) fiber.Map {
	return fiber.Map{
		"shop_id":        shopID,
		"customer_email": "buyer@example.com",
		"items": []fiber.Map{
			{"product_id": "p-1", "product_name": "Tea", "price": 100, "quantity": 2, "total": 200},
			{"product_id": "p-2", "product_name": "Cup", "price": 50, "quantity": 1, "total": 50},
		},
		"subtotal":     250.01,
		"tax_amount":   0,
		"total_amount": 250,
	}
}

func verifyEmail(t *testing.T, app *fiber.App) {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/send-otp", fiber.Map{"identifier": "buyer@example.com", "type": "email"}, nil)
	require.Equal(t, http.StatusOK, status, body)
	status, body = call(t, app, http.MethodPost, "/verify-otp", fiber.Map{"identifier": "buyer@example.com", "type": "email", "otp": "123456"}, nil)
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, true, body["success"])
}

func TestOrdersFlow(t *testing.T) {
	oa := newOrdersApp(t, 20, nil)
	app := oa.app

	verifyEmail(t, app)
	require.Equal(t, []string{"buyer@example.com"}, oa.outbox.sent)

	status, body := call(t, app, http.MethodPost, "/orders", orderBody("SHOP-1"), nil)
	require.Equal(t, http.StatusCreated, status, body)
	require.Equal(t, "Order created successfully", body["message"])
	data := body["data"].(map[string]interface{})
	require.Equal(t, "pending", data["status"])
	require.Equal(t, 250.0, data["total_amount"])
	orderID := data["order_id"].(string)

	status, body = call(t, app, http.MethodGet, "/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	order := body["data"].(map[string]interface{})
	require.Equal(t, "pending", order["payment_status"])
	require.Len(t, order["items"], 2)

	status, _ = call(t, app, http.MethodGet, "/orders/ORD-404", nil, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, body = call(t, app, http.MethodGet, "/orders/shop/SHOP-1", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, false, body["success"])

	status, body = call(t, app, http.MethodGet, "/orders/shop/SHOP-1?limit=5", nil, staffHeader(t))
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)
	pagination := body["pagination"].(map[string]interface{})
	require.Equal(t, 5.0, pagination["items_per_page"])
	require.Equal(t, 1.0, pagination["total_items"])

	status, body = call(t, app, http.MethodPatch, "/orders/"+orderID+"/status", fiber.Map{"status": "completed"}, staffHeader(t))
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, "completed", body["data"].(map[string]interface{})["status"])

	status, _ = call(t, app, http.MethodPatch, "/orders/"+orderID+"/status", fiber.Map{"status": "lost"}, staffHeader(t))
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPatch, "/orders/ORD-404/status", fiber.Map{"status": "completed"}, staffHeader(t))
	require.Equal(t, http.StatusNotFound, status)
}

func TestCreateOrder_Rejections(t *testing.T) {
	app := newOrdersApp(t, 20, nil).app

	status, body := call(t, app, http.MethodPost, "/orders", orderBody("SHOP-1"), nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, false, body["success"])
	require.Equal(t, services.ErrUnverifiedContact.Message, body["message"])

	verifyEmail(t, app)

	mismatch := orderBody("SHOP-1")
	mismatch["subtotal"] = 260
	status, body = call(t, app, http.MethodPost, "/orders", mismatch, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, services.ErrSubtotalMismatch.Message, body["message"])

	noContact := orderBody("SHOP-1")
	delete(noContact, "customer_email")
	status, body = call(t, app, http.MethodPost, "/orders", noContact, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, services.ErrMissingContact.Message, body["message"])

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOTPEndpoints(t *testing.T) {
	app := newOrdersApp(t, 2, nil).app

	status, body := call(t, app, http.MethodPost, "/send-otp", fiber.Map{"identifier": "nope", "type": "email"}, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "identifier must be a valid email", body["message"])

	status, _ = call(t, app, http.MethodPost, "/send-otp", fiber.Map{"identifier": "a@b.co", "type": "email"}, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, app, http.MethodPost, "/send-otp", fiber.Map{"identifier": "a@b.co", "type": "email"}, nil)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, false, body["success"])

	status, body = call(t, app, http.MethodPost, "/verify-otp", fiber.Map{"identifier": "a@b.co", "type": "email", "otp": "000000"}, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid or expired OTP", body["message"])

	status, body = call(t, app, http.MethodPost, "/send-otp", fiber.Map{"identifier": "+998901234567", "type": "mobile"}, nil)
	require.Equal(t, http.StatusTooManyRequests, status, body)
}

func TestMobileDispatchFailureIsReported(t *testing.T) {
	app := newOrdersApp(t, 20, nil).app

	// The fixture wires no SMS sender.
	status, body := call(t, app, http.MethodPost, "/send-otp", fiber.Map{"identifier": "+998901234567", "type": "mobile"}, nil)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, services.ErrDispatchFailed.Message, body["message"])

	status, _ = call(t, app, http.MethodPost, "/verify-otp", fiber.Map{"identifier": "+998901234567", "type": "mobile", "otp": "123456"}, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newOrdersApp(t, 20, nil).app

	status, body := call(t, app, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), "go_goroutines")
}

func TestAuthService(t *testing.T) {
	app := newAuthApp(t)

	status, body := call(t, app, http.MethodPost, "/auth/register", fiber.Map{"name": "Ann", "email": "Ann@Shop.io", "password": "short"}, nil)
	require.Equal(t, http.StatusBadRequest, status, body)

	status, body = call(t, app, http.MethodPost, "/auth/register", fiber.Map{"name": "Ann", "email": "Ann@Shop.io", "password": "long-enough"}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	token := body["data"].(map[string]interface{})["token"].(string)
	claims, err := utils.ParseToken(testSecret, token)
	require.NoError(t, err)
	require.Equal(t, "ann@shop.io", claims.Email)

	status, _ = call(t, app, http.MethodPost, "/auth/register", fiber.Map{"name": "Ann", "email": "ann@shop.io", "password": "long-enough"}, nil)
	require.Equal(t, http.StatusConflict, status)

	status, _ = call(t, app, http.MethodPost, "/auth/login", fiber.Map{"email": "ann@shop.io", "password": "wrong-password"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = call(t, app, http.MethodPost, "/auth/login", fiber.Map{"email": "ANN@shop.io", "password": "long-enough"}, nil)
	require.Equal(t, http.StatusOK, status, body)
	auth := map[string]string{"Authorization": "Bearer " + body["data"].(map[string]interface{})["token"].(string)}

	status, _ = call(t, app, http.MethodPost, "/categories", fiber.Map{"name": "Cafes"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = call(t, app, http.MethodPost, "/categories", fiber.Map{"name": "Cafes"}, auth)
	require.Equal(t, http.StatusCreated, status, body)
	categoryID := body["data"].(map[string]interface{})["id"].(string)

	status, body = call(t, app, http.MethodPost, "/shops", fiber.Map{"code": "SHOP-1", "name": "Tea House", "category_id": categoryID}, auth)
	require.Equal(t, http.StatusCreated, status, body)
	shopID := body["data"].(map[string]interface{})["id"].(string)

	status, _ = call(t, app, http.MethodPost, "/shops", fiber.Map{"code": "SHOP-1", "name": "Copy"}, auth)
	require.Equal(t, http.StatusConflict, status)

	status, body = call(t, app, http.MethodGet, "/shops/"+shopID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Cafes", body["data"].(map[string]interface{})["category"].(map[string]interface{})["name"])

	status, body = call(t, app, http.MethodGet, "/shops?category_id="+categoryID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)

	status, body = call(t, app, http.MethodGet, "/categories", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"], 1)

	status, _ = call(t, app, http.MethodPost, "/internal/shops/validate", fiber.Map{"shop_code": "SHOP-1"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	key := map[string]string{services.ServiceKeyHeader: testServiceKey}
	status, body = call(t, app, http.MethodPost, "/internal/shops/validate", fiber.Map{"shop_code": "SHOP-1"}, key)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["success"])
	require.Equal(t, shopID, body["shop"].(map[string]interface{})["id"])
	require.Equal(t, categoryID, body["shop"].(map[string]interface{})["category_id"])

	status, body = call(t, app, http.MethodPost, "/internal/shops/validate", fiber.Map{"shop_code": shopID}, key)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["success"])

	status, body = call(t, app, http.MethodPost, "/internal/shops/validate", fiber.Map{"shop_code": "SHOP-404"}, key)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, false, body["success"])
}

func TestOrdersCheckShopsAgainstAuthService(t *testing.T) {
	authApp := newAuthApp(t)
	authSrv := httptest.NewServer(adaptor.FiberApp(authApp))
	t.Cleanup(authSrv.Close)

	status, body := call(t, authApp, http.MethodPost, "/shops", fiber.Map{"code": "SHOP-1", "name": "Tea House"}, staffHeader(t))
	require.Equal(t, http.StatusCreated, status, body)

	directory := services.NewShopDirectoryClient(authSrv.URL, testServiceKey, time.Second)
	app := newOrdersApp(t, 20, directory).app
	verifyEmail(t, app)

	status, body = call(t, app, http.MethodPost, "/orders", orderBody("SHOP-404"), nil)
	require.Equal(t, http.StatusNotFound, status, body)
	require.Equal(t, services.ErrShopNotFound.Message, body["message"])

	status, body = call(t, app, http.MethodPost, "/orders", orderBody("SHOP-1"), nil)
	require.Equal(t, http.StatusCreated, status, body)
	orderID := body["data"].(map[string]interface{})["order_id"].(string)

	status, body = call(t, authApp, http.MethodGet, "/shops?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, status)
	shopID := body["data"].([]interface{})[0].(map[string]interface{})["id"].(string)

	status, body = call(t, app, http.MethodGet, "/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, shopID, body["data"].(map[string]interface{})["shop_id"])

	status, body = call(t, app, http.MethodPost, "/orders", orderBody(shopID), nil)
	require.Equal(t, http.StatusCreated, status, body)

	for _, key := range []string{"SHOP-1", shopID} {
		status, body = call(t, app, http.MethodGet, "/orders/shop/"+key, nil, staffHeader(t))
		require.Equal(t, http.StatusOK, status)
		require.Len(t, body["data"], 2, key)
	}

	// A directory with the wrong key cannot answer; admission soft-fails open.
	blind := services.NewShopDirectoryClient(authSrv.URL, "wrong-key", time.Second)
	app = newOrdersApp(t, 20, blind).app
	verifyEmail(t, app)
	status, body = call(t, app, http.MethodPost, "/orders", orderBody("SHOP-404"), nil)
	require.Equal(t, http.StatusCreated, status, body)
}
