package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/models"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramService posts order notifications to an admin chat.
type TelegramService struct {
	client      *resty.Client
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService. Notifications are
// skipped when either the token or the chat is empty.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return newTelegramService(telegramAPIBase, botToken, adminChatID)
}

func newTelegramService(baseURL, botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		client:      resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

// Enabled reports whether messages will actually be sent.
func (s *TelegramService) Enabled() bool {
	return s != nil && s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendToAdmin sends an HTML message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if !s.Enabled() {
		return nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(telegramMessage{ChatID: s.adminChatID, Text: text, ParseMode: "HTML"}).
		Post("/bot" + s.botToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode())
	}
	return nil
}

// FormatPrice renders an amount with thousand separators and two decimals.
func FormatPrice(amount float64) string {
	fixed := decimal.NewFromFloat(amount).StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	sign := ""
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	return sign + b.String() + "." + frac
}

// FormatOrderMessage builds the admin notification for a freshly admitted
// order. Client supplied text is HTML-escaped.
func FormatOrderMessage(order *models.Order) string {
	var items strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1, html.EscapeString(item.ProductName), item.Quantity, FormatPrice(item.Price), FormatPrice(item.LineTotal))
	}

	contact := order.CustomerEmail
	if order.CustomerMobile != "" {
		if contact != "" {
			contact += ", "
		}
		contact += order.CustomerMobile
	}
	name := order.CustomerName
	if name == "" {
		name = "-"
	}

	return strings.TrimSpace(fmt.Sprintf(`<b>New order %s</b>
<b>Shop:</b> %s
<b>Customer:</b> %s
<b>Contact:</b> %s
<b>Items:</b>
%s
<b>Subtotal:</b> %s
<b>Tax:</b> %s
<b>Total:</b> %s
<b>Status:</b> %s`,
		html.EscapeString(order.OrderID),
		html.EscapeString(order.ShopID),
		html.EscapeString(name),
		html.EscapeString(contact),
		items.String(),
		FormatPrice(order.Subtotal),
		FormatPrice(order.TaxAmount),
		FormatPrice(order.TotalAmount),
		order.Status,
	))
}

// NotifyNewOrder sends the new order summary to the admin chat. Failures are
// logged; callers usually run it in its own goroutine.
func (s *TelegramService) NotifyNewOrder(order models.Order) {
	if !s.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.SendToAdmin(ctx, FormatOrderMessage(&order)); err != nil {
		logrus.WithError(err).WithField("order_id", order.OrderID).Warn("telegram notification failed")
		return
	}
	logrus.WithField("order_id", order.OrderID).Debug("telegram notification sent")
}
