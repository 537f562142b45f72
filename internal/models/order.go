package models

import "github.com/google/uuid"

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every accepted order status.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentStatus is owned by the payment collaborator; orders only initialise it.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type Order struct {
	BaseModel
	OrderID        string        `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	ShopID         string        `gorm:"size:64;index;not null" json:"shop_id"`
	CustomerEmail  string        `gorm:"size:255;index" json:"customer_email,omitempty"`
	CustomerMobile string        `gorm:"size:32;index" json:"customer_mobile,omitempty"`
	CustomerName   string        `gorm:"size:255" json:"customer_name,omitempty"`
	Subtotal       float64       `gorm:"type:numeric(18,6)" json:"subtotal"`
	TaxAmount      float64       `gorm:"type:numeric(18,6)" json:"tax_amount"`
	TotalAmount    float64       `gorm:"type:numeric(18,6)" json:"total_amount"`
	Status         OrderStatus   `gorm:"size:16;index;not null" json:"status"`
	PaymentStatus  PaymentStatus `gorm:"size:16;not null" json:"payment_status"`
	Notes          string        `json:"notes,omitempty"`
	Items          []OrderItem   `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID `gorm:"type:uuid;index" json:"-"`
	ProductID   string    `gorm:"size:64" json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       float64   `gorm:"type:numeric(18,6)" json:"price"`
	Quantity    int       `json:"quantity"`
	LineTotal   float64   `gorm:"type:numeric(18,6)" json:"line_total"`
}
