package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// ErrOrderLocked is returned when a write would change line-item prices of a
// completed order.
var ErrOrderLocked = errors.New("order is completed; item prices cannot change")

// OrderItem snapshots the price of a course at purchase time.
type OrderItem struct {
	CourseID uuid.UUID `json:"course_id"`
	Price    float64   `json:"price"`
}

type Order struct {
	ID          uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"_id"`
	UserID      uuid.UUID                     `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	TotalAmount float64                       `gorm:"not null;column:total_amount" json:"total_amount"`
	Status      string                        `gorm:"not null;default:'pending';index;column:status" json:"status"`
	Items       datatypes.JSONSlice[OrderItem] `gorm:"column:items" json:"items"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "order" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}

// BeforeUpdate rejects price changes on completed orders. Items are compared
// only when the update carries them.
func (o *Order) BeforeUpdate(tx *gorm.DB) error {
	items, touched := []OrderItem(o.Items), len(o.Items) > 0
	if m, ok := tx.Statement.Dest.(map[string]interface{}); ok {
		if v, ok := m["items"]; ok {
			if s, ok := v.(datatypes.JSONSlice[OrderItem]); ok {
				items, touched = s, true
			}
		}
	}
	if !touched || o.ID == uuid.Nil {
		return nil
	}
	var prev Order
	err := tx.Session(&gorm.Session{NewDB: true}).
		Select("status", "items").
		Where("id = ?", o.ID).
		Take(&prev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if prev.Status == OrderStatusCompleted && !samePrices(prev.Items, items) {
		return ErrOrderLocked
	}
	return nil
}

func samePrices(a, b []OrderItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type Payment struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"_id"`
	OrderID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex;column:order_id" json:"order_id"`
	PaymentMethod string         `gorm:"not null;column:payment_method" json:"payment_method"`
	PaymentStatus string         `gorm:"not null;column:payment_status" json:"payment_status"`
	Amount        float64        `gorm:"not null;column:amount" json:"amount"`
	TransactionID string         `gorm:"column:transaction_id" json:"transaction_id"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
