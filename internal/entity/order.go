package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Order statuses. Orders default to pending; MarkPaid moves them to
// confirmed; the admin soft-delete parks them on deleted until they are
// restored or purged.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusDeleted   = "deleted"
)

// Payment statuses.
const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

// Soft-delete origins. OriginNone (empty) means the order is not
// soft-deleted. Only admin-origin deletions appear in the trash view.
const (
	OriginNone      = ""
	OriginAdmin     = "admin"
	OriginOrderCard = "orderCard"
)

// Item is a single order line.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	Price    float64 `json:"price"`
}

// Items is stored as a JSON column.
type Items []Item

// Value implements driver.Valuer so Items round-trips through any dialect.
func (it Items) Value() (driver.Value, error) {
	if it == nil {
		return "[]", nil
	}
	b, err := json.Marshal(it)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (it *Items) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*it = nil
		return nil
	case []byte:
		return json.Unmarshal(v, it)
	case string:
		return json.Unmarshal([]byte(v), it)
	default:
		return fmt.Errorf("unsupported items column type %T", src)
	}
}

// Order represents a restaurant order tracked through its lifecycle.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                   string     `bun:"id,pk"`
	OrderNumber          string     `bun:"order_number"`
	CustomerName         string     `bun:"customer_name"`
	CustomerPhone        string     `bun:"customer_phone"`
	OrderType            string     `bun:"order_type"`
	TableNumber          string     `bun:"table_number"`
	Items                Items      `bun:"items,type:jsonb"`
	TotalAmount          float64    `bun:"total_amount"`
	Status               string     `bun:"status"`
	PaymentStatus        string     `bun:"payment_status"`
	PaymentMethod        string     `bun:"payment_method"`
	IsArchived           bool       `bun:"is_archived"`
	IsDeleted            bool       `bun:"is_deleted"`
	ScheduledForDeletion bool       `bun:"scheduled_for_deletion"`
	DeletedFrom          string     `bun:"deleted_from"`
	CreatedAt            time.Time  `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	DeletedAt            *time.Time `bun:"deleted_at"`
	PaidAt               *time.Time `bun:"paid_at"`
}

// OrderPatch carries a partial update; nil fields are left untouched.
type OrderPatch struct {
	OrderNumber          *string
	CustomerName         *string
	CustomerPhone        *string
	OrderType            *string
	TableNumber          *string
	Items                *Items
	TotalAmount          *float64
	Status               *string
	PaymentStatus        *string
	PaymentMethod        *string
	IsArchived           *bool
	IsDeleted            *bool
	ScheduledForDeletion *bool
	DeletedFrom          *string
	DeletedAt            *time.Time
	PaidAt               *time.Time
}

// Apply copies the set fields of the patch onto the order.
func (p OrderPatch) Apply(o *Order) {
	if p.OrderNumber != nil {
		o.OrderNumber = *p.OrderNumber
	}
	if p.CustomerName != nil {
		o.CustomerName = *p.CustomerName
	}
	if p.CustomerPhone != nil {
		o.CustomerPhone = *p.CustomerPhone
	}
	if p.OrderType != nil {
		o.OrderType = *p.OrderType
	}
	if p.TableNumber != nil {
		o.TableNumber = *p.TableNumber
	}
	if p.Items != nil {
		o.Items = *p.Items
	}
	if p.TotalAmount != nil {
		o.TotalAmount = *p.TotalAmount
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentMethod != nil {
		o.PaymentMethod = *p.PaymentMethod
	}
	if p.IsArchived != nil {
		o.IsArchived = *p.IsArchived
	}
	if p.IsDeleted != nil {
		o.IsDeleted = *p.IsDeleted
	}
	if p.ScheduledForDeletion != nil {
		o.ScheduledForDeletion = *p.ScheduledForDeletion
	}
	if p.DeletedFrom != nil {
		o.DeletedFrom = *p.DeletedFrom
	}
	if p.DeletedAt != nil {
		o.DeletedAt = p.DeletedAt
	}
	if p.PaidAt != nil {
		o.PaidAt = p.PaidAt
	}
}

// KnownStatus reports whether s is one of the recognised order statuses.
func KnownStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusCompleted, StatusCancelled, StatusDeleted:
		return true
	}
	return false
}

// KnownPaymentStatus reports whether s is a recognised payment status.
func KnownPaymentStatus(s string) bool {
	return s == PaymentUnpaid || s == PaymentPaid
}
