package dto

import (
	"time"

	"github.com/driftsip/orderdesk/internal/entity"
)

// Customer is the structured customer sub-record of an order.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// OrderResponse represents an order as exposed via transport layers.
// Field names follow the public API contract (camelCase).
type OrderResponse struct {
	ID                   string       `json:"id"`
	OrderNumber          string       `json:"orderNumber,omitempty"`
	Customer             *Customer    `json:"customer,omitempty"`
	OrderType            string       `json:"orderType,omitempty"`
	TableNumber          string       `json:"tableNumber,omitempty"`
	Items                entity.Items `json:"items"`
	TotalAmount          float64      `json:"totalAmount"`
	Status               string       `json:"status"`
	PaymentStatus        string       `json:"paymentStatus"`
	PaymentMethod        string       `json:"paymentMethod,omitempty"`
	IsArchived           bool         `json:"isArchived"`
	IsDeleted            bool         `json:"isDeleted"`
	ScheduledForDeletion bool         `json:"scheduledForDeletion"`
	DeletedFrom          string       `json:"deletedFrom,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	DeletedAt            *time.Time   `json:"deletedAt,omitempty"`
	PaidAt               *time.Time   `json:"paidAt,omitempty"`
}

// CreateOrderRequest is the payload accepted by POST /orders.
type CreateOrderRequest struct {
	OrderNumber   string       `json:"orderNumber"`
	Customer      *Customer    `json:"customer"`
	OrderType     string       `json:"orderType"`
	TableNumber   string       `json:"tableNumber"`
	Items         entity.Items `json:"items"`
	TotalAmount   float64      `json:"totalAmount"`
	Status        string       `json:"status"`
	PaymentStatus string       `json:"paymentStatus"`
}

// UpdateOrderRequest is the partial payload accepted by PATCH/PUT
// /orders/:id. Pointer fields distinguish "absent" from zero values.
type UpdateOrderRequest struct {
	OrderNumber   *string       `json:"orderNumber"`
	Customer      *Customer     `json:"customer"`
	OrderType     *string       `json:"orderType"`
	TableNumber   *string       `json:"tableNumber"`
	Items         *entity.Items `json:"items"`
	TotalAmount   *float64      `json:"totalAmount"`
	Status        *string       `json:"status"`
	PaymentStatus *string       `json:"paymentStatus"`
	PaymentMethod *string       `json:"paymentMethod"`
}

// DeleteOrderRequest carries the soft-delete origin on DELETE /orders/:id.
type DeleteOrderRequest struct {
	DeletedFrom string `json:"deletedFrom"`
}

// PayOrderRequest carries the optional payment method for MarkPaid.
type PayOrderRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

// EmptyTrashResponse reports how many orders a trash purge removed.
type EmptyTrashResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

// FromOrder converts a stored order into its transport representation.
func FromOrder(o *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		OrderType:            o.OrderType,
		TableNumber:          o.TableNumber,
		Items:                o.Items,
		TotalAmount:          o.TotalAmount,
		Status:               o.Status,
		PaymentStatus:        o.PaymentStatus,
		PaymentMethod:        o.PaymentMethod,
		IsArchived:           o.IsArchived,
		IsDeleted:            o.IsDeleted,
		ScheduledForDeletion: o.ScheduledForDeletion,
		DeletedFrom:          o.DeletedFrom,
		CreatedAt:            o.CreatedAt,
		DeletedAt:            o.DeletedAt,
		PaidAt:               o.PaidAt,
	}
	if o.CustomerName != "" || o.CustomerPhone != "" {
		resp.Customer = &Customer{Name: o.CustomerName, Phone: o.CustomerPhone}
	}
	return resp
}

// FromOrders converts a list of stored orders.
func FromOrders(orders []entity.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, FromOrder(&orders[i]))
	}
	return out
}
