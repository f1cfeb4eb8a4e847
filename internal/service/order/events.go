package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/driftsip/orderdesk/internal/entity"
)

// Lifecycle event types published to the message bus.
const (
	EventOrderCreated  = "order.created"
	EventOrderPaid     = "order.paid"
	EventOrderDeleted  = "order.deleted"
	EventOrderRestored = "order.restored"
)

// LifecycleEvent is emitted whenever an order crosses a lifecycle boundary.
type LifecycleEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber,omitempty"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	DeletedFrom   string    `json:"deletedFrom,omitempty"`
	TotalAmount   float64   `json:"totalAmount"`
	At            time.Time `json:"at"`
}

// publish sends a lifecycle event best-effort; failures are logged, never
// surfaced to the caller.
func (s *Service) publish(ctx context.Context, eventType string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := LifecycleEvent{
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		DeletedFrom:   order.DeletedFrom,
		TotalAmount:   order.TotalAmount,
		At:            s.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal lifecycle event", zap.String("type", eventType), zap.Error(err))
		}
		return
	}
	key := []byte(fmt.Sprintf("order-%s", order.ID))
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish lifecycle event", zap.String("type", eventType), zap.Error(err))
		}
	}
}
