package seeder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/driftsip/orderdesk/internal/database"
	"github.com/driftsip/orderdesk/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds example restaurant orders if they are missing.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Order{
		{
			ID:            uuid.NewString(),
			OrderNumber:   "DS-1000",
			CustomerName:  "Maya Tan",
			CustomerPhone: "+65 9123 4567",
			OrderType:     "dine-in",
			TableNumber:   "4",
			Items: entity.Items{
				{Name: "Latte", Quantity: 2, Size: "M", Price: 4.5},
				{Name: "Croissant", Quantity: 1, Price: 3.2},
			},
			TotalAmount:   12.2,
			Status:        entity.StatusPending,
			PaymentStatus: entity.PaymentUnpaid,
			CreatedAt:     now,
		},
		{
			ID:            uuid.NewString(),
			OrderNumber:   "DS-1001",
			CustomerName:  "Jordan Lee",
			OrderType:     "takeaway",
			Items: entity.Items{
				{Name: "Cold Brew", Quantity: 1, Size: "L", Price: 5.5},
			},
			TotalAmount:   5.5,
			Status:        entity.StatusConfirmed,
			PaymentStatus: entity.PaymentPaid,
			PaymentMethod: "card",
			CreatedAt:     now.Add(-2 * time.Hour),
			PaidAt:        &now,
		},
	}

	for _, sample := range samples {
		order := sample
		exists, err := s.db.NewSelect().Model((*entity.Order)(nil)).
			Where("order_number = ?", order.OrderNumber).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
