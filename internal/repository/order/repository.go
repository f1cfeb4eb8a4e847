package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftsip/orderdesk/internal/database"
	"github.com/driftsip/orderdesk/internal/entity"
)

var repoTracer = otel.Tracer("github.com/driftsip/orderdesk/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Insert persists a new order using the write connection.
func (r *Repository) Insert(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Insert", trace.WithAttributes(attribute.String("order.id", order.ID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order by identity using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// ListActive returns non-archived orders that were not admin-deleted,
// newest first. With excludeCardDeleted, order-card deletions are hidden too.
func (r *Repository) ListActive(ctx context.Context, excludeCardDeleted bool) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListActive", trace.WithAttributes(attribute.Bool("exclude_card_deleted", excludeCardDeleted)))
	defer span.End()

	var orders []entity.Order
	q := r.reader.NewSelect().Model(&orders).
		Where("is_archived = ?", false).
		Where("deleted_from <> ?", entity.OriginAdmin)
	if excludeCardDeleted {
		q = q.Where("deleted_from <> ?", entity.OriginOrderCard)
	}
	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListAll returns every order regardless of state, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListAll")
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().Model(&orders).Order("created_at DESC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListDeleted returns the trash view: admin-origin deletions only, ordered
// by deletion time descending. Rows without a deleted_at sort last.
func (r *Repository) ListDeleted(ctx context.Context) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListDeleted")
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Where("deleted_from = ?", entity.OriginAdmin).
		OrderExpr("deleted_at DESC NULLS LAST").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Update applies the patch to a single order and returns the updated row.
func (r *Repository) Update(ctx context.Context, id string, patch entity.OrderPatch) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	q := r.writer.NewUpdate().Model((*entity.Order)(nil)).Where("id = ?", id)
	q = applyPatch(q, patch)

	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}

	// Re-read on the writer so the caller sees its own update even with a
	// lagging read replica.
	order := new(entity.Order)
	if err := r.writer.NewSelect().Model(order).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// Delete removes a single order permanently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

// DeleteTrash permanently removes every soft-deleted order, regardless of
// origin, in one statement. Returns the number of rows removed.
func (r *Repository) DeleteTrash(ctx context.Context) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteTrash")
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.Order)(nil)).
		Where("deleted_from IN (?)", bun.In([]string{entity.OriginAdmin, entity.OriginOrderCard})).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("orders.deleted", n))
	return n, nil
}

// ArchiveBefore flags every active order created at or before the cutoff as
// archived, excluding admin-deleted ones. Returns the number of rows touched.
func (r *Repository) ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ArchiveBefore", trace.WithAttributes(attribute.String("cutoff", cutoff.Format(time.RFC3339))))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("is_archived = ?", true).
		Where("created_at <= ?", cutoff).
		Where("is_archived = ?", false).
		Where("deleted_from <> ?", entity.OriginAdmin).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("orders.archived", n))
	return n, nil
}

// PurgeScheduledBefore permanently removes orders scheduled for deletion
// whose deleted_at lies at or before the cutoff.
func (r *Repository) PurgeScheduledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.PurgeScheduledBefore", trace.WithAttributes(attribute.String("cutoff", cutoff.Format(time.RFC3339))))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.Order)(nil)).
		Where("scheduled_for_deletion = ?", true).
		Where("deleted_at IS NOT NULL").
		Where("deleted_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("orders.purged", n))
	return n, nil
}

func applyPatch(q *bun.UpdateQuery, p entity.OrderPatch) *bun.UpdateQuery {
	if p.OrderNumber != nil {
		q = q.Set("order_number = ?", *p.OrderNumber)
	}
	if p.CustomerName != nil {
		q = q.Set("customer_name = ?", *p.CustomerName)
	}
	if p.CustomerPhone != nil {
		q = q.Set("customer_phone = ?", *p.CustomerPhone)
	}
	if p.OrderType != nil {
		q = q.Set("order_type = ?", *p.OrderType)
	}
	if p.TableNumber != nil {
		q = q.Set("table_number = ?", *p.TableNumber)
	}
	if p.Items != nil {
		q = q.Set("items = ?", *p.Items)
	}
	if p.TotalAmount != nil {
		q = q.Set("total_amount = ?", *p.TotalAmount)
	}
	if p.Status != nil {
		q = q.Set("status = ?", *p.Status)
	}
	if p.PaymentStatus != nil {
		q = q.Set("payment_status = ?", *p.PaymentStatus)
	}
	if p.PaymentMethod != nil {
		q = q.Set("payment_method = ?", *p.PaymentMethod)
	}
	if p.IsArchived != nil {
		q = q.Set("is_archived = ?", *p.IsArchived)
	}
	if p.IsDeleted != nil {
		q = q.Set("is_deleted = ?", *p.IsDeleted)
	}
	if p.ScheduledForDeletion != nil {
		q = q.Set("scheduled_for_deletion = ?", *p.ScheduledForDeletion)
	}
	if p.DeletedFrom != nil {
		q = q.Set("deleted_from = ?", *p.DeletedFrom)
	}
	if p.DeletedAt != nil {
		q = q.Set("deleted_at = ?", *p.DeletedAt)
	}
	if p.PaidAt != nil {
		q = q.Set("paid_at = ?", *p.PaidAt)
	}
	return q
}
