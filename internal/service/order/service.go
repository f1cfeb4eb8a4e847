package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/driftsip/orderdesk/internal/cache"
	"github.com/driftsip/orderdesk/internal/config"
	"github.com/driftsip/orderdesk/internal/entity"
	"github.com/driftsip/orderdesk/internal/messaging"
	repo "github.com/driftsip/orderdesk/internal/repository/order"
	"github.com/driftsip/orderdesk/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/driftsip/orderdesk/service/order")

// Store is the persistence contract the lifecycle service operates on.
// The bun repository satisfies it; tests plug in an in-memory fake.
type Store interface {
	Insert(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	ListActive(ctx context.Context, excludeCardDeleted bool) ([]entity.Order, error)
	ListAll(ctx context.Context) ([]entity.Order, error)
	ListDeleted(ctx context.Context) ([]entity.Order, error)
	Update(ctx context.Context, id string, patch entity.OrderPatch) (*entity.Order, error)
	Delete(ctx context.Context, id string) error
	DeleteTrash(ctx context.Context) (int64, error)
	ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeScheduledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service enforces the order lifecycle: creation, status and payment
// transitions, the two soft-delete flavors, trash handling, archiving,
// and CSV export.
type Service struct {
	store     Store
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	archiver  config.Archiver
	now       func() time.Time
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     Store
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:     p.Store,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		archiver: p.Config.Archiver,
		now:      time.Now,
	}
}

// Create validates and persists a new order, assigning identity and
// creation time. Status defaults to pending, payment status to unpaid.
func (s *Service) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errorbank.BadRequest("order payload is required")
	}
	if err := validateOrder(order); err != nil {
		return err
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.String("order.number", order.OrderNumber)))
	defer span.End()

	order.ID = uuid.NewString()
	order.CreatedAt = s.now().UTC()
	if order.Status == "" {
		order.Status = entity.StatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = entity.PaymentUnpaid
	}
	order.IsArchived = false
	order.IsDeleted = false
	order.ScheduledForDeletion = false
	order.DeletedFrom = entity.OriginNone
	order.DeletedAt = nil
	order.PaidAt = nil

	if err := s.store.Insert(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.invalidateListings(ctx)
	s.publish(ctx, EventOrderCreated, order)
	return nil
}

// Get retrieves a single order by identity.
func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeErr(span, err, "failed to load order")
	}
	return order, nil
}

// ListActive returns non-archived, non-admin-deleted orders, newest first.
// The listing is cached briefly; every mutation drops the cache.
func (s *Service) ListActive(ctx context.Context, excludeCardDeleted bool) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListActive", trace.WithAttributes(attribute.Bool("exclude_card_deleted", excludeCardDeleted)))
	defer span.End()

	key := s.listingKey(excludeCardDeleted)
	if orders, err := s.listingFromCache(ctx, key); err == nil {
		return orders, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	orders, err := s.store.ListActive(ctx, excludeCardDeleted)
	if err != nil {
		return nil, s.storeErr(span, err, "failed to list orders")
	}

	if err := s.storeListing(ctx, key, orders); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return orders, nil
}

// ListAll returns every order regardless of state (admin full view).
func (s *Service) ListAll(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListAll")
	defer span.End()

	orders, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.storeErr(span, err, "failed to list orders")
	}
	return orders, nil
}

// ListDeleted returns the trash view. Only admin-origin deletions are
// surfaced here; order-card deletions stay hidden until purged or restored.
func (s *Service) ListDeleted(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListDeleted")
	defer span.End()

	orders, err := s.store.ListDeleted(ctx)
	if err != nil {
		return nil, s.storeErr(span, err, "failed to list deleted orders")
	}
	return orders, nil
}

// UpdateFields merges the patch into the order and returns the result.
func (s *Service) UpdateFields(ctx context.Context, id string, patch entity.OrderPatch) (*entity.Order, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateFields", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeErr(span, err, "failed to update order")
	}

	s.invalidateListings(ctx)
	return order, nil
}

// MarkPaid stamps the order paid and confirmed. Invoking it again re-stamps
// paidAt; the marker is deliberately one-way and never cleared.
func (s *Service) MarkPaid(ctx context.Context, id, paymentMethod string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.MarkPaid", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	paidAt := s.now().UTC()
	paid := entity.PaymentPaid
	confirmed := entity.StatusConfirmed
	patch := entity.OrderPatch{
		PaymentStatus: &paid,
		Status:        &confirmed,
		PaidAt:        &paidAt,
	}
	if paymentMethod != "" {
		patch.PaymentMethod = &paymentMethod
	}

	order, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeErr(span, err, "failed to mark order paid")
	}

	s.invalidateListings(ctx)
	s.publish(ctx, EventOrderPaid, order)
	return order, nil
}

// SoftDelete hides an order without erasing it. The orderCard origin flags
// the row for scheduled deletion and stamps deletedAt while leaving status
// untouched; any other origin is treated as admin, which sets only status
// and deletedFrom. The admin path records no timestamp; that asymmetry is
// inherited behavior downstream callers rely on.
func (s *Service) SoftDelete(ctx context.Context, id, origin string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.SoftDelete", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("origin", origin),
	))
	defer span.End()

	var patch entity.OrderPatch
	if origin == entity.OriginOrderCard {
		deleted := true
		scheduled := true
		deletedAt := s.now().UTC()
		from := entity.OriginOrderCard
		patch = entity.OrderPatch{
			IsDeleted:            &deleted,
			ScheduledForDeletion: &scheduled,
			DeletedAt:            &deletedAt,
			DeletedFrom:          &from,
		}
	} else {
		status := entity.StatusDeleted
		from := entity.OriginAdmin
		patch = entity.OrderPatch{
			Status:      &status,
			DeletedFrom: &from,
		}
	}

	order, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeErr(span, err, "failed to delete order")
	}

	s.invalidateListings(ctx)
	s.publish(ctx, EventOrderDeleted, order)
	return order, nil
}

// Restore brings a soft-deleted order back to the active pending state.
func (s *Service) Restore(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Restore", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	none := entity.OriginNone
	deleted := false
	scheduled := false
	pending := entity.StatusPending
	patch := entity.OrderPatch{
		DeletedFrom:          &none,
		IsDeleted:            &deleted,
		ScheduledForDeletion: &scheduled,
		Status:               &pending,
	}

	order, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeErr(span, err, "failed to restore order")
	}

	s.invalidateListings(ctx)
	s.publish(ctx, EventOrderRestored, order)
	return order, nil
}

// PermanentDelete removes the order record entirely. The identity is no
// longer valid for any operation afterwards.
func (s *Service) PermanentDelete(ctx context.Context, id string) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.PermanentDelete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeErr(span, err, "failed to delete order")
	}

	s.invalidateListings(ctx)
	return nil
}

// EmptyTrash permanently deletes every soft-deleted order, both admin and
// orderCard origin, in one batch. An empty trash is a zero-count success.
func (s *Service) EmptyTrash(ctx context.Context) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.EmptyTrash")
	defer span.End()

	n, err := s.store.DeleteTrash(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return 0, errorbank.Internal("failed to empty trash", errorbank.WithCause(err))
	}

	s.invalidateListings(ctx)
	return n, nil
}

// ArchiveStale flags every active order older than the configured staleness
// threshold as archived, skipping admin-deleted rows.
func (s *Service) ArchiveStale(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ArchiveStale")
	defer span.End()

	cutoff := now.Add(-s.archiveAfter())
	n, err := s.store.ArchiveBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return 0, errorbank.Internal("failed to archive stale orders", errorbank.WithCause(err))
	}

	s.invalidateListings(ctx)
	return n, nil
}

// PurgeScheduled permanently removes orders flagged by the order-card
// delete whose retention window has elapsed.
func (s *Service) PurgeScheduled(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.PurgeScheduled")
	defer span.End()

	cutoff := now.Add(-s.purgeAfter())
	n, err := s.store.PurgeScheduledBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return 0, errorbank.Internal("failed to purge scheduled orders", errorbank.WithCause(err))
	}

	s.invalidateListings(ctx)
	return n, nil
}

func (s *Service) archiveAfter() time.Duration {
	if s.archiver.ArchiveAfter > 0 {
		return s.archiver.ArchiveAfter
	}
	return 24 * time.Hour
}

func (s *Service) purgeAfter() time.Duration {
	if s.archiver.PurgeAfter > 0 {
		return s.archiver.PurgeAfter
	}
	return 7 * 24 * time.Hour
}

func (s *Service) storeErr(span trace.Span, err error, message string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("order not found")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "store error")
	return errorbank.Internal(message, errorbank.WithCause(err))
}

func validateOrder(order *entity.Order) error {
	fields := map[string]string{}
	if order.TotalAmount < 0 {
		fields["totalAmount"] = "must not be negative"
	}
	if order.Status != "" && !entity.KnownStatus(order.Status) {
		fields["status"] = fmt.Sprintf("unknown status %q", order.Status)
	}
	if order.PaymentStatus != "" && !entity.KnownPaymentStatus(order.PaymentStatus) {
		fields["paymentStatus"] = fmt.Sprintf("unknown payment status %q", order.PaymentStatus)
	}
	validateItems(order.Items, fields)
	if len(fields) > 0 {
		return errorbank.Validation("invalid order", fields)
	}
	return nil
}

func validatePatch(patch entity.OrderPatch) error {
	fields := map[string]string{}
	if patch.TotalAmount != nil && *patch.TotalAmount < 0 {
		fields["totalAmount"] = "must not be negative"
	}
	if patch.Status != nil && !entity.KnownStatus(*patch.Status) {
		fields["status"] = fmt.Sprintf("unknown status %q", *patch.Status)
	}
	if patch.PaymentStatus != nil && !entity.KnownPaymentStatus(*patch.PaymentStatus) {
		fields["paymentStatus"] = fmt.Sprintf("unknown payment status %q", *patch.PaymentStatus)
	}
	if patch.Items != nil {
		validateItems(*patch.Items, fields)
	}
	if len(fields) > 0 {
		return errorbank.Validation("invalid order update", fields)
	}
	return nil
}

func validateItems(items entity.Items, fields map[string]string) {
	for i, item := range items {
		if item.Name == "" {
			fields[fmt.Sprintf("items[%d].name", i)] = "is required"
		}
		if item.Quantity <= 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be positive"
		}
		if item.Price < 0 {
			fields[fmt.Sprintf("items[%d].price", i)] = "must not be negative"
		}
	}
}

const (
	listingKeyActive = "orders:active"
	listingKeyNoCard = "orders:active:nocard"
)

func (s *Service) listingKey(excludeCardDeleted bool) string {
	if excludeCardDeleted {
		return listingKeyNoCard
	}
	return listingKeyActive
}

func (s *Service) listingFromCache(ctx context.Context, key string) ([]entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var orders []entity.Order
	if err := json.Unmarshal(bytes, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) storeListing(ctx context.Context, key string, orders []entity.Order) error {
	if s.cache == nil {
		return nil
	}
	bytes, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, bytes, s.cacheTTL)
}

func (s *Service) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{listingKeyActive, listingKeyNoCard} {
		if err := s.cache.Delete(ctx, key); err != nil && s.logger != nil {
			s.logger.Warn("orders cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}
