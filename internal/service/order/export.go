package order

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/driftsip/orderdesk/internal/entity"
	"github.com/driftsip/orderdesk/pkg/errorbank"
)

// csvHeader is the fixed export column order; consumers parse by position.
var csvHeader = []string{
	"orderId",
	"orderNumber",
	"customerName",
	"customerPhone",
	"orderType",
	"tableNumber",
	"status",
	"paymentStatus",
	"totalAmount",
	"items",
	"createdAt",
	"paidAt",
}

// ExportCSV renders a tabular snapshot of every order, one row per order,
// newest first. Missing optional fields render as empty cells.
func (s *Service) ExportCSV(ctx context.Context) ([]byte, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ExportCSV")
	defer span.End()

	orders, err := s.store.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, errorbank.Internal("failed to export orders", errorbank.WithCause(err))
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, errorbank.Internal("failed to write csv header", errorbank.WithCause(err))
	}
	for i := range orders {
		if err := w.Write(csvRow(&orders[i])); err != nil {
			return nil, errorbank.Internal("failed to write csv row", errorbank.WithCause(err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errorbank.Internal("failed to flush csv", errorbank.WithCause(err))
	}
	return buf.Bytes(), nil
}

func csvRow(o *entity.Order) []string {
	return []string{
		o.ID,
		o.OrderNumber,
		o.CustomerName,
		o.CustomerPhone,
		o.OrderType,
		o.TableNumber,
		o.Status,
		o.PaymentStatus,
		formatAmount(o.TotalAmount),
		flattenItems(o.Items),
		formatTime(&o.CreatedAt),
		formatTime(o.PaidAt),
	}
}

// flattenItems renders each line as "qty x name (size) @ price", joined by
// "; ". A missing size leaves the parens empty, matching the historical
// export format.
func flattenItems(items entity.Items) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts,
			strconv.Itoa(item.Quantity)+"x "+item.Name+" ("+item.Size+") @ "+formatAmount(item.Price))
	}
	return strings.Join(parts, "; ")
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
