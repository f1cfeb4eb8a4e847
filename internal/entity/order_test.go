package entity

import (
	"testing"
	"time"
)

func TestItemsScanValue(t *testing.T) {
	items := Items{
		{Name: "Latte", Quantity: 2, Size: "M", Price: 4.5},
		{Name: "Bagel", Quantity: 1, Price: 3},
	}

	v, err := items.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got Items
	if err := got.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Latte" || got[1].Price != 3 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestItemsScanNil(t *testing.T) {
	got := Items{{Name: "stale"}}
	if err := got.Scan(nil); err != nil {
		t.Fatalf("Scan nil: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestItemsValueNil(t *testing.T) {
	var items Items
	v, err := items.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "[]" {
		t.Errorf("nil items render as %v, want empty array", v)
	}
}

func TestOrderPatchApply(t *testing.T) {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	order := Order{
		ID:           "o1",
		OrderNumber:  "DS-1",
		CustomerName: "Wei Lin",
		Status:       StatusPending,
		TotalAmount:  10,
		CreatedAt:    created,
	}

	status := StatusCompleted
	total := 12.5
	paidAt := created.Add(time.Hour)
	patch := OrderPatch{
		Status:      &status,
		TotalAmount: &total,
		PaidAt:      &paidAt,
	}
	patch.Apply(&order)

	if order.Status != StatusCompleted || order.TotalAmount != 12.5 {
		t.Errorf("patched fields not applied: %+v", order)
	}
	if order.PaidAt == nil || !order.PaidAt.Equal(paidAt) {
		t.Errorf("paidAt = %v, want %v", order.PaidAt, paidAt)
	}
	if order.CustomerName != "Wei Lin" || order.OrderNumber != "DS-1" {
		t.Error("nil patch fields must leave the order untouched")
	}
}

func TestKnownStatus(t *testing.T) {
	for _, s := range []string{
		StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusCompleted, StatusCancelled, StatusDeleted,
	} {
		if !KnownStatus(s) {
			t.Errorf("KnownStatus(%q) = false", s)
		}
	}
	if KnownStatus("vanished") || KnownStatus("") {
		t.Error("unknown statuses must be rejected")
	}
	if !KnownPaymentStatus(PaymentPaid) || KnownPaymentStatus("iou") {
		t.Error("payment status set is paid/unpaid only")
	}
}
