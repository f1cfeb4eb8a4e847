package order

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/driftsip/orderdesk/internal/entity"
)

func TestExportCSVEmpty(t *testing.T) {
	svc := newTestService(newMemStore())

	out, err := svc.ExportCSV(context.Background())
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	rows := parseCSV(t, out)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want header only", len(rows))
	}
	want := []string{
		"orderId", "orderNumber", "customerName", "customerPhone",
		"orderType", "tableNumber", "status", "paymentStatus",
		"totalAmount", "items", "createdAt", "paidAt",
	}
	for i, col := range want {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
}

func TestExportCSVRow(t *testing.T) {
	svc := newTestService(newMemStore())

	order := seedOrder(t, svc, func(o *entity.Order) {
		o.OrderNumber = "DS-2001"
		o.CustomerName = `Lee, "Ah Hock"`
		o.Items = entity.Items{
			{Name: "Latte", Quantity: 2, Size: "M", Price: 4.5},
			{Name: "Kaya Toast", Quantity: 1, Price: 3},
		}
		o.TotalAmount = 12
	})
	if _, err := svc.MarkPaid(context.Background(), order.ID, "cash"); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}

	out, err := svc.ExportCSV(context.Background())
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	rows := parseCSV(t, out)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one order", len(rows))
	}
	row := rows[1]

	if row[0] != order.ID || row[1] != "DS-2001" {
		t.Errorf("identity columns = %q, %q", row[0], row[1])
	}
	if row[2] != `Lee, "Ah Hock"` {
		t.Errorf("customerName round-trip failed: %q", row[2])
	}
	if row[6] != entity.StatusConfirmed || row[7] != entity.PaymentPaid {
		t.Errorf("status columns = %q, %q", row[6], row[7])
	}
	if row[8] != "12" {
		t.Errorf("totalAmount = %q, want 12", row[8])
	}
	wantItems := "2x Latte (M) @ 4.5; 1x Kaya Toast () @ 3"
	if row[9] != wantItems {
		t.Errorf("items cell = %q, want %q", row[9], wantItems)
	}
	if row[10] != testTime.Format(time.RFC3339) {
		t.Errorf("createdAt = %q, want %q", row[10], testTime.Format(time.RFC3339))
	}
	if row[11] != testTime.Format(time.RFC3339) {
		t.Errorf("paidAt = %q, want %q", row[11], testTime.Format(time.RFC3339))
	}
}

func TestExportCSVUnpaidHasEmptyPaidAt(t *testing.T) {
	svc := newTestService(newMemStore())
	seedOrder(t, svc, nil)

	out, err := svc.ExportCSV(context.Background())
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	rows := parseCSV(t, out)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1][11] != "" {
		t.Errorf("paidAt = %q, want empty cell", rows[1][11])
	}
}

func TestFlattenItems(t *testing.T) {
	tests := []struct {
		name  string
		items entity.Items
		want  string
	}{
		{"empty", nil, ""},
		{"single", entity.Items{{Name: "Mocha", Quantity: 1, Size: "L", Price: 5.25}}, "1x Mocha (L) @ 5.25"},
		{"no size", entity.Items{{Name: "Bagel", Quantity: 3, Price: 2}}, "3x Bagel () @ 2"},
		{
			"multiple",
			entity.Items{
				{Name: "Latte", Quantity: 2, Size: "M", Price: 4.5},
				{Name: "Scone", Quantity: 1, Size: "", Price: 3.1},
			},
			"2x Latte (M) @ 4.5; 1x Scone () @ 3.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenItems(tt.items); got != tt.want {
				t.Errorf("flattenItems() = %q, want %q", got, tt.want)
			}
		})
	}
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return rows
}
