package order

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/driftsip/orderdesk/internal/config"
	"github.com/driftsip/orderdesk/internal/dto"
	"github.com/driftsip/orderdesk/internal/entity"
	repo "github.com/driftsip/orderdesk/internal/repository/order"
	service "github.com/driftsip/orderdesk/internal/service/order"
)

// fakeStore is a map-backed service.Store for exercising the handlers
// without a database.
type fakeStore struct {
	orders map[string]*entity.Order
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*entity.Order{}}
}

func (f *fakeStore) Insert(_ context.Context, order *entity.Order) error {
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*entity.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) list(filter func(*entity.Order) bool) []entity.Order {
	var out []entity.Order
	for _, o := range f.orders {
		if filter(o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *fakeStore) ListActive(_ context.Context, excludeCardDeleted bool) ([]entity.Order, error) {
	return f.list(func(o *entity.Order) bool {
		if o.IsArchived || o.DeletedFrom == entity.OriginAdmin {
			return false
		}
		if excludeCardDeleted && o.DeletedFrom == entity.OriginOrderCard {
			return false
		}
		return true
	}), nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]entity.Order, error) {
	return f.list(func(*entity.Order) bool { return true }), nil
}

func (f *fakeStore) ListDeleted(_ context.Context) ([]entity.Order, error) {
	return f.list(func(o *entity.Order) bool {
		return o.DeletedFrom == entity.OriginAdmin
	}), nil
}

func (f *fakeStore) Update(_ context.Context, id string, patch entity.OrderPatch) (*entity.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	patch.Apply(o)
	cp := *o
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.orders[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeStore) DeleteTrash(_ context.Context) (int64, error) {
	var n int64
	for id, o := range f.orders {
		if o.DeletedFrom == entity.OriginAdmin || o.DeletedFrom == entity.OriginOrderCard {
			delete(f.orders, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ArchiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if !o.IsArchived && o.DeletedFrom != entity.OriginAdmin && !o.CreatedAt.After(cutoff) {
			o.IsArchived = true
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) PurgeScheduledBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, o := range f.orders {
		if o.ScheduledForDeletion && o.DeletedAt != nil && !o.DeletedAt.After(cutoff) {
			delete(f.orders, id)
			n++
		}
	}
	return n, nil
}

func newTestServer() *echo.Echo {
	svc := service.NewService(service.Params{
		Store:  newFakeStore(),
		Config: config.Config{},
	})
	e := echo.New()
	Register(e, NewHandler(svc))
	return e
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func do(t *testing.T, e *echo.Echo, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func createOrder(t *testing.T, e *echo.Echo, payload dto.CreateOrderRequest) dto.OrderResponse {
	t.Helper()
	rec, env := do(t, e, http.MethodPost, "/orders", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var order dto.OrderResponse
	if err := json.Unmarshal(env.Data, &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	return order
}

func sampleCreate() dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		OrderNumber: "DS-3001",
		Customer:    &dto.Customer{Name: "Priya Nair", Phone: "+65 8000 1234"},
		OrderType:   "takeaway",
		Items: entity.Items{
			{Name: "Flat White", Quantity: 1, Size: "S", Price: 4},
		},
		TotalAmount: 4,
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	e := newTestServer()

	order := createOrder(t, e, sampleCreate())

	if order.ID == "" {
		t.Error("expected an assigned id")
	}
	if order.Status != entity.StatusPending || order.PaymentStatus != entity.PaymentUnpaid {
		t.Errorf("defaults not applied: status=%q paymentStatus=%q", order.Status, order.PaymentStatus)
	}
	if order.Customer == nil || order.Customer.Name != "Priya Nair" {
		t.Errorf("customer not echoed back: %+v", order.Customer)
	}
}

func TestCreateOrderRejectsUnknownField(t *testing.T) {
	e := newTestServer()

	rec, env := do(t, e, http.MethodPost, "/orders", map[string]any{
		"orderNumber": "DS-3002",
		"totalAmonut": 9,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	if env.Success || env.Error != "validation_error" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestCreateOrderRequiresBody(t *testing.T) {
	e := newTestServer()

	rec, env := do(t, e, http.MethodPost, "/orders", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Success {
		t.Error("expected a failure envelope")
	}
}

func TestGetOrderNotFound(t *testing.T) {
	e := newTestServer()

	rec, env := do(t, e, http.MethodGet, "/orders/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env.Success || env.Error != "not_found" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestUpdateOrderEndpoint(t *testing.T) {
	e := newTestServer()
	order := createOrder(t, e, sampleCreate())

	rec, env := do(t, e, http.MethodPatch, "/orders/"+order.ID, map[string]any{
		"status":      entity.StatusReady,
		"tableNumber": "12",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got dto.OrderResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.StatusReady || got.TableNumber != "12" {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.OrderNumber != order.OrderNumber {
		t.Error("untouched fields must survive")
	}
}

func TestSoftDeleteViaBody(t *testing.T) {
	e := newTestServer()
	order := createOrder(t, e, sampleCreate())

	rec, env := do(t, e, http.MethodDelete, "/orders/"+order.ID, dto.DeleteOrderRequest{DeletedFrom: entity.OriginOrderCard})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got dto.OrderResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if !got.IsDeleted || !got.ScheduledForDeletion || got.DeletedFrom != entity.OriginOrderCard {
		t.Errorf("orderCard delete flags missing: %+v", got)
	}
	if got.Status != entity.StatusPending {
		t.Errorf("status = %q, the orderCard path must leave it alone", got.Status)
	}
}

func TestSoftDeleteViaQueryParam(t *testing.T) {
	e := newTestServer()
	order := createOrder(t, e, sampleCreate())

	rec, env := do(t, e, http.MethodDelete, "/orders/"+order.ID+"?deletedFrom=admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got dto.OrderResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != entity.StatusDeleted || got.DeletedFrom != entity.OriginAdmin {
		t.Errorf("admin delete not applied: %+v", got)
	}
	if got.DeletedAt != nil {
		t.Error("the admin path must not stamp deletedAt")
	}
}

func TestPermanentDeleteEndpoint(t *testing.T) {
	e := newTestServer()
	order := createOrder(t, e, sampleCreate())

	rec, _ := do(t, e, http.MethodDelete, "/orders/"+order.ID+"?permanent=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(t, e, http.MethodGet, "/orders/"+order.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after permanent delete = %d, want 404", rec.Code)
	}
}

func TestRestoreEndpoint(t *testing.T) {
	e := newTestServer()
	order := createOrder(t, e, sampleCreate())
	if rec, _ := do(t, e, http.MethodDelete, "/orders/"+order.ID+"?deletedFrom=admin", nil); rec.Code != http.StatusOK {
		t.Fatal("delete failed")
	}

	rec, env := do(t, e, http.MethodPost, "/orders/"+order.ID+"/restore", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got dto.OrderResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.DeletedFrom != "" || got.Status != entity.StatusPending {
		t.Errorf("restore incomplete: %+v", got)
	}
}

func TestMarkPaidEndpoint(t *testing.T) {
	e := newTestServer()
	order := createOrder(t, e, sampleCreate())

	rec, env := do(t, e, http.MethodPost, "/orders/"+order.ID+"/pay", dto.PayOrderRequest{PaymentMethod: "card"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got dto.OrderResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.PaymentStatus != entity.PaymentPaid || got.Status != entity.StatusConfirmed {
		t.Errorf("payment not applied: %+v", got)
	}
	if got.PaymentMethod != "card" || got.PaidAt == nil {
		t.Errorf("payment metadata missing: %+v", got)
	}
}

func TestListEndpoints(t *testing.T) {
	e := newTestServer()

	active := createOrder(t, e, sampleCreate())
	adminDeleted := createOrder(t, e, sampleCreate())
	cardDeleted := createOrder(t, e, sampleCreate())
	if rec, _ := do(t, e, http.MethodDelete, "/orders/"+adminDeleted.ID+"?deletedFrom=admin", nil); rec.Code != http.StatusOK {
		t.Fatal("admin delete failed")
	}
	if rec, _ := do(t, e, http.MethodDelete, "/orders/"+cardDeleted.ID+"?deletedFrom=orderCard", nil); rec.Code != http.StatusOK {
		t.Fatal("card delete failed")
	}

	listIDs := func(target string) map[string]bool {
		rec, env := do(t, e, http.MethodGet, target, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", target, rec.Code)
		}
		var orders []dto.OrderResponse
		if err := json.Unmarshal(env.Data, &orders); err != nil {
			t.Fatal(err)
		}
		ids := map[string]bool{}
		for _, o := range orders {
			ids[o.ID] = true
		}
		return ids
	}

	ids := listIDs("/orders")
	if !ids[active.ID] || !ids[cardDeleted.ID] || ids[adminDeleted.ID] {
		t.Errorf("default listing = %v", ids)
	}

	ids = listIDs("/orders?excludeOrderCardDeleted=true")
	if !ids[active.ID] || ids[cardDeleted.ID] || ids[adminDeleted.ID] {
		t.Errorf("filtered listing = %v", ids)
	}

	ids = listIDs("/orders/admin")
	if len(ids) != 3 {
		t.Errorf("admin listing has %d orders, want 3", len(ids))
	}

	ids = listIDs("/orders/trash")
	if len(ids) != 1 || !ids[adminDeleted.ID] {
		t.Errorf("trash listing = %v", ids)
	}
}

func TestEmptyTrashEndpoint(t *testing.T) {
	e := newTestServer()

	keep := createOrder(t, e, sampleCreate())
	gone := createOrder(t, e, sampleCreate())
	if rec, _ := do(t, e, http.MethodDelete, "/orders/"+gone.ID+"?deletedFrom=admin", nil); rec.Code != http.StatusOK {
		t.Fatal("delete failed")
	}

	rec, env := do(t, e, http.MethodPost, "/orders/trash/empty", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result dto.EmptyTrashResponse
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.DeletedCount != 1 {
		t.Errorf("deletedCount = %d, want 1", result.DeletedCount)
	}

	if rec, _ := do(t, e, http.MethodGet, "/orders/"+keep.ID, nil); rec.Code != http.StatusOK {
		t.Error("untouched order was removed")
	}
}

func TestExportEndpoint(t *testing.T) {
	e := newTestServer()
	createOrder(t, e, sampleCreate())

	req := httptest.NewRequest(http.MethodGet, "/orders/export", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "orders.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("export has %d lines, want header plus one order", len(lines))
	}
	if !strings.HasPrefix(lines[0], "orderId,orderNumber,") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1x Flat White (S) @ 4") {
		t.Errorf("row = %q", lines[1])
	}
}
