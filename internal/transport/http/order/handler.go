package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/driftsip/orderdesk/internal/dto"
	"github.com/driftsip/orderdesk/internal/entity"
	"github.com/driftsip/orderdesk/internal/presentation/http/response"
	service "github.com/driftsip/orderdesk/internal/service/order"
	"github.com/driftsip/orderdesk/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/driftsip/orderdesk/transport/http/order")

// Handler exposes order lifecycle endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. Fixed paths are routed
// before the :id parameter routes.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("", h.listActive)
	g.GET("/admin", h.listAll)
	g.GET("/export", h.exportCSV)
	g.GET("/trash", h.listDeleted)
	g.POST("/trash/empty", h.emptyTrash)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/restore", h.restore)
	g.POST("/:id/pay", h.markPaid)
	g.PATCH("/:id/pay", h.markPaid)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := decodeStrict(c, &payload); err != nil {
		return b.WithError(err).Build()
	}

	order := &entity.Order{
		OrderNumber:   payload.OrderNumber,
		OrderType:     payload.OrderType,
		TableNumber:   payload.TableNumber,
		Items:         payload.Items,
		TotalAmount:   payload.TotalAmount,
		Status:        payload.Status,
		PaymentStatus: payload.PaymentStatus,
	}
	if payload.Customer != nil {
		order.CustomerName = payload.Customer.Name
		order.CustomerPhone = payload.Customer.Phone
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	span.SetAttributes(attribute.String("order.number", order.OrderNumber))
	defer span.End()

	if err := h.svc.Create(ctx, order); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) listActive(c echo.Context) error {
	b := response.New(c)
	excludeCardDeleted := c.QueryParam("excludeOrderCardDeleted") == "true"

	orders, err := h.svc.ListActive(c.Request().Context(), excludeCardDeleted)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrders(orders)).Build()
}

func (h *Handler) listAll(c echo.Context) error {
	b := response.New(c)

	orders, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrders(orders)).Build()
}

func (h *Handler) listDeleted(c echo.Context) error {
	b := response.New(c)

	orders, err := h.svc.ListDeleted(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrders(orders)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.UpdateOrderRequest
	if err := decodeStrict(c, &payload); err != nil {
		return b.WithError(err).Build()
	}

	patch := entity.OrderPatch{
		OrderNumber:   payload.OrderNumber,
		OrderType:     payload.OrderType,
		TableNumber:   payload.TableNumber,
		Items:         payload.Items,
		TotalAmount:   payload.TotalAmount,
		Status:        payload.Status,
		PaymentStatus: payload.PaymentStatus,
		PaymentMethod: payload.PaymentMethod,
	}
	if payload.Customer != nil {
		patch.CustomerName = &payload.Customer.Name
		patch.CustomerPhone = &payload.Customer.Phone
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.UpdateFields(ctx, id, patch)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

// delete routes to the permanent or soft path. The soft-delete origin comes
// from the body when present, falling back to the deletedFrom query param.
func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if c.QueryParam("permanent") == "true" {
		if err := h.svc.PermanentDelete(ctx, id); err != nil {
			return b.WithError(err).Build()
		}
		return b.WithData(map[string]string{"message": "order permanently deleted"}).Build()
	}

	origin := c.QueryParam("deletedFrom")
	var payload dto.DeleteOrderRequest
	if err := c.Bind(&payload); err == nil && payload.DeletedFrom != "" {
		origin = payload.DeletedFrom
	}

	order, err := h.svc.SoftDelete(ctx, id, origin)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) restore(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.restore", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Restore(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) markPaid(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.PayOrderRequest
	_ = c.Bind(&payload)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.markPaid", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.MarkPaid(ctx, id, payload.PaymentMethod)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) emptyTrash(c echo.Context) error {
	b := response.New(c)

	n, err := h.svc.EmptyTrash(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.EmptyTrashResponse{DeletedCount: n}).Build()
}

func (h *Handler) exportCSV(c echo.Context) error {
	data, err := h.svc.ExportCSV(c.Request().Context())
	if err != nil {
		return response.New(c).WithError(err).Build()
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.csv"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

// decodeStrict rejects payloads carrying unknown fields so schema drift
// surfaces as a validation error instead of silently dropped data.
func decodeStrict(c echo.Context, v any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errorbank.BadRequest("request body is required")
		}
		return errorbank.Validation("invalid payload", nil, errorbank.WithCause(err))
	}
	return nil
}
