package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/service"
)

// OrderHandler serves order creation and lifecycle transitions for both
// sides of the marketplace.  Who may do what is enforced by the service.
type OrderHandler struct {
	Orders *service.OrderService
	Log    *logrus.Logger
}

type orderLineRequest struct {
	ProductID uint64 `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	SellerID     uint64             `json:"seller_id" validate:"required"`
	DeliveryType string             `json:"delivery_type" validate:"required,oneof=delivery pickup"`
	DistrictID   *uint64            `json:"district_id"`
	SlotDate     string             `json:"slot_date"`
	SlotStart    string             `json:"slot_start"`
	Lines        []orderLineRequest `json:"lines" validate:"dive"`
}

// Create admits a new order.  With no explicit lines the buyer's cart
// lines for the seller are checked out.
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	in := service.CreateOrderInput{
		BuyerID:      actor(c).UserID,
		SellerID:     req.SellerID,
		DeliveryType: model.DeliveryType(req.DeliveryType),
		DistrictID:   req.DistrictID,
	}
	if req.SlotDate != "" && req.SlotStart != "" {
		in.Slot = &service.SlotRequest{Date: req.SlotDate, Start: req.SlotStart}
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, service.OrderLineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	o, err := h.Orders.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, orderJSON(o))
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// Transition moves an order to a new status.  Buyers cancel or confirm
// receipt; sellers accept, reject and progress fulfillment.
func (h *OrderHandler) Transition(c echo.Context) error {
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	o, err := h.Orders.Transition(c.Request().Context(), orderID, model.OrderStatus(req.Status), actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orderJSON(o))
}

// MarkPaid records payment confirmation from the seller's side.
func (h *OrderHandler) MarkPaid(c echo.Context) error {
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Orders.MarkPaid(c.Request().Context(), orderID, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	m := orderJSON(o)
	m["paid_at"] = o.PaidAt
	return c.JSON(http.StatusOK, m)
}

// Get returns one order with its items.
func (h *OrderHandler) Get(c echo.Context) error {
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	o, items, err := h.Orders.GetOrder(c.Request().Context(), orderID, actor(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	m := orderJSON(o)
	lines := make([]echo.Map, 0, len(items))
	for _, it := range items {
		lines = append(lines, echo.Map{
			"product_id":  it.ProductID,
			"quantity":    it.Quantity,
			"price_cents": it.PriceCents,
			"preorder":    it.IsPreorder,
		})
	}
	m["items"] = lines
	return c.JSON(http.StatusOK, m)
}

// ListMine returns the buyer's orders.
func (h *OrderHandler) ListMine(c echo.Context) error {
	orders, err := h.Orders.ListBuyerOrders(c.Request().Context(), actor(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": ordersJSON(orders)})
}

// ListIncoming returns the orders against the caller's shop.
func (h *OrderHandler) ListIncoming(c echo.Context) error {
	orders, err := h.Orders.ListSellerOrders(c.Request().Context(), actor(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": ordersJSON(orders)})
}

func ordersJSON(orders []model.Order) []echo.Map {
	out := make([]echo.Map, 0, len(orders))
	for i := range orders {
		out = append(out, orderJSON(&orders[i]))
	}
	return out
}

func orderJSON(o *model.Order) echo.Map {
	m := echo.Map{
		"id":             o.ID,
		"number":         o.Number,
		"seller_id":      o.SellerID,
		"status":         string(o.Status),
		"delivery_type":  string(o.DeliveryType),
		"subtotal_cents": o.SubtotalCents,
		"created_at":     o.CreatedAt,
	}
	if o.DeliveryType == model.DeliveryTypeDelivery {
		m["delivery_price_cents"] = o.DeliveryPriceCents
		if o.SlotDate != "" {
			m["slot"] = echo.Map{"date": o.SlotDate, "start": o.SlotStart, "end": o.SlotEnd}
		}
	}
	return m
}
