package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/service"
)

// SellerHandler serves shop management: registration, product stock and
// the daily order quota.
type SellerHandler struct {
	Sellers *service.SellerService
	Log     *logrus.Logger
}

type createSellerRequest struct {
	Name              string                    `json:"name" validate:"required"`
	WorkingHours      map[string]model.DayHours `json:"working_hours" validate:"required"`
	SlotDurationMin   int                       `json:"slot_duration_min" validate:"omitempty,oneof=60 90 120 180"`
	SlotLeadTimeMin   int                       `json:"slot_lead_time_min" validate:"omitempty,min=0"`
	SlotDaysAhead     int                       `json:"slot_days_ahead" validate:"omitempty,min=1,max=30"`
	DeliveriesPerSlot int                       `json:"deliveries_per_slot" validate:"omitempty,min=1"`
}

// Create registers the caller's shop.
func (h *SellerHandler) Create(c echo.Context) error {
	var req createSellerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s := &model.Seller{
		OwnerUserID:       actor(c).UserID,
		Name:              req.Name,
		WorkingHours:      model.WeekSchedule(req.WorkingHours),
		SlotDurationMin:   req.SlotDurationMin,
		SlotLeadTimeMin:   req.SlotLeadTimeMin,
		SlotDaysAhead:     req.SlotDaysAhead,
		DeliveriesPerSlot: req.DeliveriesPerSlot,
	}
	if err := h.Sellers.CreateSeller(c.Request().Context(), s); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": s.ID, "name": s.Name})
}

type quotaRequest struct {
	MaxDelivery int `json:"max_delivery" validate:"min=0"`
	MaxPickup   int `json:"max_pickup" validate:"min=0"`
}

// DeclareQuota sets the shop's order limits for the current business day.
func (h *SellerHandler) DeclareQuota(c echo.Context) error {
	var req quotaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seller, err := h.Sellers.GetSellerByOwner(c.Request().Context(), actor(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	cap, err := h.Sellers.DeclareDailyQuota(c.Request().Context(), seller.ID, req.MaxDelivery, req.MaxPickup)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, capacityJSON(cap, true))
}

// Capacity shows the shop's current ledger.
func (h *SellerHandler) Capacity(c echo.Context) error {
	seller, err := h.Sellers.GetSellerByOwner(c.Request().Context(), actor(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	cap, valid, err := h.Sellers.Capacity(c.Request().Context(), seller.ID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, capacityJSON(cap, valid))
}

type createProductRequest struct {
	Name       string `json:"name" validate:"required"`
	PriceCents uint32 `json:"price_cents" validate:"required,min=1"`
	IsComposed bool   `json:"is_composed"`
	Quantity   int    `json:"quantity" validate:"min=0"`
}

// CreateProduct registers a product with initial stock.
func (h *SellerHandler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seller, err := h.Sellers.GetSellerByOwner(c.Request().Context(), actor(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	p := &model.Product{
		SellerID:      seller.ID,
		Name:          req.Name,
		PriceCents:    req.PriceCents,
		IsComposed:    req.IsComposed,
		TotalQuantity: req.Quantity,
	}
	if err := h.Sellers.CreateProduct(c.Request().Context(), p); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": p.ID, "name": p.Name})
}

type restockRequest struct {
	Total int `json:"total" validate:"min=0"`
}

// Restock sets a product's total stock.
func (h *SellerHandler) Restock(c echo.Context) error {
	productID, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	var req restockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seller, err := h.Sellers.GetSellerByOwner(c.Request().Context(), actor(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	p, err := h.Sellers.Restock(c.Request().Context(), seller.ID, productID, req.Total)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":       p.ID,
		"total":    p.TotalQuantity,
		"reserved": p.ReservedQuantity,
	})
}

func capacityJSON(cap *model.SellerCapacity, valid bool) echo.Map {
	return echo.Map{
		"limit_date":  cap.DailyLimitDate,
		"valid_today": valid,
		"delivery": echo.Map{
			"max": cap.Delivery.Max, "active": cap.Delivery.Active, "pending": cap.Delivery.Pending,
		},
		"pickup": echo.Map{
			"max": cap.Pickup.Max, "active": cap.Pickup.Active, "pending": cap.Pickup.Pending,
		},
	}
}
